// Package archivefacade provides the unified open/list/extract surface
// spec.md §4.C describes, over tar/tar.*/zip/7z archives. Built on
// github.com/mholt/archives (the same unified facade autobrr-qui uses
// for its backup archives), with github.com/ulikunitz/xz backing the
// .tar.xz compression case and github.com/bodgit/sevenzip backing .7z,
// both pulled in transitively by archives itself.
package archivefacade
