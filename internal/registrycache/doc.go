// Package registrycache is a local, rebuildable SQLite cache of fetched
// games-registry and game manifests. It exists purely to avoid refetching
// catalog data on every launcher start; it is never consulted by the
// resolver or by packstore.Validate, so losing it never violates a
// content-addressing invariant — at worst the next launch re-downloads
// and repopulates it.
package registrycache
