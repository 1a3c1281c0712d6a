package packstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jward/playpack/internal/errs"
	"github.com/jward/playpack/internal/hashcodec"
	"github.com/jward/playpack/internal/manifest"
)

// Store is the content-addressed store rooted at a directory. A Package
// resource lives at h.src (raw package.json bytes); any other resource
// lives at h (a file or a directory); in-flight build artifacts use h.tmp.
type Store struct {
	root string
}

// NewStore opens the store rooted at dir, creating it if absent.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &errs.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	return &Store{root: dir}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// Path returns the on-disk path for h given its format: h.src for
// packages, h for everything else.
func (s *Store) Path(h hashcodec.H, format manifest.ResourceFormat) string {
	name := hashcodec.Encode(h)
	if format == manifest.FormatPackage {
		name += ".src"
	}
	return filepath.Join(s.root, name)
}

// TempPath returns h's in-flight build path, h.tmp.
func (s *Store) TempPath(h hashcodec.H) string {
	return filepath.Join(s.root, hashcodec.Encode(h)+".tmp")
}

// HasPackage reports whether h.src exists.
func (s *Store) HasPackage(h hashcodec.H) bool {
	return exists(s.Path(h, manifest.FormatPackage))
}

// HasResource reports whether a non-package resource h exists (file or
// directory).
func (s *Store) HasResource(h hashcodec.H, format manifest.ResourceFormat) bool {
	return exists(s.Path(h, format))
}

// HasEntry reports whether h exists in the store under format's layout
// rule, dispatching to HasPackage or HasResource.
func (s *Store) HasEntry(h hashcodec.H, format manifest.ResourceFormat) bool {
	if format == manifest.FormatPackage {
		return s.HasPackage(h)
	}
	return s.HasResource(h, format)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// GetPackage reads and parses the package manifest stored at h.src.
func (s *Store) GetPackage(h hashcodec.H) (*manifest.PackageManifest, error) {
	path := s.Path(h, manifest.FormatPackage)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.IOError{Op: "read", Path: path, Err: err}
	}
	return manifest.ParsePackageManifest(data)
}

// Validate recomputes the content hash of every resource named in the
// lockfile and reports whether it matches the declared lock, short
// circuiting on the first mismatch. Missing paths count as invalid.
func (s *Store) Validate(lf *manifest.LockfileManifest) (bool, error) {
	for _, r := range lf.Resources {
		path := s.Path(r.Lock.Hash, r.Format)
		if !exists(path) {
			return false, nil
		}
		got, err := hashcodec.ForEntry(path)
		if err != nil {
			return false, fmt.Errorf("packstore: validate %s: %w", path, err)
		}
		if got != r.Lock.Hash {
			return false, nil
		}
	}
	return true, nil
}

// ResourceKind tags what a Loaded resource materializes as.
type ResourceKind int

const (
	KindPackage ResourceKind = iota
	KindFile
	KindFolder
)

// Loaded is a store entry resolved for use by the script engine: a path
// on disk, tagged by kind, with a package's inputs/outputs carried along
// (resolved from the owning lockfile, not re-read from package.json, so
// the indices line up with the rest of the graph).
type Loaded struct {
	Kind    ResourceKind
	Path    string
	Inputs  map[string]uint32
	Outputs map[string]uint32
}

// Load resolves h against lf, returning a wrapper tagged Package, File,
// or Folder. For a Package, Inputs/Outputs come from the lockfile entry,
// not from re-parsing package.json, since the lockfile already pins the
// resolved indices.
func (s *Store) Load(lf *manifest.LockfileManifest, h hashcodec.H) (*Loaded, error) {
	for _, r := range lf.Resources {
		if r.Lock.Hash != h {
			continue
		}
		path := s.Path(h, r.Format)
		switch {
		case r.Format == manifest.FormatPackage:
			return &Loaded{Kind: KindPackage, Path: path, Inputs: r.Inputs, Outputs: r.Outputs}, nil
		case r.Format.IsArchive():
			return &Loaded{Kind: KindFolder, Path: path}, nil
		default:
			// Module and plain File resources are both stored as a
			// single artifact on disk (hashcodec.ForEntry hashes a file
			// directly when the resource isn't an archive) — the script
			// engine reads a module's bytes the same way it reads a
			// file's path, so both map to KindFile here.
			return &Loaded{Kind: KindFile, Path: path}, nil
		}
	}
	return nil, fmt.Errorf("packstore: %s not present in lockfile", hashcodec.Encode(h))
}
