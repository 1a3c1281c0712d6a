// Package fsguard enforces the sandbox boundary every module's Filesystem
// and Path host APIs must respect: a path is only ever usable after it
// resolves (following symlinks) to somewhere under one of the module's
// three folders (temp, module-private, persistent). Resolution happens
// before the boundary check so a symlink can't be used to escape the
// sandbox.
package fsguard

import (
	"os"
	"path/filepath"
	"strings"
)

// Within reports whether path, once symlinks are resolved, falls under
// any of roots. A path that doesn't exist yet is checked against its
// closest existing ancestor, so writes that create new files/dirs are
// still bounded correctly.
func Within(path string, roots ...string) bool {
	resolved, err := resolveExistingAncestor(path)
	if err != nil {
		return false
	}
	for _, root := range roots {
		if root == "" {
			continue
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absRoot, resolved)
		if err != nil {
			continue
		}
		if rel == "." || (!strings.HasPrefix(rel, "..") && rel != "") {
			return true
		}
	}
	return false
}

// Exists reports whether path exists and is within the sandbox boundary.
// It returns an error only when the boundary check itself cannot be
// performed; a path outside the boundary reports (false, nil), not an
// error, since "does this exist" is a legitimate question for scripts to
// ask about paths they don't own.
func Exists(path string, roots ...string) (bool, error) {
	if !Within(path, roots...) {
		return false, nil
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	_, err = os.Stat(resolved)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Resolve symlink-resolves path and confirms it lands within roots,
// returning the resolved absolute path for callers (e.g. the filesystem
// API) to operate on directly. It's the write-path counterpart to
// Exists: callers that need to open/create/remove a path call this
// first instead of duplicating the ancestor-walk logic.
func Resolve(path string, roots ...string) (string, error) {
	if !Within(path, roots...) {
		return "", &BoundaryError{Path: path}
	}
	resolved, err := resolveExistingAncestor(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Lstat(abs); err == nil {
		// path exists (possibly as a symlink): hand back the fully
		// dereferenced location the boundary check ran against.
		return resolved, nil
	}
	// path itself doesn't exist (e.g. a file about to be created); its
	// resolved ancestor is within bounds, so the literal target path is
	// safe to use as-is.
	return abs, nil
}

// resolveExistingAncestor walks up from path until it finds a segment
// that exists, symlink-resolves that segment, and re-appends the
// remaining (not-yet-existing) suffix.
func resolveExistingAncestor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	suffix := ""
	cur := abs
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			if suffix == "" {
				return resolved, nil
			}
			return filepath.Join(resolved, suffix), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", err
		}
		suffix = filepath.Join(filepath.Base(cur), suffix)
		cur = parent
	}
}

// BoundaryError reports an attempt to use a path outside a module's
// sandbox folders.
type BoundaryError struct {
	Path string
}

func (e *BoundaryError) Error() string {
	return "path is inaccessible"
}
