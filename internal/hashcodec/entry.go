package hashcodec

import (
	"io/fs"
	"os"
	"path/filepath"
)

// ForEntry hashes a path per the store's entry convention: a regular
// file hashes to SeaHash(contents); a directory hashes to the XOR, over
// every entry reachable underneath it, of SeaHash(relative path) xor (for
// files only) SeaHash(contents). XOR makes the result independent of
// directory-listing order, and folding the relative path into every term
// means two directories with identical file contents but different
// layouts still hash differently. Symlinks are resolved before hashing,
// both at the root and for every entry underneath it.
func ForEntry(path string) (H, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return 0, err
	}

	if !info.IsDir() {
		contents, err := os.ReadFile(resolved)
		if err != nil {
			return 0, err
		}
		return ForSlice(contents), nil
	}

	var total H
	err = filepath.WalkDir(resolved, func(entryPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entryPath == resolved {
			return nil // the root itself is not an "entry reachable under R"
		}

		rel, err := filepath.Rel(resolved, entryPath)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		term := ForSlice([]byte(rel))

		realEntry := entryPath
		entryInfo := d
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(entryPath)
			if err != nil {
				return err
			}
			realEntry = target
			fi, err := os.Stat(target)
			if err != nil {
				return err
			}
			entryInfo = fs.FileInfoToDirEntry(fi)
		}

		if !entryInfo.IsDir() {
			contents, err := os.ReadFile(realEntry)
			if err != nil {
				return err
			}
			term = Xor(term, ForSlice(contents))
		}

		XorAssign(&total, term)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
