package archivefacade

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/jward/playpack/internal/errs"
)

// Entry describes one member of an archive.
type Entry struct {
	Path string
	Size int64
}

// Handle is an opened archive ready for listing or extraction.
type Handle struct {
	path   string
	format archives.Format
}

// DetectFormat maps a path's extension to the archive.Auto/Tar/Zip/Sevenz
// kind: ".tar" anywhere in the path selects Tar, a ".zip" or ".7z"
// suffix selects Zip or Sevenz, anything else is Auto. Unlike the
// manifest's resource-format predictor, ".zip" and ".7z" only match at
// the end of the path.
func DetectFormat(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, ".tar"):
		return "tar"
	case strings.HasSuffix(lower, ".zip"):
		return "zip"
	case strings.HasSuffix(lower, ".7z"):
		return "7z"
	default:
		return "auto"
	}
}

// Open identifies path's archive format and returns a Handle for
// listing or extracting it.
func Open(ctx context.Context, path string) (*Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errs.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	format, _, err := archives.Identify(ctx, path, f)
	if err != nil {
		return nil, &errs.ArchiveError{Op: "open", Path: path, Err: err}
	}
	return &Handle{path: path, format: format}, nil
}

// Entries lists every member of the archive.
func (h *Handle) Entries(ctx context.Context) ([]Entry, error) {
	extractor, ok := h.format.(archives.Extractor)
	if !ok {
		return nil, &errs.ArchiveError{Op: "open", Path: h.path, Err: errUnsupportedFormat}
	}

	f, err := os.Open(h.path)
	if err != nil {
		return nil, &errs.IOError{Op: "open", Path: h.path, Err: err}
	}
	defer f.Close()

	var entries []Entry
	err = extractor.Extract(ctx, f, func(_ context.Context, info archives.FileInfo) error {
		if info.IsDir() {
			return nil
		}
		entries = append(entries, Entry{Path: info.NameInArchive, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, &errs.ArchiveError{Op: "open", Path: h.path, Err: err}
	}
	return entries, nil
}

// ProgressFunc receives (current, total, delta) samples as bytes are
// written during extraction, mirroring the downloader's progress shape.
type ProgressFunc func(current, total, delta uint64)

// Extract decompresses every member into target, a directory created if
// absent. Runs synchronously on the caller's goroutine (the caller
// controls concurrency by calling Extract from its own goroutine);
// progress is reported as bytes are written per entry.
// finished is true iff the final sample reported current == total.
func (h *Handle) Extract(ctx context.Context, target string, onProgress ProgressFunc) (finished bool, err error) {
	extractor, ok := h.format.(archives.Extractor)
	if !ok {
		return false, &errs.ArchiveError{Op: "extract", Path: h.path, Err: errUnsupportedFormat}
	}

	f, err := os.Open(h.path)
	if err != nil {
		return false, &errs.IOError{Op: "open", Path: h.path, Err: err}
	}
	defer f.Close()

	if mkErr := os.MkdirAll(target, 0o755); mkErr != nil {
		return false, &errs.IOError{Op: "mkdir", Path: target, Err: mkErr}
	}

	// total is unknown until all entries are walked; archives streams
	// entries one at a time, so we track cumulative bytes written and
	// report finished only once the walk completes without error.
	var current uint64
	walkErr := extractor.Extract(ctx, f, func(ctx context.Context, info archives.FileInfo) error {
		destPath := joinArchivePath(target, info.NameInArchive)
		if info.IsDir() {
			return os.MkdirAll(destPath, 0o755)
		}
		if err := os.MkdirAll(parentDir(destPath), 0o755); err != nil {
			return err
		}
		src, err := info.Open()
		if err != nil {
			return err
		}
		defer src.Close()

		dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
		if err != nil {
			return err
		}
		defer dst.Close()

		n, err := io.Copy(dst, src)
		if err != nil {
			return err
		}
		current += uint64(n)
		if onProgress != nil {
			onProgress(current, current, uint64(n))
		}
		return nil
	})
	if walkErr != nil {
		return false, &errs.ArchiveError{Op: "extract", Path: h.path, Err: walkErr}
	}
	return true, nil
}

func joinArchivePath(target, nameInArchive string) string {
	cleaned := strings.TrimPrefix(strings.ReplaceAll(nameInArchive, "\\", "/"), "/")
	return filepath.Join(target, filepath.FromSlash(cleaned))
}

func parentDir(path string) string {
	return filepath.Dir(path)
}

var errUnsupportedFormat = archiveFacadeError("archive format does not support extraction")

type archiveFacadeError string

func (e archiveFacadeError) Error() string { return string(e) }
