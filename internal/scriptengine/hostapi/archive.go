package hostapi

import (
	"context"
	"sync/atomic"

	"github.com/risor-io/risor/object"

	"github.com/jward/playpack/internal/archivefacade"
	"github.com/jward/playpack/internal/scriptengine/fsguard"
)

// openArchive is an Archive API handle: the facade handle plus the
// latest extraction progress sample, polled by the "progress" builtin
// while extraction runs on its own goroutine.
type openArchive struct {
	handle   *archivefacade.Handle
	current  atomic.Uint64
	total    atomic.Uint64
	finished atomic.Bool
	err      atomic.Pointer[string]
}

// ArchiveAPI returns the "archive" namespace, a thin handle-registry
// wrapper over internal/archivefacade: open/entries/extract/progress/
// close, per spec.md §4.L.
func ArchiveAPI(folders PathFolders) object.Object {
	handles := NewRegistry[*openArchive]()
	return object.NewMap(map[string]object.Object{
		"open":     object.NewBuiltin("archive.open", archiveOpen(handles)),
		"entries":  object.NewBuiltin("archive.entries", archiveEntries(handles)),
		"extract":  object.NewBuiltin("archive.extract", archiveExtract(folders, handles)),
		"progress": object.NewBuiltin("archive.progress", archiveProgress(handles)),
		"close":    object.NewBuiltin("archive.close", archiveClose(handles)),
	})
}

func archiveOpen(handles *Registry[*openArchive]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("archive.open", 1, len(args))
		}
		p, errObj := pathArg("archive.open", args, 0)
		if errObj != nil {
			return errObj
		}
		h, err := archivefacade.Open(ctx, p)
		if err != nil {
			return object.Errorf("archive.open: %v", err)
		}
		handle := handles.Insert(&openArchive{handle: h})
		return object.NewInt(int64(handle))
	}
}

func archiveHandleArg(handles *Registry[*openArchive], name string, args []object.Object, i int) (*openArchive, object.Object) {
	h, ok := args[i].(*object.Int)
	if !ok {
		return nil, object.Errorf("%s: expected handle int, got %s", name, args[i].Type())
	}
	oa, ok := handles.Get(uint32(h.Value()))
	if !ok {
		return nil, object.Errorf("%s: unknown handle %d", name, h.Value())
	}
	return oa, nil
}

func archiveEntries(handles *Registry[*openArchive]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("archive.entries", 1, len(args))
		}
		oa, errObj := archiveHandleArg(handles, "archive.entries", args, 0)
		if errObj != nil {
			return errObj
		}
		entries, err := oa.handle.Entries(ctx)
		if err != nil {
			return object.Errorf("archive.entries: %v", err)
		}
		out := make([]object.Object, 0, len(entries))
		for _, e := range entries {
			out = append(out, object.NewMap(map[string]object.Object{
				"path": object.NewString(e.Path),
				"size": object.NewInt(e.Size),
			}))
		}
		return object.NewList(out)
	}
}

// archiveExtract launches extraction on a background goroutine and
// returns immediately with no result value; the script polls
// archive.progress(handle) to observe current/total/finished, mirroring
// the downloader's Start()/poll-Current()-Total() shape rather than
// blocking the single-threaded interpreter for the whole extraction.
func archiveExtract(folders PathFolders, handles *Registry[*openArchive]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("archive.extract", 2, len(args))
		}
		oa, errObj := archiveHandleArg(handles, "archive.extract", args, 0)
		if errObj != nil {
			return errObj
		}
		target, errObj := pathArg("archive.extract", args, 1)
		if errObj != nil {
			return errObj
		}
		resolvedTarget, err := fsguard.Resolve(target, folders.TempFolder, folders.ModuleFolder, folders.PersistentFolder)
		if err != nil {
			return object.Errorf("archive.extract: %v", err)
		}

		go func() {
			_, err := oa.handle.Extract(ctx, resolvedTarget, func(current, total, _ uint64) {
				oa.current.Store(current)
				oa.total.Store(total)
			})
			if err != nil {
				msg := err.Error()
				oa.err.Store(&msg)
			}
			oa.finished.Store(true)
		}()
		return object.Nil
	}
}

func archiveProgress(handles *Registry[*openArchive]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("archive.progress", 1, len(args))
		}
		oa, errObj := archiveHandleArg(handles, "archive.progress", args, 0)
		if errObj != nil {
			return errObj
		}
		fields := map[string]object.Object{
			"current":  object.NewInt(int64(oa.current.Load())),
			"total":    object.NewInt(int64(oa.total.Load())),
			"finished": object.NewBool(oa.finished.Load()),
		}
		if errPtr := oa.err.Load(); errPtr != nil {
			fields["error"] = object.NewString(*errPtr)
		}
		return object.NewMap(fields)
	}
}

func archiveClose(handles *Registry[*openArchive]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("archive.close", 1, len(args))
		}
		h, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("archive.close: expected handle int, got %s", args[0].Type())
		}
		handles.Remove(uint32(h.Value()))
		return object.Nil
	}
}
