package hostapi

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/risor-io/risor/object"

	"github.com/jward/playpack/internal/scriptengine/fsguard"
)

// openFile is what a Filesystem API handle refers to: an *os.File plus
// the resolved path it was opened against, kept around so seek/read/
// write/flush/close don't need to re-resolve the sandbox boundary.
type openFile struct {
	f    *os.File
	path string
}

// FilesystemAPI returns the "fs" namespace, every operation bounded to
// folders via fsguard so a module can never read or write outside its
// temp/module/persistent sandbox, even by way of a symlink.
func FilesystemAPI(folders PathFolders) object.Object {
	handles := NewRegistry[*openFile]()
	return object.NewMap(map[string]object.Object{
		"exists":      object.NewBuiltin("fs.exists", fsExists(folders)),
		"metadata":    object.NewBuiltin("fs.metadata", fsMetadata(folders)),
		"copy":        object.NewBuiltin("fs.copy", fsCopy(folders)),
		"move":        object.NewBuiltin("fs.move", fsMove(folders)),
		"remove":      object.NewBuiltin("fs.remove", fsRemove(folders)),
		"create_dir":  object.NewBuiltin("fs.create_dir", fsCreateDir(folders)),
		"remove_dir":  object.NewBuiltin("fs.remove_dir", fsRemoveDir(folders)),
		"read_dir":    object.NewBuiltin("fs.read_dir", fsReadDir(folders)),
		"create_file": object.NewBuiltin("fs.create_file", fsCreateFile(folders)),
		"read_file":   object.NewBuiltin("fs.read_file", fsReadFile(folders)),
		"write_file":  object.NewBuiltin("fs.write_file", fsWriteFile(folders)),
		"remove_file": object.NewBuiltin("fs.remove_file", fsRemoveFile(folders)),
		"open":        object.NewBuiltin("fs.open", fsOpen(folders, handles)),
		"seek":        object.NewBuiltin("fs.seek", fsSeek(handles)),
		"read":        object.NewBuiltin("fs.read", fsRead(handles)),
		"write":       object.NewBuiltin("fs.write", fsWrite(handles)),
		"flush":       object.NewBuiltin("fs.flush", fsFlush(handles)),
		"close":       object.NewBuiltin("fs.close", fsClose(handles)),
	})
}

func pathArg(name string, args []object.Object, i int) (string, object.Object) {
	s, ok := args[i].(*object.String)
	if !ok {
		return "", object.Errorf("%s: expected path string, got %s", name, args[i].Type())
	}
	return s.Value(), nil
}

// checkedAbsPath confirms path is within the sandbox boundary but, unlike
// fsguard.Resolve, returns the literal absolute path rather than one with
// every symlink (including a symlink leaf) dereferenced. Ops that need to
// know whether the path itself is a symlink (metadata, copy, move) use
// this instead of fsguard.Resolve.
func checkedAbsPath(folders PathFolders, name string, args []object.Object, i int) (string, object.Object) {
	p, errObj := pathArg(name, args, i)
	if errObj != nil {
		return "", errObj
	}
	if !fsguard.Within(p, folders.TempFolder, folders.ModuleFolder, folders.PersistentFolder) {
		return "", object.Errorf("%s: path is inaccessible", name)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", object.Errorf("%s: %v", name, err)
	}
	return abs, nil
}

// createdUnix returns a file's creation time as a unix timestamp. Go's
// stdlib has no portable birth-time field; ctime is the closest proxy
// available on Linux, which is the only platform this sandbox runs on.
func createdUnix(info os.FileInfo) int64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Ctim.Sec
	}
	return info.ModTime().Unix()
}

func entryType(mode os.FileMode) string {
	switch {
	case mode&os.ModeSymlink != 0:
		return "symlink"
	case mode.IsDir():
		return "folder"
	default:
		return "file"
	}
}

func fsExists(folders PathFolders) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("fs.exists", 1, len(args))
		}
		p, errObj := pathArg("fs.exists", args, 0)
		if errObj != nil {
			return errObj
		}
		ok, err := fsguard.Exists(p, folders.TempFolder, folders.ModuleFolder, folders.PersistentFolder)
		if err != nil {
			return object.Errorf("fs.exists: %v", err)
		}
		return object.NewBool(ok)
	}
}

func fsMetadata(folders PathFolders) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("fs.metadata", 1, len(args))
		}
		abs, errObj := checkedAbsPath(folders, "fs.metadata", args, 0)
		if errObj != nil {
			return errObj
		}
		lst, err := os.Lstat(abs)
		if err != nil {
			return object.Errorf("fs.metadata: %v", err)
		}
		info := lst
		if lst.Mode()&os.ModeSymlink != 0 {
			if followed, err := os.Stat(abs); err == nil {
				info = followed
			}
		}
		return object.NewMap(map[string]object.Object{
			"size":          object.NewInt(info.Size()),
			"is_dir":        object.NewBool(info.IsDir()),
			"type":          object.NewString(entryType(lst.Mode())),
			"modified":      object.NewInt(info.ModTime().Unix()),
			"created":       object.NewInt(createdUnix(lst)),
			"is_accessible": object.NewBool(true),
		})
	}
}

func checkedPair(folders PathFolders, args []object.Object, name string) (string, string, object.Object) {
	src, errObj := checkedAbsPath(folders, name, args, 0)
	if errObj != nil {
		return "", "", errObj
	}
	dst, errObj := checkedAbsPath(folders, name, args, 1)
	if errObj != nil {
		return "", "", errObj
	}
	return src, dst, nil
}

// copyPath copies src to dst, refusing to overwrite an existing dst and
// recreating a symlink src by its target path rather than dereferencing
// and copying file contents.
func copyPath(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return os.ErrExist
	} else if !os.IsNotExist(err) {
		return err
	}

	lst, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if lst.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func isCrossDevice(err error) bool {
	linkErr, ok := err.(*os.LinkError)
	if !ok {
		return false
	}
	errno, ok := linkErr.Err.(syscall.Errno)
	return ok && errno == syscall.EXDEV
}

func fsCopy(folders PathFolders) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("fs.copy", 2, len(args))
		}
		src, dst, errObj := checkedPair(folders, args, "fs.copy")
		if errObj != nil {
			return errObj
		}
		if err := copyPath(src, dst); err != nil {
			return object.Errorf("fs.copy: %v", err)
		}
		return object.Nil
	}
}

func fsMove(folders PathFolders) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("fs.move", 2, len(args))
		}
		src, dst, errObj := checkedPair(folders, args, "fs.move")
		if errObj != nil {
			return errObj
		}
		if _, err := os.Lstat(dst); err == nil {
			return object.Errorf("fs.move: %v", os.ErrExist)
		} else if !os.IsNotExist(err) {
			return object.Errorf("fs.move: %v", err)
		}
		if err := os.Rename(src, dst); err != nil {
			if !isCrossDevice(err) {
				return object.Errorf("fs.move: %v", err)
			}
			if err := copyPath(src, dst); err != nil {
				return object.Errorf("fs.move: %v", err)
			}
			if err := os.RemoveAll(src); err != nil {
				return object.Errorf("fs.move: %v", err)
			}
		}
		return object.Nil
	}
}

func fsRemove(folders PathFolders) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("fs.remove", 1, len(args))
		}
		p, errObj := pathArg("fs.remove", args, 0)
		if errObj != nil {
			return errObj
		}
		resolved, err := fsguard.Resolve(p, folders.TempFolder, folders.ModuleFolder, folders.PersistentFolder)
		if err != nil {
			return object.Errorf("fs.remove: %v", err)
		}
		if err := os.RemoveAll(resolved); err != nil {
			return object.Errorf("fs.remove: %v", err)
		}
		return object.Nil
	}
}

func fsCreateDir(folders PathFolders) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("fs.create_dir", 1, len(args))
		}
		p, errObj := pathArg("fs.create_dir", args, 0)
		if errObj != nil {
			return errObj
		}
		resolved, err := fsguard.Resolve(p, folders.TempFolder, folders.ModuleFolder, folders.PersistentFolder)
		if err != nil {
			return object.Errorf("fs.create_dir: %v", err)
		}
		if err := os.MkdirAll(resolved, 0o755); err != nil {
			return object.Errorf("fs.create_dir: %v", err)
		}
		return object.Nil
	}
}

func fsRemoveDir(folders PathFolders) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("fs.remove_dir", 1, len(args))
		}
		p, errObj := pathArg("fs.remove_dir", args, 0)
		if errObj != nil {
			return errObj
		}
		resolved, err := fsguard.Resolve(p, folders.TempFolder, folders.ModuleFolder, folders.PersistentFolder)
		if err != nil {
			return object.Errorf("fs.remove_dir: %v", err)
		}
		if err := os.Remove(resolved); err != nil {
			return object.Errorf("fs.remove_dir: %v", err)
		}
		return object.Nil
	}
}

func fsReadDir(folders PathFolders) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("fs.read_dir", 1, len(args))
		}
		p, errObj := pathArg("fs.read_dir", args, 0)
		if errObj != nil {
			return errObj
		}
		resolved, err := fsguard.Resolve(p, folders.TempFolder, folders.ModuleFolder, folders.PersistentFolder)
		if err != nil {
			return object.Errorf("fs.read_dir: %v", err)
		}
		entries, err := os.ReadDir(resolved)
		if err != nil {
			return object.Errorf("fs.read_dir: %v", err)
		}
		out := make([]object.Object, 0, len(entries))
		for _, e := range entries {
			out = append(out, object.NewMap(map[string]object.Object{
				"name": object.NewString(e.Name()),
				"path": object.NewString(filepath.Join(resolved, e.Name())),
				"type": object.NewString(entryType(e.Type())),
			}))
		}
		return object.NewList(out)
	}
}

func fsCreateFile(folders PathFolders) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("fs.create_file", 1, len(args))
		}
		p, errObj := pathArg("fs.create_file", args, 0)
		if errObj != nil {
			return errObj
		}
		resolved, err := fsguard.Resolve(p, folders.TempFolder, folders.ModuleFolder, folders.PersistentFolder)
		if err != nil {
			return object.Errorf("fs.create_file: %v", err)
		}
		f, err := os.OpenFile(resolved, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return object.Errorf("fs.create_file: %v", err)
		}
		if err := f.Close(); err != nil {
			return object.Errorf("fs.create_file: %v", err)
		}
		return object.Nil
	}
}

func fsReadFile(folders PathFolders) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("fs.read_file", 1, len(args))
		}
		p, errObj := pathArg("fs.read_file", args, 0)
		if errObj != nil {
			return errObj
		}
		resolved, err := fsguard.Resolve(p, folders.TempFolder, folders.ModuleFolder, folders.PersistentFolder)
		if err != nil {
			return object.Errorf("fs.read_file: %v", err)
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return object.Errorf("fs.read_file: %v", err)
		}
		return object.NewString(string(data))
	}
}

func fsWriteFile(folders PathFolders) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("fs.write_file", 2, len(args))
		}
		p, errObj := pathArg("fs.write_file", args, 0)
		if errObj != nil {
			return errObj
		}
		data, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("fs.write_file: expected bytes (string), got %s", args[1].Type())
		}
		resolved, err := fsguard.Resolve(p, folders.TempFolder, folders.ModuleFolder, folders.PersistentFolder)
		if err != nil {
			return object.Errorf("fs.write_file: %v", err)
		}
		if err := os.WriteFile(resolved, []byte(data.Value()), 0o644); err != nil {
			return object.Errorf("fs.write_file: %v", err)
		}
		return object.Nil
	}
}

func fsRemoveFile(folders PathFolders) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("fs.remove_file", 1, len(args))
		}
		p, errObj := pathArg("fs.remove_file", args, 0)
		if errObj != nil {
			return errObj
		}
		resolved, err := fsguard.Resolve(p, folders.TempFolder, folders.ModuleFolder, folders.PersistentFolder)
		if err != nil {
			return object.Errorf("fs.remove_file: %v", err)
		}
		if err := os.Remove(resolved); err != nil {
			return object.Errorf("fs.remove_file: %v", err)
		}
		return object.Nil
	}
}

func fsOpen(folders PathFolders, handles *Registry[*openFile]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("fs.open", 2, len(args))
		}
		p, errObj := pathArg("fs.open", args, 0)
		if errObj != nil {
			return errObj
		}
		mode, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("fs.open: expected mode string, got %s", args[1].Type())
		}
		resolved, err := fsguard.Resolve(p, folders.TempFolder, folders.ModuleFolder, folders.PersistentFolder)
		if err != nil {
			return object.Errorf("fs.open: %v", err)
		}
		var flag int
		switch mode.Value() {
		case "r":
			flag = os.O_RDONLY
		case "w":
			flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		case "a":
			flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		case "rw":
			flag = os.O_RDWR | os.O_CREATE
		default:
			return object.Errorf("fs.open: unknown mode %q", mode.Value())
		}
		f, err := os.OpenFile(resolved, flag, 0o644)
		if err != nil {
			return object.Errorf("fs.open: %v", err)
		}
		handle := handles.Insert(&openFile{f: f, path: resolved})
		return object.NewInt(int64(handle))
	}
}

func fsHandleArg(handles *Registry[*openFile], name string, args []object.Object, i int) (*openFile, object.Object) {
	h, ok := args[i].(*object.Int)
	if !ok {
		return nil, object.Errorf("%s: expected handle int, got %s", name, args[i].Type())
	}
	of, ok := handles.Get(uint32(h.Value()))
	if !ok {
		return nil, object.Errorf("%s: unknown handle %d", name, h.Value())
	}
	return of, nil
}

func fsSeek(handles *Registry[*openFile]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("fs.seek", 3, len(args))
		}
		of, errObj := fsHandleArg(handles, "fs.seek", args, 0)
		if errObj != nil {
			return errObj
		}
		offset, ok := args[1].(*object.Int)
		if !ok {
			return object.Errorf("fs.seek: expected offset int, got %s", args[1].Type())
		}
		whenceStr, ok := args[2].(*object.String)
		if !ok {
			return object.Errorf("fs.seek: expected whence string, got %s", args[2].Type())
		}
		var whence int
		switch whenceStr.Value() {
		case "start":
			whence = io.SeekStart
		case "current":
			whence = io.SeekCurrent
		case "end":
			whence = io.SeekEnd
		default:
			return object.Errorf("fs.seek: unknown whence %q", whenceStr.Value())
		}
		pos, err := of.f.Seek(offset.Value(), whence)
		if err != nil {
			return object.Errorf("fs.seek: %v", err)
		}
		return object.NewInt(pos)
	}
}

func fsRead(handles *Registry[*openFile]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("fs.read", 2, len(args))
		}
		of, errObj := fsHandleArg(handles, "fs.read", args, 0)
		if errObj != nil {
			return errObj
		}
		n, ok := args[1].(*object.Int)
		if !ok {
			return object.Errorf("fs.read: expected count int, got %s", args[1].Type())
		}
		buf := make([]byte, n.Value())
		read, err := of.f.Read(buf)
		if err != nil && err != io.EOF {
			return object.Errorf("fs.read: %v", err)
		}
		return object.NewString(string(buf[:read]))
	}
}

func fsWrite(handles *Registry[*openFile]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("fs.write", 2, len(args))
		}
		of, errObj := fsHandleArg(handles, "fs.write", args, 0)
		if errObj != nil {
			return errObj
		}
		data, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("fs.write: expected bytes (string), got %s", args[1].Type())
		}
		n, err := of.f.Write([]byte(data.Value()))
		if err != nil {
			return object.Errorf("fs.write: %v", err)
		}
		return object.NewInt(int64(n))
	}
}

func fsFlush(handles *Registry[*openFile]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("fs.flush", 1, len(args))
		}
		of, errObj := fsHandleArg(handles, "fs.flush", args, 0)
		if errObj != nil {
			return errObj
		}
		if err := of.f.Sync(); err != nil {
			return object.Errorf("fs.flush: %v", err)
		}
		return object.Nil
	}
}

func fsClose(handles *Registry[*openFile]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("fs.close", 1, len(args))
		}
		h, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("fs.close: expected handle int, got %s", args[0].Type())
		}
		of, ok := handles.Get(uint32(h.Value()))
		if !ok {
			return object.Errorf("fs.close: unknown handle %d", h.Value())
		}
		handles.Remove(uint32(h.Value()))
		if err := of.f.Close(); err != nil {
			return object.Errorf("fs.close: %v", err)
		}
		return object.Nil
	}
}
