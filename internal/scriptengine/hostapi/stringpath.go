package hostapi

import (
	"context"
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/playpack/internal/scriptengine/fsguard"
)

// Raw byte buffers crossing the host-API boundary are modeled as Risor
// strings (a Go string is just a byte sequence) rather than a dedicated
// byte-slice object type, matching how the teacher's own host functions
// pass source bytes through *object.String (internal/runtime/hostfuncs.go's
// parse_src reads args[0].(*object.String) and converts with []byte(...)).

// StringAPI returns the "string" namespace: to_bytes/from_bytes plus
// encode/decode across base16, base32, base64 and json.
func StringAPI() object.Object {
	return object.NewMap(map[string]object.Object{
		"to_bytes":   object.NewBuiltin("string.to_bytes", stringToBytes),
		"from_bytes": object.NewBuiltin("string.from_bytes", stringFromBytes),
		"encode":     object.NewBuiltin("string.encode", stringEncode),
		"decode":     object.NewBuiltin("string.decode", stringDecode),
	})
}

func stringToBytes(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 1 {
		return object.NewArgsError("string.to_bytes", 1, len(args))
	}
	s, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("string.to_bytes: expected string, got %s", args[0].Type())
	}
	return s
}

func stringFromBytes(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 1 {
		return object.NewArgsError("string.from_bytes", 1, len(args))
	}
	s, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("string.from_bytes: expected bytes (string), got %s", args[0].Type())
	}
	return s
}

func stringEncode(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 2 {
		return object.NewArgsError("string.encode", 2, len(args))
	}
	data, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("string.encode: expected bytes (string), got %s", args[0].Type())
	}
	algo, ok := args[1].(*object.String)
	if !ok {
		return object.Errorf("string.encode: expected algorithm string, got %s", args[1].Type())
	}
	out, err := encodeBytes([]byte(data.Value()), algo.Value())
	if err != nil {
		return object.Errorf("string.encode: %v", err)
	}
	return object.NewString(out)
}

func stringDecode(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 2 {
		return object.NewArgsError("string.decode", 2, len(args))
	}
	data, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("string.decode: expected string, got %s", args[0].Type())
	}
	algo, ok := args[1].(*object.String)
	if !ok {
		return object.Errorf("string.decode: expected algorithm string, got %s", args[1].Type())
	}
	out, err := decodeBytes(data.Value(), algo.Value())
	if err != nil {
		return object.Errorf("string.decode: %v", err)
	}
	return object.NewString(string(out))
}

func encodeBytes(data []byte, algo string) (string, error) {
	switch algo {
	case "base16", "hex":
		return hex.EncodeToString(data), nil
	case "base32":
		return base32.StdEncoding.EncodeToString(data), nil
	case "base32-nopad":
		return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(data), nil
	case "base32-hex":
		return base32.HexEncoding.EncodeToString(data), nil
	case "base64":
		return base64.StdEncoding.EncodeToString(data), nil
	case "base64-nopad":
		return base64.RawStdEncoding.EncodeToString(data), nil
	case "base64-url":
		return base64.URLEncoding.EncodeToString(data), nil
	case "base64-url-nopad":
		return base64.RawURLEncoding.EncodeToString(data), nil
	case "json":
		out, err := json.Marshal(string(data))
		if err != nil {
			return "", fmt.Errorf("json encode: %w", err)
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("unknown encoding %q", algo)
	}
}

func decodeBytes(data string, algo string) ([]byte, error) {
	switch algo {
	case "base16", "hex":
		return hex.DecodeString(data)
	case "base32":
		return base32.StdEncoding.DecodeString(data)
	case "base32-nopad":
		return base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(data)
	case "base32-hex":
		return base32.HexEncoding.DecodeString(data)
	case "base64":
		return base64.StdEncoding.DecodeString(data)
	case "base64-nopad":
		return base64.RawStdEncoding.DecodeString(data)
	case "base64-url":
		return base64.URLEncoding.DecodeString(data)
	case "base64-url-nopad":
		return base64.RawURLEncoding.DecodeString(data)
	case "json":
		var s string
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			return nil, fmt.Errorf("json decode: %w", err)
		}
		return []byte(s), nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", algo)
	}
}

// PathFolders is the sandbox triple every PathAPI call is scoped to, and
// the set of roots exists/accessible must stay within.
type PathFolders struct {
	TempFolder       string
	ModuleFolder     string
	PersistentFolder string
}

// PathAPI returns the "path" namespace bound to a single module's sandbox
// folders: normalize/join/parts/parent/file_name are pure string ops,
// temp_dir/module_dir/persist_dir return sandbox roots, and
// exists/accessible check real files but refuse to look outside the
// sandbox boundary (fsguard.Within).
func PathAPI(folders PathFolders, persist func(key string) (string, error)) object.Object {
	return object.NewMap(map[string]object.Object{
		"normalize":   object.NewBuiltin("path.normalize", pathNormalize),
		"join":        object.NewBuiltin("path.join", pathJoin),
		"parts":       object.NewBuiltin("path.parts", pathParts),
		"parent":      object.NewBuiltin("path.parent", pathParent),
		"file_name":   object.NewBuiltin("path.file_name", pathFileName),
		"temp_dir":    object.NewBuiltin("path.temp_dir", pathFolderFunc(folders.TempFolder)),
		"module_dir":  object.NewBuiltin("path.module_dir", pathFolderFunc(folders.ModuleFolder)),
		"persist_dir": object.NewBuiltin("path.persist_dir", pathPersistDir(persist)),
		"exists":      object.NewBuiltin("path.exists", pathExists(folders)),
		"accessible":  object.NewBuiltin("path.accessible", pathAccessible(folders)),
	})
}

func pathNormalize(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 1 {
		return object.NewArgsError("path.normalize", 1, len(args))
	}
	s, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("path.normalize: expected string, got %s", args[0].Type())
	}
	slashed := strings.ReplaceAll(s.Value(), "\\", "/")
	return object.NewString(filepath.Clean(filepath.FromSlash(slashed)))
}

func pathJoin(ctx context.Context, args ...object.Object) object.Object {
	if len(args) == 0 {
		return object.NewArgsError("path.join", 1, 0)
	}
	parts := make([]string, 0, len(args))
	for _, a := range args {
		s, ok := a.(*object.String)
		if !ok {
			return object.Errorf("path.join: expected string, got %s", a.Type())
		}
		parts = append(parts, s.Value())
	}
	return object.NewString(filepath.Join(parts...))
}

func pathParts(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 1 {
		return object.NewArgsError("path.parts", 1, len(args))
	}
	s, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("path.parts: expected string, got %s", args[0].Type())
	}
	clean := filepath.ToSlash(filepath.Clean(s.Value()))
	segments := strings.Split(strings.Trim(clean, "/"), "/")
	out := make([]object.Object, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		out = append(out, object.NewString(seg))
	}
	return object.NewList(out)
}

func pathParent(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 1 {
		return object.NewArgsError("path.parent", 1, len(args))
	}
	s, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("path.parent: expected string, got %s", args[0].Type())
	}
	return object.NewString(filepath.Dir(s.Value()))
}

func pathFileName(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 1 {
		return object.NewArgsError("path.file_name", 1, len(args))
	}
	s, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("path.file_name: expected string, got %s", args[0].Type())
	}
	return object.NewString(filepath.Base(s.Value()))
}

func pathFolderFunc(folder string) func(ctx context.Context, args ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("path.dir", 0, len(args))
		}
		return object.NewString(folder)
	}
}

func pathPersistDir(persist func(key string) (string, error)) func(ctx context.Context, args ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("path.persist_dir", 1, len(args))
		}
		key, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("path.persist_dir: expected key string, got %s", args[0].Type())
		}
		dir, err := persist(key.Value())
		if err != nil {
			return object.Errorf("path.persist_dir: %v", err)
		}
		return object.NewString(dir)
	}
}

func pathExists(folders PathFolders) func(ctx context.Context, args ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("path.exists", 1, len(args))
		}
		s, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("path.exists: expected string, got %s", args[0].Type())
		}
		ok2, err := fsguard.Exists(s.Value(), folders.TempFolder, folders.ModuleFolder, folders.PersistentFolder)
		if err != nil {
			return object.Errorf("path.exists: %v", err)
		}
		return object.NewBool(ok2)
	}
}

func pathAccessible(folders PathFolders) func(ctx context.Context, args ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("path.accessible", 1, len(args))
		}
		s, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("path.accessible: expected string, got %s", args[0].Type())
		}
		return object.NewBool(fsguard.Within(s.Value(), folders.TempFolder, folders.ModuleFolder, folders.PersistentFolder))
	}
}
