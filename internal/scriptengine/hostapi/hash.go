package hostapi

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/xxHash/xxHash32"
	"github.com/risor-io/risor/object"
	"github.com/zeebo/xxh3"

	"github.com/jward/playpack/internal/hashcodec"
)

// streamHasher wraps whichever concrete hasher an algorithm needs behind
// one Write/Sum interface. seahash has no incremental Go implementation
// in the pack, so its "streaming" mode buffers written bytes and computes
// hashcodec.ForSlice at finalize time rather than truly streaming; every
// other algorithm streams through a real hash.Hash (or the xxh3 package's
// own incremental Hasher/Hasher128).
type streamHasher struct {
	algo string

	std   hash.Hash // crc32, crc32c, xxh32, xxh64, md5, sha1, sha2-*
	xxh3h *xxh3.Hasher
	sea   *bytes.Buffer
}

func newStreamHasher(algo string) (*streamHasher, error) {
	sh := &streamHasher{algo: algo}
	switch algo {
	case "crc32":
		sh.std = crc32.NewIEEE()
	case "crc32c":
		sh.std = crc32.New(crc32.MakeTable(crc32.Castagnoli))
	case "xxh32":
		sh.std = xxHash32.New(0)
	case "xxh64":
		sh.std = xxhash.New()
	case "md5":
		sh.std = md5.New()
	case "sha1":
		sh.std = sha1.New()
	case "sha2-224":
		sh.std = sha256.New224()
	case "sha2-256":
		sh.std = sha256.New()
	case "sha2-384":
		sh.std = sha512.New384()
	case "sha2-512":
		sh.std = sha512.New()
	case "xxh3-64", "xxh3-128":
		sh.xxh3h = xxh3.New()
	case "seahash":
		sh.sea = &bytes.Buffer{}
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", algo)
	}
	return sh, nil
}

func (sh *streamHasher) Write(p []byte) {
	switch {
	case sh.std != nil:
		sh.std.Write(p)
	case sh.xxh3h != nil:
		sh.xxh3h.Write(p)
	case sh.sea != nil:
		sh.sea.Write(p)
	}
}

func (sh *streamHasher) Finalize() string {
	switch {
	case sh.std != nil:
		return hex.EncodeToString(sh.std.Sum(nil))
	case sh.xxh3h != nil:
		if sh.algo == "xxh3-128" {
			u := sh.xxh3h.Sum128()
			return fmt.Sprintf("%016x%016x", u.Hi, u.Lo)
		}
		return fmt.Sprintf("%016x", sh.xxh3h.Sum64())
	case sh.sea != nil:
		return hashcodec.Encode(hashcodec.ForSlice(sh.sea.Bytes()))
	default:
		return ""
	}
}

func calcHash(data []byte, algo string) (string, error) {
	sh, err := newStreamHasher(algo)
	if err != nil {
		return "", err
	}
	sh.Write(data)
	return sh.Finalize(), nil
}

// CalcHash exposes the one-shot hash calculation outside the hostapi
// package, so the CLI's `storage hash` command shares the exact same
// algorithm set and implementation as the script engine's hash.calc.
func CalcHash(data []byte, algo string) (string, error) {
	return calcHash(data, algo)
}

// HashAPI returns the "hash" namespace: a one-shot calc plus a streaming
// builder/write/finalize trio backed by a handle registry, per spec.md
// §4.L's supported algorithm set.
func HashAPI() object.Object {
	builders := NewRegistry[*streamHasher]()
	return object.NewMap(map[string]object.Object{
		"calc":     object.NewBuiltin("hash.calc", hashCalc),
		"builder":  object.NewBuiltin("hash.builder", hashBuilder(builders)),
		"write":    object.NewBuiltin("hash.write", hashWrite(builders)),
		"finalize": object.NewBuiltin("hash.finalize", hashFinalize(builders)),
	})
}

// defaultHashAlgo is the implicit algorithm for calc/builder when the
// caller omits it, per spec.md §4.L.
const defaultHashAlgo = "seahash"

func hashCalc(ctx context.Context, args ...object.Object) object.Object {
	if len(args) < 1 || len(args) > 2 {
		return object.NewArgsError("hash.calc", 1, len(args))
	}
	data, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("hash.calc: expected bytes (string), got %s", args[0].Type())
	}
	algo := defaultHashAlgo
	if len(args) == 2 {
		a, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("hash.calc: expected algorithm string, got %s", args[1].Type())
		}
		algo = a.Value()
	}
	out, err := calcHash([]byte(data.Value()), algo)
	if err != nil {
		return object.Errorf("hash.calc: %v", err)
	}
	return object.NewString(out)
}

func hashBuilder(builders *Registry[*streamHasher]) func(ctx context.Context, args ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) > 1 {
			return object.NewArgsError("hash.builder", 1, len(args))
		}
		algo := defaultHashAlgo
		if len(args) == 1 {
			a, ok := args[0].(*object.String)
			if !ok {
				return object.Errorf("hash.builder: expected algorithm string, got %s", args[0].Type())
			}
			algo = a.Value()
		}
		sh, err := newStreamHasher(algo)
		if err != nil {
			return object.Errorf("hash.builder: %v", err)
		}
		handle := builders.Insert(sh)
		return object.NewInt(int64(handle))
	}
}

func hashWrite(builders *Registry[*streamHasher]) func(ctx context.Context, args ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("hash.write", 2, len(args))
		}
		handle, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("hash.write: expected handle int, got %s", args[0].Type())
		}
		data, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("hash.write: expected bytes (string), got %s", args[1].Type())
		}
		sh, ok := builders.Get(uint32(handle.Value()))
		if !ok {
			return object.Errorf("hash.write: unknown handle %d", handle.Value())
		}
		sh.Write([]byte(data.Value()))
		return object.Nil
	}
}

func hashFinalize(builders *Registry[*streamHasher]) func(ctx context.Context, args ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("hash.finalize", 1, len(args))
		}
		handle, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("hash.finalize: expected handle int, got %s", args[0].Type())
		}
		sh, ok := builders.Get(uint32(handle.Value()))
		if !ok {
			return object.Errorf("hash.finalize: unknown handle %d", handle.Value())
		}
		builders.Remove(uint32(handle.Value()))
		return object.NewString(sh.Finalize())
	}
}
