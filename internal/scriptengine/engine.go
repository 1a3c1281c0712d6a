package scriptengine

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"

	"github.com/jward/playpack/internal/hashcodec"
	"github.com/jward/playpack/internal/manifest"
	"github.com/jward/playpack/internal/packstore"
	"github.com/jward/playpack/internal/scriptengine/hostapi"
)

// Resource is one materialized entry in the engine's resource table,
// matching spec.md §4.H's {format, hash, value} shape. Value holds an
// absolute path string for File/Archive, an inputs/outputs index map for
// Package, and a module's evaluation result (an object.Object, usually a
// map) for Module.
type Resource struct {
	Format manifest.ResourceFormat
	Hash   hashcodec.H
	Value  any
}

// PackageValue is the Value a Package resource carries.
type PackageValue struct {
	Inputs  map[string]uint32
	Outputs map[string]uint32
}

// Engine is one materialized, evaluated instance of a lockfile's resource
// graph. It is single-threaded: all module evaluation happens against
// one Risor VM construction per module, driven serially from Build,
// matching spec.md §4.H's "single-threaded within one interpreter
// instance."
type Engine struct {
	lockfile  *manifest.LockfileManifest
	resources []Resource

	syncState *hostapi.SyncState
	baseDirs  BaseDirs
}

// BaseDirs locates the three sandbox roots an Engine allocates
// per-module subfolders under.
type BaseDirs struct {
	TempRoot       string
	ModuleRoot     string
	PersistentRoot string
}

// pendingModule is one Module resource queued for evaluation, carrying
// its source and the parent context captured at enqueue-time; the
// per-module environment is built later, by evalModule.
type pendingModule struct {
	index         uint32
	source        string
	parentContext *uint32
	extProcessAPI bool
}

type queueItem struct {
	index         uint32
	parentContext *uint32
}

// Option configures Build. Extended process privileges are a trust
// decision made by whatever is invoking the engine (a CLI flag, a
// game's configured trust level) — never something a package declares
// about itself — so it's threaded in as a predicate rather than read
// off the lockfile.
type Option func(*buildConfig)

type buildConfig struct {
	extProcessAPI func(index uint32) bool
}

// WithExtProcessAPI installs a predicate deciding which module resource
// indices get the privileged process namespace in their environment.
func WithExtProcessAPI(allowed func(index uint32) bool) Option {
	return func(c *buildConfig) { c.extProcessAPI = allowed }
}

// Build materializes lf against store: BFS from lf.Root, emitting a
// {format, hash, value} table entry per resource, draining a FIFO module
// evaluation queue last (reverse-topological order, since modules always
// enqueue after their dependencies).
func Build(ctx context.Context, lf *manifest.LockfileManifest, store *packstore.Store, dirs BaseDirs, opts ...Option) (*Engine, error) {
	cfg := buildConfig{extProcessAPI: func(uint32) bool { return false }}
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{
		lockfile:  lf,
		resources: make([]Resource, len(lf.Resources)),
		syncState: hostapi.NewSyncState(),
		baseDirs:  dirs,
	}

	visited := make(map[uint32]bool)
	var queue []queueItem
	for _, rootIdx := range lf.Root {
		queue = append(queue, queueItem{index: rootIdx, parentContext: nil})
	}

	var modules []pendingModule

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if visited[item.index] {
			continue
		}
		visited[item.index] = true

		rl := lf.Resources[item.index]
		loaded, err := store.Load(lf, rl.Lock.Hash)
		if err != nil {
			return nil, fmt.Errorf("scriptengine: loading resource %d: %w", item.index, err)
		}

		switch {
		case rl.Format == manifest.FormatPackage:
			e.resources[item.index] = Resource{
				Format: rl.Format, Hash: rl.Lock.Hash,
				Value: PackageValue{Inputs: rl.Inputs, Outputs: rl.Outputs},
			}
			for _, inputIdx := range rl.Inputs {
				queue = append(queue, queueItem{index: inputIdx, parentContext: nil})
			}
			ownerIdx := item.index
			for _, outputIdx := range rl.Outputs {
				queue = append(queue, queueItem{index: outputIdx, parentContext: &ownerIdx})
			}

		case rl.Format.IsModule():
			src, err := os.ReadFile(loaded.Path)
			if err != nil {
				return nil, fmt.Errorf("scriptengine: reading module %d: %w", item.index, err)
			}
			modules = append(modules, pendingModule{
				index: item.index, source: string(src), parentContext: item.parentContext,
				extProcessAPI: cfg.extProcessAPI(item.index),
			})

		default:
			e.resources[item.index] = Resource{Format: rl.Format, Hash: rl.Lock.Hash, Value: loaded.Path}
		}
	}

	for _, m := range modules {
		result, err := e.evalModule(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("scriptengine: evaluating module %d: %w", m.index, err)
		}
		e.resources[m.index] = Resource{
			Format: lf.Resources[m.index].Format,
			Hash:   lf.Resources[m.index].Lock.Hash,
			Value:  result,
		}
	}

	return e, nil
}

// evalModule constructs the per-module environment (host-API namespaces
// plus the load(name) capability) and evaluates the module's script
// against it, returning its final value as the resource's value.
func (e *Engine) evalModule(ctx context.Context, m pendingModule) (object.Object, error) {
	moduleCtx := Context{
		TempFolder:       mustModuleDir(e.baseDirs.TempRoot, m.index),
		ModuleFolder:     mustModuleDir(e.baseDirs.ModuleRoot, m.index),
		PersistentFolder: mustModuleDir(e.baseDirs.PersistentRoot, m.index),
		ExtProcessAPI:    m.extProcessAPI,
	}
	folders := hostapi.PathFolders{
		TempFolder:       moduleCtx.TempFolder,
		ModuleFolder:     moduleCtx.ModuleFolder,
		PersistentFolder: moduleCtx.PersistentFolder,
	}

	persist := func(key string) (string, error) {
		dir := moduleCtx.PersistentFolder + string(os.PathSeparator) + key
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		return dir, nil
	}

	globals := map[string]any{
		"string":  hostapi.StringAPI(),
		"path":    hostapi.PathAPI(folders, persist),
		"fs":      hostapi.FilesystemAPI(folders),
		"net":     hostapi.NetworkAPI(nil),
		"sync":    hostapi.SyncAPI(e.syncState),
		"archive": hostapi.ArchiveAPI(folders),
		"hash":    hostapi.HashAPI(),
		"load":    object.NewBuiltin("load", e.makeLoad(m.parentContext)),
	}
	if m.extProcessAPI {
		globals["process"] = hostapi.ProcessAPI()
	}

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	result, err := risor.Eval(ctx, m.source, opts...)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func mustModuleDir(root string, index uint32) string {
	dir := root + string(os.PathSeparator) + strconv.FormatUint(uint64(index), 10)
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

// makeLoad builds the load(name) builtin scoped to parentContext: it
// reads resources[parentContext].value.inputs[name] and returns the
// referenced resource's table, per spec.md §4.H.
func (e *Engine) makeLoad(parentContext *uint32) func(ctx context.Context, args ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("load", 1, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("load: expected name string, got %s", args[0].Type())
		}
		if parentContext == nil {
			return object.Errorf("load: no parent context (inputs cannot load siblings)")
		}
		owner := e.resources[*parentContext]
		pkgVal, ok := owner.Value.(PackageValue)
		if !ok {
			return object.Errorf("load: parent context is not a package")
		}
		idx, ok := pkgVal.Inputs[name.Value()]
		if !ok {
			return object.Errorf("load: unknown input %q", name.Value())
		}
		return e.resourceTable(idx)
	}
}

// resourceTable renders resources[idx] as the {format, hash, value}
// table scripts observe, converting Go values into Risor objects at the
// boundary.
func (e *Engine) resourceTable(idx uint32) object.Object {
	r := e.resources[idx]
	var value object.Object
	switch v := r.Value.(type) {
	case string:
		value = object.NewString(v)
	case PackageValue:
		inputs := map[string]object.Object{}
		for k, i := range v.Inputs {
			inputs[k] = object.NewInt(int64(i))
		}
		outputs := map[string]object.Object{}
		for k, i := range v.Outputs {
			outputs[k] = object.NewInt(int64(i))
		}
		value = object.NewMap(map[string]object.Object{
			"inputs": object.NewMap(inputs), "outputs": object.NewMap(outputs),
		})
	case object.Object:
		value = v
	default:
		value = object.Nil
	}
	return object.NewMap(map[string]object.Object{
		"format": object.NewString(r.Format.String()),
		"hash":   object.NewString(hashcodec.Encode(r.Hash)),
		"value":  value,
	})
}

// Resolve implements spec.md §4.H's resource-lookup rule: the first
// match among exact numeric index, full base32-hash match, base32-prefix
// substring match, and numeric-hash-equal-to-integer-interpretation.
func (e *Engine) Resolve(identifier string) (uint32, bool) {
	if n, err := strconv.ParseUint(identifier, 10, 32); err == nil && int(n) < len(e.resources) {
		return uint32(n), true
	}
	for i, r := range e.resources {
		if hashcodec.Encode(r.Hash) == identifier {
			return uint32(i), true
		}
	}
	for i, r := range e.resources {
		if strings.HasPrefix(hashcodec.Encode(r.Hash), identifier) {
			return uint32(i), true
		}
	}
	if n, err := strconv.ParseUint(identifier, 10, 64); err == nil {
		for i, r := range e.resources {
			if uint64(r.Hash) == n {
				return uint32(i), true
			}
		}
	}
	return 0, false
}

// Table returns resources[idx] rendered as the {format, hash, value}
// table, for external callers (e.g. the CLI's `engine run`).
func (e *Engine) Table(idx uint32) object.Object {
	return e.resourceTable(idx)
}
