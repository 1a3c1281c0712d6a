package resolver

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jward/playpack/internal/archivefacade"
	"github.com/jward/playpack/internal/downloader"
	"github.com/jward/playpack/internal/errs"
	"github.com/jward/playpack/internal/hashcodec"
	"github.com/jward/playpack/internal/manifest"
	"github.com/jward/playpack/internal/packstore"
)

// Fetcher downloads a URL to a local path. The default implementation
// wraps internal/downloader; tests substitute an in-memory fake.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string) error
}

type httpFetcher struct{}

func (httpFetcher) Fetch(ctx context.Context, url, destPath string) error {
	d := downloader.Start(url, destPath)
	_ = ctx // the downloader is not yet context-aware; reserved for future cancellation wiring
	return d.Wait()
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFetcher overrides the default HTTP fetcher, mainly for tests.
func WithFetcher(f Fetcher) Option {
	return func(r *Resolver) { r.fetcher = f }
}

// WithClock overrides the clock used to stamp generated_at, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// Resolver builds lockfiles against a packages store.
type Resolver struct {
	store   *packstore.Store
	fetcher Fetcher
	now     func() time.Time
}

// New constructs a Resolver bound to store.
func New(store *packstore.Store, opts ...Option) *Resolver {
	r := &Resolver{store: store, fetcher: httpFetcher{}, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type resourceKey struct {
	url    string
	format manifest.ResourceFormat
}

type pendingPackage struct {
	url      string
	tempHash hashcodec.H
	isRoot   bool
}

type pendingResource struct {
	url          string
	format       manifest.ResourceFormat
	tempHash     hashcodec.H
	declaredHash *hashcodec.H
}

type assignRef struct {
	tempHash   hashcodec.H
	name       string
	ownerIndex uint32
	isInput    bool
}

// build carries the resolver's working state for one Build call, mirroring
// spec.md §4.F's "work set" and three auxiliary structures.
type build struct {
	store   *packstore.Store
	fetcher Fetcher

	packageQueue  []pendingPackage
	resourceQueue []pendingResource

	requested        map[resourceKey]bool
	assignedHashes    map[hashcodec.H]resourceKey
	resourcesIndexes map[resourceKey]uint32
	assignReferences []assignRef

	root      []uint32
	resources []manifest.ResourceLock
}

// Build runs the resolver algorithm for a set of root package URLs,
// returning a deterministic lockfile whose resources are materialized in
// the store.
func (r *Resolver) Build(ctx context.Context, rootURLs []string) (*manifest.LockfileManifest, error) {
	b := &build{
		store:            r.store,
		fetcher:          r.fetcher,
		requested:        map[resourceKey]bool{},
		assignedHashes:   map[hashcodec.H]resourceKey{},
		resourcesIndexes: map[resourceKey]uint32{},
	}

	for _, raw := range rootURLs {
		normalized, err := normalizeURL(raw, true)
		if err != nil {
			return nil, err
		}
		b.packageQueue = append(b.packageQueue, pendingPackage{
			url:      normalized,
			tempHash: hashcodec.Rand(),
			isRoot:   true,
		})
	}

	for len(b.packageQueue) > 0 || len(b.resourceQueue) > 0 {
		for len(b.packageQueue) > 0 {
			item := b.packageQueue[0]
			b.packageQueue = b.packageQueue[1:]
			if err := b.processPackage(ctx, item); err != nil {
				return nil, err
			}
		}
		for len(b.resourceQueue) > 0 {
			item := b.resourceQueue[0]
			b.resourceQueue = b.resourceQueue[1:]
			if err := b.processResource(ctx, item); err != nil {
				return nil, err
			}
		}
	}

	for _, ref := range b.assignReferences {
		key, ok := b.assignedHashes[ref.tempHash]
		if !ok {
			return nil, fmt.Errorf("resolver: internal error: unresolved temp hash for %s", ref.name)
		}
		idx, ok := b.resourcesIndexes[key]
		if !ok {
			return nil, fmt.Errorf("resolver: internal error: no resources index for %s", key.url)
		}
		owner := &b.resources[ref.ownerIndex]
		if ref.isInput {
			if owner.Inputs == nil {
				owner.Inputs = map[string]uint32{}
			}
			owner.Inputs[ref.name] = idx
		} else {
			if owner.Outputs == nil {
				owner.Outputs = map[string]uint32{}
			}
			owner.Outputs[ref.name] = idx
		}
	}

	return &manifest.LockfileManifest{
		Standard:  manifest.CurrentLockfileStandard,
		Metadata:  manifest.LockfileMetadata{GeneratedAt: uint64(r.now().Unix())},
		Root:      b.root,
		Resources: b.resources,
	}, nil
}

func (b *build) processPackage(ctx context.Context, item pendingPackage) error {
	key := resourceKey{url: item.url, format: manifest.FormatPackage}
	if b.requested[key] {
		return nil
	}
	b.requested[key] = true

	tempPath := b.store.TempPath(item.tempHash)
	if err := b.fetcher.Fetch(ctx, item.url, tempPath); err != nil {
		return err
	}
	data, err := os.ReadFile(tempPath)
	if err != nil {
		return &errs.IOError{Op: "read", Path: tempPath, Err: err}
	}
	manifestHash := hashcodec.ForSlice(data)
	pkg, err := manifest.ParsePackageManifest(data)
	if err != nil {
		return err
	}

	idx := uint32(len(b.resources))
	b.resources = append(b.resources, manifest.ResourceLock{
		URL:     item.url,
		Format:  manifest.FormatPackage,
		Lock:    manifest.Lock{Hash: manifestHash, Size: uint64(len(data))},
		Inputs:  map[string]uint32{},
		Outputs: map[string]uint32{},
	})
	b.resourcesIndexes[key] = idx
	if item.isRoot {
		b.root = append(b.root, idx)
	}

	finalPath := b.store.Path(manifestHash, manifest.FormatPackage)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return &errs.IOError{Op: "rename", Path: finalPath, Err: err}
	}

	if err := b.enqueueDeclared(item.url, pkg.Inputs, idx, true); err != nil {
		return err
	}
	if err := b.enqueueDeclared(item.url, pkg.Outputs, idx, false); err != nil {
		return err
	}
	return nil
}

func (b *build) enqueueDeclared(packageURL string, declared map[string]manifest.Resource, ownerIndex uint32, isInput bool) error {
	for name, res := range declared {
		format := res.EffectiveFormat()
		resolvedURL, err := resolveRelative(packageURL, res.URI, format == manifest.FormatPackage)
		if err != nil {
			return err
		}
		tempHash := hashcodec.Rand()
		key := resourceKey{url: resolvedURL, format: format}
		b.assignedHashes[tempHash] = key
		b.assignReferences = append(b.assignReferences, assignRef{
			tempHash: tempHash, name: name, ownerIndex: ownerIndex, isInput: isInput,
		})

		if format == manifest.FormatPackage {
			b.packageQueue = append(b.packageQueue, pendingPackage{url: resolvedURL, tempHash: tempHash})
			continue
		}
		b.resourceQueue = append(b.resourceQueue, pendingResource{
			url: resolvedURL, format: format, tempHash: tempHash, declaredHash: res.Hash,
		})
	}
	return nil
}

func (b *build) processResource(ctx context.Context, item pendingResource) error {
	if item.format == manifest.FormatPackage {
		b.packageQueue = append(b.packageQueue, pendingPackage{url: item.url, tempHash: item.tempHash})
		return nil
	}

	key := resourceKey{url: item.url, format: item.format}
	if b.requested[key] {
		return nil
	}
	b.requested[key] = true

	if item.declaredHash != nil && b.store.HasResource(*item.declaredHash, item.format) {
		size := storedSize(b.store.Path(*item.declaredHash, item.format))
		idx := uint32(len(b.resources))
		b.resources = append(b.resources, manifest.ResourceLock{
			URL: item.url, Format: item.format,
			Lock: manifest.Lock{Hash: *item.declaredHash, Size: size},
		})
		b.resourcesIndexes[key] = idx
		return nil
	}

	tempPath := b.store.TempPath(item.tempHash)
	if err := b.fetcher.Fetch(ctx, item.url, tempPath); err != nil {
		return err
	}

	var finalHash hashcodec.H
	var finalPath string
	var size uint64

	if item.format.IsArchive() {
		extractDir := tempPath + ".d"
		handle, err := archivefacade.Open(ctx, tempPath)
		if err != nil {
			return err
		}
		if _, err := handle.Extract(ctx, extractDir, nil); err != nil {
			return err
		}
		h, err := hashcodec.ForEntry(extractDir)
		if err != nil {
			return err
		}
		if item.declaredHash != nil && *item.declaredHash != h {
			return &errs.HashMismatchError{Current: uint64(h), Expected: uint64(*item.declaredHash)}
		}
		target := b.store.Path(h, item.format)
		if err := os.RemoveAll(target); err != nil {
			return &errs.IOError{Op: "remove", Path: target, Err: err}
		}
		if err := os.Rename(extractDir, target); err != nil {
			return &errs.IOError{Op: "rename", Path: target, Err: err}
		}
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			return &errs.IOError{Op: "remove", Path: tempPath, Err: err}
		}
		finalHash, finalPath, size = h, target, storedSize(target)
	} else {
		h, err := hashcodec.ForEntry(tempPath)
		if err != nil {
			return err
		}
		if item.declaredHash != nil && *item.declaredHash != h {
			return &errs.HashMismatchError{Current: uint64(h), Expected: uint64(*item.declaredHash)}
		}
		target := b.store.Path(h, item.format)
		if err := os.Rename(tempPath, target); err != nil {
			return &errs.IOError{Op: "rename", Path: target, Err: err}
		}
		finalHash, finalPath, size = h, target, storedSize(target)
	}

	idx := uint32(len(b.resources))
	b.resources = append(b.resources, manifest.ResourceLock{
		URL: item.url, Format: item.format, Lock: manifest.Lock{Hash: finalHash, Size: size},
	})
	b.resourcesIndexes[key] = idx
	_ = finalPath
	return nil
}

// storedSize reports the stored artifact's byte length: for archives
// (extracted directories), this is the directory entry's own reported
// size, a deliberate and stable choice (L4 leaves this implementation-
// defined) rather than the sum of the extracted tree's file sizes.
func storedSize(path string) uint64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return uint64(info.Size())
}
