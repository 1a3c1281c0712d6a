package playpack

import (
	"context"
	"fmt"
	"time"

	"github.com/jward/playpack/internal/generations"
	"github.com/jward/playpack/internal/packstore"
	"github.com/jward/playpack/internal/resolver"
	"github.com/jward/playpack/internal/scriptengine"
)

// Game orchestrates the playpack pipeline: resolving package manifests
// into a lockfile, inserting it as a generation, and materializing a
// generation's resource graph through the script engine.
type Game struct {
	store       *packstore.Store
	generations *generations.Store
	now         func() time.Time

	resolverOpts []resolver.Option
}

// Option configures a Game.
type Option func(*Game)

// WithFetcher overrides the resolver's default HTTP fetcher, mainly for
// tests.
func WithFetcher(f resolver.Fetcher) Option {
	return func(g *Game) { g.resolverOpts = append(g.resolverOpts, resolver.WithFetcher(f)) }
}

// WithClock overrides the clock used to stamp lockfile and generation
// timestamps, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Game) {
		g.now = now
		g.resolverOpts = append(g.resolverOpts, resolver.WithClock(now))
	}
}

// New creates a Game backed by a packages store at storeDir and a
// generations store at generationsDir, creating either directory if
// absent.
func New(storeDir, generationsDir string, opts ...Option) (*Game, error) {
	store, err := packstore.NewStore(storeDir)
	if err != nil {
		return nil, fmt.Errorf("playpack: create store: %w", err)
	}
	genStore, err := generations.Open(generationsDir)
	if err != nil {
		return nil, fmt.Errorf("playpack: open generations: %w", err)
	}

	g := &Game{store: store, generations: genStore, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Store returns the underlying packages store for direct access.
func (g *Game) Store() *packstore.Store { return g.store }

// Generations returns the underlying generations store for direct
// access.
func (g *Game) Generations() *generations.Store { return g.generations }

// Resolve fetches and resolves one or more root package URLs into a
// lockfile, materializing every resource into the packages store as it
// goes.
func (g *Game) Resolve(ctx context.Context, rootURLs ...string) (*LockfileManifest, error) {
	r := resolver.New(g.store, g.resolverOpts...)
	lf, err := r.Build(ctx, rootURLs)
	if err != nil {
		return nil, fmt.Errorf("playpack: resolve: %w", err)
	}
	return lf, nil
}

// InsertGeneration wraps lf with games (nil for none) and a build
// timestamp, and inserts it into the generations store, returning its
// identifying hash.
func (g *Game) InsertGeneration(lf *LockfileManifest, games []GameLock) (H, error) {
	if games == nil {
		games = []GameLock{}
	}
	gen := &GenerationManifest{
		LockFile:    *lf,
		Games:       games,
		GeneratedAt: uint64(g.now().Unix()),
	}
	h, err := g.generations.Insert(gen)
	if err != nil {
		return 0, fmt.Errorf("playpack: insert generation: %w", err)
	}
	return h, nil
}

// Run materializes the generation identified by h against the packages
// store and evaluates every Module resource, returning a queryable
// Engine.
func (g *Game) Run(ctx context.Context, h H, dirs BaseDirs, opts ...EngineOption) (*Engine, error) {
	gen, ok, err := g.generations.Load(h)
	if err != nil {
		return nil, fmt.Errorf("playpack: run: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("playpack: run: generation not found")
	}
	e, err := scriptengine.Build(ctx, &gen.LockFile, g.store, dirs, opts...)
	if err != nil {
		return nil, fmt.Errorf("playpack: run: %w", err)
	}
	return e, nil
}

// WithExtProcessAPI re-exports scriptengine's trust predicate option, so
// callers don't need to import internal/scriptengine themselves.
func WithExtProcessAPI(allowed func(index uint32) bool) EngineOption {
	return scriptengine.WithExtProcessAPI(allowed)
}
