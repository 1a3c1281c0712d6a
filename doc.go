// Package playpack implements a content-addressed package manager and a
// sandboxed Risor scripting runtime for a game-integration launcher. It
// bridges declared package manifests (what a game's integrations need)
// and a deterministic, content-hashed resource graph that a single-
// threaded script engine can materialize and evaluate.
//
// # Pipeline
//
// playpack operates in three phases:
//
//  1. Resolve: starting from one or more root package URLs, fetch each
//     package manifest, recursively resolve its declared inputs and
//     outputs, and produce a lockfile — a flat, content-addressed
//     resource graph with every hash pinned.
//
//  2. Generations: a lockfile is wrapped with the games it was built for
//     and inserted into an append-only generations store, identified by
//     the hash of its own serialization.
//
//  3. Engine: a generation's lockfile is materialized against the
//     packages store — BFS over the resource graph, evaluating every
//     Module resource's Risor script against a per-module sandboxed
//     host API — producing a queryable resource table.
//
// # Usage
//
// Create a Game bound to a packages store and a generations store,
// resolve root URLs into a lockfile, insert it as a generation, and run
// the engine against it:
//
//	g, err := playpack.New("packages-store", "generations-store")
//	if err != nil { ... }
//
//	ctx := context.Background()
//	lf, err := g.Resolve(ctx, "https://example.test/game/package.json")
//	h, err := g.InsertGeneration(lf, nil)
//
//	e, err := g.Run(ctx, h, playpack.BaseDirs{TempRoot: "...", ModuleRoot: "...", PersistentRoot: "..."})
//	idx, ok := e.Resolve("0")
//	table := e.Table(idx)
//
// # Host API
//
// Module resources run in a Risor interpreter with host-provided
// globals: string, path, fs, net, sync, archive, hash, load, and
// (when privileged) process. See internal/scriptengine/hostapi for the
// full surface.
package playpack
