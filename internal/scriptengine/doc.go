// Package scriptengine materializes a validated lockfile into a Risor
// runtime graph and evaluates every module resource against a
// per-module sandboxed environment. One Engine corresponds to one
// single-threaded interpreter instance, per spec.md §4.H; scripts that
// need concurrency spawn further Engines and communicate through
// internal/scriptengine/hostapi's process-wide sync primitives.
//
// Grounded on the teacher's internal/runtime package: the Risor wiring
// (risor.WithGlobal, object.NewBuiltin), the
// functional-options Runtime construction, and the "thin host function
// wrapping a Go backend" shape all carry over; the tree-sitter-specific
// host functions do not, since this engine's modules are game
// integrations, not source parsers.
package scriptengine
