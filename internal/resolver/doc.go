// Package resolver implements the lockfile builder: given a set of root
// package URLs and a packages store, it transitively fetches manifests
// and their declared inputs/outputs, hash-verifies and materializes
// every resource in the store, and emits a deterministic
// [manifest.LockfileManifest]. This is the system's hardest component —
// see spec.md §4.F for the authoritative algorithm this package follows
// step for step.
package resolver
