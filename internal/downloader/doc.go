// Package downloader implements the resumable HTTP fetch the resolver
// uses to materialize non-package resources: Range-header resume,
// Content-Range/416 completion detection, and atomic progress counters
// readable from any goroutine while the transfer runs on its own.
// Grounded on the teacher's worker-goroutine-plus-channel shape in
// engine_parallel.go, generalized from a worker pool to a single
// background transfer with a result channel.
package downloader
