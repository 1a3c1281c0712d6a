// Package manifest implements the JSON codecs for every document shape
// playpack reads or writes: package manifests, games-registry manifests,
// lockfiles, generations, and game manifests. Every decoder reports
// structural failures through [github.com/jward/playpack/internal/errs].AsJSONError
// so callers can distinguish a missing field from a malformed one; every
// encoder round-trips byte-for-byte through the matching decoder (P3).
package manifest
