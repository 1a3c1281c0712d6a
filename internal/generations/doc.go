// Package generations implements the append-only generations store:
// generations.json indexes base32(hash) -> unix timestamp, and each
// generation is stored in full (not diffed) under its own hash-named
// file. Grounded on spec.md §3/§4.G and the store layout conventions
// shared with internal/packstore.
package generations
