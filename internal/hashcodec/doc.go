// Package hashcodec implements the 64-bit content hash used to address
// every resource in the package store, plus the base32 encoding used to
// turn those hashes into filenames.
//
// Hashing is pure and deterministic: [ForSlice] hashes a byte slice,
// [ForEntry] hashes a file or a directory tree, and [Chain]/[Xor] combine
// hashes order-independently. All bytewise hashing goes through SeaHash —
// substituting another hash here would silently invalidate every existing
// generation on disk.
package hashcodec
