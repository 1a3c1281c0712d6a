package hashcodec

import (
	"math/rand"
)

// H is the 64-bit content hash that keys every resource in the package
// store.
type H uint64

// Xor combines two hashes. Xor is associative and commutative, and 0 is
// its identity — this is what makes [ForEntry] order-independent over a
// directory's entries.
func Xor(a, b H) H {
	return a ^ b
}

// XorAssign folds b into a in place.
func XorAssign(a *H, b H) {
	*a ^= b
}

// Chain combines two hashes the same way Xor does; it exists as a
// separate name because the spec describes composition of a parent hash
// with a child hash as "chaining" rather than as a set-style fold.
func Chain(a, b H) H {
	return a ^ b
}

// ForSlice hashes a byte slice with SeaHash.
func ForSlice(b []byte) H {
	return H(SeaHash64(b))
}

// Rand returns a uniform random 64-bit value. It is never used as a
// content hash — only as a temporary token standing in for a
// not-yet-known resource index while the resolver is still walking the
// dependency graph.
func Rand() H {
	return H(rand.Uint64())
}
