package hashcodec

import (
	"encoding/base32"
	"encoding/binary"
)

// hexAlphabetLower is RFC4648's "base32hex" alphabet, lower-cased.
const hexAlphabetLower = "0123456789abcdefghijklmnopqrstuv"

// hexLower is the base32hex alphabet with no padding — this is the wire
// format for every hash in the store (filenames, lockfile JSON,
// generation index keys).
var hexLower = base32.NewEncoding(hexAlphabetLower).WithPadding(base32.NoPadding)

// encodedLen is the fixed width of a base32-hexlower encoded 8-byte
// integer: ceil(64/5) = 13 characters.
const encodedLen = 13

// Encode renders h as a fixed-width, unpadded, lowercase base32hex
// string.
func Encode(h H) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(h))
	return hexLower.EncodeToString(buf[:])
}

// Decode parses a base32hex string produced by [Encode]. A string of the
// wrong length is rejected (ok=false) rather than silently truncated or
// padded.
func Decode(s string) (h H, ok bool) {
	if len(s) != encodedLen {
		return 0, false
	}
	buf := make([]byte, hexLower.DecodedLen(len(s)))
	n, err := hexLower.Decode(buf, []byte(s))
	if err != nil || n != 8 {
		return 0, false
	}
	return H(binary.BigEndian.Uint64(buf[:8])), true
}
