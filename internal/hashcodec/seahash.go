package hashcodec

import "encoding/binary"

// SeaHash is a pure-Go port of the reference SeaHash algorithm (the same
// hash the original Rust implementation of this launcher uses for its
// content-addressed store). No Go module in the dependency pack exposes
// it, so it lives here the same way the pack's own bit-level hashers
// (xxh32, xxh3) are vendored by their authors: a small, self-contained,
// allocation-free diffusion hash with no external dependency.
//
// H is deterministic and stable across process runs; two differently
// ordered writes of the same bytes never happen because SeaHash consumes
// one contiguous byte slice, not a stream of independent writes.

const (
	seaSeed1 = 0x16f11fe89b0d677c
	seaSeed2 = 0xb480a793d8e6c86c
	seaSeed3 = 0x6fe2e5aaf078ebc9
	seaSeed4 = 0x14f994a4c5259381

	seaConst = 0x6eed0e9da4d94a4f

	seaBufferSize = 32 // four 8-byte lanes processed per main-loop iteration
)

// diffuse is SeaHash's bit-mixing step: a multiply-xorshift-multiply
// round that spreads entropy from the low bits into the high bits and
// back.
func diffuse(x uint64) uint64 {
	x *= seaConst
	a := x >> 32
	b := x >> 60
	x ^= a >> b
	x *= seaConst
	return x
}

// SeaHash64 computes the SeaHash of buf using the algorithm's default
// seeds.
func SeaHash64(buf []byte) uint64 {
	a, b, c, d := uint64(seaSeed1), uint64(seaSeed2), uint64(seaSeed3), uint64(seaSeed4)
	var written uint64

	for len(buf) >= seaBufferSize {
		x := binary.LittleEndian.Uint64(buf[0:8])
		y := binary.LittleEndian.Uint64(buf[8:16])
		z := binary.LittleEndian.Uint64(buf[16:24])
		w := binary.LittleEndian.Uint64(buf[24:32])

		a = diffuse(a ^ x)
		b = diffuse(b ^ y)
		c = diffuse(c ^ z)
		d = diffuse(d ^ w)

		written += seaBufferSize
		buf = buf[seaBufferSize:]
	}

	// Tail: consume remaining 8-byte lanes, rotating through a,b,c,d so a
	// short tail still mixes into every lane over repeated calls.
	for len(buf) >= 8 {
		x := binary.LittleEndian.Uint64(buf[0:8])
		a = diffuse(a ^ x)
		a, b, c, d = b, c, d, a
		written += 8
		buf = buf[8:]
	}

	if len(buf) > 0 {
		var tail [8]byte
		copy(tail[:], buf)
		x := binary.LittleEndian.Uint64(tail[:])
		a = diffuse(a ^ x)
		written += uint64(len(buf))
	}

	hash := (a ^ b) ^ (c ^ d)
	return diffuse(hash ^ written)
}
