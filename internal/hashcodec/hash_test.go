package hashcodec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeaHash64_Deterministic(t *testing.T) {
	data := []byte("Hello, World!")
	require.Equal(t, SeaHash64(data), SeaHash64(data))
}

func TestForSlice_DifferentBytesDifferentHash(t *testing.T) {
	a := ForSlice([]byte("Hello, World!"))
	b := ForSlice([]byte("Hello, World?"))
	require.NotEqual(t, a, b)
}

func TestXor_AssociativeCommutativeIdentity(t *testing.T) {
	a, b, c := H(0x1234), H(0x5678), H(0x9abc)

	require.Equal(t, Xor(a, b), Xor(b, a), "commutative")
	require.Equal(t, Xor(Xor(a, b), c), Xor(a, Xor(b, c)), "associative")
	require.Equal(t, a, Xor(a, 0), "identity")
}

func TestBase32_RoundTrip(t *testing.T) {
	for _, h := range []H{0, 1, 0xdeadbeef, H(^uint64(0))} {
		s := Encode(h)
		require.Len(t, s, encodedLen)
		decoded, ok := Decode(s)
		require.True(t, ok)
		require.Equal(t, h, decoded)
	}
}

func TestBase32_WrongLengthIsAbsent(t *testing.T) {
	_, ok := Decode("tooshort")
	require.False(t, ok)

	_, ok = Decode("wwwwwwwwwwwwww") // 14 chars, one too many
	require.False(t, ok)
}

func TestForEntry_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	h, err := ForEntry(path)
	require.NoError(t, err)
	require.Equal(t, ForSlice([]byte("hello")), h)
}

func TestForEntry_DirectoryOrderIndependent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("A"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("B"), 0o644))

	h1, err := ForEntry(dir)
	require.NoError(t, err)

	// Rebuild the same tree in a different directory, with entries created
	// in the opposite order, and confirm the hash is identical — directory
	// hashing must not depend on filesystem listing order.
	dir2 := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir2, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir2, "sub", "b.txt"), []byte("B"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir2, "a.txt"), []byte("A"), 0o644))

	h2, err := ForEntry(dir2)
	require.NoError(t, err)

	require.Equal(t, h1, h2)
}

func TestForEntry_ByteChangeInvalidatesHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	h1, err := ForEntry(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("hellp"), 0o644))
	h2, err := ForEntry(dir)
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)
}
