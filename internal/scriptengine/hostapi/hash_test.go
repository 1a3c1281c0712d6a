package hostapi

import (
	"context"
	"testing"

	"github.com/risor-io/risor/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcHash_Deterministic(t *testing.T) {
	for _, algo := range []string{
		"crc32", "crc32c", "xxh32", "xxh64", "xxh3-64", "xxh3-128",
		"md5", "sha1", "sha2-224", "sha2-256", "sha2-384", "sha2-512", "seahash",
	} {
		t.Run(algo, func(t *testing.T) {
			a, err := calcHash([]byte("hello world"), algo)
			require.NoError(t, err)
			b, err := calcHash([]byte("hello world"), algo)
			require.NoError(t, err)
			assert.Equal(t, a, b)
			assert.NotEmpty(t, a)
		})
	}
}

func TestCalcHash_UnknownAlgorithm(t *testing.T) {
	_, err := calcHash([]byte("x"), "not-a-real-algo")
	require.Error(t, err)
}

func TestHashAPI_CalcDefaultsToSeahashWhenAlgoOmitted(t *testing.T) {
	api := asMap(t, HashAPI())
	ctx := context.Background()

	calc := api["calc"].(*object.Builtin)
	got := calc.Call(ctx, object.NewString("hello world"))
	s, ok := got.(*object.String)
	require.True(t, ok, "calc returned %v", got)

	want, err := calcHash([]byte("hello world"), "seahash")
	require.NoError(t, err)
	assert.Equal(t, want, s.Value())
}

func TestHashAPI_BuilderDefaultsToSeahashWhenAlgoOmitted(t *testing.T) {
	api := asMap(t, HashAPI())
	ctx := context.Background()

	builder := api["builder"].(*object.Builtin)
	write := api["write"].(*object.Builtin)
	finalize := api["finalize"].(*object.Builtin)

	handle := builder.Call(ctx)
	write.Call(ctx, handle, object.NewString("hello world"))
	got := finalize.Call(ctx, handle)
	s, ok := got.(*object.String)
	require.True(t, ok, "finalize returned %v", got)

	want, err := calcHash([]byte("hello world"), "seahash")
	require.NoError(t, err)
	assert.Equal(t, want, s.Value())
}

func TestStreamHasher_MatchesOneShot(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	for _, algo := range []string{"sha2-256", "xxh64", "xxh3-128", "seahash"} {
		t.Run(algo, func(t *testing.T) {
			want, err := calcHash(data, algo)
			require.NoError(t, err)

			sh, err := newStreamHasher(algo)
			require.NoError(t, err)
			sh.Write(data[:10])
			sh.Write(data[10:])
			assert.Equal(t, want, sh.Finalize())
		})
	}
}
