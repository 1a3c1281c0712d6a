package generations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/playpack/internal/hashcodec"
	"github.com/jward/playpack/internal/manifest"
)

func TestStore_InsertListLatestLoad(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	gen1 := &manifest.GenerationManifest{
		LockFile:    manifest.LockfileManifest{Standard: manifest.CurrentLockfileStandard},
		GeneratedAt: 100,
	}
	gen2 := &manifest.GenerationManifest{
		LockFile:    manifest.LockfileManifest{Standard: manifest.CurrentLockfileStandard},
		Games:       []manifest.GameLock{{Slug: "a", Lock: manifest.Lock{Hash: 1, Size: 1}}},
		GeneratedAt: 200,
	}

	h1, err := s.Insert(gen1)
	require.NoError(t, err)
	h2, err := s.Insert(gen2)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)

	list, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []hashcodec.H{h1, h2}, list)

	latest, ok, err := s.Latest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, h2, latest)

	loaded, ok, err := s.Load(h2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, gen2.GeneratedAt, loaded.GeneratedAt)
	assert.Len(t, loaded.Games, 1)
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	gen := &manifest.GenerationManifest{
		LockFile:    manifest.LockfileManifest{Standard: manifest.CurrentLockfileStandard},
		GeneratedAt: 1,
	}
	h, err := s.Insert(gen)
	require.NoError(t, err)

	require.NoError(t, s.Remove(h))
	require.NoError(t, s.Remove(h)) // second removal must not error

	_, ok, err := s.Load(h)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_LoadMissingReturnsNotOK(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	_, ok, err := s.Load(999)
	require.NoError(t, err)
	assert.False(t, ok)
}
