package registrycache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	require.NoError(t, c.Migrate())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_RegistryRoundTrip(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.PutRegistry("https://example.test/games.json", []byte(`{"standard":1}`), 100))
	payload, fetchedAt, ok, err := c.GetRegistry("https://example.test/games.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`{"standard":1}`), payload)
	assert.EqualValues(t, 100, fetchedAt)

	_, _, ok, err = c.GetRegistry("https://example.test/missing.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_RegistryUpsertReplaces(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.PutRegistry("u", []byte("v1"), 1))
	require.NoError(t, c.PutRegistry("u", []byte("v2"), 2))

	payload, fetchedAt, ok, err := c.GetRegistry("u")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), payload)
	assert.EqualValues(t, 2, fetchedAt)
}

func TestCache_InvalidateRegistryCascadesGames(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.PutRegistry("u", []byte("{}"), 1))
	require.NoError(t, c.PutGame("anime-quest", "Anime Quest", "u", []string{"rpg"}, []byte(`{"slug":"anime-quest"}`), 1))

	require.NoError(t, c.InvalidateRegistry("u"))

	_, _, ok, err := c.GetRegistry("u")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, ok, err = c.GetGame("anime-quest")
	require.NoError(t, err)
	assert.False(t, ok)

	games, err := c.ListGamesByTag("rpg")
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestCache_ListGamesByTag(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.PutRegistry("u", []byte("{}"), 1))
	require.NoError(t, c.PutGame("anime-quest", "Anime Quest", "u", []string{"rpg", "indie"}, []byte(`{}`), 1))
	require.NoError(t, c.PutGame("speed-demons", "Speed Demons", "u", []string{"racing"}, []byte(`{}`), 1))

	rpg, err := c.ListGamesByTag("rpg")
	require.NoError(t, err)
	require.Len(t, rpg, 1)
	assert.Equal(t, "anime-quest", rpg[0].Slug)
	assert.Equal(t, "Anime Quest", rpg[0].Title)

	all, err := c.ListGames()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "anime-quest", all[0].Slug)
	assert.Equal(t, "speed-demons", all[1].Slug)
}

func TestCache_PutGameReplacesTagsOnUpsert(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.PutRegistry("u", []byte("{}"), 1))
	require.NoError(t, c.PutGame("anime-quest", "Anime Quest", "u", []string{"rpg"}, []byte(`{}`), 1))
	require.NoError(t, c.PutGame("anime-quest", "Anime Quest", "u", []string{"indie"}, []byte(`{}`), 2))

	rpg, err := c.ListGamesByTag("rpg")
	require.NoError(t, err)
	assert.Empty(t, rpg)

	indie, err := c.ListGamesByTag("indie")
	require.NoError(t, err)
	require.Len(t, indie, 1)
	assert.Equal(t, "anime-quest", indie[0].Slug)
}
