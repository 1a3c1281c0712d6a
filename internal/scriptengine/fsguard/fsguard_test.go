package fsguard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithin(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	assert.True(t, Within(filepath.Join(root, "a", "b.txt"), root))
	assert.False(t, Within(filepath.Join(outside, "b.txt"), root))
}

func TestExists(t *testing.T) {
	root := t.TempDir()
	present := filepath.Join(root, "present.txt")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o644))

	ok, err := Exists(present, root)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists(filepath.Join(root, "missing.txt"), root)
	require.NoError(t, err)
	assert.False(t, ok)

	outside := t.TempDir()
	ok, err = Exists(filepath.Join(outside, "anything.txt"), root)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveRejectsOutsideBoundary(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	_, err := Resolve(filepath.Join(outside, "f.txt"), root)
	require.Error(t, err)
	var boundaryErr *BoundaryError
	require.ErrorAs(t, err, &boundaryErr)
}

func TestResolveFollowsSymlinkEscapeAttempt(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("s"), 0o644))

	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(secret, link))

	_, err := Resolve(link, root)
	require.Error(t, err)
}
