package packstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/playpack/internal/hashcodec"
	"github.com/jward/playpack/internal/manifest"
)

func TestStore_PathLayout(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	h := hashcodec.H(42)
	assert.Equal(t, filepath.Join(s.Root(), hashcodec.Encode(h)+".src"), s.Path(h, manifest.FormatPackage))
	assert.Equal(t, filepath.Join(s.Root(), hashcodec.Encode(h)), s.Path(h, manifest.FormatFile))
	assert.Equal(t, filepath.Join(s.Root(), hashcodec.Encode(h)+".tmp"), s.TempPath(h))
}

func TestStore_GetPackage(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	pkg := &manifest.PackageManifest{
		Standard: manifest.CurrentPackageStandard,
		Outputs:  map[string]manifest.Resource{"module": {URI: "mod.tar"}},
	}
	b, err := pkg.Bytes()
	require.NoError(t, err)
	h := hashcodec.ForSlice(b)
	require.NoError(t, os.WriteFile(s.Path(h, manifest.FormatPackage), b, 0o644))

	assert.True(t, s.HasPackage(h))
	assert.True(t, s.HasEntry(h, manifest.FormatPackage))

	got, err := s.GetPackage(h)
	require.NoError(t, err)
	assert.Equal(t, pkg.Outputs, got.Outputs)
}

func TestStore_ValidateDetectsMissingAndMismatch(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	content := []byte("hello world")
	h := hashcodec.ForSlice(content)
	require.NoError(t, os.WriteFile(s.Path(h, manifest.FormatFile), content, 0o644))

	lf := &manifest.LockfileManifest{
		Standard: manifest.CurrentLockfileStandard,
		Resources: []manifest.ResourceLock{
			{URL: "x", Format: manifest.FormatFile, Lock: manifest.Lock{Hash: h, Size: uint64(len(content))}},
		},
	}
	ok, err := s.Validate(lf)
	require.NoError(t, err)
	assert.True(t, ok)

	missing := hashcodec.H(999)
	lf.Resources = append(lf.Resources, manifest.ResourceLock{
		URL: "y", Format: manifest.FormatFile, Lock: manifest.Lock{Hash: missing, Size: 1},
	})
	ok, err = s.Validate(lf)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_LoadDispatchesKind(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	lf := &manifest.LockfileManifest{
		Resources: []manifest.ResourceLock{
			{URL: "pkg", Format: manifest.FormatPackage, Lock: manifest.Lock{Hash: 1},
				Outputs: map[string]uint32{"module": 1}},
			{URL: "file", Format: manifest.FormatFile, Lock: manifest.Lock{Hash: 2}},
			{URL: "tar", Format: manifest.FormatArchiveTar, Lock: manifest.Lock{Hash: 3}},
		},
	}
	loaded, err := s.Load(lf, 1)
	require.NoError(t, err)
	assert.Equal(t, KindPackage, loaded.Kind)
	assert.Equal(t, map[string]uint32{"module": 1}, loaded.Outputs)

	loaded, err = s.Load(lf, 2)
	require.NoError(t, err)
	assert.Equal(t, KindFile, loaded.Kind)

	loaded, err = s.Load(lf, 3)
	require.NoError(t, err)
	assert.Equal(t, KindFolder, loaded.Kind)

	_, err = s.Load(lf, 999)
	assert.Error(t, err)
}
