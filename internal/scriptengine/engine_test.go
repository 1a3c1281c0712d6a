package scriptengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/playpack/internal/hashcodec"
	"github.com/jward/playpack/internal/manifest"
	"github.com/jward/playpack/internal/packstore"
)

func buildTestLockfile(t *testing.T, store *packstore.Store) *manifest.LockfileManifest {
	t.Helper()

	assetContent := []byte("asset-bytes")
	assetHash := hashcodec.ForSlice(assetContent)
	require.NoError(t, os.WriteFile(store.Path(assetHash, manifest.FormatFile), assetContent, 0o644))

	moduleSrc := []byte(`{"greeting": "hi"}`)
	moduleHash := hashcodec.ForSlice(moduleSrc)
	require.NoError(t, os.WriteFile(store.Path(moduleHash, manifest.FormatModuleV1), moduleSrc, 0o644))

	pkg := &manifest.PackageManifest{Standard: manifest.CurrentPackageStandard}
	pkgBytes, err := pkg.Bytes()
	require.NoError(t, err)
	pkgHash := hashcodec.ForSlice(pkgBytes)
	require.NoError(t, os.WriteFile(store.Path(pkgHash, manifest.FormatPackage), pkgBytes, 0o644))

	lf := &manifest.LockfileManifest{
		Standard: manifest.CurrentLockfileStandard,
		Root:     []uint32{0},
		Resources: []manifest.ResourceLock{
			{
				URL: "https://example.test/game/package.json", Format: manifest.FormatPackage,
				Lock:    manifest.Lock{Hash: pkgHash, Size: uint64(len(pkgBytes))},
				Inputs:  map[string]uint32{"asset": 1},
				Outputs: map[string]uint32{"logic": 2},
			},
			{
				URL: "https://example.test/game/asset.bin", Format: manifest.FormatFile,
				Lock: manifest.Lock{Hash: assetHash, Size: uint64(len(assetContent))},
			},
			{
				URL: "https://example.test/game/logic.risor", Format: manifest.FormatModuleV1,
				Lock: manifest.Lock{Hash: moduleHash, Size: uint64(len(moduleSrc))},
			},
		},
	}
	require.NoError(t, lf.Validate())
	return lf
}

func TestEngine_BuildMaterializesPackageAndFile(t *testing.T) {
	store, err := packstore.NewStore(t.TempDir())
	require.NoError(t, err)
	lf := buildTestLockfile(t, store)

	dirs := BaseDirs{TempRoot: t.TempDir(), ModuleRoot: t.TempDir(), PersistentRoot: t.TempDir()}
	e, err := Build(context.Background(), lf, store, dirs)
	require.NoError(t, err)

	pkgVal, ok := e.resources[0].Value.(PackageValue)
	require.True(t, ok)
	assert.Equal(t, uint32(1), pkgVal.Inputs["asset"])
	assert.Equal(t, uint32(2), pkgVal.Outputs["logic"])

	assetPath, ok := e.resources[1].Value.(string)
	require.True(t, ok)
	got, err := os.ReadFile(assetPath)
	require.NoError(t, err)
	assert.Equal(t, "asset-bytes", string(got))
}

func TestEngine_ResolveByIndexAndHashPrefix(t *testing.T) {
	store, err := packstore.NewStore(t.TempDir())
	require.NoError(t, err)
	lf := buildTestLockfile(t, store)

	dirs := BaseDirs{TempRoot: t.TempDir(), ModuleRoot: t.TempDir(), PersistentRoot: t.TempDir()}
	e, err := Build(context.Background(), lf, store, dirs)
	require.NoError(t, err)

	idx, ok := e.Resolve("1")
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx)

	full := hashcodec.Encode(lf.Resources[1].Lock.Hash)
	idx, ok = e.Resolve(full)
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx)

	idx, ok = e.Resolve(full[:4])
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx)
}

func TestEngine_ModuleFoldersAreIsolatedPerIndex(t *testing.T) {
	store, err := packstore.NewStore(t.TempDir())
	require.NoError(t, err)
	lf := buildTestLockfile(t, store)

	dirs := BaseDirs{TempRoot: t.TempDir(), ModuleRoot: t.TempDir(), PersistentRoot: t.TempDir()}
	e, err := Build(context.Background(), lf, store, dirs)
	require.NoError(t, err)

	dir2 := mustModuleDir(e.baseDirs.ModuleRoot, 2)
	info, err := os.Stat(dir2)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(e.baseDirs.ModuleRoot, "2"), dir2)
}
