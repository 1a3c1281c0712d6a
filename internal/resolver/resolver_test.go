package resolver

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/playpack/internal/hashcodec"
	"github.com/jward/playpack/internal/manifest"
	"github.com/jward/playpack/internal/packstore"
)

type fakeFetcher struct {
	byURL map[string][]byte
}

func (f fakeFetcher) Fetch(_ context.Context, url, destPath string) error {
	content, ok := f.byURL[url]
	if !ok {
		return assertNever(url)
	}
	return os.WriteFile(destPath, content, 0o644)
}

func assertNever(url string) error {
	panic("fakeFetcher: unexpected fetch of " + url)
}

func TestResolver_BuildSingleRootWithInputAndOutput(t *testing.T) {
	store, err := packstore.NewStore(t.TempDir())
	require.NoError(t, err)

	pkg := &manifest.PackageManifest{
		Standard: manifest.CurrentPackageStandard,
		Inputs: map[string]manifest.Resource{
			"asset": {URI: "asset.bin"},
		},
		Outputs: map[string]manifest.Resource{
			"module": {URI: "module.bin"},
		},
	}
	pkgBytes, err := pkg.Bytes()
	require.NoError(t, err)

	fetcher := fakeFetcher{byURL: map[string][]byte{
		"https://example.test/game/package.json": pkgBytes,
		"https://example.test/game/asset.bin":     []byte("asset-content"),
		"https://example.test/game/module.bin":    []byte("module-content"),
	}}

	fixedTime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := New(store, WithFetcher(fetcher), WithClock(func() time.Time { return fixedTime }))

	lf, err := r.Build(context.Background(), []string{"https://example.test/game/package.json"})
	require.NoError(t, err)

	require.NoError(t, lf.Validate())
	assert.Equal(t, uint64(fixedTime.Unix()), lf.Metadata.GeneratedAt)
	require.Len(t, lf.Root, 1)
	require.Len(t, lf.Resources, 3)

	rootIdx := lf.Root[0]
	root := lf.Resources[rootIdx]
	assert.Equal(t, manifest.FormatPackage, root.Format)

	assetIdx, ok := root.Inputs["asset"]
	require.True(t, ok)
	assert.Equal(t, manifest.FormatFile, lf.Resources[assetIdx].Format)

	moduleIdx, ok := root.Outputs["module"]
	require.True(t, ok)
	assert.Equal(t, manifest.FormatFile, lf.Resources[moduleIdx].Format)

	ok2, err := store.Validate(lf)
	require.NoError(t, err)
	assert.True(t, ok2)
}

func TestResolver_ShortCircuitsAlreadyStoredResource(t *testing.T) {
	store, err := packstore.NewStore(t.TempDir())
	require.NoError(t, err)

	content := []byte("already-present")
	h := hashcodec.ForSlice(content)
	require.NoError(t, os.WriteFile(store.Path(h, manifest.FormatFile), content, 0o644))

	pkg := &manifest.PackageManifest{
		Standard: manifest.CurrentPackageStandard,
		Outputs: map[string]manifest.Resource{
			"module": {URI: "module.bin", Hash: &h},
		},
	}
	pkgBytes, err := pkg.Bytes()
	require.NoError(t, err)

	fetcher := fakeFetcher{byURL: map[string][]byte{
		"https://example.test/game/package.json": pkgBytes,
		// deliberately no entry for module.bin: the short-circuit must
		// skip fetching it since its declared hash is already stored.
	}}

	r := New(store, WithFetcher(fetcher))
	lf, err := r.Build(context.Background(), []string{"https://example.test/game/package.json"})
	require.NoError(t, err)

	root := lf.Resources[lf.Root[0]]
	moduleIdx := root.Outputs["module"]
	assert.Equal(t, h, lf.Resources[moduleIdx].Lock.Hash)
}

func TestResolver_NormalizeURLCollapsesSegments(t *testing.T) {
	got, err := normalizeURL(`https://example.test/a/./b//c/x/../package.json`, false)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/a/b/c/package.json", got)
}

func TestResolver_NormalizeURLForcesPackageSuffix(t *testing.T) {
	got, err := normalizeURL("https://example.test/game", true)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/game/package.json", got)
}

func TestResolver_BuildToleratesSelfReferencingPackage(t *testing.T) {
	store, err := packstore.NewStore(t.TempDir())
	require.NoError(t, err)

	pkg := &manifest.PackageManifest{
		Standard: manifest.CurrentPackageStandard,
		Inputs: map[string]manifest.Resource{
			"self": {URI: "package.json", Format: manifest.FormatPackage},
		},
		Outputs: map[string]manifest.Resource{
			"self": {URI: "package.json", Format: manifest.FormatPackage},
		},
	}
	pkgBytes, err := pkg.Bytes()
	require.NoError(t, err)

	fetcher := fakeFetcher{byURL: map[string][]byte{
		"https://example.test/game/package.json": pkgBytes,
	}}

	r := New(store, WithFetcher(fetcher))
	lf, err := r.Build(context.Background(), []string{"https://example.test/game/package.json"})
	require.NoError(t, err)
	require.NoError(t, lf.Validate())

	require.Len(t, lf.Root, 1)
	require.Len(t, lf.Resources, 1)

	rootIdx := lf.Root[0]
	root := lf.Resources[rootIdx]
	selfIdx, ok := root.Inputs["self"]
	require.True(t, ok)
	assert.Equal(t, rootIdx, selfIdx)
}
