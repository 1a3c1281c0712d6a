package playpack

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/playpack/internal/manifest"
)

type fakeFetcher struct {
	byURL map[string][]byte
}

func (f fakeFetcher) Fetch(_ context.Context, url, destPath string) error {
	content, ok := f.byURL[url]
	if !ok {
		panic("fakeFetcher: unexpected fetch of " + url)
	}
	return os.WriteFile(destPath, content, 0o644)
}

func TestGame_ResolveInsertGenerationAndRun(t *testing.T) {
	pkg := &manifest.PackageManifest{
		Standard: manifest.CurrentPackageStandard,
		Outputs: map[string]manifest.Resource{
			"logic": {URI: "logic.risor", Format: manifest.FormatModuleV1},
		},
	}
	pkgBytes, err := pkg.Bytes()
	require.NoError(t, err)

	fixedTime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	fetcher := fakeFetcher{byURL: map[string][]byte{
		"https://example.test/game/package.json": pkgBytes,
		"https://example.test/game/logic.risor":   []byte(`{"greeting": "hi"}`),
	}}

	g, err := New(t.TempDir(), t.TempDir(), WithFetcher(fetcher), WithClock(func() time.Time { return fixedTime }))
	require.NoError(t, err)

	lf, err := g.Resolve(context.Background(), "https://example.test/game/package.json")
	require.NoError(t, err)
	require.NoError(t, lf.Validate())

	h, err := g.InsertGeneration(lf, nil)
	require.NoError(t, err)

	dirs := BaseDirs{TempRoot: t.TempDir(), ModuleRoot: t.TempDir(), PersistentRoot: t.TempDir()}
	e, err := g.Run(context.Background(), h, dirs)
	require.NoError(t, err)

	rootIdx := lf.Root[0]
	idx, ok := e.Resolve(strconv.FormatUint(uint64(rootIdx), 10))
	require.True(t, ok)
	assert.Equal(t, rootIdx, idx)
}
