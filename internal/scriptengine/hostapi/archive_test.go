package hostapi

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/risor-io/risor/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestArchiveAPI_OpenEntriesExtract(t *testing.T) {
	folders := newTestFolders(t)
	archivePath := filepath.Join(folders.TempFolder, "pack.zip")
	writeTestZip(t, archivePath, map[string]string{"a.txt": "aaa", "b.txt": "bbb"})

	api := asMap(t, ArchiveAPI(folders))
	ctx := context.Background()

	openFn := api["open"].(*object.Builtin)
	handleObj := openFn.Call(ctx, object.NewString(archivePath))
	handle, ok := handleObj.(*object.Int)
	require.True(t, ok, "open returned %v", handleObj)

	entriesFn := api["entries"].(*object.Builtin)
	entriesObj := entriesFn.Call(ctx, handle)
	list, ok := entriesObj.(*object.List)
	require.True(t, ok, "entries returned %v", entriesObj)
	assert.Len(t, list.Value(), 2)

	target := filepath.Join(folders.ModuleFolder, "out")
	extractFn := api["extract"].(*object.Builtin)
	extractFn.Call(ctx, handle, object.NewString(target))

	progressFn := api["progress"].(*object.Builtin)
	require.Eventually(t, func() bool {
		p := asMap(t, progressFn.Call(ctx, handle))
		return p["finished"].(*object.Bool).Value()
	}, 2*time.Second, 10*time.Millisecond)

	got, err := os.ReadFile(filepath.Join(target, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "aaa", string(got))
}
