package downloader

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload_FullTransfer(t *testing.T) {
	body := []byte("the quick brown fox jumps over the lazy dog")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "out.bin")
	var samples []Progress
	d := Start(srv.URL, out, WithProgress(func(p Progress) { samples = append(samples, p) }))
	require.NoError(t, d.Wait())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.Equal(t, uint64(len(body)), d.Current())
	assert.NotEmpty(t, samples)
}

func TestDownload_ResumeSendsRangeHeader(t *testing.T) {
	full := []byte("0123456789")
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		if gotRange == "bytes=5-" {
			w.Header().Set("Content-Range", "bytes 5-9/10")
			w.WriteHeader(http.StatusPartialContent)
			w.Write(full[5:])
			return
		}
		w.Write(full)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, os.WriteFile(out, full[:5], 0o644))

	d := Start(srv.URL, out, WithResume(true))
	require.NoError(t, d.Wait())

	assert.Equal(t, "bytes=5-", gotRange)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, full, got)
}

func TestDownload_416TreatedAsComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, os.WriteFile(out, []byte("already-here"), 0o644))

	d := Start(srv.URL, out, WithResume(true))
	require.NoError(t, d.Wait())
	assert.Equal(t, d.Current(), d.Total())
}

func TestDownload_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "out.bin")
	d := Start(srv.URL, out)
	assert.Error(t, d.Wait())
}
