package downloader

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jward/playpack/internal/errs"
)

// Progress is a (current, total, delta) sample emitted as bytes arrive.
// Total is 0 when the server didn't report Content-Length — callers show
// indeterminate progress in that case.
type Progress struct {
	Current uint64
	Total   uint64
	Delta   uint64
}

// ProgressFunc receives each Progress sample. It may be called
// concurrently with the download goroutine's own bookkeeping but is
// always invoked synchronously from that goroutine, never in parallel
// with itself.
type ProgressFunc func(Progress)

// Option configures a Download.
type Option func(*config)

type config struct {
	resume   bool
	onSample ProgressFunc
	client   *http.Client
}

// WithResume appends to an existing partial download instead of
// truncating, sending a Range header for the bytes already on disk.
func WithResume(resume bool) Option {
	return func(c *config) { c.resume = resume }
}

// WithProgress registers a callback invoked for every chunk written.
func WithProgress(fn ProgressFunc) Option {
	return func(c *config) { c.onSample = fn }
}

// WithHTTPClient overrides the default http.Client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.client = client }
}

// Download drives one resumable GET into outputPath, writing to a
// dedicated goroutine and exposing live progress through Current/Total,
// both safe to read from any goroutine. Call Wait to block for
// completion and collect the first error, if any.
type Download struct {
	current atomic.Uint64
	total   atomic.Uint64
	done    chan struct{}
	err     error
}

// Start begins fetching url into outputPath in the background and
// returns immediately; call Wait to block for completion.
func Start(url, outputPath string, opts ...Option) *Download {
	cfg := config{client: http.DefaultClient}
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &Download{done: make(chan struct{})}
	go d.run(url, outputPath, cfg)
	return d
}

// Current returns the number of bytes written so far.
func (d *Download) Current() uint64 { return d.current.Load() }

// Total returns the declared total size, or 0 if unknown.
func (d *Download) Total() uint64 { return d.total.Load() }

// Wait blocks until the transfer finishes and returns its error, if any.
func (d *Download) Wait() error {
	<-d.done
	return d.err
}

func (d *Download) run(url, outputPath string, cfg config) {
	defer close(d.done)

	var startOffset uint64
	flags := os.O_WRONLY | os.O_CREATE
	if cfg.resume {
		flags |= os.O_APPEND
		if info, err := os.Stat(outputPath); err == nil {
			startOffset = uint64(info.Size())
		}
	} else {
		flags |= os.O_TRUNC
	}
	d.current.Store(startOffset)

	f, err := os.OpenFile(outputPath, flags, 0o644)
	if err != nil {
		d.err = &errs.IOError{Op: "open", Path: outputPath, Err: err}
		return
	}
	defer f.Close()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		d.err = &errs.NetworkError{URL: url, Err: err}
		return
	}
	if cfg.resume && startOffset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", startOffset))
	}

	resp, err := cfg.client.Do(req)
	if err != nil {
		d.err = &errs.NetworkError{URL: url, Err: err}
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusRequestedRangeNotSatisfiable:
		// "Already complete": treat as success with no more bytes to write.
		d.total.Store(d.current.Load())
		return
	case http.StatusOK, http.StatusPartialContent:
		// proceed
	default:
		d.err = &errs.NetworkError{URL: url, StatusCode: resp.StatusCode}
		return
	}

	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if n, ok := parseContentRangeTotal(cr); ok {
			d.total.Store(n)
			if n == startOffset {
				return
			}
		}
	} else if cl := resp.ContentLength; cl >= 0 {
		d.total.Store(startOffset + uint64(cl))
	}

	w := bufio.NewWriter(f)
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				d.err = &errs.IOError{Op: "write", Path: outputPath, Err: writeErr}
				return
			}
			d.current.Add(uint64(n))
			if cfg.onSample != nil {
				cfg.onSample(Progress{Current: d.current.Load(), Total: d.total.Load(), Delta: uint64(n)})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			d.err = &errs.NetworkError{URL: url, Err: readErr}
			return
		}
	}

	if err := w.Flush(); err != nil {
		d.err = &errs.IOError{Op: "flush", Path: outputPath, Err: err}
	}
}

// parseContentRangeTotal extracts N from a "bytes */N" or "bytes a-b/N"
// Content-Range header value.
func parseContentRangeTotal(headerVal string) (uint64, bool) {
	const prefix = "bytes "
	if !strings.HasPrefix(headerVal, prefix) {
		return 0, false
	}
	rest := headerVal[len(prefix):]
	i := strings.LastIndexByte(rest, '/')
	if i < 0 || i+1 >= len(rest) {
		return 0, false
	}
	total, err := strconv.ParseUint(rest[i+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}
