package hostapi

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/risor-io/risor/object"
)

// openResponse is a Network API handle: a live HTTP response body being
// streamed via read/close, as opposed to fetch's buffer-whole-body mode.
type openResponse struct {
	resp *http.Response
}

// NetworkAPI returns the "net" namespace: fetch buffers a whole response,
// open/read/close stream one, both honoring an options map of
// method/headers/body, per spec.md §4.K.
func NetworkAPI(client *http.Client) object.Object {
	if client == nil {
		client = http.DefaultClient
	}
	handles := NewRegistry[*openResponse]()
	return object.NewMap(map[string]object.Object{
		"fetch": object.NewBuiltin("net.fetch", netFetch(client)),
		"open":  object.NewBuiltin("net.open", netOpen(client, handles)),
		"read":  object.NewBuiltin("net.read", netRead(handles)),
		"close": object.NewBuiltin("net.close", netClose(handles)),
	})
}

func buildRequest(ctx context.Context, url string, opts *object.Map) (*http.Request, object.Object) {
	method := http.MethodGet
	var body io.Reader
	var headers map[string]object.Object

	if opts != nil {
		fields := opts.Value()
		if m, ok := fields["method"].(*object.String); ok {
			method = m.Value()
		}
		if b, ok := fields["body"].(*object.String); ok {
			body = bytes.NewBufferString(b.Value())
		}
		if h, ok := fields["headers"].(*object.Map); ok {
			headers = h.Value()
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, object.Errorf("net: building request: %v", err)
	}
	for k, v := range headers {
		s, ok := v.(*object.String)
		if !ok {
			return nil, object.Errorf("net: header %q value must be a string, got %s", k, v.Type())
		}
		req.Header.Set(k, s.Value())
	}
	return req, nil
}

func parseOpts(name string, args []object.Object, i int) (*object.Map, object.Object) {
	if i >= len(args) {
		return nil, nil
	}
	opts, ok := args[i].(*object.Map)
	if !ok {
		return nil, object.Errorf("%s: expected options map, got %s", name, args[i].Type())
	}
	return opts, nil
}

func netFetch(client *http.Client) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.NewArgsError("net.fetch", 1, len(args))
		}
		urlStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("net.fetch: expected url string, got %s", args[0].Type())
		}
		opts, errObj := parseOpts("net.fetch", args, 1)
		if errObj != nil {
			return errObj
		}
		req, errObj := buildRequest(ctx, urlStr.Value(), opts)
		if errObj != nil {
			return errObj
		}
		resp, err := client.Do(req)
		if err != nil {
			return object.Errorf("net.fetch: %v", err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return object.Errorf("net.fetch: reading body: %v", err)
		}
		headerMap := map[string]object.Object{}
		for k := range resp.Header {
			headerMap[k] = object.NewString(resp.Header.Get(k))
		}
		return object.NewMap(map[string]object.Object{
			"status":  object.NewInt(int64(resp.StatusCode)),
			"is_ok":   object.NewBool(isOkStatus(resp.StatusCode)),
			"headers": object.NewMap(headerMap),
			"body":    object.NewString(string(body)),
		})
	}
}

// isOkStatus reports whether an HTTP status code is in the 2xx range.
func isOkStatus(status int) bool {
	return status/100 == 2
}

func netOpen(client *http.Client, handles *Registry[*openResponse]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.NewArgsError("net.open", 1, len(args))
		}
		urlStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("net.open: expected url string, got %s", args[0].Type())
		}
		opts, errObj := parseOpts("net.open", args, 1)
		if errObj != nil {
			return errObj
		}
		req, errObj := buildRequest(ctx, urlStr.Value(), opts)
		if errObj != nil {
			return errObj
		}
		resp, err := client.Do(req)
		if err != nil {
			return object.Errorf("net.open: %v", err)
		}
		handle := handles.Insert(&openResponse{resp: resp})
		headerMap := map[string]object.Object{}
		for k := range resp.Header {
			headerMap[k] = object.NewString(resp.Header.Get(k))
		}
		return object.NewMap(map[string]object.Object{
			"handle":  object.NewInt(int64(handle)),
			"status":  object.NewInt(int64(resp.StatusCode)),
			"is_ok":   object.NewBool(isOkStatus(resp.StatusCode)),
			"headers": object.NewMap(headerMap),
		})
	}
}

func netRead(handles *Registry[*openResponse]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("net.read", 2, len(args))
		}
		h, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("net.read: expected handle int, got %s", args[0].Type())
		}
		n, ok := args[1].(*object.Int)
		if !ok {
			return object.Errorf("net.read: expected count int, got %s", args[1].Type())
		}
		or, ok := handles.Get(uint32(h.Value()))
		if !ok {
			return object.Errorf("net.read: unknown handle %d", h.Value())
		}
		buf := make([]byte, n.Value())
		read, err := or.resp.Body.Read(buf)
		if err != nil && err != io.EOF {
			return object.Errorf("net.read: %v", err)
		}
		return object.NewString(string(buf[:read]))
	}
}

func netClose(handles *Registry[*openResponse]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("net.close", 1, len(args))
		}
		h, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("net.close: expected handle int, got %s", args[0].Type())
		}
		or, ok := handles.Get(uint32(h.Value()))
		if !ok {
			return object.Errorf("net.close: unknown handle %d", h.Value())
		}
		handles.Remove(uint32(h.Value()))
		if err := or.resp.Body.Close(); err != nil {
			return object.Errorf("net.close: %v", err)
		}
		return object.Nil
	}
}
