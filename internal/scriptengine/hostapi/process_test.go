package hostapi

import (
	"context"
	"testing"
	"time"

	"github.com/risor-io/risor/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessAPI_ExecOneShot(t *testing.T) {
	api := asMap(t, ProcessAPI())
	ctx := context.Background()

	execFn := api["exec"].(*object.Builtin)
	argv := object.NewList([]object.Object{object.NewString("hello")})
	result := execFn.Call(ctx, object.NewString("echo"), argv)
	m, ok := result.(*object.Map)
	require.True(t, ok, "exec returned %v", result)

	fields := m.Value()
	assert.Equal(t, int64(0), fields["status"].(*object.Int).Value())
	assert.True(t, fields["is_ok"].(*object.Bool).Value())
	assert.Contains(t, fields["stdout"].(*object.String).Value(), "hello")
}

func TestProcessAPI_ExecReportsNonZeroStatus(t *testing.T) {
	api := asMap(t, ProcessAPI())
	ctx := context.Background()

	execFn := api["exec"].(*object.Builtin)
	result := execFn.Call(ctx, object.NewString("false"))
	m, ok := result.(*object.Map)
	require.True(t, ok, "exec returned %v", result)

	fields := m.Value()
	assert.NotEqual(t, int64(0), fields["status"].(*object.Int).Value())
	assert.False(t, fields["is_ok"].(*object.Bool).Value())
}

func TestProcessAPI_OpenWaitStdout(t *testing.T) {
	api := asMap(t, ProcessAPI())
	ctx := context.Background()

	openFn := api["open"].(*object.Builtin)
	argv := object.NewList([]object.Object{object.NewString("hello")})
	handleObj := openFn.Call(ctx, object.NewString("echo"), argv)
	handle, ok := handleObj.(*object.Int)
	require.True(t, ok, "open returned %v", handleObj)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	waitFn := api["wait"].(*object.Builtin)
	result := waitFn.Call(waitCtx, handle)
	m, ok := result.(*object.Map)
	require.True(t, ok, "wait returned %v", result)
	assert.Equal(t, int64(0), m.Value()["status"].(*object.Int).Value())

	stdoutFn := api["stdout"].(*object.Builtin)
	out := stdoutFn.Call(ctx, handle).(*object.String)
	assert.Contains(t, out.Value(), "hello")
}

func TestProcessAPI_FinishedReflectsState(t *testing.T) {
	api := asMap(t, ProcessAPI())
	ctx := context.Background()

	openFn := api["open"].(*object.Builtin)
	handle := openFn.Call(ctx, object.NewString("true")).(*object.Int)

	finishedFn := api["finished"].(*object.Builtin)
	waitFn := api["wait"].(*object.Builtin)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	waitFn.Call(waitCtx, handle)

	done := finishedFn.Call(ctx, handle).(*object.Bool)
	assert.True(t, done.Value())
}
