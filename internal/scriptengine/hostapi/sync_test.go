package hostapi

import (
	"context"
	"testing"
	"time"

	"github.com/risor-io/risor/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncAPI_ChannelBroadcastsToOtherSubscribers(t *testing.T) {
	state := NewSyncState()
	api := asMap(t, SyncAPI(state))
	ctx := context.Background()

	open := api["channel_open"].(*object.Builtin)
	send := api["channel_send"].(*object.Builtin)
	recv := api["channel_recv"].(*object.Builtin)

	h1 := open.Call(ctx, object.NewString("topic")).(*object.Int)
	h2 := open.Call(ctx, object.NewString("topic")).(*object.Int)

	send.Call(ctx, h1, object.NewString("hi"))

	got, ok := recv.Call(ctx, h2).(*object.List)
	require.True(t, ok, "expected list, got %T", got)
	pair := got.Value()
	require.Len(t, pair, 2)
	msg, ok := pair[0].(*object.String)
	require.True(t, ok, "expected string, got %T", pair[0])
	assert.Equal(t, "hi", msg.Value())
	assert.True(t, pair[1].(*object.Bool).Value())
}

func TestSyncAPI_ChannelRecvWithoutMessageReturnsFalseImmediately(t *testing.T) {
	state := NewSyncState()
	api := asMap(t, SyncAPI(state))
	ctx := context.Background()

	open := api["channel_open"].(*object.Builtin)
	recv := api["channel_recv"].(*object.Builtin)

	h := open.Call(ctx, object.NewString("topic")).(*object.Int)

	got, ok := recv.Call(ctx, h).(*object.List)
	require.True(t, ok, "expected list, got %T", got)
	pair := got.Value()
	require.Len(t, pair, 2)
	assert.Equal(t, object.Nil, pair[0])
	assert.False(t, pair[1].(*object.Bool).Value())
}

func TestSyncAPI_MutexLockUnlock(t *testing.T) {
	state := NewSyncState()
	api := asMap(t, SyncAPI(state))
	ctx := context.Background()

	open := api["mutex_open"].(*object.Builtin)
	lock := api["mutex_lock"].(*object.Builtin)
	unlock := api["mutex_unlock"].(*object.Builtin)

	h1 := open.Call(ctx, object.NewString("resource")).(*object.Int)
	h2 := open.Call(ctx, object.NewString("resource")).(*object.Int)

	lockCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	result := lock.Call(lockCtx, h1)
	_, isErr := result.(*object.Error)
	assert.False(t, isErr)

	result = unlock.Call(ctx, h2)
	_, isErr = result.(*object.Error)
	assert.True(t, isErr, "expected non-owner unlock to fail")

	result = unlock.Call(ctx, h1)
	_, isErr = result.(*object.Error)
	assert.False(t, isErr)
}
