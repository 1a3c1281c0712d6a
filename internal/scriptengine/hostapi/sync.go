package hostapi

import (
	"context"
	"sync"
	"time"

	"github.com/risor-io/risor/object"
)

// broadcastChannel is a many-to-many channel: every open()-er gets its
// own subscriber queue, and send() fans a message out to all of them,
// per spec.md §4.L's "Sync API" broadcast semantics.
type broadcastChannel struct {
	mu   sync.Mutex
	subs map[uint32]chan string
}

func newBroadcastChannel() *broadcastChannel {
	return &broadcastChannel{subs: make(map[uint32]chan string)}
}

// namedMutex is a process-wide named lock. Unlike sync.Mutex, lock() is
// exposed to scripts as a polling operation (spec.md §4.L) so a script
// can't block the whole engine's single-threaded interpreter forever
// without the host noticing — held is the handle of whoever currently
// owns it, 0 if free.
type namedMutex struct {
	mu   sync.Mutex
	held uint32
}

// SyncState is process-wide (shared across every module's environment in
// one Engine), matching the spec's "process-wide" scoping for channels
// and mutexes, as opposed to the per-module scoping of fs/path/hash.
type SyncState struct {
	mu       sync.Mutex
	channels map[string]*broadcastChannel
	mutexes  map[string]*namedMutex
}

func newSyncState() *SyncState {
	return &SyncState{
		channels: make(map[string]*broadcastChannel),
		mutexes:  make(map[string]*namedMutex),
	}
}

func (s *SyncState) channel(name string) *broadcastChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.channels[name]
	if !ok {
		c = newBroadcastChannel()
		s.channels[name] = c
	}
	return c
}

func (s *SyncState) mutex(name string) *namedMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mutexes[name]
	if !ok {
		m = &namedMutex{}
		s.mutexes[name] = m
	}
	return m
}

// SyncAPI returns the "sync" namespace: named broadcast channels
// (open/send/recv/close) and named polling mutexes (open/lock/unlock/
// close), both scoped process-wide via a shared *SyncState.
func SyncAPI(state *SyncState) object.Object {
	chanHandles := NewRegistry[chanSub]()
	mutexHandles := NewRegistry[string]()
	return object.NewMap(map[string]object.Object{
		"channel_open":  object.NewBuiltin("sync.channel_open", syncChannelOpen(state, chanHandles)),
		"channel_send":  object.NewBuiltin("sync.channel_send", syncChannelSend(chanHandles)),
		"channel_recv":  object.NewBuiltin("sync.channel_recv", syncChannelRecv(chanHandles)),
		"channel_close": object.NewBuiltin("sync.channel_close", syncChannelClose(chanHandles)),
		"mutex_open":    object.NewBuiltin("sync.mutex_open", syncMutexOpen(state, mutexHandles)),
		"mutex_lock":    object.NewBuiltin("sync.mutex_lock", syncMutexLock(state, mutexHandles)),
		"mutex_unlock":  object.NewBuiltin("sync.mutex_unlock", syncMutexUnlock(state, mutexHandles)),
		"mutex_close":   object.NewBuiltin("sync.mutex_close", syncMutexClose(mutexHandles)),
	})
}

// NewSyncState constructs the shared process-wide sync state an Engine
// should pass to every module's SyncAPI call.
func NewSyncState() *SyncState {
	return newSyncState()
}

type chanSub struct {
	ch   *broadcastChannel
	subH uint32
	sub  chan string
}

func syncChannelOpen(state *SyncState, handles *Registry[chanSub]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("sync.channel_open", 1, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("sync.channel_open: expected name string, got %s", args[0].Type())
		}
		ch := state.channel(name.Value())
		ch.mu.Lock()
		sub := make(chan string, 64)
		subH := uint32(len(ch.subs)) + 1
		for {
			if _, exists := ch.subs[subH]; !exists {
				break
			}
			subH++
		}
		ch.subs[subH] = sub
		ch.mu.Unlock()
		handle := handles.Insert(chanSub{ch: ch, subH: subH, sub: sub})
		return object.NewInt(int64(handle))
	}
}

func syncChannelSend(handles *Registry[chanSub]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("sync.channel_send", 2, len(args))
		}
		h, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("sync.channel_send: expected handle int, got %s", args[0].Type())
		}
		msg, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("sync.channel_send: expected message string, got %s", args[1].Type())
		}
		cs, ok := handles.Get(uint32(h.Value()))
		if !ok {
			return object.Errorf("sync.channel_send: unknown handle %d", h.Value())
		}
		cs.ch.mu.Lock()
		for subH, sub := range cs.ch.subs {
			if subH == cs.subH {
				continue
			}
			select {
			case sub <- msg.Value():
			default:
			}
		}
		cs.ch.mu.Unlock()
		return object.Nil
	}
}

// syncChannelRecv never blocks: it drains whatever is already queued for
// this subscriber and reports absence immediately rather than waiting for
// a sender, per spec.md §4.L's recv contract.
func syncChannelRecv(handles *Registry[chanSub]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("sync.channel_recv", 1, len(args))
		}
		h, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("sync.channel_recv: expected handle int, got %s", args[0].Type())
		}
		cs, ok := handles.Get(uint32(h.Value()))
		if !ok {
			return object.Errorf("sync.channel_recv: unknown handle %d", h.Value())
		}
		select {
		case msg := <-cs.sub:
			return object.NewList([]object.Object{object.NewString(msg), object.NewBool(true)})
		default:
			return object.NewList([]object.Object{object.Nil, object.NewBool(false)})
		}
	}
}

func syncChannelClose(handles *Registry[chanSub]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("sync.channel_close", 1, len(args))
		}
		h, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("sync.channel_close: expected handle int, got %s", args[0].Type())
		}
		cs, ok := handles.Get(uint32(h.Value()))
		if !ok {
			return object.Errorf("sync.channel_close: unknown handle %d", h.Value())
		}
		cs.ch.mu.Lock()
		delete(cs.ch.subs, cs.subH)
		cs.ch.mu.Unlock()
		handles.Remove(uint32(h.Value()))
		return object.Nil
	}
}

func syncMutexOpen(state *SyncState, handles *Registry[string]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("sync.mutex_open", 1, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("sync.mutex_open: expected name string, got %s", args[0].Type())
		}
		state.mutex(name.Value())
		handle := handles.Insert(name.Value())
		return object.NewInt(int64(handle))
	}
}

// syncMutexLock polls every 100ms until the named mutex is free, per
// spec.md §4.L, rather than blocking on a real sync.Mutex — this keeps
// a stuck script interruptible via ctx cancellation instead of wedging
// the engine's single goroutine indefinitely.
func syncMutexLock(state *SyncState, handles *Registry[string]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("sync.mutex_lock", 1, len(args))
		}
		h, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("sync.mutex_lock: expected handle int, got %s", args[0].Type())
		}
		name, ok := handles.Get(uint32(h.Value()))
		if !ok {
			return object.Errorf("sync.mutex_lock: unknown handle %d", h.Value())
		}
		m := state.mutex(name)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			m.mu.Lock()
			if m.held == 0 {
				m.held = uint32(h.Value())
				m.mu.Unlock()
				return object.Nil
			}
			m.mu.Unlock()
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return object.Errorf("sync.mutex_lock: %v", ctx.Err())
			}
		}
	}
}

func syncMutexUnlock(state *SyncState, handles *Registry[string]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("sync.mutex_unlock", 1, len(args))
		}
		h, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("sync.mutex_unlock: expected handle int, got %s", args[0].Type())
		}
		name, ok := handles.Get(uint32(h.Value()))
		if !ok {
			return object.Errorf("sync.mutex_unlock: unknown handle %d", h.Value())
		}
		m := state.mutex(name)
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.held != uint32(h.Value()) {
			return object.Errorf("sync.mutex_unlock: handle %d does not hold the lock", h.Value())
		}
		m.held = 0
		return object.Nil
	}
}

func syncMutexClose(handles *Registry[string]) func(context.Context, ...object.Object) object.Object {
	return func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("sync.mutex_close", 1, len(args))
		}
		h, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("sync.mutex_close: expected handle int, got %s", args[0].Type())
		}
		handles.Remove(uint32(h.Value()))
		return object.Nil
	}
}
