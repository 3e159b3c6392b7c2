package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soyeahso/cpbot/internal/logging"
	"github.com/soyeahso/cpbot/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	return NewRegistry(logging.New(nil, "silent"), nil)
}

func noop(context.Context, json.RawMessage) error { return nil }

// --- Register / Unregister tests ---

func TestRegistry_Register(t *testing.T) {
	r := testRegistry()

	require.NoError(t, r.Register("MESSAGE_CREATE", "commands", noop))
	assert.Equal(t, 1, r.Count("MESSAGE_CREATE"))
	assert.Equal(t, []string{"MESSAGE_CREATE"}, r.Events())
}

func TestRegistry_Register_DuplicateTag(t *testing.T) {
	r := testRegistry()

	var firstCalled atomic.Bool
	require.NoError(t, r.Register("MESSAGE_CREATE", "commands", func(context.Context, json.RawMessage) error {
		firstCalled.Store(true)
		return nil
	}))

	err := r.Register("MESSAGE_CREATE", "commands", func(context.Context, json.RawMessage) error {
		t.Error("duplicate handler must not run")
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTag)
	assert.Equal(t, 1, r.Count("MESSAGE_CREATE"))

	r.Dispatch(context.Background(), "MESSAGE_CREATE", json.RawMessage(`{}`))
	r.Wait()
	assert.True(t, firstCalled.Load())
}

func TestRegistry_SameTagDifferentEvents(t *testing.T) {
	r := testRegistry()

	require.NoError(t, r.Register("MESSAGE_REACTION_ADD", "paginator-1", noop))
	require.NoError(t, r.Register("MESSAGE_REACTION_REMOVE", "paginator-1", noop))
	assert.Equal(t, []string{"MESSAGE_REACTION_ADD", "MESSAGE_REACTION_REMOVE"}, r.Events())
}

func TestRegistry_Unregister(t *testing.T) {
	r := testRegistry()
	require.NoError(t, r.Register("READY", "a", noop))
	require.NoError(t, r.Register("READY", "b", noop))

	assert.True(t, r.Unregister("READY", "a"))
	assert.Equal(t, 1, r.Count("READY"))

	assert.False(t, r.Unregister("READY", "a"), "second unregister reports absence")
	assert.False(t, r.Unregister("GUILD_CREATE", "b"))

	assert.True(t, r.Unregister("READY", "b"))
	assert.Empty(t, r.Events())
}

func TestRegistry_ReRegisterAfterUnregister(t *testing.T) {
	r := testRegistry()
	require.NoError(t, r.Register("READY", "a", noop))
	require.True(t, r.Unregister("READY", "a"))
	assert.NoError(t, r.Register("READY", "a", noop))
}

// --- Dispatch tests ---

func TestRegistry_Dispatch_AllHandlersOnce(t *testing.T) {
	r := testRegistry()

	var mu sync.Mutex
	calls := map[string]int{}
	for _, tag := range []string{"one", "two", "three"} {
		tag := tag
		require.NoError(t, r.Register("MESSAGE_CREATE", tag, func(_ context.Context, payload json.RawMessage) error {
			assert.JSONEq(t, `{"content":"hi"}`, string(payload))
			mu.Lock()
			calls[tag]++
			mu.Unlock()
			return nil
		}))
	}

	n := r.Dispatch(context.Background(), "MESSAGE_CREATE", json.RawMessage(`{"content":"hi"}`))
	r.Wait()

	assert.Equal(t, 3, n)
	assert.Equal(t, map[string]int{"one": 1, "two": 1, "three": 1}, calls)
}

func TestRegistry_Dispatch_NoHandlers(t *testing.T) {
	r := testRegistry()
	assert.Equal(t, 0, r.Dispatch(context.Background(), "TYPING_START", nil))
}

func TestRegistry_Dispatch_DoesNotWait(t *testing.T) {
	r := testRegistry()

	release := make(chan struct{})
	require.NoError(t, r.Register("MESSAGE_CREATE", "slow", func(context.Context, json.RawMessage) error {
		<-release
		return nil
	}))

	done := make(chan struct{})
	go func() {
		r.Dispatch(context.Background(), "MESSAGE_CREATE", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a running handler")
	}
	close(release)
	r.Wait()
}

func TestRegistry_Dispatch_PanicIsContained(t *testing.T) {
	m := metrics.New()
	r := NewRegistry(logging.New(nil, "silent"), m)

	var otherCalled atomic.Bool
	require.NoError(t, r.Register("MESSAGE_CREATE", "panics", func(context.Context, json.RawMessage) error {
		panic("boom")
	}))
	require.NoError(t, r.Register("MESSAGE_CREATE", "fails", func(context.Context, json.RawMessage) error {
		return errors.New("handler broke")
	}))
	require.NoError(t, r.Register("MESSAGE_CREATE", "ok", func(context.Context, json.RawMessage) error {
		otherCalled.Store(true)
		return nil
	}))

	assert.NotPanics(t, func() {
		r.Dispatch(context.Background(), "MESSAGE_CREATE", nil)
		r.Wait()
	})
	assert.True(t, otherCalled.Load())

	// Registry keeps working after a panic.
	assert.Equal(t, 3, r.Dispatch(context.Background(), "MESSAGE_CREATE", nil))
	r.Wait()
}

func TestRegistry_Dispatch_HandlerUnregistersItself(t *testing.T) {
	r := testRegistry()

	var calls atomic.Int32
	require.NoError(t, r.Register("MESSAGE_REACTION_ADD", "once", func(context.Context, json.RawMessage) error {
		calls.Add(1)
		r.Unregister("MESSAGE_REACTION_ADD", "once")
		return nil
	}))

	r.Dispatch(context.Background(), "MESSAGE_REACTION_ADD", nil)
	r.Wait()
	r.Dispatch(context.Background(), "MESSAGE_REACTION_ADD", nil)
	r.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, r.Count("MESSAGE_REACTION_ADD"))
}

func TestRegistry_ConcurrentMutation(t *testing.T) {
	r := testRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		tag := string(rune('a' + i%26))
		go func() {
			defer wg.Done()
			_ = r.Register("MESSAGE_CREATE", tag, noop)
			r.Unregister("MESSAGE_CREATE", tag)
		}()
		go func() {
			defer wg.Done()
			r.Dispatch(context.Background(), "MESSAGE_CREATE", nil)
		}()
	}
	wg.Wait()
	r.Wait()
}
