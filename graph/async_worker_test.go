package graph

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedThreadNode(t *testing.T, cfg NodeConfig, opts ...PoolOption) *Node {
	t.Helper()
	n, err := NewThreadNode(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, n.Start())
	return n
}

func TestAsyncWorker_DefaultPoolSize(t *testing.T) {
	n, err := NewThreadNode(NodeConfig{Target: Func(func(x int) int { return x })})
	require.NoError(t, err)
	aw, ok := n.Worker().(*AsyncWorker)
	require.True(t, ok)
	assert.Equal(t, DefaultPoolSize, aw.PoolSize())
	assert.True(t, n.Async())
}

func TestAsyncWorker_ExecuteBeforeStart(t *testing.T) {
	n, err := NewThreadNode(NodeConfig{Target: Func(func(x int) int { return x })})
	require.NoError(t, err)
	assert.ErrorIs(t, n.Worker().Execute([]any{1}, nil), ErrWorkerNotStarted)
}

func TestAsyncWorker_DrainBeforeShutdown(t *testing.T) {
	const submissions = 20

	target := NewTarget(1, func(args []any, _ map[string]any) (any, error) {
		time.Sleep(2 * time.Millisecond)
		return args[0], nil
	})
	n := startedThreadNode(t, NodeConfig{Name: "drain", Target: target}, WithPoolSize(3))
	downstream := &recorder{}
	n.Output().RegisterObserver(downstream)

	for i := 0; i < submissions; i++ {
		require.NoError(t, n.Trigger(i))
	}
	n.Stop()

	// Stop only returns after every execution worker terminated and the
	// drainer consumed its pill, so every result is already fanned out.
	assert.Len(t, downstream.values(), submissions)
}

func TestAsyncWorker_StopTwice(t *testing.T) {
	n := startedThreadNode(t, NodeConfig{Target: Func(func(x int) int { return x })})
	n.Stop()
	assert.NotPanics(t, n.Stop)
}

func TestAsyncWorker_JoinFlushes(t *testing.T) {
	var invoked atomic.Int32
	target := NewTarget(1, func(args []any, _ map[string]any) (any, error) {
		time.Sleep(time.Millisecond)
		invoked.Add(1)
		return args[0], nil
	})
	n := startedThreadNode(t, NodeConfig{Name: "join", Target: target}, WithPoolSize(2))
	defer n.Stop()
	downstream := &recorder{}
	n.Output().RegisterObserver(downstream)

	for i := 0; i < 10; i++ {
		require.NoError(t, n.Trigger(i))
	}
	require.NoError(t, n.Join(context.Background()))

	assert.Equal(t, int32(10), invoked.Load())
	assert.Len(t, downstream.values(), 10)
}

func TestAsyncWorker_JoinHonorsContext(t *testing.T) {
	block := make(chan struct{})
	target := NewTarget(1, func(args []any, _ map[string]any) (any, error) {
		<-block
		return args[0], nil
	})
	n := startedThreadNode(t, NodeConfig{Target: target}, WithPoolSize(1))
	require.NoError(t, n.Trigger(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, n.Join(ctx), context.DeadlineExceeded)

	close(block)
	n.Stop()
}

func TestAsyncWorker_FaultIsolation(t *testing.T) {
	target := NewTarget(1, func(args []any, _ map[string]any) (any, error) {
		x := args[0].(int)
		if x%2 != 0 {
			return nil, errors.New("odd input")
		}
		return x, nil
	})
	n := startedThreadNode(t, NodeConfig{Name: "faulty", Target: target}, WithPoolSize(2))
	downstream := &recorder{}
	n.Output().RegisterObserver(downstream)

	for i := 0; i < 10; i++ {
		require.NoError(t, n.Trigger(i))
	}
	n.Stop()

	// Failed invocations are dropped; the five even inputs all arrive.
	got := downstream.values()
	assert.Len(t, got, 5)
	for _, v := range got {
		assert.Zero(t, v.(int)%2)
	}
}

func TestAsyncWorker_FactoryResolvedPerWorker(t *testing.T) {
	var built atomic.Int32
	target := NewFactoryTarget(1, func() (Work, error) {
		built.Add(1)
		return func(args []any, _ map[string]any) (any, error) {
			return args[0], nil
		}, nil
	})

	n := startedThreadNode(t, NodeConfig{Target: target}, WithPoolSize(4))
	n.Stop()

	assert.Equal(t, int32(4), built.Load(), "one fresh instance per execution worker")
}

func TestAsyncWorker_StartFailureReleasesResolved(t *testing.T) {
	var built atomic.Int32
	target := NewFactoryTarget(1, func() (Work, error) {
		if built.Add(1) > 2 {
			return nil, errors.New("resolve failed")
		}
		return func(args []any, _ map[string]any) (any, error) {
			return args[0], nil
		}, nil
	})

	n, err := NewThreadNode(NodeConfig{Target: target}, WithPoolSize(4))
	require.NoError(t, err)
	assert.Error(t, n.Start())
}

func TestAsyncWorker_ResultDeliverySerialized(t *testing.T) {
	// With many submissions racing through a wide pool, values and fan-out
	// must still be applied one at a time by the single drainer.
	var concurrent atomic.Int32
	var maxSeen atomic.Int32

	n := startedThreadNode(t, NodeConfig{
		Target: Func(func(x int) int { return x }),
	}, WithPoolSize(8))
	n.Output().RegisterObserver(observerFunc(func(any) {
		if cur := concurrent.Add(1); cur > maxSeen.Load() {
			maxSeen.Store(cur)
		}
		time.Sleep(100 * time.Microsecond)
		concurrent.Add(-1)
	}))

	for i := 0; i < 50; i++ {
		require.NoError(t, n.Trigger(i))
	}
	n.Stop()

	assert.Equal(t, int32(1), maxSeen.Load())
}

// observerFunc adapts a func to Observer.
type observerFunc func(any)

func (f observerFunc) Notify(data any) { f(data) }
