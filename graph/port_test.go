package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// recorder is an Observer collecting everything notified to it.
type recorder struct {
	mu   sync.Mutex
	name string
	got  []any
	log  *[]string
}

func (r *recorder) Notify(data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, data)
	if r.log != nil {
		*r.log = append(*r.log, r.name)
	}
}

func (r *recorder) values() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.got...)
}

// captureTarget records every invocation it receives and echoes its first
// argument back as the result.
type captureTarget struct {
	mu    sync.Mutex
	calls [][]any
}

func (c *captureTarget) target(arity int, opts ...TargetOption) Target {
	return NewTarget(arity, func(args []any, _ map[string]any) (any, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.calls = append(c.calls, append([]any(nil), args...))
		return args[0], nil
	}, opts...)
}

func (c *captureTarget) invocations() [][]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]any(nil), c.calls...)
}

// startedNode builds a sync-worker node and starts it.
func startedNode(t *testing.T, cfg NodeConfig) *Node {
	t.Helper()
	n, err := NewNode(cfg)
	require.NoError(t, err)
	require.NoError(t, n.Start())
	t.Cleanup(n.Stop)
	return n
}

// ---------------------------------------------------------------------------
// Output port
// ---------------------------------------------------------------------------

func TestOutputPort_FanOutOrder(t *testing.T) {
	var order []string
	o1 := &recorder{name: "o1", log: &order}
	o2 := &recorder{name: "o2", log: &order}
	o3 := &recorder{name: "o3", log: &order}

	port := NewOutputPort()
	port.RegisterObserver(o1)
	port.RegisterObserver(o2)
	port.RegisterObserver(o3)

	port.Notify("d")

	assert.Equal(t, []string{"o1", "o2", "o3"}, order)
	assert.Equal(t, []any{"d"}, o1.values())
	assert.Equal(t, []any{"d"}, o2.values())
	assert.Equal(t, []any{"d"}, o3.values())
}

func TestOutputPort_NotifyWithoutObservers(t *testing.T) {
	port := NewOutputPort()
	assert.NotPanics(t, func() { port.Notify(42) })
}

// ---------------------------------------------------------------------------
// Input port variants
// ---------------------------------------------------------------------------

func TestArgPort_ForwardsUnchanged(t *testing.T) {
	capture := &captureTarget{}
	n := startedNode(t, NodeConfig{Target: capture.target(1)})

	require.NoError(t, n.Trigger("payload"))

	require.Len(t, capture.invocations(), 1)
	assert.Equal(t, []any{"payload"}, capture.invocations()[0])
}

func TestMappingPort_TriggersPerElementInOrder(t *testing.T) {
	capture := &captureTarget{}
	n := startedNode(t, NodeConfig{
		Target: capture.target(1),
		Ports:  []*InputPort{MappingPort(0)},
	})

	require.NoError(t, n.Trigger([]any{"a", "b", "c"}))

	invocations := capture.invocations()
	require.Len(t, invocations, 3)
	assert.Equal(t, []any{"a"}, invocations[0])
	assert.Equal(t, []any{"b"}, invocations[1])
	assert.Equal(t, []any{"c"}, invocations[2])
}

func TestBatchPort_ChunksInOrder(t *testing.T) {
	capture := &captureTarget{}
	n := startedNode(t, NodeConfig{
		Target: capture.target(1),
		Ports:  []*InputPort{BatchPort(0, 2)},
	})

	require.NoError(t, n.Trigger([]any{1, 2, 3, 4, 5}))

	invocations := capture.invocations()
	require.Len(t, invocations, 3)
	assert.Equal(t, []any{[]any{1, 2}}, invocations[0])
	assert.Equal(t, []any{[]any{3, 4}}, invocations[1])
	assert.Equal(t, []any{[]any{5}}, invocations[2])
}

func TestMappingPort_TypedSlicePayload(t *testing.T) {
	capture := &captureTarget{}
	n := startedNode(t, NodeConfig{
		Target: capture.target(1),
		Ports:  []*InputPort{MappingPort(0)},
	})

	require.NoError(t, n.Trigger([]int{7, 8, 9}))

	invocations := capture.invocations()
	require.Len(t, invocations, 3)
	assert.Equal(t, []any{7}, invocations[0])
	assert.Equal(t, []any{8}, invocations[1])
	assert.Equal(t, []any{9}, invocations[2])
}

func TestMappingPort_StringIsScalar(t *testing.T) {
	capture := &captureTarget{}
	n := startedNode(t, NodeConfig{
		Target: capture.target(1),
		Ports:  []*InputPort{MappingPort(0)},
	})

	require.NoError(t, n.Trigger("whole"))

	invocations := capture.invocations()
	require.Len(t, invocations, 1)
	assert.Equal(t, []any{"whole"}, invocations[0])
}

func TestBatchPort_TypedSlicePayload(t *testing.T) {
	capture := &captureTarget{}
	n := startedNode(t, NodeConfig{
		Target: capture.target(1),
		Ports:  []*InputPort{BatchPort(0, 2)},
	})

	require.NoError(t, n.Trigger([]string{"a", "b", "c"}))

	invocations := capture.invocations()
	require.Len(t, invocations, 2)
	assert.Equal(t, []any{[]any{"a", "b"}}, invocations[0])
	assert.Equal(t, []any{[]any{"c"}}, invocations[1])
}

func TestBatchPort_ExactMultiple(t *testing.T) {
	capture := &captureTarget{}
	n := startedNode(t, NodeConfig{
		Target: capture.target(1),
		Ports:  []*InputPort{BatchPort(0, 3)},
	})

	require.NoError(t, n.Trigger([]any{1, 2, 3, 4, 5, 6}))

	invocations := capture.invocations()
	require.Len(t, invocations, 2)
	assert.Equal(t, []any{[]any{1, 2, 3}}, invocations[0])
	assert.Equal(t, []any{[]any{4, 5, 6}}, invocations[1])
}

func TestKwargPort_UpdatesWithoutTrigger(t *testing.T) {
	capture := &captureTarget{}
	n := startedNode(t, NodeConfig{
		Target: capture.target(1, WithDefault("k", "default")),
	})
	downstream := &recorder{}
	n.Output().RegisterObserver(downstream)

	n.passivePorts["k"].Notify("updated")

	assert.Empty(t, capture.invocations(), "kwarg update must not trigger")
	assert.Empty(t, downstream.values(), "kwarg update must not notify")
	assert.Equal(t, "updated", n.passiveValues["k"])
}
