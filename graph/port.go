package graph

import "reflect"

// Observer receives values published on an output port.
type Observer interface {
	Notify(data any)
}

// OutputPort is an order-preserving observable. Notify multicasts to every
// registered observer synchronously, in registration order, on the caller's
// goroutine. The port never buffers.
type OutputPort struct {
	observers []Observer
}

// NewOutputPort creates an empty output port.
func NewOutputPort() *OutputPort {
	return &OutputPort{}
}

// RegisterObserver appends an observer. Wiring is static: registration
// happens at graph-construction time, before the graph starts.
func (p *OutputPort) RegisterObserver(o Observer) {
	p.observers = append(p.observers, o)
}

// Observers returns the registered observers in registration order.
func (p *OutputPort) Observers() []Observer {
	return p.observers
}

// Notify fans data out to all observers in registration order.
func (p *OutputPort) Notify(data any) {
	for _, o := range p.observers {
		o.Notify(data)
	}
}

// portKind tags the closed set of input-port variants.
type portKind int

const (
	portArg portKind = iota
	portMapping
	portBatch
	portKwarg
)

// InputPort translates one inbound event into node invocation parameters.
// The variant is fixed at construction:
//
//   - arg forwards the payload unchanged to its reactive index
//   - mapping iterates a slice payload, one trigger per element
//   - batch partitions a slice payload into fixed-size chunks
//   - kwarg updates cached passive state and never triggers
//
// The port holds a non-owning back-reference to its node, set once during
// wiring. Event order is never altered by any variant.
type InputPort struct {
	node      *Node
	kind      portKind
	idx       int
	key       string
	batchSize int
}

// ArgPort creates a reactive port forwarding payloads to reactive index idx.
func ArgPort(idx int) *InputPort {
	return &InputPort{kind: portArg, idx: idx}
}

// MappingPort creates a reactive port that expands a []any payload into one
// trigger per element, preserving order.
func MappingPort(idx int) *InputPort {
	return &InputPort{kind: portMapping, idx: idx}
}

// BatchPort creates a reactive port that partitions a []any payload into
// contiguous chunks of at most size elements. The last chunk may be shorter.
func BatchPort(idx int, size int) *InputPort {
	if size < 1 {
		size = 1
	}
	return &InputPort{kind: portBatch, idx: idx, batchSize: size}
}

// KwargPort creates a passive port for the named keyword input.
func KwargPort(name string) *InputPort {
	return &InputPort{kind: portKwarg, key: name}
}

// connectTo sets the back-reference. The node owns its ports, never the
// reverse.
func (p *InputPort) connectTo(n *Node) {
	p.node = n
}

// Node returns the owning node, or nil before wiring.
func (p *InputPort) Node() *Node {
	return p.node
}

// Passive reports whether this is a keyword (non-triggering) port.
func (p *InputPort) Passive() bool {
	return p.kind == portKwarg
}

// Index returns the reactive index for reactive variants.
func (p *InputPort) Index() int {
	return p.idx
}

// Notify routes one inbound event into the owning node.
func (p *InputPort) Notify(data any) {
	switch p.kind {
	case portKwarg:
		p.node.handleKwarg(p.key, data)
	case portMapping:
		for _, x := range asSlice(data) {
			p.node.handleArg(p.idx, x)
		}
	case portBatch:
		payload := asSlice(data)
		for i := 0; i < len(payload); i += p.batchSize {
			end := i + p.batchSize
			if end > len(payload) {
				end = len(payload)
			}
			p.node.handleArg(p.idx, payload[i:end])
		}
	default:
		p.node.handleArg(p.idx, data)
	}
}

// asSlice views a payload as a sequence. Typed slices and arrays are
// expanded element by element; a scalar becomes a single-element sequence so
// a misfed port degrades to arg behavior instead of dropping the event.
// Strings count as scalars.
func asSlice(data any) []any {
	if s, ok := data.([]any); ok {
		return s
	}
	rv := reflect.ValueOf(data)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{data}
}
