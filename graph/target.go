package graph

import (
	"fmt"
	"reflect"
	"sync"
)

// Work is the invocation signature every node target reduces to. args carries
// the node's cached reactive values in port order; kwargs carries the cached
// passive values by keyword name.
type Work func(args []any, kwargs map[string]any) (any, error)

// Target describes the work a node invokes: a shared callable or a per-worker
// factory, the reactive arity, and passive keyword defaults. Factory targets
// are the rendition of stateful work: each execution worker resolves its own
// fresh instance, so no shared mutable state is assumed unless the target
// itself is concurrency-safe.
type Target struct {
	work     Work
	factory  func() (Work, error)
	name     string
	arity    int
	defaults map[string]any
}

// TargetOption customizes a Target.
type TargetOption func(*Target)

// WithDefault declares a passive keyword input seeded with value. Each
// default becomes one passive port on the node.
func WithDefault(name string, value any) TargetOption {
	return func(t *Target) {
		if t.defaults == nil {
			t.defaults = make(map[string]any)
		}
		t.defaults[name] = value
	}
}

// NewTarget builds a target around a shared callable with the given reactive
// arity.
func NewTarget(arity int, work Work, opts ...TargetOption) Target {
	t := Target{work: work, arity: arity}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// NewFactoryTarget builds a target resolved per execution worker. factory is
// called once by every worker at start, yielding that worker's own callable.
func NewFactoryTarget(arity int, factory func() (Work, error), opts ...TargetOption) Target {
	t := Target{factory: factory, arity: arity}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// Func adapts a plain positional function to a Target. fn must have the shape
// func(a, b, ...) R or func(a, b, ...) (R, error); its parameter count sets
// the reactive arity. Arguments are matched by position and converted with
// the usual reflection rules; nil cached values become zero values.
func Func(fn any, opts ...TargetOption) Target {
	v := reflect.ValueOf(fn)
	ft := v.Type()
	if ft.Kind() != reflect.Func {
		panic(fmt.Sprintf("graph.Func: %T is not a function", fn))
	}
	if ft.IsVariadic() {
		panic("graph.Func: variadic functions are not supported")
	}
	if ft.NumOut() < 1 || ft.NumOut() > 2 {
		panic("graph.Func: function must return a value or (value, error)")
	}
	withErr := ft.NumOut() == 2
	if withErr && ft.Out(1) != reflect.TypeFor[error]() {
		panic("graph.Func: second return value must be error")
	}

	arity := ft.NumIn()
	work := func(args []any, _ map[string]any) (any, error) {
		if len(args) != arity {
			return nil, fmt.Errorf("expected %d args, got %d", arity, len(args))
		}
		in := make([]reflect.Value, arity)
		for i, a := range args {
			if a == nil {
				in[i] = reflect.Zero(ft.In(i))
				continue
			}
			av := reflect.ValueOf(a)
			if !av.Type().AssignableTo(ft.In(i)) {
				if !av.Type().ConvertibleTo(ft.In(i)) {
					return nil, fmt.Errorf("arg %d: cannot use %T as %s", i, a, ft.In(i))
				}
				av = av.Convert(ft.In(i))
			}
			in[i] = av
		}
		out := v.Call(in)
		if withErr && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}
	return NewTarget(arity, work, opts...)
}

// Arity returns the reactive-port count this target requires.
func (t Target) Arity() int {
	return t.arity
}

// Defaults returns the passive keyword defaults.
func (t Target) Defaults() map[string]any {
	return t.defaults
}

// valid reports whether exactly one invocation form is set.
func (t Target) valid() bool {
	n := 0
	if t.work != nil {
		n++
	}
	if t.factory != nil {
		n++
	}
	if t.name != "" {
		n++
	}
	return n == 1
}

// resolve yields the callable one worker will invoke. Shared callables are
// returned as-is; factory targets construct a fresh instance per call.
func (t Target) resolve() (Work, error) {
	switch {
	case t.work != nil:
		return t.work, nil
	case t.factory != nil:
		return t.factory()
	case t.name != "":
		reg, ok := Lookup(t.name)
		if !ok {
			return nil, fmt.Errorf("target %q is not registered", t.name)
		}
		return reg.resolve()
	default:
		return nil, fmt.Errorf("target has no callable")
	}
}

// registry maps names to targets so process-backed nodes can reference work
// that both the parent and the re-executed worker subprocess know how to
// find. Registration normally happens in package init, before WorkerMain.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]Target)
)

// Register names a target for use by process-backed nodes. Registering the
// same name twice panics: the name is the cross-process identity of the work
// and must be unambiguous.
func Register(name string, t Target) Target {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("graph.Register: target %q already registered", name))
	}
	registry[name] = t
	return Target{name: name, arity: t.arity, defaults: t.defaults}
}

// Lookup returns the registered target for name.
func Lookup(name string) (Target, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := registry[name]
	return t, ok
}
