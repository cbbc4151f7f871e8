package graph

// Backing supplies the execution substrate for a pooled worker. The pool and
// drain algorithm is identical for every backing; only how each execution
// worker resolves and reaches its invocation target differs.
type Backing interface {
	// Resolve prepares the invocation target for one execution worker. The
	// release func is called exactly once when that worker terminates.
	Resolve(t Target) (work Work, release func(), err error)
	// Name labels the backing in logs and metrics.
	Name() string
}

// GoroutineBacking runs execution workers as plain goroutines invoking the
// target in-process.
type GoroutineBacking struct{}

// Name implements Backing.
func (GoroutineBacking) Name() string { return "goroutine" }

// Resolve implements Backing. Factory targets yield one fresh instance per
// execution worker here.
func (GoroutineBacking) Resolve(t Target) (Work, func(), error) {
	work, err := t.resolve()
	if err != nil {
		return nil, nil, err
	}
	return work, func() {}, nil
}
