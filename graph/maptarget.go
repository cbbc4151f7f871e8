package graph

import "fmt"

// MapOp selects what a MapAction does to the remembered map.
type MapOp string

const (
	// MapUpdate merges the payload entries into the remembered map.
	MapUpdate MapOp = "update"
	// MapDelete removes the payload keys from the remembered map.
	MapDelete MapOp = "delete"
)

// MapAction is the payload a map node consumes. For MapUpdate, Entries holds
// the keys to merge; for MapDelete, Keys holds the keys to drop.
type MapAction struct {
	Op      MapOp          `json:"op"`
	Entries map[string]any `json:"entries,omitempty"`
	Keys    []string       `json:"keys,omitempty"`
}

// NewMapTarget returns an arity-1 target that maintains a map inside v.
// Wire the same Value into the node so the remembered map survives restarts
// when the cell is store-backed. Unknown ops fail the invocation, which the
// worker logs and drops like any other target error.
func NewMapTarget(v Value) Target {
	work := func(args []any, _ map[string]any) (any, error) {
		action, ok := args[0].(MapAction)
		if !ok {
			return nil, fmt.Errorf("map node expects a MapAction, got %T", args[0])
		}

		current, err := v.Get()
		if err != nil {
			return nil, err
		}
		m, _ := current.(map[string]any)
		if m == nil {
			m = make(map[string]any)
		}

		switch action.Op {
		case MapUpdate:
			for k, val := range action.Entries {
				m[k] = val
			}
		case MapDelete:
			for _, k := range action.Keys {
				delete(m, k)
			}
		default:
			return nil, fmt.Errorf("map op %q not recognised", action.Op)
		}
		return m, nil
	}
	return NewTarget(1, work)
}
