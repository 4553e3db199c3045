package search

import (
	"context"
)

// State is a step of a single search.
//
// A successful search moves Idle, KeysCompiled, KeysFetched, ChildrenFetched, Assembled, Sorted.
// Any error moves it to Failed.
type State int

// Search states.
const (
	StateIdle State = iota
	StateKeysCompiled
	StateKeysFetched
	StateChildrenFetched
	StateAssembled
	StateSorted
	StateFailed
)

// String provides a string representation of State for logging and debugging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateKeysCompiled:
		return "keys_compiled"
	case StateKeysFetched:
		return "keys_fetched"
	case StateChildrenFetched:
		return "children_fetched"
	case StateAssembled:
		return "assembled"
	case StateSorted:
		return "sorted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transition is reported to a StateObserver whenever a search changes its state.
// Err is set only for transitions into StateFailed and is the error the search returns.
type Transition struct {
	SearchID string
	From     State
	To       State
	Err      error
}

// StateObserver receives the transitions of every search. It is called synchronously on the
// searching goroutine and must not block.
type StateObserver func(ctx context.Context, t Transition)

// run tracks the state of one search.
type run struct {
	ctx      context.Context
	id       string
	state    State
	observer StateObserver
}

func (r *run) advance(to State) {
	from := r.state
	r.state = to

	if r.observer != nil {
		r.observer(r.ctx, Transition{SearchID: r.id, From: from, To: to})
	}
}

// fail moves the search to StateFailed and returns err unchanged.
func (r *run) fail(err error) error {
	from := r.state
	r.state = StateFailed

	if r.observer != nil {
		r.observer(r.ctx, Transition{SearchID: r.id, From: from, To: StateFailed, Err: err})
	}

	return err
}
