// Package memo provides a concurrency-safe, run-once memoizer for expensive asynchronous initialization.
package memo

import (
	"context"
	"sync"
)

// State is the lifecycle state of a Once.
type State int

const (
	// Uninit means the factory has not been started.
	Uninit State = iota

	// Pending means the factory is running and callers wait for its outcome.
	Pending

	// Settled means the factory finished; its value or error is cached forever.
	Settled
)

// String provides a string representation of State for logging and debugging.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Settled:
		return "settled"
	default:
		return "uninit"
	}
}

// Factory produces the memoized value.
type Factory[T any] func(ctx context.Context) (T, error)

// Once runs its factory at most once and hands the same outcome to every caller.
//
// The factory runs detached from the cancellation of the caller that triggered it, so an impatient
// first caller cannot poison the outcome for everyone else. Each caller still stops waiting when its
// own context ends. A failure is cached like a success and is never retried.
type Once[T any] struct {
	factory Factory[T]

	mu    sync.Mutex
	state State
	done  chan struct{}
	value T
	err   error
}

// New creates a Once in state Uninit.
func New[T any](factory Factory[T]) *Once[T] {
	return &Once[T]{
		factory: factory,
		done:    make(chan struct{}),
	}
}

// Do returns the memoized outcome, starting the factory if this is the first call.
// If ctx ends first, Do returns ctx.Err() and the factory keeps running.
func (o *Once[T]) Do(ctx context.Context) (T, error) {
	o.mu.Lock()
	if o.state == Uninit {
		o.state = Pending
		go o.run(context.WithoutCancel(ctx))
	}
	o.mu.Unlock()

	select {
	case <-o.done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// State reports the current lifecycle state.
func (o *Once[T]) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

func (o *Once[T]) run(ctx context.Context) {
	value, err := o.factory(ctx)

	o.mu.Lock()
	o.value, o.err = value, err
	o.state = Settled
	o.mu.Unlock()

	close(o.done)
}
