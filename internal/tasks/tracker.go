package tasks

import (
	"context"
	"sync"
)

// Operation is a fallible asynchronous call wrapped by a [Tracker].
type Operation[A, R any] func(ctx context.Context, args A) (R, error)

// CallState is a snapshot of a [Tracker].
//
// At most one of Result (flagged by HasResult) and Err is set.
type CallState[R any] struct {
	Loading   bool
	Result    R
	HasResult bool
	Err       error
}

// Idle reports whether the tracker has never been invoked or was reset.
func (s CallState[R]) Idle() bool {
	return !s.Loading && !s.HasResult && s.Err == nil
}

// Tracker exposes the lifecycle of an [Operation] as an observable [CallState].
//
// Every invocation takes a new generation. A completion only updates the state if its generation is still the
// latest, so the most recent invocation always wins even when an older call resolves after it.
// After [Tracker.Close] no completion changes the state.
type Tracker[A, R any] struct {
	op Operation[A, R]

	mu     sync.Mutex
	state  CallState[R]
	gen    uint64
	closed bool
}

// NewTracker wraps op in a [Tracker].
func NewTracker[A, R any](op Operation[A, R]) *Tracker[A, R] {
	return &Tracker[A, R]{op: op}
}

// Invoke clears any previous outcome, marks the tracker loading and runs the operation.
//
// The result is returned to the caller regardless of whether it was applied to the state.
// Concurrent invocations are allowed.
func (t *Tracker[A, R]) Invoke(ctx context.Context, args A) (R, error) {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	if !t.closed {
		t.state = CallState[R]{Loading: true}
	}
	t.mu.Unlock()

	res, err := t.op(ctx, args)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || gen != t.gen {
		return res, err
	}
	if err != nil {
		t.state = CallState[R]{Err: err}
	} else {
		t.state = CallState[R]{Result: res, HasResult: true}
	}
	return res, err
}

// State returns the current snapshot.
func (t *Tracker[A, R]) State() CallState[R] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Loading reports whether the latest invocation is still in flight.
func (t *Tracker[A, R]) Loading() bool {
	return t.State().Loading
}

// Close tears the tracker down. In-flight calls still return to their callers but no longer touch the state.
func (t *Tracker[A, R]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

// Closed reports whether Close was called.
func (t *Tracker[A, R]) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
