package prqueue

import (
	"context"
	"sync"

	"github.com/pagerguild/prqueue/internal/ratelimit"
	"github.com/pagerguild/prqueue/retry"
)

// RateInfo is the rate limit metadata a thunk may report with its result.
type RateInfo = ratelimit.Info

// Priority selects the backlog an operation waits in.
type Priority int

const (
	// Normal is for bulk listing calls.
	Normal Priority = iota
	// High is for calls a visible view is waiting on. High operations are
	// always dequeued before Normal ones but never preempt running work.
	High
)

func (p Priority) String() string {
	switch p {
	case Normal:
		return "normal"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// Thunk performs one API call. It returns the call's data, the rate limit
// metadata of the response if there was one, and an error. Errors that
// wrap a *RateLimitError are retried; all others fail the operation.
type Thunk[T any] func(ctx context.Context) (T, *RateInfo, error)

// operation is a submitted thunk and the state shared with its Future.
type operation struct {
	ctx      context.Context
	run      func(context.Context) (any, *RateInfo, error)
	priority Priority
	seq      uint64

	// Owned by the worker currently holding the operation.
	attempts int
	retry    *retry.Descriptor

	// Stops the cancellation watch while parked. Guarded by the queue's mu.
	stopWatch func() bool

	done chan struct{}
	once sync.Once
	val  any
	err  error
}

func newOperation(ctx context.Context, p Priority, seq uint64, run func(context.Context) (any, *RateInfo, error)) *operation {
	return &operation{
		ctx:      ctx,
		run:      run,
		priority: p,
		seq:      seq,
		done:     make(chan struct{}),
	}
}

func (op *operation) unwatch() {
	if op.stopWatch != nil {
		op.stopWatch()
		op.stopWatch = nil
	}
}

// settle delivers the result. Only the first call has an effect.
func (op *operation) settle(val any, err error) bool {
	settled := false
	op.once.Do(func() {
		op.val, op.err = val, err
		close(op.done)
		settled = true
	})
	return settled
}

// Future is the pending result of a submitted operation.
type Future[T any] struct {
	op *operation
}

// Done returns a channel that is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.op.done
}

// Await blocks until the operation settles or ctx is done. Giving up on
// the wait does not cancel the operation; cancel the context passed to
// Submit for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-f.op.done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	if f.op.err != nil {
		return zero, f.op.err
	}
	if f.op.val == nil {
		return zero, nil
	}
	return f.op.val.(T), nil
}
