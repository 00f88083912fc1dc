package prqueue

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/pagerguild/prqueue/internal/ratelimit"
	"github.com/pagerguild/prqueue/retry"
)

// Queue serializes API calls through a fixed pool of workers. Operations
// wait in one of two FIFO backlogs, high before normal, and rate limited
// operations are parked until their retry time without holding up other
// work. The zero value is not usable; construct with New.
type Queue struct {
	concurrency int
	policy      *retry.Policy
	maxAttempts int
	limiter     *ratelimit.Limiter
	ownLimiter  bool
	logger      *slog.Logger
	tracer      trace.Tracer

	ctx    context.Context // cancelled by Shutdown
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	high     []*operation
	normal   []*operation
	parked   map[*operation]*time.Timer
	seq      uint64
	inFlight int
	closed   bool
	wake     chan struct{} // closed and replaced whenever work is added
}

// Stats is a point-in-time view of a Queue.
type Stats struct {
	High     int      // queued high priority operations
	Normal   int      // queued normal priority operations
	Parked   int      // operations waiting out a retry delay
	InFlight int      // operations held by workers
	Requests int      // HTTP requests holding a concurrency slot
	Budget   RateInfo // current rate budget
	Closed   bool
}

// New creates a Queue and starts its workers.
func New(opts ...Option) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		concurrency: DefaultConcurrency,
		policy:      retry.Default(),
		logger:      slog.Default(),
		tracer:      defaultTracer(),
		ctx:         ctx,
		cancel:      cancel,
		parked:      make(map[*operation]*time.Timer),
		wake:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.maxAttempts > 0 {
		p := *q.policy
		p.MaxAttempts = q.maxAttempts
		q.policy = &p
	}
	if q.limiter == nil {
		q.limiter = ratelimit.NewLimiter(ratelimit.Config{SafetyMargin: ratelimit.DefaultSafetyMargin})
		q.ownLimiter = true
	}

	for i := range q.concurrency {
		q.wg.Add(1)
		go q.worker(i)
	}
	return q
}

// Submit queues fn and returns a Future for its result. It never blocks.
// ctx is passed to fn when it runs; if ctx is cancelled before that, the
// operation is dropped and the Future fails with ctx's error. Submitting
// to a queue that has been shut down fails with ErrQueueClosed.
func Submit[T any](ctx context.Context, q *Queue, p Priority, fn Thunk[T]) (*Future[T], error) {
	op, err := q.enqueue(ctx, p, func(ctx context.Context) (any, *RateInfo, error) {
		return fn(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &Future[T]{op: op}, nil
}

// Do submits fn and waits for its result.
func Do[T any](ctx context.Context, q *Queue, p Priority, fn Thunk[T]) (T, error) {
	f, err := Submit(ctx, q, p, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.Await(ctx)
}

// Shutdown stops accepting submissions and fails every queued or parked
// operation with ErrQueueClosed. Operations already running are allowed to
// finish; Shutdown waits for them until ctx is done.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return q.wait(ctx)
	}
	q.closed = true

	pending := make([]*operation, 0, len(q.high)+len(q.normal)+len(q.parked))
	pending = append(pending, q.high...)
	pending = append(pending, q.normal...)
	for op, timer := range q.parked {
		timer.Stop()
		op.unwatch()
		pending = append(pending, op)
	}
	q.high, q.normal = nil, nil
	clear(q.parked)
	q.mu.Unlock()

	q.cancel()
	for _, op := range pending {
		op.settle(nil, ErrQueueClosed)
	}

	q.logger.Info("queue shutting down",
		slog.Int("rejected", len(pending)),
	)

	err := q.wait(ctx)
	if q.ownLimiter {
		q.limiter.Close()
	}
	return err
}

// Stats returns a snapshot of the queue.
func (q *Queue) Stats() Stats {
	budget := q.limiter.Tracker().Snapshot()
	requests := q.limiter.InFlight()

	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		High:     len(q.high),
		Normal:   len(q.normal),
		Parked:   len(q.parked),
		InFlight: q.inFlight,
		Requests: requests,
		Budget:   budget,
		Closed:   q.closed,
	}
}

func (q *Queue) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		q.logger.Warn("queue shutdown timed out with operations in flight")
		return ctx.Err()
	}
}

func (q *Queue) enqueue(ctx context.Context, p Priority, run func(context.Context) (any, *RateInfo, error)) (*operation, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}
	q.seq++
	op := newOperation(ctx, p, q.seq, run)
	q.push(op)
	return op, nil
}

// push appends op to the tail of its backlog and wakes idle workers.
// Callers hold q.mu.
func (q *Queue) push(op *operation) {
	if op.priority == High {
		q.high = append(q.high, op)
	} else {
		q.normal = append(q.normal, op)
	}
	close(q.wake)
	q.wake = make(chan struct{})
}

// take returns the next operation to run, blocking until one is available
// or the queue is shut down. While the rate budget is throttled only
// operations that are already retrying are handed out.
func (q *Queue) take() (*operation, error) {
	tracker := q.limiter.Tracker()
	for {
		throttled := tracker.Throttled()

		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		var cancelled []*operation
		op := q.pop(throttled)
		for op != nil && op.ctx.Err() != nil {
			cancelled = append(cancelled, op)
			op = q.pop(throttled)
		}
		if op != nil {
			q.inFlight++
		}
		wake := q.wake
		q.mu.Unlock()

		for _, c := range cancelled {
			c.settle(nil, c.ctx.Err())
		}
		if op != nil {
			return op, nil
		}

		var ready <-chan struct{}
		if throttled {
			ready = tracker.Ready()
		}
		select {
		case <-wake:
		case <-ready:
		case <-q.ctx.Done():
			return nil, ErrQueueClosed
		}
	}
}

// pop removes the oldest eligible operation, high backlog first. Callers
// hold q.mu.
func (q *Queue) pop(retriesOnly bool) *operation {
	for _, backlog := range []*[]*operation{&q.high, &q.normal} {
		for i, op := range *backlog {
			if retriesOnly && op.attempts == 0 {
				continue
			}
			*backlog = slices.Delete(*backlog, i, i+1)
			return op
		}
	}
	return nil
}

// park holds op until at and then returns it to the tail of its backlog.
// Cancelling the operation's context while it is parked fails it right
// away.
func (q *Queue) park(op *operation, at time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		op.settle(nil, ErrQueueClosed)
		return
	}
	q.parked[op] = time.AfterFunc(time.Until(at), func() {
		q.unpark(op)
	})
	op.stopWatch = context.AfterFunc(op.ctx, func() {
		q.drop(op)
	})
}

func (q *Queue) unpark(op *operation) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.parked[op]; !ok {
		return
	}
	delete(q.parked, op)
	op.unwatch()
	q.push(op)
}

// drop fails a parked operation whose context was cancelled.
func (q *Queue) drop(op *operation) {
	q.mu.Lock()
	timer, ok := q.parked[op]
	if ok {
		timer.Stop()
		delete(q.parked, op)
	}
	q.mu.Unlock()

	if ok {
		op.settle(nil, op.ctx.Err())
	}
}

func (q *Queue) release() {
	q.mu.Lock()
	q.inFlight--
	q.mu.Unlock()
}
