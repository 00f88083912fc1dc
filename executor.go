package prqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pagerguild/prqueue/retry"
)

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	q.logger.Debug("worker started", slog.Int("worker", id))
	for {
		op, err := q.take()
		if err != nil {
			q.logger.Debug("worker stopped", slog.Int("worker", id))
			return
		}
		q.execute(op)
	}
}

// execute runs one attempt of op and settles, parks or fails it.
func (q *Queue) execute(op *operation) {
	defer q.release()

	if op.attempts == 0 {
		if err := q.admit(op); err != nil {
			op.settle(nil, err)
			return
		}
	}
	op.attempts++

	ctx, span := q.tracer.Start(op.ctx, "prqueue.attempt", trace.WithAttributes(
		attribute.String("prqueue.priority", op.priority.String()),
		attribute.Int64("prqueue.seq", int64(op.seq)),
		attribute.Int("prqueue.attempt", op.attempts),
	))
	defer span.End()

	val, info, err := q.invoke(ctx, op)

	var rle *RateLimitError
	switch {
	case err == nil:
		if info != nil {
			q.limiter.Tracker().Record(*info)
		}
		span.SetAttributes(attribute.String("prqueue.outcome", "delivered"))
		op.settle(val, nil)

	case errors.As(err, &rle):
		hint := q.recordLimited(rle, info)
		span.RecordError(err)
		q.retry(op, hint, err, span)

	default:
		if info != nil {
			q.limiter.Tracker().Record(*info)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("prqueue.outcome", "failed"))
		op.settle(nil, &OperationError{Err: err})
	}
}

// admit waits until a fresh operation may spend budget. Shutdown abandons
// the wait since the operation has not started yet.
func (q *Queue) admit(op *operation) error {
	ctx, cancel := context.WithCancel(op.ctx)
	defer cancel()
	stop := context.AfterFunc(q.ctx, cancel)
	defer stop()

	if err := q.limiter.Admit(ctx); err != nil {
		if q.ctx.Err() != nil {
			return ErrQueueClosed
		}
		return err
	}
	return nil
}

func (q *Queue) invoke(ctx context.Context, op *operation) (val any, info *RateInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("operation panicked",
				slog.Uint64("seq", op.seq),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			val, info, err = nil, nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return op.run(ctx)
}

// recordLimited feeds a rate limit rejection to the tracker and returns
// the retry hint for the rejected operation.
func (q *Queue) recordLimited(rle *RateLimitError, info *RateInfo) retry.Hint {
	meta := rle.Info
	if !meta.Known() && meta.RetryAfter == 0 && info != nil {
		meta = *info
	}
	// A secondary limit says nothing about the primary budget.
	if rle.Secondary {
		meta = RateInfo{RetryAfter: meta.RetryAfter}
	}

	tracker := q.limiter.Tracker()
	tracker.RecordLimited(meta)

	hint := retry.Hint{Reset: meta.Reset, RetryAfter: meta.RetryAfter}
	if hint.RetryAfter == 0 && meta.TimeToReset() == 0 {
		if d := time.Until(tracker.SecondaryUntil()); d > 0 {
			hint.RetryAfter = d
		}
	}
	return hint
}

func (q *Queue) retry(op *operation, hint retry.Hint, cause error, span trace.Span) {
	if op.retry == nil {
		op.retry = q.policy.NewDescriptor(op.attempts)
	} else {
		op.retry.Attempt = op.attempts
	}

	next, ok := q.policy.Next(op.retry, hint, time.Now())
	if !ok {
		q.logger.Warn("operation abandoned after repeated rate limiting",
			slog.Uint64("seq", op.seq),
			slog.String("priority", op.priority.String()),
			slog.Int("attempts", op.attempts),
			slog.String("error", cause.Error()),
		)
		span.SetStatus(codes.Error, "rate limit exceeded")
		span.SetAttributes(attribute.String("prqueue.outcome", "aborted"))
		op.settle(nil, fmt.Errorf("%w after %d attempts: %w", ErrRateLimitExceeded, op.attempts, cause))
		return
	}

	q.logger.Info("operation rate limited, retrying",
		slog.Uint64("seq", op.seq),
		slog.String("priority", op.priority.String()),
		slog.Int("attempt", op.attempts),
		slog.Duration("delay", time.Until(next)),
	)
	span.SetAttributes(
		attribute.String("prqueue.outcome", "retrying"),
		attribute.String("prqueue.next_eligible", next.Format(time.RFC3339Nano)),
	)
	q.park(op, next)
}
