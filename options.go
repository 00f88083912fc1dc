package prqueue

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/pagerguild/prqueue/internal/ratelimit"
	"github.com/pagerguild/prqueue/retry"
)

// DefaultConcurrency is the number of workers a Queue starts with.
const DefaultConcurrency = 2

// Option configures a Queue.
type Option func(*Queue)

// WithConcurrency sets the number of workers.
func WithConcurrency(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.concurrency = n
		}
	}
}

// WithRetryPolicy sets the policy applied to rate limited operations.
func WithRetryPolicy(p *retry.Policy) Option {
	return func(q *Queue) {
		if p != nil {
			q.policy = p
		}
	}
}

// WithMaxAttempts overrides MaxAttempts of the retry policy, whether the
// policy is the default or set with WithRetryPolicy in any order.
func WithMaxAttempts(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}

// WithLimiter sets the account limiter holding the rate budget. Queues for
// the same token should share one limiter, usually obtained from a
// ratelimit.Cache.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(q *Queue) {
		if l != nil {
			q.limiter = l
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// WithTracerProvider sets the provider used to trace attempts.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(q *Queue) {
		if tp != nil {
			q.tracer = tp.Tracer(tracerName)
		}
	}
}

const tracerName = "github.com/pagerguild/prqueue"

func defaultTracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(tracerName)
}
