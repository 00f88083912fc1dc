package ratelimit

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"
)

// GitHub allows at most 100 concurrent requests per token before the
// secondary rate limit kicks in.
const DefaultMaxConcurrent = 100

// Config describes the limits applied to one GitHub account.
type Config struct {
	// MaxConcurrent caps in-flight HTTP requests made through Transport.
	// Zero means DefaultMaxConcurrent.
	MaxConcurrent int

	// SafetyMargin is the number of primary requests held in reserve.
	SafetyMargin int

	// Rate spaces out new calls to avoid bursts. Zero disables pacing.
	Rate rate.Limit

	// Burst is the pacing burst size. Defaults to 1 when Rate is set.
	Burst int
}

// Limiter combines the budget tracker, optional pacing of new calls, and
// the concurrency cap for HTTP requests made with one token.
type Limiter struct {
	tracker   *Tracker
	pacer     *rate.Limiter
	semaphore Semaphore
}

// NewLimiter creates a Limiter from cfg.
func NewLimiter(cfg Config) *Limiter {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	pacer := rate.NewLimiter(rate.Inf, 0)
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		pacer = rate.NewLimiter(cfg.Rate, burst)
	}

	return &Limiter{
		tracker:   NewTracker(cfg.SafetyMargin),
		pacer:     pacer,
		semaphore: NewSemaphore(maxConcurrent),
	}
}

// Admit blocks until a new call may be issued: the budget must not be
// throttled and the pacer must have a token.
func (l *Limiter) Admit(ctx context.Context) error {
	if err := l.tracker.Acquire(ctx); err != nil {
		return err
	}
	return l.pacer.Wait(ctx)
}

// Tracker returns the budget tracker.
func (l *Limiter) Tracker() *Tracker {
	return l.tracker
}

// InFlight returns the number of HTTP requests currently holding a slot.
func (l *Limiter) InFlight() int {
	return l.semaphore.InUse()
}

// Transport wraps base so that every request holds a concurrency slot.
func (l *Limiter) Transport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, semaphore: l.semaphore}
}

// Close releases all resources.
func (l *Limiter) Close() {
	l.tracker.Close()
}
