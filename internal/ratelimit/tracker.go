package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultSafetyMargin is the number of requests held back from the primary
// budget so the client stops before GitHub has to stop it.
const DefaultSafetyMargin = 10

// secondaryCooldown is used when GitHub rejects a request without saying
// how long to wait. GitHub asks for at least a minute in that case.
const secondaryCooldown = time.Minute

// Tracker holds the request budget GitHub reported for one token and
// throttles new calls while that budget is spent or a secondary limit is
// active. All state is guarded by mu; callers only ever see snapshots.
type Tracker struct {
	margin   int
	resource string

	mu             sync.Mutex
	limit          int
	remaining      int // -1 while unknown
	resetAt        time.Time
	secondaryUntil time.Time
	lock           chan struct{} // closed while calls may proceed
	timer          *time.Timer
	closed         bool
}

// NewTracker creates a tracker that throttles once the remaining budget
// drops to margin. Only responses for the "core" resource, or responses
// that do not name a resource, update the budget.
func NewTracker(margin int) *Tracker {
	if margin < 0 {
		margin = 0
	}
	t := &Tracker{
		margin:    margin,
		resource:  "core",
		remaining: -1,
		lock:      make(chan struct{}),
	}
	close(t.lock)
	return t
}

// Acquire blocks while the tracker is throttled and then reserves one
// request from the remaining budget.
func (t *Tracker) Acquire(ctx context.Context) error {
	for {
		t.mu.Lock()
		now := time.Now()
		t.rollover(now)
		lock := t.lock
		if isOpen(lock) {
			if t.remaining > 0 {
				t.remaining--
				t.evaluate(now)
			}
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		select {
		case <-lock:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Ready returns a channel that is closed while new calls may proceed.
// The channel is replaced whenever throttling starts, so callers must
// fetch it again after it fires.
func (t *Tracker) Ready() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lock
}

// Throttled reports whether new calls are currently held back.
func (t *Tracker) Throttled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(time.Now())
	return !isOpen(t.lock)
}

// Remaining returns the remaining budget, or -1 if no response has
// reported one yet.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(time.Now())
	return t.remaining
}

// ResetAt returns when the current primary window ends.
func (t *Tracker) ResetAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resetAt
}

// SecondaryUntil returns when the current secondary cooldown ends.
func (t *Tracker) SecondaryUntil() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.secondaryUntil
}

// Snapshot returns the current budget as an Info.
func (t *Tracker) Snapshot() Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.rollover(now)
	info := Info{
		Limit:     t.limit,
		Remaining: t.remaining,
		Reset:     t.resetAt,
		Resource:  t.resource,
	}
	if now.Before(t.secondaryUntil) {
		info.RetryAfter = t.secondaryUntil.Sub(now)
	}
	return info
}

// Record updates the budget from a successful response.
func (t *Tracker) Record(info Info) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.rollover(now)
	t.apply(info)
	t.evaluate(now)
}

// RecordLimited updates the budget from a rate limited response. A
// RetryAfter starts a secondary cooldown and a future Reset marks the
// primary budget as spent. A reset that already passed means the window
// has rolled over in the meantime. A response carrying no metadata at all
// starts the default secondary cooldown.
func (t *Tracker) RecordLimited(info Info) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.rollover(now)
	switch {
	case info.RetryAfter > 0:
		t.extendSecondary(now.Add(info.RetryAfter))
	case info.Reset.After(now):
		t.apply(info)
		if !info.Reset.Before(t.resetAt) {
			t.resetAt = info.Reset
			t.remaining = 0
		}
	case info.Known():
		t.apply(info)
	default:
		t.extendSecondary(now.Add(secondaryCooldown))
	}
	t.evaluate(now)
}

// Close stops the tracker and releases every blocked Acquire.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
	}
	if !isOpen(t.lock) {
		close(t.lock)
	}
}

// apply merges info into the budget. Within one window the remaining count
// only moves down, so completions arriving out of order cannot restore
// budget that was already spent.
func (t *Tracker) apply(info Info) {
	if !info.Known() {
		return
	}
	if info.Resource != "" && info.Resource != t.resource {
		return
	}
	if info.Limit > 0 {
		t.limit = info.Limit
	}
	switch {
	case info.Reset.After(t.resetAt):
		t.resetAt = info.Reset
		t.remaining = info.Remaining
	case info.Reset.Equal(t.resetAt):
		if t.remaining < 0 || info.Remaining < t.remaining {
			t.remaining = info.Remaining
		}
	}
}

func (t *Tracker) extendSecondary(until time.Time) {
	if until.After(t.secondaryUntil) {
		t.secondaryUntil = until
	}
}

// rollover refills the budget once its window has ended.
func (t *Tracker) rollover(now time.Time) {
	if t.resetAt.IsZero() || now.Before(t.resetAt) || t.remaining > t.margin {
		return
	}
	if t.limit > 0 {
		t.remaining = t.limit
	} else {
		t.remaining = -1
	}
}

// evaluate opens or closes the lock to match the current budget.
func (t *Tracker) evaluate(now time.Time) {
	until := t.blockedUntil(now)
	if until.IsZero() || t.closed {
		if !isOpen(t.lock) {
			close(t.lock)
		}
		return
	}

	if isOpen(t.lock) {
		t.lock = make(chan struct{})
	}
	d := until.Sub(now)
	if t.timer == nil {
		t.timer = time.AfterFunc(d, t.lift)
	} else {
		t.timer.Reset(d)
	}
}

func (t *Tracker) blockedUntil(now time.Time) time.Time {
	var until time.Time
	if now.Before(t.secondaryUntil) {
		until = t.secondaryUntil
	}
	if t.remaining >= 0 && t.remaining <= t.margin && now.Before(t.resetAt) && t.resetAt.After(until) {
		until = t.resetAt
	}
	return until
}

// lift runs when a throttle period ends.
func (t *Tracker) lift() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.rollover(now)
	t.evaluate(now)
}

func isOpen(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
