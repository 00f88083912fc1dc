// Package retry decides when an operation rejected by a rate limit may run
// again. Delays grow exponentially with jitter and are anchored to the reset
// time reported by the server whenever one is known.
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy defaults.
const (
	DefaultMaxAttempts         = 4
	DefaultBaseDelay           = time.Second
	DefaultMaxDelay            = time.Minute
	DefaultMultiplier          = 2.0
	DefaultRandomizationFactor = 0.5
)

// Policy computes retry times for rate limited operations. A Policy is
// immutable once in use and safe for concurrent use; per-operation state
// lives in a Descriptor.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first,
	// before the operation is aborted.
	MaxAttempts int

	// BaseDelay is the first backoff interval.
	BaseDelay time.Duration

	// MaxDelay caps a single backoff interval.
	MaxDelay time.Duration

	// Multiplier grows the interval after every retry.
	Multiplier float64

	// RandomizationFactor spreads each interval over
	// [d*(1-f), d*(1+f)]. Zero gives deterministic delays.
	RandomizationFactor float64
}

// Default returns the policy used when none is configured.
func Default() *Policy {
	return &Policy{
		MaxAttempts:         DefaultMaxAttempts,
		BaseDelay:           DefaultBaseDelay,
		MaxDelay:            DefaultMaxDelay,
		Multiplier:          DefaultMultiplier,
		RandomizationFactor: DefaultRandomizationFactor,
	}
}

// Hint carries what the server said about when to come back.
type Hint struct {
	Reset      time.Time     // primary window reset
	RetryAfter time.Duration // secondary limit cooldown
}

// Descriptor is the retry state of one operation. It exists from the first
// rate limited attempt until the operation settles.
type Descriptor struct {
	Attempt      int       // completed attempts
	NextEligible time.Time // earliest time the next attempt may start

	bo *backoff.ExponentialBackOff
}

// NewDescriptor starts tracking retries for an operation that has already
// made attempts attempts.
func (p *Policy) NewDescriptor(attempts int) *Descriptor {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.MaxInterval = p.MaxDelay
	bo.Multiplier = p.Multiplier
	bo.RandomizationFactor = p.RandomizationFactor
	bo.Reset()
	return &Descriptor{Attempt: attempts, bo: bo}
}

// Next records that d's operation was rate limited and returns when it may
// run again. It returns false once the operation has used MaxAttempts
// attempts; the caller must then fail the operation.
func (p *Policy) Next(d *Descriptor, hint Hint, now time.Time) (time.Time, bool) {
	if d.Attempt >= p.maxAttempts() {
		return time.Time{}, false
	}

	anchor := now
	switch {
	case hint.RetryAfter > 0:
		anchor = now.Add(hint.RetryAfter)
	case hint.Reset.After(now):
		anchor = hint.Reset
	}

	delay := d.bo.NextBackOff()
	if delay == backoff.Stop || delay < 0 {
		delay = p.MaxDelay
	}

	d.NextEligible = anchor.Add(delay)
	return d.NextEligible, true
}

func (p *Policy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}
