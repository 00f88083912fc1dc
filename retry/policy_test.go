package retry_test

import (
	"testing"
	"time"

	"github.com/pagerguild/prqueue/retry"
)

func deterministic(maxAttempts int) *retry.Policy {
	return &retry.Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Second,
		Multiplier:  2,
	}
}

func TestPolicy_ExponentialWithoutHint(t *testing.T) {
	p := deterministic(10)
	now := time.Unix(1700000000, 0)
	d := p.NewDescriptor(1)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second}, // capped at MaxDelay
		{5, 5 * time.Second},
	}
	for _, tt := range tests {
		d.Attempt = tt.attempt
		next, ok := p.Next(d, retry.Hint{}, now)
		if !ok {
			t.Fatalf("Next(attempt %d) aborted, want retry", tt.attempt)
		}
		if got := next.Sub(now); got != tt.want {
			t.Errorf("Next(attempt %d) delay = %v, want %v", tt.attempt, got, tt.want)
		}
		if !d.NextEligible.Equal(next) {
			t.Errorf("NextEligible = %v, want %v", d.NextEligible, next)
		}
	}
}

func TestPolicy_AnchoredToReset(t *testing.T) {
	p := deterministic(5)
	now := time.Unix(1700000000, 0)
	reset := now.Add(30 * time.Second)

	d := p.NewDescriptor(1)
	next, ok := p.Next(d, retry.Hint{Reset: reset}, now)
	if !ok {
		t.Fatal("expected retry")
	}
	if want := reset.Add(time.Second); !next.Equal(want) {
		t.Errorf("Next() = %v, want %v", next, want)
	}
}

func TestPolicy_RetryAfterWinsOverReset(t *testing.T) {
	p := deterministic(5)
	now := time.Unix(1700000000, 0)

	d := p.NewDescriptor(1)
	next, ok := p.Next(d, retry.Hint{Reset: now.Add(time.Hour), RetryAfter: 10 * time.Second}, now)
	if !ok {
		t.Fatal("expected retry")
	}
	if want := now.Add(11 * time.Second); !next.Equal(want) {
		t.Errorf("Next() = %v, want %v", next, want)
	}
}

func TestPolicy_PastResetFallsBack(t *testing.T) {
	p := deterministic(5)
	now := time.Unix(1700000000, 0)

	d := p.NewDescriptor(1)
	next, _ := p.Next(d, retry.Hint{Reset: now.Add(-time.Minute)}, now)
	if want := now.Add(time.Second); !next.Equal(want) {
		t.Errorf("Next() = %v, want %v", next, want)
	}
}

func TestPolicy_AbortsAtMaxAttempts(t *testing.T) {
	p := deterministic(3)
	now := time.Now()
	d := p.NewDescriptor(1)

	for attempt := 1; attempt < 3; attempt++ {
		d.Attempt = attempt
		if _, ok := p.Next(d, retry.Hint{}, now); !ok {
			t.Fatalf("attempt %d aborted, want retry", attempt)
		}
	}

	d.Attempt = 3
	if _, ok := p.Next(d, retry.Hint{}, now); ok {
		t.Fatal("expected abort after MaxAttempts attempts")
	}
}

func TestPolicy_Jitter(t *testing.T) {
	p := retry.Default()
	now := time.Now()

	for range 50 {
		d := p.NewDescriptor(1)
		next, ok := p.Next(d, retry.Hint{}, now)
		if !ok {
			t.Fatal("expected retry")
		}
		delay := next.Sub(now)
		if delay < 500*time.Millisecond || delay > 1500*time.Millisecond {
			t.Fatalf("first delay %v outside [0.5s, 1.5s]", delay)
		}
	}
}
