package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/time/rate"
)

func TestFromHeader(t *testing.T) {
	reset := time.Unix(1700000000, 0)
	h := http.Header{}
	h.Set("X-RateLimit-Limit", "5000")
	h.Set("X-RateLimit-Remaining", "4990")
	h.Set("X-RateLimit-Used", "10")
	h.Set("X-RateLimit-Reset", "1700000000")
	h.Set("X-RateLimit-Resource", "core")
	h.Set("Retry-After", "30")

	want := Info{
		Limit:      5000,
		Remaining:  4990,
		Reset:      reset,
		Resource:   "core",
		RetryAfter: 30 * time.Second,
	}
	if diff := cmp.Diff(want, FromHeader(h)); diff != "" {
		t.Errorf("FromHeader() mismatch (-want +got):\n%s", diff)
	}
}

func TestFromHeader_Malformed(t *testing.T) {
	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "lots")
	h.Set("X-RateLimit-Reset", "soon")

	info := FromHeader(h)
	if info.Known() {
		t.Errorf("expected malformed headers to yield unknown info, got %+v", info)
	}
	if got := FromResponse(nil); got.Known() {
		t.Errorf("FromResponse(nil) = %+v, want zero", got)
	}
}

func TestInfo_TimeToReset(t *testing.T) {
	if d := (Info{Reset: time.Now().Add(-time.Minute)}).TimeToReset(); d != 0 {
		t.Errorf("TimeToReset() for a past reset = %v, want 0", d)
	}
	if d := (Info{}).TimeToReset(); d != 0 {
		t.Errorf("TimeToReset() without a reset = %v, want 0", d)
	}
	if d := (Info{Reset: time.Now().Add(time.Minute)}).TimeToReset(); d <= 50*time.Second || d > time.Minute {
		t.Errorf("TimeToReset() = %v, want about a minute", d)
	}
}

func TestLimiter_Pacing(t *testing.T) {
	l := NewLimiter(Config{Rate: rate.Every(20 * time.Millisecond), Burst: 1})
	defer l.Close()

	start := time.Now()
	for range 3 {
		if err := l.Admit(context.Background()); err != nil {
			t.Fatalf("Admit: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("three paced admits took %v, want at least 40ms", elapsed)
	}
}

func TestTransport_LimitsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	l := NewLimiter(Config{MaxConcurrent: 2})
	defer l.Close()
	client := &http.Client{Transport: l.Transport(nil)}

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(server.URL)
			if err != nil {
				t.Errorf("GET: %v", err)
				return
			}
			resp.Body.Close()
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrent requests = %d, want <= 2", got)
	}
}

func TestLimiter_InFlight(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()
	unblock := sync.OnceFunc(func() { close(release) })
	defer unblock()

	l := NewLimiter(Config{MaxConcurrent: 4})
	defer l.Close()
	client := &http.Client{Transport: l.Transport(nil)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := client.Get(server.URL)
		if err != nil {
			t.Errorf("GET: %v", err)
			return
		}
		resp.Body.Close()
	}()

	deadline := time.Now().Add(5 * time.Second)
	for l.InFlight() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("request never took a slot")
		}
		time.Sleep(time.Millisecond)
	}
	unblock()
	<-done
	if n := l.InFlight(); n != 0 {
		t.Errorf("InFlight() = %d after the request finished, want 0", n)
	}
}
