package ratelimit

import (
	"net/http"
)

// Transport is an http.RoundTripper that holds a semaphore slot for the
// duration of each request.
type Transport struct {
	base      http.RoundTripper
	semaphore Semaphore
}

var _ http.RoundTripper = (*Transport)(nil)

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.semaphore.Acquire(req.Context()); err != nil {
		return nil, err
	}
	defer t.semaphore.Release()
	return t.base.RoundTrip(req)
}
