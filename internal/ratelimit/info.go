package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// GitHub rate limit response headers.
const (
	headerLimit      = "X-RateLimit-Limit"
	headerRemaining  = "X-RateLimit-Remaining"
	headerReset      = "X-RateLimit-Reset"
	headerResource   = "X-RateLimit-Resource"
	headerRetryAfter = "Retry-After"
)

// Info is the rate limit metadata attached to a GitHub API response.
type Info struct {
	Limit     int       // Requests allowed per window
	Remaining int       // Requests left in the current window
	Reset     time.Time // When the current window ends
	Resource  string    // Rate limit resource ("core", "search", ...)

	// RetryAfter is set when the server asked the client to wait, which
	// GitHub does for secondary rate limits.
	RetryAfter time.Duration
}

// FromResponse reads rate limit headers from an HTTP response.
func FromResponse(resp *http.Response) Info {
	if resp == nil {
		return Info{}
	}
	return FromHeader(resp.Header)
}

// FromHeader reads rate limit headers. Missing or malformed headers leave
// the corresponding field at its zero value.
func FromHeader(h http.Header) Info {
	var info Info
	if v, ok := headerInt(h, headerLimit); ok {
		info.Limit = v
	}
	if v, ok := headerInt(h, headerRemaining); ok {
		info.Remaining = v
	}
	if v := h.Get(headerReset); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			info.Reset = time.Unix(epoch, 0)
		}
	}
	if v, ok := headerInt(h, headerRetryAfter); ok && v >= 0 {
		info.RetryAfter = time.Duration(v) * time.Second
	}
	info.Resource = h.Get(headerResource)
	return info
}

// Known reports whether the info carries any budget data.
func (i Info) Known() bool {
	return i.Limit > 0 || !i.Reset.IsZero()
}

// TimeToReset returns how long until the window resets, or zero if it
// already has.
func (i Info) TimeToReset() time.Duration {
	d := time.Until(i.Reset)
	if d < 0 {
		return 0
	}
	return d
}

func headerInt(h http.Header, key string) (int, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
