package github

import (
	"errors"

	gh "github.com/google/go-github/v62/github"

	"github.com/pagerguild/prqueue"
	"github.com/pagerguild/prqueue/internal/ratelimit"
)

// rateInfo extracts the rate limit headers of a response.
func rateInfo(resp *gh.Response) *prqueue.RateInfo {
	if resp == nil || resp.Response == nil {
		return nil
	}
	info := ratelimit.FromResponse(resp.Response)
	if !info.Known() {
		return nil
	}
	return &info
}

// classify turns go-github's rate limit errors into the queue's retryable
// errors. Any other error is returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var rle *gh.RateLimitError
	if errors.As(err, &rle) {
		info := ratelimit.FromResponse(rle.Response)
		if !info.Known() {
			info = prqueue.RateInfo{
				Limit:     rle.Rate.Limit,
				Remaining: rle.Rate.Remaining,
				Reset:     rle.Rate.Reset.Time,
			}
		}
		return prqueue.RateLimited(err, info)
	}

	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		info := ratelimit.FromResponse(abuse.Response)
		if abuse.RetryAfter != nil {
			info.RetryAfter = *abuse.RetryAfter
		}
		return prqueue.SecondaryRateLimited(err, info)
	}

	return err
}
