package prqueue

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQueueClosed is returned for submissions after Shutdown and for
	// operations still queued or waiting to retry when Shutdown is called.
	ErrQueueClosed = errors.New("prqueue: queue closed")

	// ErrRateLimitExceeded is returned when an operation was still being
	// rate limited after the retry policy gave up on it.
	ErrRateLimitExceeded = errors.New("prqueue: rate limit exceeded")

	// ErrOperationFailed matches every *OperationError.
	ErrOperationFailed = errors.New("prqueue: operation failed")
)

// OperationError reports a failure of the underlying call that was not a
// rate limit. The queue never retries these.
type OperationError struct {
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("prqueue: operation failed: %v", e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrOperationFailed) hold for every OperationError.
func (e *OperationError) Is(target error) bool {
	return target == ErrOperationFailed
}

// RateLimitError is returned by a thunk to signal that the remote API
// rejected the call because of a rate limit. The queue retries these.
type RateLimitError struct {
	Info      RateInfo
	Secondary bool
	Err       error
}

func (e *RateLimitError) Error() string {
	kind := "primary"
	if e.Secondary {
		kind = "secondary"
	}
	msg := fmt.Sprintf("%s rate limit", kind)
	switch {
	case e.Info.RetryAfter > 0:
		msg += fmt.Sprintf(", retry after %v", e.Info.RetryAfter)
	case !e.Info.Reset.IsZero():
		msg += fmt.Sprintf(", resets at %s", e.Info.Reset.Format(time.RFC3339))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// RateLimited wraps err as a primary rate limit rejection.
func RateLimited(err error, info RateInfo) error {
	return &RateLimitError{Info: info, Err: err}
}

// SecondaryRateLimited wraps err as a secondary rate limit rejection.
func SecondaryRateLimited(err error, info RateInfo) error {
	return &RateLimitError{Info: info, Secondary: true, Err: err}
}

// IsRateLimited reports whether err is, or wraps, a RateLimitError.
func IsRateLimited(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}
