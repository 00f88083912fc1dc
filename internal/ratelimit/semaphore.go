package ratelimit

import (
	"context"
)

// Semaphore type limits concurrency
type Semaphore chan struct{}

// Acquire tries to Acquire a slot in the semaphore with context support.
// If the context expires before a slot is acquired, it returns an error.
func (s Semaphore) Acquire(ctx context.Context) error {
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release a slot in the semaphore
func (s Semaphore) Release() {
	<-s
}

// InUse returns the number of held slots.
func (s Semaphore) InUse() int {
	return len(s)
}

// NewSemaphore creates a new semaphore with a given capacity
func NewSemaphore(length int) Semaphore {
	if length < 1 {
		length = 1
	}
	return make(Semaphore, length)
}
