// Package retry generalizes the retryDelay/isRetryableError logic from
// the teacher's storage client into a reusable decorator usable by any
// outbound call (LLM, TTS, visual providers).
package retry

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"
)

// ErrMaxAttemptsExceeded wraps the final error once every attempt is
// exhausted.
var ErrMaxAttemptsExceeded = errors.New("retry: max attempts exceeded")

// Policy controls attempt count and backoff shape.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

// DefaultRetryable retries everything except context cancellation.
func DefaultRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// delay returns the exponential backoff with 0-25% jitter for the given
// zero-indexed attempt, capped at MaxDelay. Mirrors the teacher's
// retryDelay in internal/storage/storage.go.
func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay * time.Duration(1<<uint(attempt))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

// Do runs fn, retrying on retryable errors until MaxAttempts is reached
// or ctx is done. The last error is returned, wrapped with
// ErrMaxAttemptsExceeded once attempts are exhausted.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		log.Printf("retry: attempt %d/%d failed: %v", attempt+1, p.MaxAttempts, lastErr)
		if attempt == p.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay(attempt)):
		}
	}
	return errors.Join(ErrMaxAttemptsExceeded, lastErr)
}
