package cache

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a fetch failure as transient. The registry client
// wraps network timeouts and 5xx responses with it; anything else (bad
// input, 404s) fails immediately.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as transient. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is marked transient anywhere in its chain.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

const retryAttempts = 3

// RetryWithBackoff runs fn up to three times, doubling the delay between
// attempts starting at one second. Only transient errors retry; the delay
// wait respects ctx cancellation.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	delay := time.Second
	var lastErr error

	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if attempt < retryAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
