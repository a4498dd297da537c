// Package retry runs an operation under a bounded exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

type Class int

const (
	Retryable Class = iota
	Fatal
)

// Policy configures Do. MaxRetries counts retries, so fn runs at most MaxRetries+1 times.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration // doubled on every retry
	MaxDelay   time.Duration
	Jitter     time.Duration

	// Classify decides whether an error is retryable. Nil retries every error.
	Classify func(error) Class

	// OnRetry is called before sleeping; attempt is 1-based.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// ErrExhausted wraps the last error once every retry was spent
var ErrExhausted = errors.New("retries exhausted")

type exhaustedError struct {
	attempts int
	last     error
}

func (e *exhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.attempts, e.last)
}

func (e *exhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.last}
}

// Do calls fn until it succeeds, returns a Fatal error, ctx ends, or the policy runs out of retries.
// When retries run out the returned error matches ErrExhausted and the last error via errors.Is/As.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}

	classify := p.Classify
	if classify == nil {
		classify = func(error) Class { return Retryable }
	}

	attempts := p.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if classify(err) == Fatal {
			return err
		}
		if attempt == attempts {
			break
		}

		wait := Backoff(p.BaseDelay, p.MaxDelay, attempt)
		if p.Jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(p.Jitter)))
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return &exhaustedError{attempts: attempts, last: lastErr}
}

// Backoff returns base * 2^(attempt-1), capped at maxDelay
func Backoff(base, maxDelay time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 30 {
		return maxDelay
	}
	wait := base << (attempt - 1)
	if wait > maxDelay || wait <= 0 {
		wait = maxDelay
	}
	return wait
}

// MaxTotalWait is the longest Do can sleep under p, excluding jitter
func MaxTotalWait(p Policy) time.Duration {
	var total time.Duration
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		total += Backoff(p.BaseDelay, p.MaxDelay, attempt)
	}
	return total
}
