package llm

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"
)

// RetryPolicy bounds how a failed LLM call is retried. The zero value
// never retries.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Delay is the fixed pause between attempts.
	Delay time.Duration
	// TimeoutOnly limits retries to timeout-class errors; other
	// failures are returned immediately.
	TimeoutOnly bool
}

// DefaultRetryPolicy matches the service's needs: one retry after a 2s
// pause, and only when the first call timed out.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		Delay:       2 * time.Second,
		TimeoutOnly: true,
	}
}

// Do runs fn under the policy.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			log.Printf("[LLM] attempt %d/%d after %v", attempt, attempts, p.Delay)
			select {
			case <-time.After(p.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if p.TimeoutOnly && !isTimeout(err) {
			return err
		}
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out")
}
