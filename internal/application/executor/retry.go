package executor

import (
	"context"
	"time"

	"github.com/aescanero/dago-workflow/pkg/domain"
)

// RetryConfig scales the backoff declared by an instruction's retry policy
type RetryConfig struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryConfig is used when no retry configuration is supplied
var DefaultRetryConfig = RetryConfig{
	BaseDelay: 200 * time.Millisecond,
	MaxDelay:  10 * time.Second,
}

// Delay returns the wait before retry number attempt (1-based)
func (c RetryConfig) Delay(backoff domain.BackoffStrategy, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var d time.Duration
	switch backoff {
	case domain.BackoffFixed:
		d = c.BaseDelay
	case domain.BackoffLinear:
		d = c.BaseDelay * time.Duration(attempt)
	default:
		shift := attempt - 1
		if shift > 30 {
			shift = 30
		}
		d = c.BaseDelay << uint(shift)
	}

	if c.MaxDelay > 0 && (d > c.MaxDelay || d < 0) {
		d = c.MaxDelay
	}
	return d
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
