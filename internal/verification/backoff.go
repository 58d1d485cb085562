package verification

import (
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultBaseDelay = 60 * time.Second
	defaultMaxDelay  = time.Hour
)

// Backoff computes the delay before a verification attempt: base * 2^(attempt-1), capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before the given attempt. Attempts start at 1.
func (b Backoff) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = defaultBaseDelay
	}
	maxDelay := b.Max
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	if attempt < 1 {
		attempt = 1
	}

	policy := retry.WithCappedDuration(maxDelay, retry.NewExponential(base))
	delay := base
	for i := 0; i < attempt; i++ {
		next, stop := policy.Next()
		if stop {
			break
		}
		if next <= 0 || next >= maxDelay {
			return maxDelay
		}
		delay = next
	}
	return delay
}
