// Package poll waits for a condition by checking it at a fixed interval.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrTimeout is returned when the condition was not met within the allowed
// number of attempts.
var ErrTimeout = errors.New("poll: condition not met")

// Policy bounds a polling loop. A MaxAttempts of zero or less polls until the
// context ends.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPolicy checks every 100ms for up to 10s.
var DefaultPolicy = Policy{
	Interval:    100 * time.Millisecond,
	MaxAttempts: 100,
}

// Until calls cond until it returns true. It sleeps p.Interval on clock
// between attempts.
func Until(ctx context.Context, clock clockwork.Clock, p Policy, cond func() bool) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPolicy.Interval
	}

	for attempt := 1; ; attempt++ {
		if cond() {
			return nil
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return fmt.Errorf("%w after %d attempts", ErrTimeout, attempt)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(interval):
		}
	}
}
