package retry

import (
	"context"
	"time"
)

// BackoffStrategy yields the pause before the next attempt.
type BackoffStrategy interface {
	// NextDelay is called with the number of the attempt that just failed,
	// starting at 1.
	NextDelay(attempt int) time.Duration
}

// Escalating pauses Base times the failed attempt number, so that a site
// that keeps answering 429 is given progressively longer to recover.
// Max caps the pause; zero leaves it uncapped.
type Escalating struct {
	Base time.Duration
	Max  time.Duration
}

// EscalatingBackoff waits base, 2*base, 3*base and so on, without jitter.
func EscalatingBackoff(base time.Duration) *Escalating {
	return &Escalating{Base: base}
}

func (e *Escalating) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := e.Base * time.Duration(attempt)
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// ConstantBackoff pauses the same Delay after every failure.
type ConstantBackoff struct {
	Delay time.Duration
}

func (c *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return c.Delay
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
