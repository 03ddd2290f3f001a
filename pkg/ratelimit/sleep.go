package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Sleeper pauses execution. Sleep returns ctx.Err() if the context ends
// before the duration elapses.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// TimerSleeper sleeps on a real timer.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CappedSleeper shortens every pause to at most Max. Dry runs use it so
// that the control flow can be observed without waiting for hours.
type CappedSleeper struct {
	Sleeper Sleeper
	Max     time.Duration
}

func (c CappedSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d > c.Max {
		d = c.Max
	}
	return c.Sleeper.Sleep(ctx, d)
}

// Jitter randomizes delays.
type Jitter struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewJitter creates a jitter source. A zero seed uses the current time.
func NewJitter(seed int64) *Jitter {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Jitter{rnd: rand.New(rand.NewSource(seed))}
}

// Apply returns base stretched by a random factor in [1, 1+deviation).
func (j *Jitter) Apply(base time.Duration, deviation float64) time.Duration {
	j.mu.Lock()
	f := j.rnd.Float64()
	j.mu.Unlock()
	return base + time.Duration(float64(base)*f*deviation)
}

// Intn returns a random int in [0, n).
func (j *Jitter) Intn(n int) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rnd.Intn(n)
}

// Shuffle permutes n elements using swap.
func (j *Jitter) Shuffle(n int, swap func(i, k int)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rnd.Shuffle(n, swap)
}

// ManualClock is a simulated clock whose Sleep advances time instantly.
// It records every requested pause.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewManualClock creates a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *ManualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

// Sleeps returns the recorded pauses.
func (c *ManualClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// Slept returns the total simulated time spent sleeping.
func (c *ManualClock) Slept() time.Duration {
	var total time.Duration
	for _, d := range c.Sleeps() {
		total += d
	}
	return total
}
