package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "instabot/pkg/errors"
	"instabot/pkg/logger"
)

// Operation is one attempt of a request.
type Operation func() error

// Sleeper performs the pause between attempts.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (0 means unlimited)
	MaxAttempts int
	// Backoff strategy to use
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// Sleeper waits between attempts; nil uses a real timer
	Sleeper Sleeper
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns the policy used for site requests: three attempts
// with a 30m then a 60m pause between them.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     EscalatingBackoff(30 * time.Minute),
		RetryIf:     DefaultRetryIf,
		Logger:      logger.NewNopLogger(),
	}
}

// DefaultRetryIf retries transient typed errors only.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}

	return false
}

// Do runs op until it succeeds, fails with an error cfg.RetryIf rejects,
// or cfg.MaxAttempts attempts have failed. Nothing is slept after the
// final attempt.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = EscalatingBackoff(30 * time.Minute)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{"attempt": attempt})
			}
			return nil
		}
		if !retryIf(err) {
			return err
		}
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			log.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
				"attempts":   attempt,
				"last_error": err.Error(),
			})
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, err)
		}

		delay := backoff.NextDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		log.WarnWithFields("retrying request", map[string]interface{}{
			"attempt":      attempt,
			"error":        err.Error(),
			"delay":        delay.String(),
			"max_attempts": cfg.MaxAttempts,
		})

		if err := sleep(ctx, cfg.Sleeper, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

func sleep(ctx context.Context, s Sleeper, d time.Duration) error {
	if s != nil {
		return s.Sleep(ctx, d)
	}
	return Wait(ctx, d)
}
