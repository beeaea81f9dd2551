package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0-1.0, default 0.1 for +/-10% jitter
	Clock        Clock   // nil means the system clock
}

// DefaultConfig returns sensible defaults for connecting to backing services
// 3 retries with 100ms initial delay, capped at 5s, doubling each time, with 10% jitter
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// applyJitter adds random jitter to a delay.
// Jitter is calculated as: delay +/- (delay * jitterFactor * random(-1 to +1))
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// nextDelay grows delay by multiplier, capped at max. A multiplier <= 1
// keeps the delay fixed.
func nextDelay(delay time.Duration, multiplier float64, max time.Duration) time.Duration {
	if multiplier > 1 {
		delay = time.Duration(float64(delay) * multiplier)
	}
	if max > 0 && delay > max {
		delay = max
	}
	return delay
}

// Do executes fn with exponential backoff retry logic
// Returns nil on success, or last error after all retries exhausted
// Respects context cancellation during wait periods
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult executes fn and returns both result and error
// Useful for functions that return values (like pgxpool.New)
// Respects context cancellation during wait periods
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := clockOrSystem(cfg.Clock)

	var result T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}

		lastErr = err
		result = r // Keep last result even on error

		if attempt < cfg.MaxRetries {
			select {
			case <-clock.After(applyJitter(delay, cfg.JitterFactor)):
				delay = nextDelay(delay, cfg.Multiplier, cfg.MaxDelay)
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	return result, lastErr
}

// ============================================================================
// Status polling
// ============================================================================

// ErrPollExhausted is returned when a bounded poll runs out of attempts.
var ErrPollExhausted = errors.New("poll attempts exhausted")

// PollConfig controls how often a remote status is re-read.
type PollConfig struct {
	Interval     time.Duration
	MaxInterval  time.Duration
	Multiplier   float64 // <= 1 keeps the interval fixed
	JitterFactor float64
	MaxAttempts  int   // 0 means poll until done, failed, or cancelled
	Clock        Clock // nil means the system clock
}

// FixedInterval polls at a constant interval with no attempt ceiling.
func FixedInterval(d time.Duration) *PollConfig {
	return &PollConfig{Interval: d}
}

// Poll calls fn until it reports done, returns an error, the attempt budget
// runs out, or ctx is cancelled. The first call happens immediately.
func Poll(ctx context.Context, cfg *PollConfig, fn func(ctx context.Context) (bool, error)) error {
	if cfg == nil {
		cfg = FixedInterval(5 * time.Second)
	}
	clock := clockOrSystem(cfg.Clock)
	delay := cfg.Interval

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			return ErrPollExhausted
		}

		select {
		case <-clock.After(applyJitter(delay, cfg.JitterFactor)):
			delay = nextDelay(delay, cfg.Multiplier, cfg.MaxInterval)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
