package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 3 || cfg.InitialDelay != 100*time.Millisecond || cfg.MaxDelay != 5*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Multiplier != 2.0 || cfg.JitterFactor != 0.1 {
		t.Errorf("unexpected growth settings: %+v", cfg)
	}
}

func TestDo(t *testing.T) {
	errRefused := errors.New("connection refused")

	tests := []struct {
		name      string
		failures  int // calls that fail before the first success
		cfg       Config
		wantErr   bool
		wantCalls int
		wantWaits []time.Duration
	}{
		{
			name:      "first ping succeeds",
			cfg:       Config{MaxRetries: 3, InitialDelay: 100 * time.Millisecond, Multiplier: 2},
			wantCalls: 1,
		},
		{
			name:      "database comes up on third ping",
			failures:  2,
			cfg:       Config{MaxRetries: 3, InitialDelay: 100 * time.Millisecond, Multiplier: 2},
			wantCalls: 3,
			wantWaits: []time.Duration{100 * time.Millisecond, 200 * time.Millisecond},
		},
		{
			name:      "retries exhausted",
			failures:  10,
			cfg:       Config{MaxRetries: 2, InitialDelay: time.Second, Multiplier: 2},
			wantErr:   true,
			wantCalls: 3,
			wantWaits: []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:      "delay capped",
			failures:  10,
			cfg:       Config{MaxRetries: 4, InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2},
			wantErr:   true,
			wantCalls: 5,
			wantWaits: []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewFakeClock(time.Unix(0, 0))
			cfg := tt.cfg
			cfg.Clock = clock

			calls := 0
			err := Do(context.Background(), &cfg, func() error {
				calls++
				if calls <= tt.failures {
					return errRefused
				}
				return nil
			})

			if tt.wantErr {
				if !errors.Is(err, errRefused) {
					t.Errorf("expected last error to be returned, got %v", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
			if calls != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls)
			}
			waits := clock.Waits()
			if len(waits) != len(tt.wantWaits) {
				t.Fatalf("expected waits %v, got %v", tt.wantWaits, waits)
			}
			for i := range waits {
				if waits[i] != tt.wantWaits[i] {
					t.Errorf("wait %d: expected %v, got %v", i, tt.wantWaits[i], waits[i])
				}
			}
		})
	}
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxRetries: 5, InitialDelay: time.Hour}

	calls := 0
	err := Do(ctx, cfg, func() error {
		calls++
		cancel()
		return errors.New("connection refused")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestDo_JitterStaysInBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := applyJitter(time.Second, 0.1)
		if d < 900*time.Millisecond || d > 1100*time.Millisecond {
			t.Fatalf("jittered delay %v outside +/-10%%", d)
		}
	}
	if d := applyJitter(time.Second, 0); d != time.Second {
		t.Errorf("expected no jitter, got %v", d)
	}
}

func TestDoWithResult_KeepsLastResult(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	cfg := &Config{MaxRetries: 1, InitialDelay: time.Millisecond, Clock: clock}

	calls := 0
	result, err := DoWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		return calls, errors.New("still starting")
	})

	if err == nil {
		t.Fatal("expected error after retries")
	}
	if result != 2 {
		t.Errorf("expected last result 2, got %d", result)
	}
}

func TestDoWithResult_Success(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	cfg := &Config{MaxRetries: 3, InitialDelay: time.Millisecond, Clock: clock}

	calls := 0
	version, err := DoWithResult(context.Background(), cfg, func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("the database system is starting up")
		}
		return "16.4", nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if version != "16.4" {
		t.Errorf("expected 16.4, got %q", version)
	}
}

func TestPoll_DoneOnFirstCall(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	cfg := &PollConfig{Interval: 5 * time.Second, Clock: clock}

	callCount := 0
	err := Poll(context.Background(), cfg, func(ctx context.Context) (bool, error) {
		callCount++
		return true, nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if len(clock.Waits()) != 0 {
		t.Errorf("expected no waits, got %v", clock.Waits())
	}
}

func TestPoll_FixedIntervalUntilDone(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	cfg := FixedInterval(5 * time.Second)
	cfg.Clock = clock

	callCount := 0
	err := Poll(context.Background(), cfg, func(ctx context.Context) (bool, error) {
		callCount++
		return callCount == 3, nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
	waits := clock.Waits()
	if len(waits) != 2 || waits[0] != 5*time.Second || waits[1] != 5*time.Second {
		t.Errorf("expected two 5s waits, got %v", waits)
	}
}

func TestPoll_ErrorStopsImmediately(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	cfg := &PollConfig{Interval: time.Second, Clock: clock}

	expectedErr := errors.New("describe failed")
	callCount := 0
	err := Poll(context.Background(), cfg, func(ctx context.Context) (bool, error) {
		callCount++
		return false, expectedErr
	})

	if err != expectedErr {
		t.Errorf("expected %v, got %v", expectedErr, err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestPoll_MaxAttempts(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	cfg := &PollConfig{Interval: time.Second, MaxAttempts: 4, Clock: clock}

	callCount := 0
	err := Poll(context.Background(), cfg, func(ctx context.Context) (bool, error) {
		callCount++
		return false, nil
	})

	if !errors.Is(err, ErrPollExhausted) {
		t.Errorf("expected ErrPollExhausted, got %v", err)
	}
	if callCount != 4 {
		t.Errorf("expected 4 calls, got %d", callCount)
	}
}

func TestPoll_BackoffCappedAtMaxInterval(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	cfg := &PollConfig{
		Interval:    time.Second,
		MaxInterval: 3 * time.Second,
		Multiplier:  2.0,
		Clock:       clock,
	}

	callCount := 0
	err := Poll(context.Background(), cfg, func(ctx context.Context) (bool, error) {
		callCount++
		return callCount == 5, nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	expected := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	waits := clock.Waits()
	if len(waits) != len(expected) {
		t.Fatalf("expected %d waits, got %v", len(expected), waits)
	}
	for i, want := range expected {
		if waits[i] != want {
			t.Errorf("wait %d: expected %v, got %v", i, want, waits[i])
		}
	}
}

func TestPoll_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &PollConfig{Interval: time.Hour}

	callCount := 0
	err := Poll(ctx, cfg, func(ctx context.Context) (bool, error) {
		callCount++
		cancel()
		return false, nil
	})

	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}
