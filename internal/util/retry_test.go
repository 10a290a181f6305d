package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		maxTries  int
		failUntil int
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "succeeds first try",
			maxTries:  3,
			failUntil: 0,
			wantCalls: 1,
			wantErr:   false,
		},
		{
			name:      "succeeds after failures",
			maxTries:  3,
			failUntil: 2,
			wantCalls: 3,
			wantErr:   false,
		},
		{
			name:      "exhausts retries",
			maxTries:  2,
			failUntil: 5,
			wantCalls: 2,
			wantErr:   true,
		},
		{
			name:      "zero maxTries defaults to one",
			maxTries:  0,
			failUntil: 0,
			wantCalls: 1,
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := Retry(tt.maxTries, func() (int, error) {
				calls++
				if calls <= tt.failUntil {
					return 0, errors.New("boom")
				}
				return 42, nil
			})
			if calls != tt.wantCalls {
				t.Errorf("Retry() made %d calls, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("Retry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != 42 {
				t.Errorf("Retry() = %d, want 42", got)
			}
		})
	}
}

func TestRetryWithContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := RetryWithContext(ctx, 3, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RetryWithContext() error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("RetryWithContext() made %d calls after cancel, want 0", calls)
	}
}

func TestRetryIfWithDelay(t *testing.T) {
	retryable := errors.New("transient")
	fatal := errors.New("fatal")

	t.Run("retries only matching errors", func(t *testing.T) {
		calls := 0
		got, err := RetryIfWithDelay(context.Background(), 3, time.Millisecond,
			func(err error) bool { return errors.Is(err, retryable) },
			func(context.Context) (string, error) {
				calls++
				if calls < 3 {
					return "", retryable
				}
				return "ok", nil
			})
		if err != nil {
			t.Fatalf("RetryIfWithDelay() error = %v", err)
		}
		if got != "ok" || calls != 3 {
			t.Errorf("RetryIfWithDelay() = %q after %d calls, want \"ok\" after 3", got, calls)
		}
	})

	t.Run("non-matching error aborts immediately", func(t *testing.T) {
		calls := 0
		_, err := RetryIfWithDelay(context.Background(), 3, time.Millisecond,
			func(err error) bool { return errors.Is(err, retryable) },
			func(context.Context) (string, error) {
				calls++
				return "", fatal
			})
		if !errors.Is(err, fatal) {
			t.Errorf("RetryIfWithDelay() error = %v, want fatal", err)
		}
		if calls != 1 {
			t.Errorf("RetryIfWithDelay() made %d calls, want 1", calls)
		}
	})

	t.Run("exhausts retries", func(t *testing.T) {
		calls := 0
		_, err := RetryIfWithDelay(context.Background(), 2, 0,
			func(error) bool { return true },
			func(context.Context) (int, error) {
				calls++
				return 0, retryable
			})
		if !errors.Is(err, retryable) {
			t.Errorf("RetryIfWithDelay() error = %v, want transient", err)
		}
		if calls != 2 {
			t.Errorf("RetryIfWithDelay() made %d calls, want 2", calls)
		}
	})
}
