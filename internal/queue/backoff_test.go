package queue_test

import (
	"testing"
	"time"

	"github.com/notifyhub/jobqueue/internal/queue"
)

func TestRetryDelay(t *testing.T) {
	const base = 10 * time.Millisecond

	tests := []struct {
		name       string
		strategy   queue.RetryStrategy
		multiplier float64
		attempt    int
		want       time.Duration
	}{
		{"fixed ignores attempt", queue.RetryFixed, 2, 5, base},
		{"linear attempt 0", queue.RetryLinear, 2, 0, base},
		{"linear attempt 1", queue.RetryLinear, 2, 1, 30 * time.Millisecond},
		{"linear attempt 2", queue.RetryLinear, 2, 2, 50 * time.Millisecond},
		{"exponential attempt 0", queue.RetryExponential, 2, 0, 10 * time.Millisecond},
		{"exponential attempt 1", queue.RetryExponential, 2, 1, 20 * time.Millisecond},
		{"exponential attempt 2", queue.RetryExponential, 2, 2, 40 * time.Millisecond},
		{"exponential multiplier 3", queue.RetryExponential, 3, 2, 90 * time.Millisecond},
		{"unset multiplier defaults to 2", queue.RetryExponential, 0, 3, 80 * time.Millisecond},
		{"unknown strategy acts as fixed", queue.RetryStrategy("random"), 2, 4, base},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := queue.RetryDelay(tc.strategy, base, tc.multiplier, tc.attempt)
			if got != tc.want {
				t.Fatalf("RetryDelay(%s, attempt=%d) = %v, want %v", tc.strategy, tc.attempt, got, tc.want)
			}
		})
	}
}

func TestRetryDelay_ZeroBase(t *testing.T) {
	if got := queue.RetryDelay(queue.RetryExponential, 0, 2, 3); got != 0 {
		t.Fatalf("expected 0 delay for zero base, got %v", got)
	}
}

func TestParseRetryStrategy(t *testing.T) {
	for _, s := range []string{"fixed", "linear", "exponential"} {
		got, err := queue.ParseRetryStrategy(s)
		if err != nil {
			t.Fatalf("ParseRetryStrategy(%q): unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Fatalf("ParseRetryStrategy(%q) = %q", s, got)
		}
	}

	if _, err := queue.ParseRetryStrategy("fibonacci"); err == nil {
		t.Fatal("expected an error for an unknown strategy")
	}
}
