package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/notifyhub/jobqueue/internal/config"
	"github.com/notifyhub/jobqueue/internal/queue"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.QueueConcurrency != 4 || cfg.QueueMaxRetries != 3 {
		t.Fatalf("unexpected queue defaults: %+v", cfg)
	}
	if cfg.QueueRetryDelay != time.Second || cfg.QueueRetryStrategy != "exponential" {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/jobs")
	t.Setenv("QUEUE_CONCURRENCY", "8")
	t.Setenv("QUEUE_MAX_RETRIES", "0")
	t.Setenv("QUEUE_RETRY_DELAY", "250ms")
	t.Setenv("QUEUE_RETRY_STRATEGY", "linear")
	t.Setenv("QUEUE_RETRY_MULTIPLIER", "1.5")
	t.Setenv("QUEUE_START_PAUSED", "true")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != "9000" || cfg.DatabaseURL == "" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	opts, err := cfg.QueueOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := queue.DefaultOptions()
	want.Concurrency = 8
	want.MaxRetries = 0
	want.RetryDelay = 250 * time.Millisecond
	want.RetryStrategy = queue.RetryLinear
	want.RetryMultiplier = 1.5
	want.Paused = true
	if opts != want {
		t.Fatalf("QueueOptions = %+v, want %+v", opts, want)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"zero concurrency", "QUEUE_CONCURRENCY", "0", "QUEUE_CONCURRENCY"},
		{"negative retries", "QUEUE_MAX_RETRIES", "-1", "QUEUE_MAX_RETRIES"},
		{"unknown strategy", "QUEUE_RETRY_STRATEGY", "random", "QUEUE_RETRY_STRATEGY"},
		{"zero rate limit", "RATE_LIMIT_PER_TOPIC", "0", "RATE_LIMIT_PER_TOPIC"},
		{"unparsable duration", "QUEUE_RETRY_DELAY", "soon", "parse environment"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := config.Load()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}
