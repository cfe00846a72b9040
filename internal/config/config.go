package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/notifyhub/jobqueue/internal/queue"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a default; DATABASE_URL is optional and switches outcome
// history from memory to PostgreSQL.
type Config struct {
	// Server
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"2"`

	// External provider
	ProviderBaseURL string        `env:"PROVIDER_BASE_URL" envDefault:"http://localhost:9090/deliver"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`

	// Queue
	QueueConcurrency     int           `env:"QUEUE_CONCURRENCY" envDefault:"4"`
	QueueMaxRetries      int           `env:"QUEUE_MAX_RETRIES" envDefault:"3"`
	QueueRetryDelay      time.Duration `env:"QUEUE_RETRY_DELAY" envDefault:"1s"`
	QueueRetryStrategy   string        `env:"QUEUE_RETRY_STRATEGY" envDefault:"exponential"`
	QueueRetryMultiplier float64       `env:"QUEUE_RETRY_MULTIPLIER" envDefault:"2"`
	QueueStartPaused     bool          `env:"QUEUE_START_PAUSED" envDefault:"false"`

	// Rate limiting: maximum deliveries per second per topic
	RateLimitPerTopic int `env:"RATE_LIMIT_PER_TOPIC" envDefault:"50"`

	// Background workers
	StatsInterval  time.Duration `env:"STATS_INTERVAL" envDefault:"15s"`
	RecorderBuffer int           `env:"RECORDER_BUFFER" envDefault:"1024"`
}

// Load reads an optional .env file, then parses the environment.
func Load() (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.QueueConcurrency < 1 {
		errs = append(errs, fmt.Errorf("QUEUE_CONCURRENCY must be at least 1, got %d", c.QueueConcurrency))
	}
	if c.QueueMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("QUEUE_MAX_RETRIES must not be negative, got %d", c.QueueMaxRetries))
	}
	if c.QueueRetryDelay < 0 {
		errs = append(errs, fmt.Errorf("QUEUE_RETRY_DELAY must not be negative, got %s", c.QueueRetryDelay))
	}
	if _, err := queue.ParseRetryStrategy(c.QueueRetryStrategy); err != nil {
		errs = append(errs, fmt.Errorf("QUEUE_RETRY_STRATEGY: %w", err))
	}
	if c.RateLimitPerTopic < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_TOPIC must be at least 1, got %d", c.RateLimitPerTopic))
	}
	if c.StatsInterval <= 0 {
		errs = append(errs, fmt.Errorf("STATS_INTERVAL must be positive, got %s", c.StatsInterval))
	}
	if c.RecorderBuffer < 1 {
		errs = append(errs, fmt.Errorf("RECORDER_BUFFER must be at least 1, got %d", c.RecorderBuffer))
	}
	return errors.Join(errs...)
}

// QueueOptions converts the QUEUE_* settings into queue.Options.
func (c *Config) QueueOptions() (queue.Options, error) {
	strategy, err := queue.ParseRetryStrategy(c.QueueRetryStrategy)
	if err != nil {
		return queue.Options{}, err
	}
	opts := queue.DefaultOptions()
	opts.Concurrency = c.QueueConcurrency
	opts.MaxRetries = c.QueueMaxRetries
	opts.RetryDelay = c.QueueRetryDelay
	opts.RetryStrategy = strategy
	opts.RetryMultiplier = c.QueueRetryMultiplier
	opts.Paused = c.QueueStartPaused
	return opts, nil
}
