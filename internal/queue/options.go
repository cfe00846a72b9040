package queue

import "time"

// Options configures a Manager. Start from DefaultOptions and override.
type Options struct {
	// Concurrency bounds how many job functions may be in flight at once.
	Concurrency int
	// MaxRetries is the number of retries after the first attempt.
	// Zero disables retrying.
	MaxRetries      int
	RetryDelay      time.Duration
	RetryStrategy   RetryStrategy
	RetryMultiplier float64
	// Paused starts the manager without admitting work until Resume.
	Paused bool

	// RearmInterval is how soon the dispatcher re-checks a busy queue
	// without being woken by an event.
	RearmInterval time.Duration
	// ErrorBackoff is the pause after an unexpected dispatcher failure.
	ErrorBackoff time.Duration
	// SampleSize is the rolling window length for wait/process averages.
	SampleSize int
}

// DefaultOptions returns one worker and three retries with a fixed one
// second delay.
func DefaultOptions() Options {
	return Options{
		Concurrency:     1,
		MaxRetries:      3,
		RetryDelay:      time.Second,
		RetryStrategy:   RetryFixed,
		RetryMultiplier: DefaultRetryMultiplier,
		RearmInterval:   100 * time.Millisecond,
		ErrorBackoff:    time.Second,
		SampleSize:      100,
	}
}

// normalize fills unset tuning fields. MaxRetries and RetryDelay keep their
// zero values since both are meaningful.
func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if !o.RetryStrategy.IsValid() {
		o.RetryStrategy = def.RetryStrategy
	}
	if o.RetryMultiplier <= 0 {
		o.RetryMultiplier = def.RetryMultiplier
	}
	if o.RearmInterval <= 0 {
		o.RearmInterval = def.RearmInterval
	}
	if o.ErrorBackoff <= 0 {
		o.ErrorBackoff = def.ErrorBackoff
	}
	if o.SampleSize < 1 {
		o.SampleSize = def.SampleSize
	}
	return o
}
