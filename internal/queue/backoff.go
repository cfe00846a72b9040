package queue

import (
	"fmt"
	"math"
	"time"
)

// RetryStrategy selects how the delay before a retry grows.
type RetryStrategy string

const (
	RetryFixed       RetryStrategy = "fixed"
	RetryLinear      RetryStrategy = "linear"
	RetryExponential RetryStrategy = "exponential"
)

// DefaultRetryMultiplier applies when Options.RetryMultiplier is unset.
const DefaultRetryMultiplier = 2.0

func (s RetryStrategy) IsValid() bool {
	switch s {
	case RetryFixed, RetryLinear, RetryExponential:
		return true
	}
	return false
}

// ParseRetryStrategy accepts the lowercase strategy names.
func ParseRetryStrategy(s string) (RetryStrategy, error) {
	rs := RetryStrategy(s)
	if !rs.IsValid() {
		return "", fmt.Errorf("unknown retry strategy %q: must be fixed, linear, or exponential", s)
	}
	return rs, nil
}

// RetryDelay computes the wait before re-queuing an item whose attempt
// (0-based) just failed:
//
//	fixed:       base
//	linear:      base * (1 + attempt*multiplier)
//	exponential: base * multiplier^attempt
//
// A non-positive multiplier falls back to DefaultRetryMultiplier and an
// unknown strategy behaves like fixed.
func RetryDelay(strategy RetryStrategy, base time.Duration, multiplier float64, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if multiplier <= 0 {
		multiplier = DefaultRetryMultiplier
	}
	if attempt < 0 {
		attempt = 0
	}

	var factor float64
	switch strategy {
	case RetryLinear:
		factor = 1 + float64(attempt)*multiplier
	case RetryExponential:
		factor = math.Pow(multiplier, float64(attempt))
	default:
		return base
	}

	d := float64(base) * factor
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}
