package retry

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// NewExponential builds the backoff schedule for a policy. A zero maxElapsed
// lets the schedule run until the caller's retry budget stops it.
func NewExponential(initial, max, maxElapsed time.Duration, multiplier float64) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initial
	exp.MaxInterval = max
	exp.Multiplier = multiplier
	exp.MaxElapsedTime = maxElapsed
	return exp
}

// DelayForAttempt reports the nominal delay before the next try after the
// given one-based attempt, capped at max. Used for logging the upcoming
// delay; the live schedule adds its own jitter.
func DelayForAttempt(attempt int, initial time.Duration, multiplier float64, max time.Duration) time.Duration {
	delay := float64(initial) * math.Pow(multiplier, float64(attempt))
	if delay > float64(max) {
		return max
	}
	return time.Duration(delay)
}
