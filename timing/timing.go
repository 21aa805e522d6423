// Package timing brackets a single call with monotonic timestamps.
//
// Measurements are single-shot: there is no warm-up, repetition or
// averaging. The bracket covers the call and nothing else, so callers must
// do any setup (module lookup, state updates) outside of it.
package timing

import "time"

// Measure calls fn exactly once and reports how long it took in fractional
// milliseconds. The elapsed time is returned even when fn fails, and the
// failure is passed through unchanged.
func Measure[T any](fn func() (T, error)) (T, float64, error) {
	start := time.Now()
	v, err := fn()
	stop := time.Now()

	return v, Millis(stop.Sub(start)), err
}

// Millis converts d to fractional milliseconds, clamping negative
// durations to zero.
func Millis(d time.Duration) float64 {
	if d < 0 {
		return 0
	}

	return float64(d) / float64(time.Millisecond)
}

// Stopwatch is a started timestamp for code that cannot be wrapped in a
// closure.
type Stopwatch struct {
	start time.Time
}

// Start returns a running Stopwatch.
func Start() Stopwatch {
	return Stopwatch{start: time.Now()}
}

// ElapsedMs returns the time since Start in fractional milliseconds.
func (s Stopwatch) ElapsedMs() float64 {
	return Millis(time.Since(s.start))
}
