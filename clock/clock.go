// Package clock abstracts the wall clock and one-shot timers so that
// refresh, validation and debounce scheduling can be driven in tests.
package clock

import "time"

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop prevents the timer from firing. It reports false if the timer
	// already fired or was stopped.
	Stop() bool
}

// Clock provides the current time and deferred callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
