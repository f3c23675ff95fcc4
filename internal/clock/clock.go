// Package clock abstracts the time source used by tasks and the scheduler
// run loop so timing can be made deterministic in tests.
package clock

import "time"

// Clock is the time source for scheduling decisions.
//
// A Now result equal to the zero time means the clock could not be read;
// callers treat it as a clock failure.
type Clock interface {
	Now() time.Time

	// After returns a channel that receives once d has elapsed. If d <= 0
	// the channel is ready immediately.
	After(d time.Duration) <-chan time.Time
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time {
	if d <= 0 {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	return time.After(d)
}
