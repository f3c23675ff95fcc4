package clock

import (
	"sync"
	"time"
)

// Virtual is a deterministic Clock whose time only moves when something
// waits on it: After(d) advances the clock by d and returns a ready channel.
// A single-goroutine run loop driven by a Virtual clock therefore executes
// instantly while observing exactly the times it asked for.
//
// Virtual is safe for concurrent use.
type Virtual struct {
	mu      sync.Mutex
	current time.Time
	broken  bool
	waited  time.Duration
}

// NewVirtual returns a Virtual clock starting at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{current: start}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.broken {
		return time.Time{}
	}
	return v.current
}

func (v *Virtual) After(d time.Duration) <-chan time.Time {
	v.mu.Lock()
	if d > 0 {
		v.current = v.current.Add(d)
		v.waited += d
	}
	now := v.current
	v.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Advance moves the clock forward without anybody waiting.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	v.current = v.current.Add(d)
	v.mu.Unlock()
}

// Break makes Now report the zero time (a failed clock read) until Repair.
func (v *Virtual) Break() {
	v.mu.Lock()
	v.broken = true
	v.mu.Unlock()
}

func (v *Virtual) Repair() {
	v.mu.Lock()
	v.broken = false
	v.mu.Unlock()
}

// Waited reports the total duration spent in After since creation.
func (v *Virtual) Waited() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.waited
}
