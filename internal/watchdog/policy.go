package watchdog

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

var ErrRestartLimit = errors.New("watchdog: restart limit reached")

// RestartPolicy paces peer restarts. The zero value restarts immediately
// and without limit.
type RestartPolicy struct {
	// Limit is the sustained restart rate; 0 means unlimited.
	Limit rate.Limit
	Burst int
	// MaxRestarts caps the total number of restarts; 0 means no cap.
	MaxRestarts int
}

type restarter struct {
	policy RestartPolicy
	lim    *rate.Limiter

	mu    sync.Mutex
	count int
}

func newRestarter(p RestartPolicy) *restarter {
	r := &restarter{policy: p}
	if p.Limit > 0 {
		burst := p.Burst
		if burst <= 0 {
			burst = 1
		}
		r.lim = rate.NewLimiter(p.Limit, burst)
	}
	return r
}

// Wait blocks until another restart is allowed.
func (r *restarter) Wait(ctx context.Context) error {
	r.mu.Lock()
	if r.policy.MaxRestarts > 0 && r.count >= r.policy.MaxRestarts {
		r.mu.Unlock()
		return ErrRestartLimit
	}
	r.count++
	r.mu.Unlock()

	if r.lim == nil {
		return ctx.Err()
	}
	return r.lim.Wait(ctx)
}

func (r *restarter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
