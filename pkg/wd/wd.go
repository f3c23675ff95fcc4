// Package wd is the workload-facing watchdog API: Start once the workload
// is up, Stop before it exits.
//
//	if st := wd.Start(ctx, os.Args, time.Second, 3); st != wd.Success {
//		log.Fatal(st)
//	}
//	defer wd.Stop()
package wd

import (
	"context"
	"errors"
	"sync"
	"time"

	"wdsched/internal/proc"
	"wdsched/internal/watchdog"
)

type Status int

const (
	Success Status = iota
	// AllocFail reports that the watchdog argv could not be prepared: no
	// workload arguments, or a non-positive interval or tolerance. It is
	// the only status returned before any resource is acquired.
	AllocFail
	ExecFailed
	ForkFailed
	SemOpenFailed
	SchedulerFailed
	ThreadCreationFailed
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case AllocFail:
		return "alloc failed"
	case ExecFailed:
		return "exec failed"
	case ForkFailed:
		return "fork failed"
	case SemOpenFailed:
		return "semaphore open failed"
	case SchedulerFailed:
		return "scheduler failed"
	case ThreadCreationFailed:
		return "thread creation failed"
	default:
		return "unknown"
	}
}

// StatusOf maps a Supervisor.Start error to its status code.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, watchdog.ErrArgs):
		// argv preparation is the only step before the rendezvous
		return AllocFail
	case errors.Is(err, watchdog.ErrRendezvous), errors.Is(err, watchdog.ErrHandshake):
		return SemOpenFailed
	case errors.Is(err, proc.ErrExec):
		return ExecFailed
	case errors.Is(err, watchdog.ErrSpawn):
		return ForkFailed
	case errors.Is(err, watchdog.ErrScheduler):
		return SchedulerFailed
	default:
		// ErrMonitor, ErrStarted
		return ThreadCreationFailed
	}
}

var (
	mu      sync.Mutex
	current *watchdog.Supervisor
	lastErr error
)

// Start spawns the watchdog process for the workload started with args
// and begins mutual monitoring. Calling Start again before Stop fails.
func Start(ctx context.Context, args []string, interval time.Duration, tolerance int, opts ...watchdog.Option) Status {
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		lastErr = watchdog.ErrStarted
		return StatusOf(lastErr)
	}

	s := watchdog.NewSupervisor(args, interval, tolerance, opts...)
	lastErr = s.Start(ctx)
	if lastErr != nil {
		return StatusOf(lastErr)
	}
	current = s
	return Success
}

// Err returns the error behind the last non-Success Start.
func Err() error {
	mu.Lock()
	defer mu.Unlock()
	return lastErr
}

// Current returns the running supervisor, if any.
func Current() *watchdog.Supervisor {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// Stop tears down monitoring and asks the watchdog process to exit. It is
// best-effort and a no-op when not started.
func Stop() {
	StopContext(context.Background())
}

func StopContext(ctx context.Context) {
	mu.Lock()
	s := current
	current = nil
	mu.Unlock()
	if s != nil {
		s.Stop(ctx)
	}
}
