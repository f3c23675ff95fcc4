package watchdog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"wdsched/internal/proc"
	"wdsched/internal/task/scheduler"
	logx "wdsched/pkg/logx"
)

var (
	ErrHandshake = errors.New("watchdog: handshake failed")
	ErrScheduler = errors.New("watchdog: scheduler setup failed")
)

// RunSupervised is the body of the watchdog executable. It monitors the
// workload that spawned it and, once the workload stops answering pings,
// replaces the current process with a fresh workload. It returns only on
// failure or when ctx ends.
func RunSupervised(ctx context.Context, argv []string, opts ...Option) error {
	o := buildOptions(opts)
	a, err := ParseArgs(argv)
	if err != nil {
		return err
	}

	d := &Data{
		Role:      RoleSupervised,
		Interval:  a.Interval,
		Tolerance: a.Tolerance,
		Args:      append([]string(nil), argv...),
		Peer:      proc.PeerPID,
	}
	d.init(o)
	d.Sched = scheduler.New(o.schedulerOptions()...)

	rv, err := OpenRendezvous(o.runtimeDir)
	if err != nil {
		d.Cleanup()
		return err
	}
	d.swapRendezvous(rv)

	stopLive := d.Live.Listen(ctx, PingSignal)
	defer stopLive()
	var stopping atomic.Bool
	stopReq := onSignal(ctx, StopSignal, func() {
		stopping.Store(true)
		d.log.Info("stop requested; cleaning up")
		d.publish(EventStopRequested, "")
		d.Cleanup()
		o.exit(0)
	})
	defer stopReq()

	hctx, cancel := handshakeContext(ctx, o.handshake)
	err = rv.HandshakeSupervised(hctx)
	cancel()
	if err != nil {
		d.Cleanup()
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	d.log.Info("handshake complete", logx.Int("peer", d.Peer()), logx.Duration("interval", d.Interval), logx.Int("tolerance", d.Tolerance))
	d.publish(EventHandshake, "")

	if !d.addTasks(2) {
		d.Cleanup()
		return ErrScheduler
	}

	st := d.Sched.Run(ctx)
	if ctx.Err() != nil || stopping.Load() {
		d.Cleanup()
		return nil
	}
	if st != scheduler.StatusStop {
		d.Cleanup()
		return fmt.Errorf("watchdog: scheduler exited with %s", st)
	}

	dead := d.Peer()
	d.Cleanup()

	m := Marker{
		Reason:      "peer unresponsive",
		DeadPID:     dead,
		RestartedBy: os.Getpid(),
		Workload:    a.Workload[0],
		Timestamp:   time.Now(),
	}
	if err := WriteMarker(MarkerPath(o.runtimeDir), m); err != nil {
		d.log.Warn("restart marker not written", logx.Err(err))
	}
	d.log.Warn("workload unresponsive; restarting workload", logx.String("workload", a.Workload[0]), logx.Int("dead", dead))

	env := proc.WithoutEnv(os.Environ(), proc.PeerEnv)
	return o.replace(a.Workload[0], a.Workload, env)
}

func handshakeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
