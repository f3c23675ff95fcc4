package watchdog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"wdsched/internal/proc"
	rtsup "wdsched/internal/runtime/supervisor"
	"wdsched/internal/task"
	"wdsched/internal/task/scheduler"
	logx "wdsched/pkg/logx"
)

var (
	ErrSpawn   = errors.New("watchdog: spawn failed")
	ErrMonitor = errors.New("watchdog: monitor not started")
	ErrStarted = errors.New("watchdog: already started")
)

// Supervisor is the workload side: it spawns the watchdog executable,
// monitors it and spawns a new one whenever it stops answering.
type Supervisor struct {
	o        *options
	data     *Data
	workload []string
	wdArgv   []string
	restarts *restarter

	child atomic.Pointer[proc.Child]

	mu       sync.Mutex
	started  bool
	stopped  bool
	rt       *rtsup.Supervisor
	stopLive func()
}

// NewSupervisor prepares a supervisor for the workload started with args.
func NewSupervisor(args []string, interval time.Duration, tolerance int, opts ...Option) *Supervisor {
	o := buildOptions(opts)
	s := &Supervisor{
		o:        o,
		workload: append([]string(nil), args...),
		restarts: newRestarter(o.policy),
	}
	s.data = &Data{
		Role:      RoleSupervisor,
		Interval:  interval,
		Tolerance: tolerance,
		Peer:      s.childPID,
	}
	s.data.init(o)
	return s
}

func (s *Supervisor) childPID() int {
	if c := s.child.Load(); c != nil {
		return c.Pid()
	}
	return 0
}

// Child returns the current supervised process, if any.
func (s *Supervisor) Child() *proc.Child { return s.child.Load() }

func (s *Supervisor) Restarts() int { return s.restarts.Count() }

// Snapshot reports the monitor scheduler's queue. It is empty before Start.
func (s *Supervisor) Snapshot() scheduler.Snapshot {
	s.mu.Lock()
	sched := s.data.Sched
	s.mu.Unlock()
	if sched != nil {
		return sched.Snapshot()
	}
	return scheduler.Snapshot{}
}

// Start spawns the supervised process, completes the handshake and starts
// the monitor goroutine. Each failure wraps a distinct sentinel: ErrArgs,
// ErrRendezvous, ErrSpawn (wrapping proc.ErrExec or proc.ErrFork),
// ErrHandshake, ErrScheduler or ErrMonitor.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	s.started = true

	d := s.data
	if d.Interval <= 0 || d.Tolerance <= 0 || len(s.workload) == 0 {
		return fmt.Errorf("%w: interval=%s tolerance=%d args=%d", ErrArgs, d.Interval, d.Tolerance, len(s.workload))
	}
	if exe, err := proc.Executable(); err == nil {
		s.workload[0] = exe
	}
	s.wdArgv = BuildArgs(s.o.executable, d.Interval, d.Tolerance, s.workload)
	d.Args = s.wdArgv
	s.reportRestartMarker()

	d.Sched = scheduler.New(s.o.schedulerOptions()...)
	s.stopLive = d.Live.Listen(context.Background(), PingSignal)

	if err := s.spawnPeer(ctx); err != nil {
		s.abort()
		return err
	}

	// the first check waits one extra interval for the new peer to settle
	if !d.addTasks(3) || !s.addServiceWatchdog() {
		s.abort()
		return ErrScheduler
	}

	if ctx.Err() != nil {
		s.abort()
		return fmt.Errorf("%w: %v", ErrMonitor, ctx.Err())
	}
	s.rt = rtsup.NewSupervisor(ctx, rtsup.WithLogger(d.log))
	s.rt.Go("watchdog.monitor", s.monitor)

	if s.o.notifier != nil {
		if err := s.o.notifier.Ready(); err != nil {
			d.log.Warn("service manager notify failed", logx.Err(err))
		}
	}
	d.log.Info("watchdog started", logx.Int("peer", s.childPID()), logx.String("executable", s.o.executable))
	d.publish(EventStarted, s.o.executable)
	return nil
}

func (s *Supervisor) reportRestartMarker() {
	m, ok, err := TakeMarker(MarkerPath(s.o.runtimeDir), s.o.markerAge, time.Now())
	if err != nil {
		s.data.log.Warn("restart marker unreadable", logx.Err(err))
		return
	}
	if !ok {
		return
	}
	s.data.log.Warn("workload was restarted by watchdog",
		logx.Int("dead", m.DeadPID),
		logx.Int("restarted_by", m.RestartedBy),
		logx.String("reason", m.Reason),
		logx.Time("at", m.Timestamp),
	)
	s.o.rec.PeerRestarted()
	s.data.publish(EventPeerRestarted, "workload restarted by watchdog")
}

// spawnPeer replaces any previous peer with a fresh one behind a fresh
// rendezvous and waits for its handshake.
func (s *Supervisor) spawnPeer(ctx context.Context) error {
	d := s.data
	if old := s.child.Load(); old != nil && !old.Exited() {
		_ = proc.Signal(old.Pid(), syscall.SIGKILL)
	}
	if err := d.swapRendezvous(nil).Unlink(); err != nil {
		d.log.Warn("stale rendezvous cleanup failed", logx.Err(err))
	}

	rv, err := CreateRendezvous(s.o.runtimeDir)
	if err != nil {
		return err
	}
	d.swapRendezvous(rv)

	child, err := proc.Spawn(s.o.executable, s.wdArgv,
		proc.PeerEnvEntry(os.Getpid()),
		RuntimeDirEnv+"="+s.o.runtimeDir,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	s.child.Store(child)

	hctx, cancel := handshakeContext(ctx, s.o.handshake)
	defer cancel()
	go func() {
		select {
		case <-child.Done():
			cancel()
		case <-hctx.Done():
		}
	}()
	if err := rv.HandshakeSupervisor(hctx); err != nil {
		if child.Exited() {
			return fmt.Errorf("%w: peer exited: %v", ErrHandshake, child.Err())
		}
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	d.log.Info("handshake complete", logx.Int("peer", child.Pid()))
	d.publish(EventHandshake, "")
	return nil
}

func (s *Supervisor) addServiceWatchdog() bool {
	n := s.o.notifier
	if n == nil || n.WatchdogInterval() <= 0 {
		return true
	}
	id := s.data.Sched.AddTask(func(context.Context) task.Status {
		if err := n.Watchdog(); err != nil {
			s.data.log.Warn("service watchdog notify failed", logx.Err(err))
		}
		return task.Continue
	}, n.WatchdogInterval(), nil)
	return !id.IsBad()
}

// monitor runs the scheduler and revives the peer each time the check
// task gives up on it.
func (s *Supervisor) monitor(ctx context.Context) error {
	d := s.data
	for {
		st := d.Sched.Run(ctx)
		if ctx.Err() != nil || s.isStopped() {
			return nil
		}
		if st != scheduler.StatusStop {
			return fmt.Errorf("scheduler exited with %s", st)
		}

		d.log.Warn("restarting peer", logx.Int("dead", s.childPID()))
		if err := s.respawn(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.publish(EventRestartGaveUp, err.Error())
			return err
		}

		d.Sched.Clear()
		if !d.addTasks(2) || !s.addServiceWatchdog() {
			return ErrScheduler
		}
		s.o.rec.PeerRestarted()
		d.publish(EventPeerRestarted, "")
	}
}

func (s *Supervisor) respawn(ctx context.Context) error {
	for {
		if err := s.restarts.Wait(ctx); err != nil {
			return err
		}
		err := s.spawnPeer(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.data.log.Error("peer restart failed", logx.Err(err))
	}
}

func (s *Supervisor) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// abort undoes a partial Start.
func (s *Supervisor) abort() {
	if c := s.child.Load(); c != nil && !c.Exited() {
		_ = proc.Signal(c.Pid(), syscall.SIGKILL)
	}
	s.data.Cleanup()
	if s.stopLive != nil {
		s.stopLive()
	}
}

// Stop ends monitoring, releases every resource and asks the supervised
// process to clean up and exit. It is safe to call more than once.
func (s *Supervisor) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	rt := s.rt
	s.mu.Unlock()

	d := s.data
	if s.o.notifier != nil {
		_ = s.o.notifier.Stopping()
	}
	d.publish(EventStopRequested, "")

	d.Sched.Stop()
	if rt != nil {
		rt.Cancel()
		wctx, cancel := context.WithTimeout(ctx, 2*d.Interval)
		if err := rt.Wait(wctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			d.log.Warn("monitor exited with error", logx.Err(err))
		}
		cancel()
	}
	d.Cleanup()

	// pings still in flight from the peer must not hit the default action
	signal.Ignore(PingSignal)
	if s.stopLive != nil {
		s.stopLive()
	}
	if c := s.child.Load(); c != nil && !c.Exited() {
		if err := s.o.signal(c.Pid(), StopSignal); err != nil {
			d.log.Warn("stop request not delivered", logx.Int("peer", c.Pid()), logx.Err(err))
		}
	}
	d.log.Info("watchdog stopped")
	d.publish(EventStopped, "")
}
