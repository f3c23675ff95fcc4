package watchdog

import (
	"context"
	"sync"
	"syscall"
	"time"

	"wdsched/internal/clock"
	"wdsched/internal/eventbus"
	"wdsched/internal/proc"
	"wdsched/internal/task"
	"wdsched/internal/task/scheduler"
	logx "wdsched/pkg/logx"
)

type Role int

const (
	RoleSupervisor Role = iota
	RoleSupervised
)

func (r Role) String() string {
	if r == RoleSupervised {
		return "supervised"
	}
	return "supervisor"
}

// Recorder receives watchdog observations. internal/metrics implements it.
type Recorder interface {
	PingSent()
	PingReceived()
	MissedWindow()
	PeerRestarted()
}

type nopRecorder struct{}

func (nopRecorder) PingSent()      {}
func (nopRecorder) PingReceived()  {}
func (nopRecorder) MissedWindow()  {}
func (nopRecorder) PeerRestarted() {}

// minPoll bounds how often check-ping looks at the liveness flag.
const minPoll = 10 * time.Millisecond

// Data is the state shared by the ping tasks of one role.
type Data struct {
	Role      Role
	Interval  time.Duration
	Tolerance int
	Args      []string

	Sched *scheduler.Scheduler
	Live  *Liveness

	rvMu       sync.Mutex
	rendezvous *Rendezvous

	// Peer resolves the pid pings are sent to.
	Peer   func() int
	Signal func(pid int, sig syscall.Signal) error

	clk clock.Clock
	log logx.Logger
	rec Recorder
	bus eventbus.Bus

	cleanupOnce sync.Once
}

func (d *Data) init(o *options) {
	d.clk = o.clk
	d.rec = o.rec
	d.bus = o.bus
	d.log = o.log.With(logx.String("comp", "watchdog"), logx.String("role", d.Role.String()))
	if d.Live == nil {
		d.Live = &Liveness{}
	}
	if d.Signal == nil {
		d.Signal = o.signal
	}
	if d.Peer == nil {
		d.Peer = proc.PeerPID
	}
}

// addTasks schedules send-ping every interval and check-ping every
// checkEvery intervals. It reports false when either task cannot be added.
func (d *Data) addTasks(checkEvery int) bool {
	send := d.Sched.AddTask(d.SendPing, d.Interval, nil)
	if send.IsBad() {
		return false
	}
	check := d.Sched.AddTask(d.CheckPingResponse, time.Duration(checkEvery)*d.Interval, nil)
	if check.IsBad() {
		d.Sched.Remove(send)
		return false
	}
	return true
}

// SendPing delivers the liveness signal to the peer. A failed delivery
// is logged; the check task on the other side decides what it means.
func (d *Data) SendPing(ctx context.Context) task.Status {
	pid := d.Peer()
	d.log.Debug("sending ping", logx.Int("peer", pid))
	if err := d.Signal(pid, PingSignal); err != nil {
		d.log.Warn("ping delivery failed", logx.Int("peer", pid), logx.Err(err))
	} else {
		d.rec.PingSent()
	}
	return task.Continue
}

// CheckPingResponse waits for the peer's ping. Each interval without one
// costs one unit of tolerance; once tolerance is exhausted the scheduler
// is stopped and the task ends.
func (d *Data) CheckPingResponse(ctx context.Context) task.Status {
	tolerance := d.Tolerance
	poll := d.Interval / 10
	if poll < minPoll {
		poll = minPoll
	}

	start := d.clk.Now()
	for tolerance > 0 {
		if d.Live.Consume() {
			d.log.Debug("ping received")
			d.rec.PingReceived()
			return task.Continue
		}

		now := d.clk.Now()
		if !now.IsZero() && now.Sub(start) >= d.Interval {
			tolerance--
			start = now
			d.rec.MissedWindow()
			d.log.Warn("no response; remaining tolerance", logx.Int("tolerance", tolerance))
			continue
		}

		select {
		case <-ctx.Done():
			return task.Stop
		case <-d.clk.After(poll):
		}
	}

	d.log.Error("peer unresponsive; stopping scheduler", logx.Int("peer", d.Peer()))
	d.publish(EventPeerUnresponsive, "")
	d.Sched.Stop()
	return task.Stop
}

// Cleanup destroys the scheduler (running pending cleanups), drops the
// argument vector and closes and unlinks the rendezvous. Only the first
// call has an effect.
func (d *Data) Cleanup() {
	if d == nil {
		return
	}
	d.cleanupOnce.Do(func() {
		if d.Sched != nil {
			d.Sched.Destroy()
		}
		d.Args = nil
		if err := d.swapRendezvous(nil).Unlink(); err != nil {
			d.log.Warn("rendezvous cleanup failed", logx.Err(err))
		}
	})
}

// swapRendezvous installs rv and returns the previous pair.
func (d *Data) swapRendezvous(rv *Rendezvous) *Rendezvous {
	d.rvMu.Lock()
	defer d.rvMu.Unlock()
	old := d.rendezvous
	d.rendezvous = rv
	return old
}

func (d *Data) publish(typ, detail string) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(eventbus.Event{
		Type: typ,
		Time: time.Now(),
		Data: EventData{Role: d.Role.String(), PeerPID: d.Peer(), Detail: detail},
	})
}
