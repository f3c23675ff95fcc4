package watchdog

import (
	"context"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wdsched/internal/clock"
	"wdsched/internal/task"
	"wdsched/internal/task/scheduler"
)

type countingMetrics struct {
	sent, received, missed, restarts atomic.Int64
}

func (m *countingMetrics) PingSent()           { m.sent.Add(1) }
func (m *countingMetrics) PingReceived()       { m.received.Add(1) }
func (m *countingMetrics) MissedWindow()       { m.missed.Add(1) }
func (m *countingMetrics) PeerRestarted()      { m.restarts.Add(1) }
func (m *countingMetrics) TaskRan(task.Status) {}
func (m *countingMetrics) QueueSize(int)       {}

type signalLog struct {
	mu   sync.Mutex
	sent []syscall.Signal
}

func (s *signalLog) send(_ int, sig syscall.Signal) error {
	s.mu.Lock()
	s.sent = append(s.sent, sig)
	s.mu.Unlock()
	return nil
}

func (s *signalLog) count(sig syscall.Signal) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.sent {
		if v == sig {
			n++
		}
	}
	return n
}

func newTestData(t *testing.T, clk clock.Clock, tolerance int, opts ...Option) (*Data, *countingMetrics) {
	t.Helper()
	m := &countingMetrics{}
	o := buildOptions(append([]Option{WithClock(clk), WithMetrics(m)}, opts...))
	d := &Data{
		Role:      RoleSupervisor,
		Interval:  time.Second,
		Tolerance: tolerance,
		Peer:      func() int { return 4242 },
	}
	d.init(o)
	d.Sched = scheduler.New(o.schedulerOptions()...)
	return d, m
}

func TestCheckPingExhaustsTolerance(t *testing.T) {
	v := clock.NewVirtual(time.Unix(1_700_000_000, 0))
	d, m := newTestData(t, v, 3)

	st := d.CheckPingResponse(context.Background())

	require.Equal(t, task.Stop, st)
	require.Equal(t, 3*time.Second, v.Waited())
	require.EqualValues(t, 3, m.missed.Load())
	require.False(t, d.Sched.Snapshot().Running, "scheduler must be stopped")
}

func TestCheckPingConsumesFlag(t *testing.T) {
	v := clock.NewVirtual(time.Unix(1_700_000_000, 0))
	d, m := newTestData(t, v, 3)
	d.Live.Mark()

	st := d.CheckPingResponse(context.Background())

	require.Equal(t, task.Continue, st)
	require.Zero(t, v.Waited())
	require.EqualValues(t, 1, m.received.Load())
	require.False(t, d.Live.Consume(), "flag must be cleared")
	require.True(t, d.Sched.Snapshot().Running)
}

func TestCheckPingToleranceResetsPerCheck(t *testing.T) {
	v := clock.NewVirtual(time.Unix(1_700_000_000, 0))
	d, _ := newTestData(t, v, 2)

	require.Equal(t, task.Stop, d.CheckPingResponse(context.Background()))
	require.Equal(t, 2*time.Second, v.Waited())
	require.Equal(t, 2, d.Tolerance)

	// every check starts again from full tolerance
	require.Equal(t, task.Stop, d.CheckPingResponse(context.Background()))
	require.Equal(t, 4*time.Second, v.Waited())
}

func TestCheckPingCancelled(t *testing.T) {
	d, _ := newTestData(t, clock.Real(), 1000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, task.Stop, d.CheckPingResponse(ctx))
}

func TestSendPingAlwaysContinues(t *testing.T) {
	var sigs signalLog
	d, m := newTestData(t, clock.Real(), 1, WithSignaler(sigs.send))

	require.Equal(t, task.Continue, d.SendPing(context.Background()))
	require.Equal(t, 1, sigs.count(PingSignal))
	require.EqualValues(t, 1, m.sent.Load())

	d.Signal = func(int, syscall.Signal) error { return syscall.ESRCH }
	require.Equal(t, task.Continue, d.SendPing(context.Background()))
	require.EqualValues(t, 1, m.sent.Load())
}

func TestCleanupIdempotent(t *testing.T) {
	dir := t.TempDir()
	d, _ := newTestData(t, clock.Real(), 1)
	rv, err := CreateRendezvous(dir)
	require.NoError(t, err)
	d.swapRendezvous(rv)
	d.Args = []string{"wd"}
	require.True(t, d.addTasks(2))

	d.Cleanup()
	d.Cleanup()

	require.Nil(t, d.Args)
	require.True(t, d.Sched.IsEmpty())
	_, err = OpenRendezvous(dir)
	require.ErrorIs(t, err, ErrRendezvous)
}
