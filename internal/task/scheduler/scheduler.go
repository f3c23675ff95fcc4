package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"wdsched/internal/clock"
	"wdsched/internal/container/pqueue"
	"wdsched/internal/task"
	"wdsched/internal/uid"
	logx "wdsched/pkg/logx"
)

// Recorder receives run-loop observations. internal/metrics implements it.
type Recorder interface {
	TaskRan(status task.Status)
	QueueSize(n int)
}

type nopRecorder struct{}

func (nopRecorder) TaskRan(task.Status) {}
func (nopRecorder) QueueSize(int)       {}

type Option func(*Scheduler)

func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clk = c
		}
	}
}

func WithGenerator(g *uid.Generator) Option {
	return func(s *Scheduler) {
		if g != nil {
			s.gen = g
		}
	}
}

func WithLogger(l logx.Logger) Option {
	return func(s *Scheduler) {
		if !l.IsZero() {
			s.log = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.rec = r
		}
	}
}

// Scheduler owns its queue and every task in it.
//
// All methods may be called from other goroutines and from inside a task's
// operation: the queue lock is never held while an operation runs.
type Scheduler struct {
	mu         sync.Mutex
	queue      *pqueue.Queue[*task.Task]
	inFlight   *task.Task
	wasCleared bool

	running atomic.Bool

	clk clock.Clock
	gen *uid.Generator
	log logx.Logger
	rec Recorder
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		queue: pqueue.New(task.Compare),
		clk:   clock.Real(),
		gen:   uid.Default,
		log:   logx.Nop(),
		rec:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logx.String("comp", "scheduler"))
	s.running.Store(true)
	return s
}

// Clock returns the time source tasks are scheduled against.
func (s *Scheduler) Clock() clock.Clock { return s.clk }

// AddTask schedules op to first run interval from now. It returns uid.Bad
// and leaves the queue untouched on failure; cleanup is not invoked then.
func (s *Scheduler) AddTask(op task.Operation, interval time.Duration, cleanup func()) uid.UID {
	t, err := task.New(s.gen, s.clk, op, interval, cleanup)
	if err != nil {
		s.log.Warn("add task failed", logx.Err(err))
		return uid.Bad
	}
	return s.enqueueNew(t)
}

func (s *Scheduler) enqueueNew(t *task.Task) uid.UID {
	s.mu.Lock()
	err := s.queue.Enqueue(t)
	if err == nil {
		s.wasCleared = false
	}
	n := s.queue.Len()
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("enqueue failed", logx.Err(err))
		return uid.Bad
	}
	s.rec.QueueSize(n)
	s.log.Debug("task added", logx.Stringer("task", t.ID()), logx.Time("due", t.TimeToRun()))
	return t.ID()
}

// Remove destroys the pending task with the given id. A task that is
// currently executing is not in the queue and is not affected.
func (s *Scheduler) Remove(id uid.UID) {
	s.mu.Lock()
	t, ok := s.queue.Erase(func(t *task.Task) bool { return t.IsMatch(id) })
	n := s.queue.Len()
	s.mu.Unlock()

	if ok {
		t.Destroy()
		s.rec.QueueSize(n)
	}
}

// Run executes tasks until the queue drains, Stop is called, ctx is
// cancelled or re-scheduling fails.
func (s *Scheduler) Run(ctx context.Context) RunStatus {
	s.running.Store(true)
	s.log.Debug("run loop started", logx.Int("size", s.Size()))

	for {
		next, ok := s.peekIfRunning()
		if !ok {
			break
		}
		if !s.sleepUntil(ctx, next.TimeToRun()) {
			s.running.Store(false)
			break
		}

		t, ok := s.dequeueDue()
		if !ok {
			continue
		}
		if status := s.execute(ctx, t); status != StatusSuccess {
			s.log.Warn("run loop aborted", logx.Stringer("status", status))
			return status
		}
	}

	if !s.running.Load() {
		s.log.Debug("run loop stopped")
		return StatusStop
	}
	return StatusSuccess
}

func (s *Scheduler) peekIfRunning() (*task.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return nil, false
	}
	return s.queue.Peek()
}

// sleepUntil blocks until due. It reports false when ctx ends first.
func (s *Scheduler) sleepUntil(ctx context.Context, due time.Time) bool {
	now := s.clk.Now()
	if now.IsZero() || !due.After(now) {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.clk.After(due.Sub(now)):
		return true
	}
}

// dequeueDue pops the head if it is due. The queue may have changed while
// the loop slept, so the head is checked again.
func (s *Scheduler) dequeueDue() (*task.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	head, ok := s.queue.Peek()
	if !ok {
		return nil, false
	}
	if now := s.clk.Now(); !now.IsZero() && head.TimeToRun().After(now) {
		return nil, false
	}
	t, _ := s.queue.Dequeue()
	s.inFlight = t
	s.wasCleared = false
	return t, true
}

func (s *Scheduler) execute(ctx context.Context, t *task.Task) RunStatus {
	st := t.Run(ctx)
	s.rec.TaskRan(st)

	status, requeued := s.reschedule(t, st)
	if !requeued {
		t.Destroy()
	}
	s.rec.QueueSize(s.queueLen())
	return status
}

// reschedule re-enqueues t when it asked to continue and the scheduler was
// not cleared while it ran. It clears the in-flight slot either way.
func (s *Scheduler) reschedule(t *task.Task, st task.Status) (RunStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.inFlight = nil }()

	if s.wasCleared || st != task.Continue {
		return StatusSuccess, false
	}
	if err := t.UpdateTimeToRun(); err != nil {
		return StatusTimeFailure, false
	}
	if err := s.queue.Enqueue(t); err != nil {
		return StatusEnqueueFail, false
	}
	return StatusSuccess, true
}

func (s *Scheduler) queueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Stop asks the run loop to exit at its next loop check. A task that is
// sleeping toward or executing its operation is not interrupted.
func (s *Scheduler) Stop() { s.running.Store(false) }

// Clear destroys every pending task. When called from inside a running
// task, that task is not re-enqueued either.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	var drained []*task.Task
	s.queue.ClearFunc(func(t *task.Task) { drained = append(drained, t) })
	s.wasCleared = true
	s.mu.Unlock()

	for _, t := range drained {
		t.Destroy()
	}
	s.rec.QueueSize(0)
}

// IsEmpty reports whether no task is pending or executing.
func (s *Scheduler) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight == nil && s.queue.IsEmpty()
}

// Size counts pending tasks plus the executing one.
func (s *Scheduler) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.queue.Len()
	if s.inFlight != nil {
		n++
	}
	return n
}

// Destroy clears the scheduler. It must not be used afterwards.
func (s *Scheduler) Destroy() {
	s.Stop()
	s.Clear()
}
