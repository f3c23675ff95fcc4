// Package task defines the unit of work the scheduler runs: an identity,
// an operation, the time it is next due and an optional cleanup.
package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"wdsched/internal/clock"
	"wdsched/internal/uid"
)

var (
	ErrClock        = errors.New("task: clock read failed")
	ErrBadUID       = errors.New("task: uid generation failed")
	ErrNilOperation = errors.New("task: nil operation")
)

// Status is what an operation reports after one execution.
type Status int

const (
	// Continue asks the scheduler to run the task again after its interval.
	Continue Status = iota
	// Stop marks the task as finished; it is destroyed.
	Stop
)

func (s Status) String() string {
	switch s {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Operation is the task body. Arguments are captured by the closure and
// remain owned by the caller.
type Operation func(ctx context.Context) Status

type Task struct {
	id        uid.UID
	clk       clock.Clock
	op        Operation
	interval  time.Duration
	schedule  cron.Schedule
	timeToRun time.Time

	cleanup     func()
	destroyOnce sync.Once
}

// New builds a task due interval from now.
func New(gen *uid.Generator, clk clock.Clock, op Operation, interval time.Duration, cleanup func()) (*Task, error) {
	return newTask(gen, clk, op, interval, nil, cleanup)
}

// NewScheduled builds a task whose due times come from sched.Next instead of
// a fixed interval.
func NewScheduled(gen *uid.Generator, clk clock.Clock, op Operation, sched cron.Schedule, cleanup func()) (*Task, error) {
	if sched == nil {
		return nil, errors.New("task: nil schedule")
	}
	return newTask(gen, clk, op, 0, sched, cleanup)
}

func newTask(gen *uid.Generator, clk clock.Clock, op Operation, interval time.Duration, sched cron.Schedule, cleanup func()) (*Task, error) {
	if op == nil {
		return nil, ErrNilOperation
	}
	if gen == nil {
		gen = uid.Default
	}
	if clk == nil {
		clk = clock.Real()
	}
	id := gen.New()
	if id.IsBad() {
		return nil, ErrBadUID
	}
	t := &Task{
		id:       id,
		clk:      clk,
		op:       op,
		interval: interval,
		schedule: sched,
		cleanup:  cleanup,
	}
	if err := t.UpdateTimeToRun(); err != nil {
		return nil, err
	}
	return t, nil
}

// Run executes the operation once and returns its status unchanged.
func (t *Task) Run(ctx context.Context) Status { return t.op(ctx) }

// UpdateTimeToRun sets the next due time relative to the current clock.
func (t *Task) UpdateTimeToRun() error {
	now := t.clk.Now()
	if now.IsZero() {
		return ErrClock
	}
	if t.schedule != nil {
		t.timeToRun = t.schedule.Next(now)
		return nil
	}
	t.timeToRun = now.Add(t.interval)
	return nil
}

func (t *Task) ID() uid.UID { return t.id }

func (t *Task) TimeToRun() time.Time { return t.timeToRun }

func (t *Task) Interval() time.Duration { return t.interval }

func (t *Task) IsMatch(id uid.UID) bool { return uid.Equal(t.id, id) }

// Destroy runs the cleanup. Only the first call has an effect.
func (t *Task) Destroy() {
	t.destroyOnce.Do(func() {
		if t.cleanup != nil {
			t.cleanup()
		}
	})
}

// Compare orders tasks by ascending due time.
func Compare(a, b *Task) int { return a.timeToRun.Compare(b.timeToRun) }
