package scheduler

import (
	"sort"
	"time"

	"wdsched/internal/task"
)

type TaskInfo struct {
	ID        string        `json:"id"`
	TimeToRun time.Time     `json:"time_to_run"`
	Interval  time.Duration `json:"interval"`
}

type Snapshot struct {
	Running  bool       `json:"running"`
	InFlight *TaskInfo  `json:"in_flight,omitempty"`
	Pending  []TaskInfo `json:"pending"`
}

// Snapshot copies the scheduler state for diagnostics. Pending tasks are
// sorted by due time.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	var pending []TaskInfo
	s.queue.Each(func(t *task.Task) { pending = append(pending, infoOf(t)) })
	var inFlight *TaskInfo
	if s.inFlight != nil {
		ti := infoOf(s.inFlight)
		inFlight = &ti
	}
	s.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool { return pending[i].TimeToRun.Before(pending[j].TimeToRun) })
	return Snapshot{Running: s.running.Load(), InFlight: inFlight, Pending: pending}
}

func infoOf(t *task.Task) TaskInfo {
	return TaskInfo{ID: t.ID().String(), TimeToRun: t.TimeToRun(), Interval: t.Interval()}
}
