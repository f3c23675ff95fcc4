package scheduler

import (
	"fmt"

	"wdsched/internal/task"
	"wdsched/internal/uid"
	logx "wdsched/pkg/logx"
)

// AddSchedule adds a task driven by a schedule string (see ParseSchedule).
// Interval forms behave exactly like AddTask; cron forms are re-scheduled
// with the expression's next activation after each run.
func (s *Scheduler) AddSchedule(spec string, op task.Operation, cleanup func()) (uid.UID, error) {
	sp, err := ParseSchedule(spec)
	if err != nil {
		return uid.Bad, err
	}

	var t *task.Task
	if sp.IsCron() {
		t, err = task.NewScheduled(s.gen, s.clk, op, sp.Cron, cleanup)
	} else {
		t, err = task.New(s.gen, s.clk, op, sp.Every, cleanup)
	}
	if err != nil {
		return uid.Bad, err
	}

	id := s.enqueueNew(t)
	if id.IsBad() {
		return uid.Bad, fmt.Errorf("scheduler: enqueue %q failed", spec)
	}
	s.log.Debug("schedule added", logx.Stringer("schedule", sp), logx.Time("due", t.TimeToRun()))
	return id, nil
}
