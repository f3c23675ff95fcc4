// Package scheduler runs interval and cron driven tasks on a single
// goroutine, in ascending order of their next due time.
//
// The scheduler is responsible for:
//   - keeping pending tasks in a priority queue keyed by due time
//   - sleeping until the earliest task is due and executing it
//   - re-scheduling tasks whose operation asks to continue
//   - cooperative stop and clear, including from inside a running task
package scheduler
