package scheduler

// RunStatus is the outcome of one Run call.
type RunStatus int

const (
	// StatusStop means Stop was called (or ctx was cancelled) before the
	// queue drained.
	StatusStop RunStatus = iota
	// StatusEnqueueFail means a continuing task could not be re-enqueued.
	StatusEnqueueFail
	// StatusTimeFailure means the clock failed while re-scheduling a task.
	StatusTimeFailure
	// StatusSuccess means the queue drained.
	StatusSuccess
)

func (s RunStatus) String() string {
	switch s {
	case StatusStop:
		return "stop"
	case StatusEnqueueFail:
		return "enqueue_fail"
	case StatusTimeFailure:
		return "time_failure"
	case StatusSuccess:
		return "success"
	default:
		return "unknown"
	}
}
