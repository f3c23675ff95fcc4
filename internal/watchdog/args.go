package watchdog

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrArgs = errors.New("watchdog: invalid arguments")

// Args is the watchdog executable's command line:
//
//	[self, interval, tolerance, workload, workload-args...]
type Args struct {
	Self      string
	Interval  time.Duration
	Tolerance int
	// Workload is the workload's full argv; Workload[0] is its path.
	Workload []string
}

// BuildArgs renders the command line for the watchdog executable.
func BuildArgs(self string, interval time.Duration, tolerance int, workload []string) []string {
	out := make([]string, 0, len(workload)+3)
	out = append(out, self, FormatInterval(interval), strconv.Itoa(tolerance))
	return append(out, workload...)
}

func ParseArgs(argv []string) (Args, error) {
	if len(argv) < 4 {
		return Args{}, fmt.Errorf("%w: want [self interval tolerance workload args...], got %d args", ErrArgs, len(argv))
	}
	iv, err := ParseInterval(argv[1])
	if err != nil {
		return Args{}, err
	}
	tol, err := strconv.Atoi(argv[2])
	if err != nil || tol <= 0 {
		return Args{}, fmt.Errorf("%w: tolerance %q", ErrArgs, argv[2])
	}
	return Args{
		Self:      argv[0],
		Interval:  iv,
		Tolerance: tol,
		Workload:  append([]string(nil), argv[3:]...),
	}, nil
}

// FormatInterval writes whole seconds as a plain integer and anything
// finer as a Go duration.
func FormatInterval(d time.Duration) string {
	if d%time.Second == 0 {
		return strconv.FormatInt(int64(d/time.Second), 10)
	}
	return d.String()
}

func ParseInterval(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("%w: interval %q", ErrArgs, s)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: interval %q", ErrArgs, s)
	}
	return d, nil
}
