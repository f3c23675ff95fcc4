package wd

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"wdsched/internal/proc"
	"wdsched/internal/watchdog"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want Status
	}{
		{nil, Success},
		{fmt.Errorf("%w: tolerance=0", watchdog.ErrArgs), AllocFail},
		{fmt.Errorf("%w: mkfifo", watchdog.ErrRendezvous), SemOpenFailed},
		{fmt.Errorf("%w: timeout", watchdog.ErrHandshake), SemOpenFailed},
		{fmt.Errorf("%w: %w", watchdog.ErrSpawn, proc.ErrExec), ExecFailed},
		{fmt.Errorf("%w: %w", watchdog.ErrSpawn, proc.ErrFork), ForkFailed},
		{watchdog.ErrScheduler, SchedulerFailed},
		{fmt.Errorf("%w: context canceled", watchdog.ErrMonitor), ThreadCreationFailed},
		{errors.New("other"), ThreadCreationFailed},
	}
	for _, c := range cases {
		if got := StatusOf(c.err); got != c.want {
			t.Fatalf("StatusOf(%v)=%s want %s", c.err, got, c.want)
		}
	}
}

func TestStartReportsFailures(t *testing.T) {
	ctx := context.Background()
	if st := Start(ctx, nil, time.Second, 3); st != AllocFail {
		t.Fatalf("empty args: got %s", st)
	}
	if !errors.Is(Err(), watchdog.ErrArgs) {
		t.Fatalf("Err()=%v", Err())
	}
	for _, bad := range []struct {
		interval  time.Duration
		tolerance int
	}{{0, 3}, {-time.Second, 3}, {time.Second, 0}} {
		if st := Start(ctx, []string{"app"}, bad.interval, bad.tolerance); st != AllocFail {
			t.Fatalf("interval=%s tolerance=%d: got %s", bad.interval, bad.tolerance, st)
		}
	}
	if Current() != nil {
		t.Fatalf("argument failure must not install a supervisor")
	}

	st := Start(ctx, []string{"app"}, time.Second, 3,
		watchdog.WithExecutable("./no-such-watchdog"),
		watchdog.WithRuntimeDir(t.TempDir()),
	)
	if st != ExecFailed {
		t.Fatalf("missing executable: got %s (%v)", st, Err())
	}
	if Current() != nil {
		t.Fatalf("failed start must not install a supervisor")
	}
	Stop()
}

func TestStatusString(t *testing.T) {
	if Success.String() != "success" || Status(99).String() != "unknown" {
		t.Fatalf("unexpected names")
	}
}
