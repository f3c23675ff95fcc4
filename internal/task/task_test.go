package task

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"wdsched/internal/clock"
	"wdsched/internal/uid"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testGen() *uid.Generator {
	return uid.NewGenerator(uid.WithAddrs(func() ([]net.Addr, error) {
		return []net.Addr{&net.IPNet{IP: net.IPv4(10, 0, 0, 1), Mask: net.CIDRMask(8, 32)}}, nil
	}))
}

func noop(context.Context) Status { return Stop }

func TestNewComputesTimeToRun(t *testing.T) {
	clk := clock.NewVirtual(epoch)
	tk, err := New(testGen(), clk, noop, 5*time.Second, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if want := epoch.Add(5 * time.Second); !tk.TimeToRun().Equal(want) {
		t.Fatalf("timeToRun=%v want %v", tk.TimeToRun(), want)
	}
	if !tk.IsMatch(tk.ID()) {
		t.Fatalf("task does not match its own id")
	}
}

func TestNewFailures(t *testing.T) {
	broken := clock.NewVirtual(epoch)
	broken.Break()
	badGen := uid.NewGenerator(uid.WithAddrs(func() ([]net.Addr, error) { return nil, errors.New("down") }))

	tests := []struct {
		name string
		gen  *uid.Generator
		clk  clock.Clock
		op   Operation
		want error
	}{
		{"nil op", testGen(), clock.NewVirtual(epoch), nil, ErrNilOperation},
		{"bad uid", badGen, clock.NewVirtual(epoch), noop, ErrBadUID},
		{"clock", testGen(), broken, noop, ErrClock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned := false
			_, err := New(tt.gen, tt.clk, tt.op, time.Second, func() { cleaned = true })
			if !errors.Is(err, tt.want) {
				t.Fatalf("err=%v want %v", err, tt.want)
			}
			if cleaned {
				t.Fatalf("cleanup ran for a task that was never built")
			}
		})
	}
}

func TestUpdateTimeToRun(t *testing.T) {
	clk := clock.NewVirtual(epoch)
	tk, err := New(testGen(), clk, noop, 2*time.Second, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clk.Advance(7 * time.Second)
	if err := tk.UpdateTimeToRun(); err != nil {
		t.Fatalf("UpdateTimeToRun: %v", err)
	}
	if want := epoch.Add(9 * time.Second); !tk.TimeToRun().Equal(want) {
		t.Fatalf("timeToRun=%v want %v", tk.TimeToRun(), want)
	}

	clk.Break()
	if err := tk.UpdateTimeToRun(); !errors.Is(err, ErrClock) {
		t.Fatalf("err=%v want ErrClock", err)
	}
}

func TestNewScheduledUsesCronNext(t *testing.T) {
	clk := clock.NewVirtual(epoch.Add(90 * time.Second))
	sched, err := cron.ParseStandard("*/5 * * * *")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tk, err := NewScheduled(testGen(), clk, noop, sched, nil)
	if err != nil {
		t.Fatalf("NewScheduled: %v", err)
	}
	if want := epoch.Add(5 * time.Minute); !tk.TimeToRun().Equal(want) {
		t.Fatalf("timeToRun=%v want %v", tk.TimeToRun(), want)
	}
}

func TestRunReturnsOperationStatus(t *testing.T) {
	clk := clock.NewVirtual(epoch)
	for _, want := range []Status{Continue, Stop} {
		want := want
		tk, err := New(testGen(), clk, func(context.Context) Status { return want }, time.Second, nil)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if got := tk.Run(context.Background()); got != want {
			t.Fatalf("Run=%v want %v", got, want)
		}
	}
}

func TestDestroyRunsCleanupOnce(t *testing.T) {
	calls := 0
	tk, err := New(testGen(), clock.NewVirtual(epoch), noop, time.Second, func() { calls++ })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tk.Destroy()
	tk.Destroy()
	if calls != 1 {
		t.Fatalf("cleanup calls=%d want 1", calls)
	}
}

func TestCompare(t *testing.T) {
	clk := clock.NewVirtual(epoch)
	a, _ := New(testGen(), clk, noop, time.Second, nil)
	b, _ := New(testGen(), clk, noop, 2*time.Second, nil)
	if Compare(a, b) >= 0 || Compare(b, a) <= 0 || Compare(a, a) != 0 {
		t.Fatalf("compare is not ordering by due time")
	}
}
