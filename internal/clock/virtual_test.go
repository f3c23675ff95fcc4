package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestVirtualAfterAdvances(t *testing.T) {
	c := NewVirtual(epoch)
	got := <-c.After(3 * time.Second)
	want := epoch.Add(3 * time.Second)
	if !got.Equal(want) {
		t.Fatalf("After fired at %v, want %v", got, want)
	}
	if now := c.Now(); !now.Equal(want) {
		t.Fatalf("Now() = %v, want %v", now, want)
	}
	if c.Waited() != 3*time.Second {
		t.Fatalf("Waited() = %v, want 3s", c.Waited())
	}
}

func TestVirtualAfterNonPositive(t *testing.T) {
	c := NewVirtual(epoch)
	<-c.After(-time.Second)
	if !c.Now().Equal(epoch) {
		t.Fatalf("negative After moved the clock to %v", c.Now())
	}
}

func TestVirtualBreak(t *testing.T) {
	c := NewVirtual(epoch)
	c.Break()
	if !c.Now().IsZero() {
		t.Fatal("broken clock should report the zero time")
	}
	c.Repair()
	if c.Now().IsZero() {
		t.Fatal("repaired clock still reports the zero time")
	}
}

func TestRealAfterZero(t *testing.T) {
	select {
	case <-Real().After(0):
	case <-time.After(time.Second):
		t.Fatal("Real().After(0) did not fire immediately")
	}
}
