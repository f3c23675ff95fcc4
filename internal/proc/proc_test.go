package proc

import (
	"errors"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"testing"
	"time"
)

func TestSpawnAndReap(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	c, err := Spawn(sh, []string{"sh", "-c", "exit 3"})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if c.Pid() <= 0 {
		t.Fatalf("pid=%d", c.Pid())
	}
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("child not reaped")
	}
	var ee *exec.ExitError
	if !errors.As(c.Err(), &ee) || ee.ExitCode() != 3 {
		t.Fatalf("exit err=%v", c.Err())
	}
	if !c.Exited() {
		t.Fatalf("Exited should be true after Done")
	}
}

func TestSpawnPassesPeerEnv(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	c, err := Spawn(sh, []string{"sh", "-c", `test "$` + PeerEnv + `" = "4242"`}, PeerEnvEntry(4242))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	<-c.Done()
	if c.Err() != nil {
		t.Fatalf("child did not see %s: %v", PeerEnv, c.Err())
	}
}

func TestSpawnMissingExecutable(t *testing.T) {
	_, err := Spawn("./definitely-not-here", []string{"x"})
	if !errors.Is(err, ErrExec) {
		t.Fatalf("err=%v want ErrExec", err)
	}
}

func TestSignalRefusesLowPIDs(t *testing.T) {
	for _, pid := range []int{-1, 0, 1} {
		if err := Signal(pid, syscall.SIGUSR1); !errors.Is(err, ErrBadPID) {
			t.Fatalf("Signal(%d) err=%v", pid, err)
		}
	}
}

func TestPeerPID(t *testing.T) {
	t.Setenv(PeerEnv, "")
	if got := PeerPID(); got != os.Getppid() {
		t.Fatalf("fallback pid=%d want %d", got, os.Getppid())
	}
	t.Setenv(PeerEnv, strconv.Itoa(31337))
	if got := PeerPID(); got != 31337 {
		t.Fatalf("pid=%d", got)
	}
	t.Setenv(PeerEnv, "garbage")
	if got := PeerPID(); got != os.Getppid() {
		t.Fatalf("garbage should fall back, got %d", got)
	}
}

func TestWithoutEnv(t *testing.T) {
	got := WithoutEnv([]string{"A=1", PeerEnv + "=9", "B=2", PeerEnv + "X=3"}, PeerEnv)
	want := []string{"A=1", "B=2", PeerEnv + "X=3"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
