// Package proc wraps the process-supervision primitives the watchdog
// roles need: spawn a child, detect its death, signal a peer and replace
// the current process image.
package proc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// PeerEnv carries the peer's pid across the spawn boundary.
const PeerEnv = "WD_PEER_PID"

var (
	// ErrExec means the executable could not be found or started.
	ErrExec = errors.New("proc: exec failed")
	// ErrFork means the child process could not be created.
	ErrFork = errors.New("proc: fork failed")
	// ErrBadPID guards against signalling init or every process in the group.
	ErrBadPID = errors.New("proc: refusing to signal pid <= 1")
)

// Child is a spawned process. Its exit is reaped in the background so it
// never lingers as a zombie.
type Child struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu  sync.Mutex
	err error
}

// Spawn starts path with argv (argv[0] included) and the current
// environment plus extraEnv. Output is inherited.
func Spawn(path string, argv []string, extraEnv ...string) (*Child, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExec, path, err)
	}
	cmd := &exec.Cmd{
		Path:   resolved,
		Args:   argv,
		Env:    append(os.Environ(), extraEnv...),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if len(cmd.Args) == 0 {
		cmd.Args = []string{path}
	}
	if err := cmd.Start(); err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) || errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s: %v", ErrExec, path, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrFork, err)
	}

	c := &Child{cmd: cmd, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	}()
	return c, nil
}

func (c *Child) Pid() int { return c.cmd.Process.Pid }

// Done is closed once the child has exited and been reaped.
func (c *Child) Done() <-chan struct{} { return c.done }

// Err returns the exit error after Done is closed.
func (c *Child) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Exited reports whether the child has been reaped.
func (c *Child) Exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Signal delivers sig to pid.
func Signal(pid int, sig syscall.Signal) error {
	if pid <= 1 {
		return ErrBadPID
	}
	if err := unix.Kill(pid, sig); err != nil {
		return fmt.Errorf("proc: kill %d %s: %w", pid, unix.SignalName(sig), err)
	}
	return nil
}

// PeerPID returns the pid exported in PeerEnv, falling back to the parent.
func PeerPID() int {
	if v := os.Getenv(PeerEnv); v != "" {
		if pid, err := strconv.Atoi(v); err == nil && pid > 1 {
			return pid
		}
	}
	return os.Getppid()
}

// PeerEnvEntry formats pid for Spawn's extraEnv.
func PeerEnvEntry(pid int) string { return PeerEnv + "=" + strconv.Itoa(pid) }

// ReplaceSelf replaces the current process image with path. It only
// returns on failure.
func ReplaceSelf(path string, argv []string, env []string) error {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExec, path, err)
	}
	if env == nil {
		env = os.Environ()
	}
	if err := unix.Exec(resolved, argv, env); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExec, resolved, err)
	}
	return nil
}

// Executable returns the absolute path of the running binary.
func Executable() (string, error) {
	p, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(p)
}

// WithoutEnv returns env minus any entry for key.
func WithoutEnv(env []string, key string) []string {
	out := make([]string, 0, len(env))
	prefix := key + "="
	for _, kv := range env {
		if len(kv) >= len(prefix) && kv[:len(prefix)] == prefix {
			continue
		}
		out = append(out, kv)
	}
	return out
}
