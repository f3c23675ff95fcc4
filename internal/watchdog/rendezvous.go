package watchdog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const (
	WDSemaphore   = "wd_semaphore"
	UserSemaphore = "user_semaphore"
)

var ErrRendezvous = errors.New("watchdog: rendezvous failed")

// Semaphore is a named counting semaphore backed by a FIFO: Post writes
// one token, Wait consumes one. The FIFO is opened read-write so neither
// open blocks and posted tokens survive until the peer opens its end.
type Semaphore struct {
	path string

	mu sync.Mutex
	f  *os.File
}

func openSemaphore(path string) (*Semaphore, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &Semaphore{path: path, f: f}, nil
}

func (s *Semaphore) Path() string { return s.path }

func (s *Semaphore) file() (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil, os.ErrClosed
	}
	return s.f, nil
}

func (s *Semaphore) Post() error {
	f, err := s.file()
	if err != nil {
		return err
	}
	if _, err := f.Write([]byte{1}); err != nil {
		return fmt.Errorf("post %s: %w", s.path, err)
	}
	return nil
}

// Wait blocks until a token is available or ctx ends.
func (s *Semaphore) Wait(ctx context.Context) error {
	f, err := s.file()
	if err != nil {
		return err
	}

	_ = f.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() { _ = f.SetReadDeadline(time.Unix(1, 0)) })
	defer stop()

	var b [1]byte
	_, err = io.ReadFull(f, b[:])
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("wait %s: %w", s.path, err)
	}
	return nil
}

func (s *Semaphore) Close() error {
	s.mu.Lock()
	f := s.f
	s.f = nil
	s.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

// Rendezvous is the pair of semaphores used for the startup handshake.
type Rendezvous struct {
	Dir  string
	WD   *Semaphore
	User *Semaphore
}

// CreateRendezvous removes any stale pair in dir and creates a fresh one.
// The supervisor calls it once per spawned peer.
func CreateRendezvous(dir string) (*Rendezvous, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRendezvous, err)
	}
	if err := UnlinkRendezvous(dir); err != nil {
		return nil, err
	}
	for _, name := range []string{WDSemaphore, UserSemaphore} {
		if err := unix.Mkfifo(filepath.Join(dir, name), 0o600); err != nil {
			_ = UnlinkRendezvous(dir)
			return nil, fmt.Errorf("%w: mkfifo %s: %v", ErrRendezvous, name, err)
		}
	}
	rv, err := OpenRendezvous(dir)
	if err != nil {
		_ = UnlinkRendezvous(dir)
		return nil, err
	}
	return rv, nil
}

// OpenRendezvous opens an existing pair created by the supervisor.
func OpenRendezvous(dir string) (*Rendezvous, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	wd, err := openSemaphore(filepath.Join(dir, WDSemaphore))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRendezvous, err)
	}
	user, err := openSemaphore(filepath.Join(dir, UserSemaphore))
	if err != nil {
		_ = wd.Close()
		return nil, fmt.Errorf("%w: %v", ErrRendezvous, err)
	}
	return &Rendezvous{Dir: dir, WD: wd, User: user}, nil
}

// UnlinkRendezvous removes both FIFOs from dir. Missing files are ignored.
func UnlinkRendezvous(dir string) error {
	for _, name := range []string{WDSemaphore, UserSemaphore} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: unlink %s: %v", ErrRendezvous, name, err)
		}
	}
	return nil
}

// Close releases both semaphores. It is nil-safe and idempotent.
func (r *Rendezvous) Close() error {
	if r == nil {
		return nil
	}
	return errors.Join(r.WD.Close(), r.User.Close())
}

// Unlink closes and removes the pair.
func (r *Rendezvous) Unlink() error {
	if r == nil {
		return nil
	}
	return errors.Join(r.Close(), UnlinkRendezvous(r.Dir))
}

// HandshakeSupervisor posts the supervised side's token and waits for its
// answer.
func (r *Rendezvous) HandshakeSupervisor(ctx context.Context) error {
	if err := r.WD.Post(); err != nil {
		return err
	}
	return r.User.Wait(ctx)
}

func (r *Rendezvous) HandshakeSupervised(ctx context.Context) error {
	if err := r.User.Post(); err != nil {
		return err
	}
	return r.WD.Wait(ctx)
}
