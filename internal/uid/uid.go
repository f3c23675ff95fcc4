// Package uid generates identifiers that are unique across processes on a
// host and across hosts on a network: wall clock, a per-generator counter,
// the process id and the first non-loopback IPv4 address.
package uid

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"wdsched/internal/clock"
)

var ErrNoInterfaces = errors.New("uid: cannot list network interfaces")

type UID struct {
	Time    time.Time
	Counter uint64
	PID     int
	IP      [4]byte
}

// Bad is returned when generation fails. It is never produced by a
// successful generation.
var Bad = UID{}

func (u UID) IsBad() bool { return Equal(u, Bad) }

// Equal compares every field byte-exactly.
func Equal(a, b UID) bool {
	return a.Time.Equal(b.Time) &&
		a.Counter == b.Counter &&
		a.PID == b.PID &&
		a.IP == b.IP
}

func (u UID) String() string {
	if u.IsBad() {
		return "uid(bad)"
	}
	return fmt.Sprintf("%d.%d.%d.%s",
		u.Time.UnixNano(), u.Counter, u.PID, net.IP(u.IP[:]).String())
}

// AddrFunc returns the address list a Generator picks its IPv4 from.
type AddrFunc func() ([]net.Addr, error)

type Generator struct {
	mu      sync.Mutex
	counter uint64

	addrs AddrFunc
	pid   func() int
	clk   clock.Clock
}

type Option func(*Generator)

// WithAddrs replaces the interface address lookup.
func WithAddrs(fn AddrFunc) Option {
	return func(g *Generator) {
		if fn != nil {
			g.addrs = fn
		}
	}
}

func WithPID(fn func() int) Option {
	return func(g *Generator) {
		if fn != nil {
			g.pid = fn
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(g *Generator) {
		if c != nil {
			g.clk = c
		}
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		addrs: interfaceAddrs,
		pid:   os.Getpid,
		clk:   clock.Real(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Default is shared by callers that do not inject their own generator.
var Default = NewGenerator()

// New returns a fresh UID, or Bad when the interface list cannot be read
// or the clock fails. The clock, counter and pid are read under one lock;
// a failed generation does not consume a counter value.
func (g *Generator) New() UID {
	ip, err := firstIPv4(g.addrs)
	if err != nil {
		return Bad
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.clk.Now()
	if now.IsZero() {
		return Bad
	}
	g.counter++
	return UID{Time: now, Counter: g.counter, PID: g.pid(), IP: ip}
}

func interfaceAddrs() ([]net.Addr, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInterfaces, err)
	}
	return addrs, nil
}

// firstIPv4 picks the first non-loopback IPv4 address. A host with none
// yields the zero address, which still identifies the process locally.
func firstIPv4(lookup AddrFunc) ([4]byte, error) {
	var out [4]byte
	addrs, err := lookup()
	if err != nil {
		return out, err
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		default:
			continue
		}
		if ip.IsLoopback() {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			copy(out[:], v4)
			return out, nil
		}
	}
	return out, nil
}
