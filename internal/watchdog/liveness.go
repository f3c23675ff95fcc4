package watchdog

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// PingSignal and StopSignal are the two application messages exchanged
// between the roles.
const (
	PingSignal = syscall.SIGUSR1
	StopSignal = syscall.SIGUSR2
)

// Liveness is the "ping received" flag. It is set from the signal delivery
// goroutine and consumed by the check-ping task; nothing else is shared
// with signal delivery.
type Liveness struct {
	flag atomic.Bool
}

func (l *Liveness) Mark() { l.flag.Store(true) }

// Consume clears the flag and reports whether it was set.
func (l *Liveness) Consume() bool { return l.flag.CompareAndSwap(true, false) }

// Listen marks the flag on every delivery of sig until ctx ends or the
// returned stop func is called.
func (l *Liveness) Listen(ctx context.Context, sig os.Signal) (stop func()) {
	return onSignal(ctx, sig, func() { l.Mark() })
}

// onSignal runs fn on the delivery goroutine for each sig.
func onSignal(ctx context.Context, sig os.Signal, fn func()) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				fn()
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		cancel()
		<-done
	}
}
