// Package systemd reports service state to systemd through sd_notify.
// Outside a unit (no NOTIFY_SOCKET) every call is a no-op.
package systemd

import (
	"fmt"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier implements watchdog.Notifier.
type Notifier struct {
	interval time.Duration
}

// New reads the unit's watchdog settings from the environment. The pet
// interval is half the configured WatchdogSec.
func New() (*Notifier, error) {
	n := &Notifier{}
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return nil, fmt.Errorf("systemd watchdog env: %w", err)
	}
	if d > 0 {
		n.interval = d / 2
	}
	return n, nil
}

// UnderSystemd reports whether a notify socket was provided.
func UnderSystemd() bool { return os.Getenv("NOTIFY_SOCKET") != "" }

func (n *Notifier) Ready() error    { return notify(daemon.SdNotifyReady) }
func (n *Notifier) Stopping() error { return notify(daemon.SdNotifyStopping) }
func (n *Notifier) Watchdog() error { return notify(daemon.SdNotifyWatchdog) }

// WatchdogInterval is 0 when systemd's watchdog is off for this unit.
func (n *Notifier) WatchdogInterval() time.Duration { return n.interval }

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(msg string) error { return notify("STATUS=" + msg) }

func notify(state string) error {
	_, err := daemon.SdNotify(false, state)
	return err
}
