package watchdog

import (
	"os"
	"syscall"
	"time"

	"wdsched/internal/clock"
	"wdsched/internal/eventbus"
	"wdsched/internal/proc"
	"wdsched/internal/task/scheduler"
	logx "wdsched/pkg/logx"
)

const (
	// DefaultExecutable is where the supervisor looks for the watchdog binary.
	DefaultExecutable = "./wd_process"
	// RuntimeDirEnv tells the supervised process where the rendezvous lives.
	RuntimeDirEnv = "WD_RUNTIME_DIR"
)

// Metrics is implemented by internal/metrics.Collector.
type Metrics interface {
	Recorder
	scheduler.Recorder
}

// Notifier is the service manager integration (pkg/systemd).
type Notifier interface {
	Ready() error
	Stopping() error
	// WatchdogInterval is how often Watchdog must be called; 0 disables it.
	WatchdogInterval() time.Duration
	Watchdog() error
}

type options struct {
	clk        clock.Clock
	log        logx.Logger
	rec        Recorder
	schedRec   scheduler.Recorder
	bus        eventbus.Bus
	notifier   Notifier
	signal     func(pid int, sig syscall.Signal) error
	exit       func(code int)
	replace    func(path string, argv, env []string) error
	executable string
	runtimeDir string
	policy     RestartPolicy
	handshake  time.Duration
	markerAge  time.Duration
}

type Option func(*options)

func buildOptions(opts []Option) *options {
	o := &options{
		clk:        clock.Real(),
		log:        logx.Nop(),
		rec:        nopRecorder{},
		signal:     proc.Signal,
		exit:       os.Exit,
		replace:    proc.ReplaceSelf,
		executable: DefaultExecutable,
		runtimeDir: os.Getenv(RuntimeDirEnv),
		markerAge:  time.Minute,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.runtimeDir == "" {
		o.runtimeDir = os.TempDir()
	}
	return o
}

func (o *options) schedulerOptions() []scheduler.Option {
	opts := []scheduler.Option{scheduler.WithClock(o.clk), scheduler.WithLogger(o.log)}
	if o.schedRec != nil {
		opts = append(opts, scheduler.WithRecorder(o.schedRec))
	}
	return opts
}

func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clk = c
		}
	}
}

func WithLogger(l logx.Logger) Option {
	return func(o *options) {
		if !l.IsZero() {
			o.log = l
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.rec = m
			o.schedRec = m
		}
	}
}

func WithEventBus(b eventbus.Bus) Option { return func(o *options) { o.bus = b } }

func WithNotifier(n Notifier) Option { return func(o *options) { o.notifier = n } }

// WithExecutable sets the supervised executable path.
func WithExecutable(path string) Option {
	return func(o *options) {
		if path != "" {
			o.executable = path
		}
	}
}

// WithRuntimeDir sets where the rendezvous FIFOs and restart marker live.
func WithRuntimeDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.runtimeDir = dir
		}
	}
}

func WithRestartPolicy(p RestartPolicy) Option { return func(o *options) { o.policy = p } }

// WithHandshakeTimeout bounds the startup rendezvous; 0 waits until the
// peer answers or exits.
func WithHandshakeTimeout(d time.Duration) Option { return func(o *options) { o.handshake = d } }

// WithSignaler replaces signal delivery (tests).
func WithSignaler(fn func(pid int, sig syscall.Signal) error) Option {
	return func(o *options) {
		if fn != nil {
			o.signal = fn
		}
	}
}

// WithExit replaces os.Exit in the stop-request path (tests).
func WithExit(fn func(code int)) Option {
	return func(o *options) {
		if fn != nil {
			o.exit = fn
		}
	}
}

// WithReplace replaces the exec used to revive the workload (tests).
func WithReplace(fn func(path string, argv, env []string) error) Option {
	return func(o *options) {
		if fn != nil {
			o.replace = fn
		}
	}
}
