package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"wdsched/internal/diag"
	"wdsched/internal/storage"
	"wdsched/internal/task/scheduler"
	"wdsched/internal/watchdog"
	logx "wdsched/pkg/logx"
)

// Config is the workload's configuration file.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Watchdog    WatchdogConfig    `json:"watchdog"`
	Restart     RestartConfig     `json:"restart,omitempty"`
	Workload    WorkloadConfig    `json:"workload,omitempty"`
	Logging     LoggingConfig     `json:"logging"`
	Storage     *StorageConfig    `json:"storage,omitempty"`
	Diagnostics DiagnosticsConfig `json:"diagnostics,omitempty"`
}

// WatchdogConfig controls the supervisor and the process it spawns.
//
// Defaults: interval "1s", tolerance 3, executable "./wd_process",
// runtime_dir $WD_RUNTIME_DIR or the system temp dir, no handshake timeout.
type WatchdogConfig struct {
	Interval         string `json:"interval"`
	Tolerance        int    `json:"tolerance"`
	Executable       string `json:"executable,omitempty"`
	RuntimeDir       string `json:"runtime_dir,omitempty"`
	HandshakeTimeout string `json:"handshake_timeout,omitempty"`
	// Systemd enables sd_notify READY/STOPPING/WATCHDOG when run as a unit.
	Systemd bool `json:"systemd,omitempty"`
}

// RestartConfig paces peer restarts. Zero values mean no limit.
type RestartConfig struct {
	// Every is the minimum spacing between sustained restarts.
	Every       string `json:"every,omitempty"`
	Burst       int    `json:"burst,omitempty"`
	MaxRestarts int    `json:"max_restarts,omitempty"`
}

// WorkloadConfig controls the demo job. Every takes any schedule string
// the scheduler accepts ("@every 1s", "*/5 * * * * *", "500ms").
type WorkloadConfig struct {
	Every string `json:"every,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	JSON    bool        `json:"json,omitempty"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the event journal.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./wdsched_events.jsonl" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	Retention   int    `json:"retention,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite
}

// DiagnosticsConfig controls the optional HTTP diagnostics server.
//
// Prefer a loopback addr. A non-loopback addr needs a token or
// allow_insecure.
type DiagnosticsConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`
	Token         string `json:"token,omitempty"` // never logged
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`

	MutexProfileFraction int `json:"mutex_profile_fraction,omitempty"`
	BlockProfileRate     int `json:"block_profile_rate,omitempty"`
}

const (
	DefaultInterval      = time.Second
	DefaultTolerance     = 3
	DefaultWorkloadEvery = "@every 1s"
)

// WatchdogSettings is the parsed form of the watchdog and restart sections.
type WatchdogSettings struct {
	Interval  time.Duration
	Tolerance int
	Systemd   bool
	Options   []watchdog.Option
}

// WatchdogSettings parses the watchdog and restart sections.
func (c *Config) WatchdogSettings() (WatchdogSettings, error) {
	w := c.Watchdog
	out := WatchdogSettings{Tolerance: w.Tolerance, Systemd: w.Systemd}
	if out.Tolerance == 0 {
		out.Tolerance = DefaultTolerance
	}
	if out.Tolerance < 0 {
		return WatchdogSettings{}, errors.New("watchdog.tolerance: must be > 0")
	}

	var err error
	if out.Interval, err = positiveDuration("watchdog.interval", w.Interval, DefaultInterval); err != nil {
		return WatchdogSettings{}, err
	}
	hs, err := durationField("watchdog.handshake_timeout", w.HandshakeTimeout)
	if err != nil {
		return WatchdogSettings{}, err
	}
	every, err := durationField("restart.every", c.Restart.Every)
	if err != nil {
		return WatchdogSettings{}, err
	}
	if c.Restart.Burst < 0 || c.Restart.MaxRestarts < 0 {
		return WatchdogSettings{}, errors.New("restart: burst and max_restarts must be >= 0")
	}

	policy := watchdog.RestartPolicy{Burst: c.Restart.Burst, MaxRestarts: c.Restart.MaxRestarts}
	if every > 0 {
		policy.Limit = rate.Every(every)
	}
	out.Options = []watchdog.Option{
		watchdog.WithExecutable(strings.TrimSpace(w.Executable)),
		watchdog.WithRuntimeDir(strings.TrimSpace(w.RuntimeDir)),
		watchdog.WithHandshakeTimeout(hs),
		watchdog.WithRestartPolicy(policy),
	}
	return out, nil
}

// WorkloadSchedule returns the demo job's schedule string, checked by
// scheduler.ParseSchedule.
func (c *Config) WorkloadSchedule() (string, error) {
	every := strings.TrimSpace(c.Workload.Every)
	if every == "" {
		every = DefaultWorkloadEvery
	}
	if _, err := scheduler.ParseSchedule(every); err != nil {
		return "", fmt.Errorf("workload.every: %w", err)
	}
	return every, nil
}

// LogConfig converts the logging section for logx.Service.
func (c *Config) LogConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		JSON:    c.Logging.JSON,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}

// StorageConfig converts the storage section. A missing section disables
// the journal.
func (c *Config) StorageConfig() (storage.Config, error) {
	if c.Storage == nil {
		return storage.Config{}, nil
	}
	bt, err := durationField("storage.busy_timeout", c.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	if c.Storage.Retention < 0 {
		return storage.Config{}, errors.New("storage.retention: must be >= 0")
	}
	return storage.Config{
		Driver:      c.Storage.Driver,
		Path:        c.Storage.Path,
		Retention:   c.Storage.Retention,
		BusyTimeout: bt,
	}, nil
}

// DiagConfig converts the diagnostics section.
func (c *Config) DiagConfig() (diag.Config, error) {
	d := c.Diagnostics
	out := diag.Config{
		Enabled:              d.Enabled,
		Addr:                 strings.TrimSpace(d.Addr),
		Token:                strings.TrimSpace(d.Token),
		AllowInsecure:        d.AllowInsecure,
		MutexProfileFraction: d.MutexProfileFraction,
		BlockProfileRate:     d.BlockProfileRate,
	}
	var err error
	if out.ReadTimeout, err = durationField("diagnostics.read_timeout", d.ReadTimeout); err != nil {
		return diag.Config{}, err
	}
	if out.WriteTimeout, err = durationField("diagnostics.write_timeout", d.WriteTimeout); err != nil {
		return diag.Config{}, err
	}
	if out.IdleTimeout, err = durationField("diagnostics.idle_timeout", d.IdleTimeout); err != nil {
		return diag.Config{}, err
	}
	return out, nil
}

// Validate checks every section that is parsed at startup. Watch uses it
// to reject a bad edit before it is published.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if _, err := c.WatchdogSettings(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.WorkloadSchedule(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.StorageConfig(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.DiagConfig(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// durationField parses an optional Go duration; empty means zero.
func durationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// positiveDuration is durationField for settings that cannot be zero.
// Leaving the field out selects def; writing "0s" is an error.
func positiveDuration(path, raw string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	d, err := durationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("%s: duration must be > 0", path)
	}
	return d, nil
}
