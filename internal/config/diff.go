package config

import (
	"reflect"

	logx "wdsched/pkg/logx"
)

// SummarizeChange lists the sections that differ between two configs and
// returns log fields describing the new values. Tokens are reported only
// as set or unset.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var changed []string
	var attrs []logx.Field

	if oldCfg.Watchdog != newCfg.Watchdog || oldCfg.Restart != newCfg.Restart {
		changed = append(changed, "watchdog")
		attrs = append(attrs,
			logx.String("watchdog.interval", newCfg.Watchdog.Interval),
			logx.Int("watchdog.tolerance", newCfg.Watchdog.Tolerance),
			logx.Int("restart.max_restarts", newCfg.Restart.MaxRestarts),
		)
	}
	if oldCfg.Workload != newCfg.Workload {
		changed = append(changed, "workload")
		attrs = append(attrs, logx.String("workload.every", newCfg.Workload.Every))
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		if newCfg.Storage != nil {
			attrs = append(attrs, logx.String("storage.driver", newCfg.Storage.Driver))
		}
	}
	if oldCfg.Diagnostics != newCfg.Diagnostics {
		changed = append(changed, "diagnostics")
		attrs = append(attrs,
			logx.Bool("diagnostics.enabled", newCfg.Diagnostics.Enabled),
			logx.String("diagnostics.addr", newCfg.Diagnostics.Addr),
			logx.Bool("diagnostics.token_set", newCfg.Diagnostics.Token != ""),
		)
	}
	return changed, attrs
}

// RequiresRestart reports whether the change touches sections that are
// only read at startup.
func RequiresRestart(changed []string) bool {
	for _, s := range changed {
		switch s {
		case "watchdog", "workload", "storage":
			return true
		}
	}
	return false
}
