// Command workload is a demo workload protected by the watchdog. Its job
// steps through the Fibonacci sequence on a schedule ("@every 1s" unless
// configured otherwise) while the watchdog process it spawned keeps an eye
// on it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wdsched/internal/config"
	"wdsched/internal/diag"
	"wdsched/internal/eventbus"
	"wdsched/internal/metrics"
	rtsup "wdsched/internal/runtime/supervisor"
	"wdsched/internal/storage"
	"wdsched/internal/task"
	"wdsched/internal/task/scheduler"
	"wdsched/internal/watchdog"
	logx "wdsched/pkg/logx"
	"wdsched/pkg/systemd"
	"wdsched/pkg/wd"
)

type flags struct {
	config     string
	every      string
	interval   time.Duration
	tolerance  int
	iterations int
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		fatal(err)
	}
}

func rootCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "workload",
		Short:         "Fibonacci workload supervised by wd_process",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "config file (json or yaml)")
	cmd.Flags().StringVar(&f.every, "every", config.DefaultWorkloadEvery, "job schedule (cron, @every or duration)")
	cmd.Flags().DurationVar(&f.interval, "interval", config.DefaultInterval, "ping interval")
	cmd.Flags().IntVar(&f.tolerance, "tolerance", config.DefaultTolerance, "missed intervals before restart")
	cmd.Flags().IntVar(&f.iterations, "iterations", 0, "stop after n iterations (0 runs until signalled)")
	return cmd
}

func loadConfig(cmd *cobra.Command, f flags) (*config.Config, *config.ConfigManager, error) {
	cfg := &config.Config{Logging: config.LoggingConfig{Level: "info", Console: true}}
	var mgr *config.ConfigManager
	if f.config != "" {
		mgr = config.NewConfigManager(f.config)
		loaded, err := mgr.Load()
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("every") {
		cfg.Workload.Every = f.every
	}
	if cmd.Flags().Changed("interval") {
		cfg.Watchdog.Interval = f.interval.String()
	}
	if cmd.Flags().Changed("tolerance") {
		cfg.Watchdog.Tolerance = f.tolerance
	}
	return cfg, mgr, cfg.Validate()
}

func run(ctx context.Context, cmd *cobra.Command, f flags) error {
	cfg, mgr, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	logSvc, log := logx.New(cfg.LogConfig())
	defer logSvc.Close()

	ws, err := cfg.WatchdogSettings()
	if err != nil {
		return err
	}
	every, err := cfg.WorkloadSchedule()
	if err != nil {
		return err
	}
	rt := rtsup.NewSupervisor(ctx, rtsup.WithLogger(log))

	col := metrics.NewCollector(true)
	bus := eventbus.New()
	opts := append(ws.Options,
		watchdog.WithLogger(log),
		watchdog.WithMetrics(col),
		watchdog.WithEventBus(bus),
	)

	store, err := openJournal(cfg, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		events, unsub := bus.Subscribe(64)
		defer unsub()
		rt.Go0("journal.pump", func(ctx context.Context) { storage.Pump(ctx, events, store, log) })
	}

	if ws.Systemd && systemd.UnderSystemd() {
		n, err := systemd.New()
		if err != nil {
			return err
		}
		opts = append(opts, watchdog.WithNotifier(n))
	}

	if st := wd.Start(ctx, os.Args, ws.Interval, ws.Tolerance, opts...); st != wd.Success {
		return fmt.Errorf("watchdog start: %s: %w", st, wd.Err())
	}
	defer wd.Stop()

	dcfg, err := cfg.DiagConfig()
	if err != nil {
		return err
	}
	dsvc := diag.New(dcfg, diag.Sources{
		Metrics: col.Handler(),
		Scheduler: func() any {
			if s := wd.Current(); s != nil {
				return s.Snapshot()
			}
			return nil
		},
		Goroutines: rt.Snapshot,
		Journal:    store,
	}, log)
	dsvc.Start(ctx)
	defer dsvc.Stop(context.Background())

	if mgr != nil {
		mgr.SetLogger(log)
		sub := mgr.Subscribe(1)
		defer mgr.Unsubscribe(sub)
		rt.GoRestart("config.watch", mgr.Watch)
		rt.Go0("config.apply", func(ctx context.Context) {
			applyReloads(ctx, sub, cfg, logSvc, dsvc, log)
		})
	}

	log.Info("workload started",
		logx.String("every", every),
		logx.Duration("interval", ws.Interval),
		logx.Int("tolerance", ws.Tolerance),
	)
	sched := scheduler.New(scheduler.WithLogger(log.With(logx.String("role", "workload"))))
	err = runJob(ctx, sched, every, newJob(f.iterations, log))

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wd.StopContext(stopCtx)
	if serr := rt.Stop(stopCtx); serr != nil {
		log.Warn("background tasks stopped with error", logx.Err(serr))
	}
	log.Info("workload stopped")
	return err
}

func openJournal(cfg *config.Config, log logx.Logger) (storage.Store, error) {
	scfg, err := cfg.StorageConfig()
	if err != nil {
		return nil, err
	}
	return storage.Open(scfg, log)
}

// applyReloads applies the sections that can change at runtime.
func applyReloads(ctx context.Context, sub <-chan *config.Config, cur *config.Config, logSvc *logx.Service, dsvc *diag.Service, log logx.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			changed, attrs := config.SummarizeChange(cur, next)
			if len(changed) == 0 {
				continue
			}
			log.Info("config reloaded", append(attrs, logx.Any("changed", changed))...)
			if config.RequiresRestart(changed) {
				log.Warn("watchdog, workload and storage changes apply on next start")
			}
			logSvc.Apply(next.LogConfig())
			if dcfg, err := next.DiagConfig(); err == nil {
				dsvc.Reconfigure(ctx, dcfg)
			}
			cur = next
		}
	}
}

// job is the demo workload: one Fibonacci step per activation.
type job struct {
	log        logx.Logger
	iterations int

	n    int
	a, b uint64
}

// newJob returns a job that asks to be stopped after iterations steps;
// zero or less keeps it running until the scheduler is cancelled.
func newJob(iterations int, log logx.Logger) *job {
	return &job{log: log, iterations: iterations, b: 1}
}

func (j *job) step(context.Context) task.Status {
	j.n++
	j.log.Info("fibonacci", logx.Int("n", j.n), logx.Uint64("value", j.a))
	j.a, j.b = j.b, j.a+j.b
	if j.a > j.b {
		// wrapped around
		j.a, j.b = 0, 1
	}
	if j.iterations > 0 && j.n >= j.iterations {
		return task.Stop
	}
	return task.Continue
}

// runJob schedules j on sched and runs it until j asks to stop or ctx ends.
// sched is destroyed on return.
func runJob(ctx context.Context, sched *scheduler.Scheduler, every string, j *job) error {
	defer sched.Destroy()
	if _, err := sched.AddSchedule(every, j.step, nil); err != nil {
		return fmt.Errorf("workload schedule: %w", err)
	}
	switch st := sched.Run(ctx); st {
	case scheduler.StatusSuccess, scheduler.StatusStop:
		return nil
	default:
		return fmt.Errorf("workload scheduler: %s", st)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
