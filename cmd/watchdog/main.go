// Command watchdog is the supervised side of the watchdog pair. The
// workload spawns it as
//
//	wd_process <interval> <tolerance> <workload-path> [workload-args...]
//
// It pings the workload and, if the workload stops answering, replaces
// itself with a fresh copy of the workload.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wdsched/internal/watchdog"
	logx "wdsched/pkg/logx"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := logx.NewConsole(envOr("WD_LOG_LEVEL", "info")).With(logx.String("proc", "wd_process"))
	if err := watchdog.RunSupervised(ctx, os.Args, watchdog.WithLogger(log)); err != nil {
		fatal(err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
