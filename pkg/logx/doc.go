// Package logx configures structured logging for the scheduler, the
// watchdog roles and the demo binaries.
//
// A small wrapper (logx.Logger) on top of zerolog keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Every line tagged with the emitting pid, since supervisor and
//     supervised processes usually share one terminal
package logx
