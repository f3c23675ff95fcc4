// Package storage journals watchdog lifecycle events so restarts and
// unresponsive peers can be inspected after the fact.
//
// Drivers:
//   - "file": JSON Lines, compacted to the newest Retention entries
//   - "sqlite": SQLite database (build tag sqlite)
package storage
