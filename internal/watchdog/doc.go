// Package watchdog implements mutual heartbeat monitoring between a
// supervisor process (the workload that called wd.Start) and a supervised
// process (the watchdog executable it spawned).
//
// Each side runs a scheduler with two tasks: one sends a liveness ping
// (SIGUSR1) to the peer every interval, the other waits for the peer's
// pings and stops the scheduler once tolerance windows pass in silence.
// The role then revives the peer: the supervisor spawns a fresh supervised
// process, the supervised process replaces its own image with the workload.
//
// Startup is synchronized by a one-shot rendezvous of two named
// semaphores, realized as named FIFOs so both processes can find them by
// path.
package watchdog
