// Package metrics exposes scheduler and watchdog counters to Prometheus.
//
// Metrics:
//
//	scheduler_tasks_run_total{status}   task executions by returned status
//	scheduler_queue_size                pending tasks after the last change
//	watchdog_pings_sent_total           liveness signals delivered to the peer
//	watchdog_pings_received_total       checks satisfied by a peer ping
//	watchdog_missed_windows_total       intervals that passed without a ping
//	watchdog_peer_restarts_total        peers (or workloads) revived
//
// Each Collector owns its registry so several can coexist in one process.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wdsched/internal/task"
)

type Collector struct {
	reg *prometheus.Registry

	tasksRun      *prometheus.CounterVec
	queueSize     prometheus.Gauge
	pingsSent     prometheus.Counter
	pingsReceived prometheus.Counter
	missed        prometheus.Counter
	restarts      prometheus.Counter
}

// NewCollector builds a Collector. With runtime set, Go runtime and process
// collectors are registered too.
func NewCollector(runtime bool) *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		tasksRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_tasks_run_total",
			Help: "Task executions by returned status",
		}, []string{"status"}),
		queueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_queue_size",
			Help: "Number of pending tasks",
		}),
		pingsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_pings_sent_total",
			Help: "Liveness signals delivered to the peer",
		}),
		pingsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_pings_received_total",
			Help: "Ping checks satisfied by the peer",
		}),
		missed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_missed_windows_total",
			Help: "Intervals that elapsed without a ping from the peer",
		}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_peer_restarts_total",
			Help: "Peer processes restarted after becoming unresponsive",
		}),
	}
	c.reg.MustRegister(c.tasksRun, c.queueSize, c.pingsSent, c.pingsReceived, c.missed, c.restarts)
	if runtime {
		c.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	// both statuses show up at zero before the first run
	c.tasksRun.WithLabelValues(task.Continue.String())
	c.tasksRun.WithLabelValues(task.Stop.String())
	return c
}

// Registry is the registry the metrics live in.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

func (c *Collector) TaskRan(st task.Status) { c.tasksRun.WithLabelValues(st.String()).Inc() }
func (c *Collector) QueueSize(n int)        { c.queueSize.Set(float64(n)) }

func (c *Collector) PingSent()      { c.pingsSent.Inc() }
func (c *Collector) PingReceived()  { c.pingsReceived.Inc() }
func (c *Collector) MissedWindow()  { c.missed.Inc() }
func (c *Collector) PeerRestarted() { c.restarts.Inc() }
