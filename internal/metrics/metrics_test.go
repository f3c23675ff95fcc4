package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wdsched/internal/task"
	"wdsched/internal/task/scheduler"
	"wdsched/internal/watchdog"
)

var (
	_ watchdog.Metrics   = (*Collector)(nil)
	_ scheduler.Recorder = (*Collector)(nil)
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollectorExposesCounters(t *testing.T) {
	c := NewCollector(false)

	c.TaskRan(task.Continue)
	c.TaskRan(task.Continue)
	c.TaskRan(task.Stop)
	c.QueueSize(4)
	c.PingSent()
	c.PingReceived()
	c.MissedWindow()
	c.MissedWindow()
	c.PeerRestarted()

	out := scrape(t, c)
	assert.Contains(t, out, `scheduler_tasks_run_total{status="continue"} 2`)
	assert.Contains(t, out, `scheduler_tasks_run_total{status="stop"} 1`)
	assert.Contains(t, out, "scheduler_queue_size 4")
	assert.Contains(t, out, "watchdog_pings_sent_total 1")
	assert.Contains(t, out, "watchdog_pings_received_total 1")
	assert.Contains(t, out, "watchdog_missed_windows_total 2")
	assert.Contains(t, out, "watchdog_peer_restarts_total 1")
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector(true)
	b := NewCollector(true)
	a.PingSent()

	assert.Contains(t, scrape(t, a), "watchdog_pings_sent_total 1")
	assert.Contains(t, scrape(t, b), "watchdog_pings_sent_total 0")
	assert.Contains(t, scrape(t, b), "go_goroutines")
}
