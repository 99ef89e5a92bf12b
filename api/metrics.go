package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zfs-agent/zfs-agent/internal/tasks"
)

// Gauge/counter instrumentation ambient to the domain (SPEC_FULL.md §11),
// grounded on the sibling agent's daemon/services/api/metrics.go: one
// registry, gauges updated from current state immediately before each
// scrape rather than on every state transition.
var (
	metricsRegistry = prometheus.NewRegistry()

	tasksByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "zfs_agent_tasks_by_status",
			Help: "Number of tracked tasks currently in each status",
		},
		[]string{"status"},
	)
	poolsBusy = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zfs_agent_pools_busy",
		Help: "Number of pools currently reserved by a non-terminal task",
	})
	safetyLocked = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zfs_agent_safety_locked",
		Help: "Safety lock state (1=locked, 0=unlocked)",
	})
	bytesSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zfs_agent_replication_bytes_sent_total",
		Help: "Cumulative bytes written by send-to-file operations",
	})
	bytesReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zfs_agent_replication_bytes_received_total",
		Help: "Cumulative bytes consumed by receive-from-file operations",
	})
)

func init() {
	metricsRegistry.MustRegister(tasksByStatus, poolsBusy, safetyLocked, bytesSentTotal, bytesReceivedTotal)
}

// recordBytesSent is called by recordTransferMetric (server.go) when a
// send-to-file task completes. recordBytesReceived has no caller, so the
// bytes-received counter stays at zero.
func recordBytesSent(n int64) {
	if n > 0 {
		bytesSentTotal.Add(float64(n))
	}
}

func recordBytesReceived(n int64) {
	if n > 0 {
		bytesReceivedTotal.Add(float64(n))
	}
}

// handleMetrics godoc
//
//	@Summary		Prometheus metrics
//	@Description	Exposes task, pool, safety, and replication throughput gauges
//	@Tags			Metrics
//	@Produce		text/plain
//	@Router			/metrics [get]
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.updateMetrics()
	promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func (s *Server) updateMetrics() {
	counts := map[tasks.Status]int{}
	for _, t := range s.dispatcher.Tasks.Snapshot() {
		counts[t.Status]++
	}
	tasksByStatus.Reset()
	for _, status := range []tasks.Status{tasks.Pending, tasks.Running, tasks.Completed, tasks.Failed} {
		tasksByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
	}

	poolsBusy.Set(float64(s.dispatcher.Tasks.BusyPoolCount()))

	locked := 0.0
	if s.dispatcher.SafetyStatus().Locked {
		locked = 1.0
	}
	safetyLocked.Set(locked)
}
