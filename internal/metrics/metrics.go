// ABOUTME: Prometheus metrics for lead rotation, registered on a private registry
// ABOUTME: Exposes Handler() for the gateway's /metrics endpoint

// Package metrics provides Prometheus observability for lead assignment.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Assignment paths used as the "path" label.
const (
	PathSingle = "single"
	PathBatch  = "batch"
)

// Registry is the custom prometheus registry for the gateway.
var Registry = prometheus.NewRegistry()

// factory registers metrics on Registry directly.
var factory = promauto.With(Registry)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// AssignmentsTotal counts leads assigned to an agent, by path.
var AssignmentsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crm",
	Subsystem: "rotation",
	Name:      "assignments_total",
	Help:      "Leads assigned to an agent by round-robin rotation",
}, []string{"path"})

// BatchSkippedTotal counts batch units whose lead insert failed.
var BatchSkippedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "crm",
	Subsystem: "rotation",
	Name:      "batch_skipped_total",
	Help:      "Communication logs skipped in batch assignment because the lead insert failed",
})

// CursorWriteFailuresTotal counts cursor persists that failed after a successful assignment.
// Each one means the next assignment repeats the same agent.
var CursorWriteFailuresTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "crm",
	Subsystem: "rotation",
	Name:      "cursor_write_failures_total",
	Help:      "Rotation cursor writes that failed after a successful assignment",
})

// ErrorsTotal counts assignment calls that failed outright, by reason.
var ErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crm",
	Subsystem: "rotation",
	Name:      "errors_total",
	Help:      "Assignment calls that failed, by reason",
}, []string{"reason"})

// AssignDurationSeconds tracks end-to-end assignment call latency.
var AssignDurationSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "crm",
	Subsystem: "rotation",
	Name:      "assign_duration_seconds",
	Help:      "Time taken by an assignment call, by path",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
}, []string{"path"})

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
