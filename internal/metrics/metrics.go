// Package metrics exports Prometheus metrics for command executions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/deixis/userland/internal/executor"
)

// Collector counts executions. It implements executor.Observer.
type Collector struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	ongoing    prometheus.Counter
}

// New registers the execution metrics with reg and returns a Collector
// feeding them.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userland_executions_total",
				Help: "Command executions by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "userland_execution_duration_seconds",
				Help:    "Time from invocation to result, by mode",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60, 300, 600},
			},
			[]string{"mode"},
		),
		ongoing: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "userland_ongoing_executions_total",
				Help: "Processes handed back to the caller still running",
			},
		),
	}
	reg.MustRegister(c.executions, c.duration, c.ongoing)
	return c
}

// ObserveExecution records one invocation.
func (c *Collector) ObserveExecution(mode, outcome string, elapsed time.Duration) {
	c.executions.WithLabelValues(mode, outcome).Inc()
	c.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
	if outcome == executor.OutcomeOngoing {
		c.ongoing.Inc()
	}
}

var _ executor.Observer = (*Collector)(nil)
