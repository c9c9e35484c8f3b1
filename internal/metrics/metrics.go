// Package metrics counts executed power actions and exports them in the
// Prometheus text format for node_exporter's textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
)

const namespace = "nodectl"

// OutcomeSuccess is the outcome label of a successful action. Failures are
// labelled with their error kind.
const OutcomeSuccess = "success"

// Recorder holds the action metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry
	actions  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastRun  *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Power actions executed, by backend, action, and outcome.",
		}, []string{"backend", "action", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Time from accepting a power action to its result.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"backend", "action"}),
		lastRun: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_action_success",
			Help:      "Whether the most recent action against a node succeeded (1) or failed (0).",
		}, []string{"backend", "node"}),
	}
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records one executed request.
func (r *Recorder) Observe(req domain.ActionRequest, result domain.ActionResult) {
	backend := req.Node.Backend
	action := req.Action.String()

	outcome := OutcomeSuccess
	success := 1.0
	if result.Failure != nil {
		outcome = string(result.Failure.Kind)
		success = 0
	}

	r.actions.WithLabelValues(backend, action, outcome).Inc()
	r.duration.WithLabelValues(backend, action).Observe(result.Elapsed().Seconds())
	r.lastRun.WithLabelValues(backend, req.Node.Label()).Set(success)
}

// WriteTextfile atomically writes the current metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
