// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"errors"
	"net/http"

	"github.com/kiranshivaraju/hireflow/internal/engine"
	"github.com/kiranshivaraju/hireflow/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	decisions       *prometheus.CounterVec
	cascades        *prometheus.CounterVec
	publishFailures prometheus.Counter
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hireflow_decisions_total",
			Help: "Pipeline operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		cascades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hireflow_cascades_total",
			Help: "Interview transitions forced by an application transition.",
		}, []string{"to"}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hireflow_event_publish_failures_total",
			Help: "Events that could not be published after commit.",
		}),
	}
	reg.MustRegister(m.decisions, m.cascades, m.publishFailures)
	return m
}

// ObserveDecision counts one operation with an outcome derived from err.
func (m *Metrics) ObserveDecision(operation string, err error) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(operation, Outcome(err)).Inc()
}

// ObserveCascade counts one cascaded interview transition.
func (m *Metrics) ObserveCascade(to models.InterviewStatus) {
	if m == nil {
		return
	}
	m.cascades.WithLabelValues(string(to)).Inc()
}

// PublishFailed counts one dropped event.
func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

// Outcome maps an operation result to a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, engine.ErrForbidden):
		return "forbidden"
	case errors.Is(err, engine.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, engine.ErrConflict):
		return "conflict"
	case errors.Is(err, engine.ErrNotFound):
		return "not_found"
	case errors.Is(err, engine.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
