package observability

import (
	"context"
	"errors"

	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Failure reasons used as the "reason" label.
const (
	ReasonUnknownFunction = "unknown_function"
	ReasonMissingOptions  = "missing_options"
	ReasonUnclassified    = "unclassified"
	ReasonOther           = "other"
)

// Metrics holds the Prometheus collectors fed by the validator hooks.
type Metrics struct {
	validations *prometheus.CounterVec
	states      *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rowflow_validations_total",
				Help: "Total number of validated rows by summary",
			},
			[]string{"summary"},
		),
		states: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rowflow_variable_states_total",
				Help: "Total number of classified variables by state",
			},
			[]string{"state"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rowflow_validation_failures_total",
				Help: "Total number of validations aborted by a configuration error",
			},
			[]string{"reason"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rowflow_validation_duration_seconds",
				Help:    "Duration of row validations",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"schema"},
		),
	}

	for _, c := range []prometheus.Collector{m.validations, m.states, m.failures, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnVariable: func(ctx context.Context, e *domain.VariableEvent) {
			m.states.WithLabelValues(string(e.Feedback.State)).Inc()
		},
		OnValidated: func(ctx context.Context, e *domain.ValidationEvent) {
			m.duration.WithLabelValues(e.Schema).Observe(e.Duration.Seconds())
			if e.Err != nil {
				m.ObserveFailure(e.Err)
				return
			}
			m.validations.WithLabelValues(string(e.Summary)).Inc()
		},
	}
}

// ObserveFailure counts an aborted validation under its reason.
func (m *Metrics) ObserveFailure(err error) {
	m.failures.WithLabelValues(Reason(err)).Inc()
}

// Reason maps a validation error onto a low-cardinality label.
func Reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownFunction):
		return ReasonUnknownFunction
	case errors.Is(err, domain.ErrMissingOptions):
		return ReasonMissingOptions
	case errors.Is(err, domain.ErrUnclassified):
		return ReasonUnclassified
	default:
		return ReasonOther
	}
}
