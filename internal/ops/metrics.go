package ops

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/erpsync/internal/model"
)

const (
	namespace = "erpsync"
	subsystem = "ops"
)

// Metrics records invocation outcomes. A nil *Metrics records nothing.
type Metrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    *prometheus.GaugeVec
}

// NewMetrics creates the invocation metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "invocations_total",
				Help:      "Total number of operation invocations by outcome",
			},
			[]string{"resource", "operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "invocation_duration_seconds",
				Help:      "Duration of operation invocations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"resource", "operation"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "invocations_in_flight",
				Help:      "Number of invocations awaiting their terminal event",
			},
			[]string{"resource", "operation"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.invocations, m.duration, m.inFlight)
	}
	return m
}

func (m *Metrics) started(r model.Resource, op model.OperationName) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(string(r), string(op)).Inc()
}

func (m *Metrics) finished(r model.Resource, op model.OperationName, state string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(string(r), string(op)).Dec()
	m.invocations.WithLabelValues(string(r), string(op), state).Inc()
	m.duration.WithLabelValues(string(r), string(op)).Observe(elapsed.Seconds())
}
