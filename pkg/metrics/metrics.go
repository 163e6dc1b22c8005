package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cosigner"

// Metrics holds the signing engine's collectors, registered against one registry.
type Metrics struct {
	registry *prometheus.Registry

	RoundsStarted       prometheus.Counter
	RoundsAborted       *prometheus.CounterVec
	SignaturesCollected *prometheus.CounterVec
	Submissions         *prometheus.CounterVec
	ConfirmPolls        prometheus.Counter
	RoundDuration       prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RoundsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "started_total",
			Help:      "Number of signing rounds started",
		}),
		RoundsAborted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "aborted_total",
			Help:      "Number of signing rounds aborted, by error kind",
		}, []string{"kind"}),
		SignaturesCollected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signatures",
			Name:      "collected_total",
			Help:      "Number of verified signatures collected, by signer kind",
		}, []string{"signer"}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submissions",
			Name:      "total",
			Help:      "Number of submissions, by outcome",
		}, []string{"outcome"}),
		ConfirmPolls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submissions",
			Name:      "confirm_polls_total",
			Help:      "Number of confirmation status polls",
		}),
		RoundDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "duration_seconds",
			Help:      "Time from token fetch to confirmation or abort",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
