package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors recorded by the manifest services.
type Metrics struct {
	registry     *prometheus.Registry
	transitions  *prometheus.CounterVec
	notifyFailed *prometheus.CounterVec
	batchSize    prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "manifest_transitions_total",
			Help: "Manifest transition submissions by action and outcome kind.",
		}, []string{"action", "outcome"}),
		notifyFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "manifest_notifications_failed_total",
			Help: "Transition notifications that could not be delivered.",
		}, []string{"action"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "manifest_batch_size",
			Help:    "Number of manifests per batch submission.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
	}
	m.registry.MustRegister(m.transitions, m.notifyFailed, m.batchSize)
	return m
}

// Methods are nil-safe so services can run without metrics in tests.

func (m *Metrics) ObserveTransition(action, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) ObserveNotificationFailure(action string) {
	if m == nil {
		return
	}
	m.notifyFailed.WithLabelValues(action).Inc()
}

func (m *Metrics) ObserveBatch(size int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
