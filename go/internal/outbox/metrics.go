package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Outbox events relayed to JetStream",
		},
		[]string{"event_type"},
	)

	publishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_publish_failures_total",
			Help: "Outbox events that exhausted their publish retries",
		},
		[]string{"event_type"},
	)

	unsentEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_unsent_events",
			Help: "Outbox rows not yet relayed, as of the last sweep",
		},
	)
)

type PrometheusMetrics struct{}

func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{}
}

func (PrometheusMetrics) Published(eventType string) {
	eventsPublishedTotal.WithLabelValues(eventType).Inc()
}

func (PrometheusMetrics) PublishFailed(eventType string) {
	publishFailuresTotal.WithLabelValues(eventType).Inc()
}

func (PrometheusMetrics) Unsent(n int64) {
	unsentEvents.Set(float64(n))
}

type noopMetrics struct{}

func (noopMetrics) Published(string)     {}
func (noopMetrics) PublishFailed(string) {}
func (noopMetrics) Unsent(int64)         {}
