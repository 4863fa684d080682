package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics observes fan-out activity.
type Metrics interface {
	Connections(n int)
	Broadcast(eventType string)
	Dropped(reason string)
}

var (
	openConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_open_connections",
			Help: "WebSocket connections currently registered",
		},
	)

	broadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_broadcasts_total",
			Help: "Events fanned out to WebSocket clients",
		},
		[]string{"event_type"},
	)

	droppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_dropped_total",
			Help: "Events or connections dropped by the gateway",
		},
		[]string{"reason"},
	)
)

type PrometheusMetrics struct{}

func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{}
}

func (PrometheusMetrics) Connections(n int) {
	openConnections.Set(float64(n))
}

func (PrometheusMetrics) Broadcast(eventType string) {
	broadcastsTotal.WithLabelValues(eventType).Inc()
}

func (PrometheusMetrics) Dropped(reason string) {
	droppedTotal.WithLabelValues(reason).Inc()
}

type noopMetrics struct{}

func (noopMetrics) Connections(int)  {}
func (noopMetrics) Broadcast(string) {}
func (noopMetrics) Dropped(string)   {}
