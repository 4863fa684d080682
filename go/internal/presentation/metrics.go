package presentation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presentation_transitions_total",
			Help: "Applied presentation state transitions",
		},
		[]string{"action"},
	)

	transitionRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presentation_transition_rejections_total",
			Help: "Rejected presentation state transitions by reason",
		},
		[]string{"action", "code"},
	)

	autoCompleteLateness = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "presentation_auto_complete_lateness_seconds",
			Help:    "Delay between a presentation deadline and its automatic completion",
			Buckets: []float64{0, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	autoCompleteSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presentation_auto_complete_skipped_total",
			Help: "Completion callbacks that found the slot already moved on",
		},
		[]string{"reason"},
	)
)

// PrometheusMetrics records state machine activity in the default registry.
type PrometheusMetrics struct{}

func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{}
}

func (PrometheusMetrics) TransitionApplied(action string) {
	transitionsTotal.WithLabelValues(action).Inc()
}

func (PrometheusMetrics) TransitionRejected(action, code string) {
	transitionRejectionsTotal.WithLabelValues(action, code).Inc()
}

func (PrometheusMetrics) AutoCompleted(lateness time.Duration) {
	if lateness < 0 {
		lateness = 0
	}
	autoCompleteLateness.Observe(lateness.Seconds())
}

func (PrometheusMetrics) AutoCompleteSkipped(reason string) {
	autoCompleteSkippedTotal.WithLabelValues(reason).Inc()
}
