package judging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	groupsFormedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "judging_group_distributions_total",
			Help: "Completed group distributions",
		},
	)

	groupsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "judging_groups",
			Help: "Groups created by the latest distribution",
		},
	)

	projectsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "judging_projects",
			Help: "Projects imported by the latest distribution",
		},
	)

	distributionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judging_distribution_failures_total",
			Help: "Group distributions that failed, by step",
		},
		[]string{"step"},
	)

	scoresSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "judging_scores_submitted_total",
			Help: "Scores submitted or replaced by judges",
		},
	)
)

// PrometheusMetrics records judging administration in the default registry.
type PrometheusMetrics struct{}

func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{}
}

func (PrometheusMetrics) GroupsFormed(groups, projects int) {
	groupsFormedTotal.Inc()
	groupsGauge.Set(float64(groups))
	projectsGauge.Set(float64(projects))
}

func (PrometheusMetrics) DistributionFailed(step string) {
	distributionFailuresTotal.WithLabelValues(step).Inc()
}

func (PrometheusMetrics) ScoreSubmitted() {
	scoresSubmittedTotal.Inc()
}

type noopMetrics struct{}

func (noopMetrics) GroupsFormed(int, int)     {}
func (noopMetrics) DistributionFailed(string) {}
func (noopMetrics) ScoreSubmitted()           {}
