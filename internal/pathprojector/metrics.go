package pathprojector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProjectionsTotal counts path projections.
	// Labels: result (success, failure)
	ProjectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kinproj",
			Subsystem: "pathprojector",
			Name:      "projections_total",
			Help:      "Total number of path projections by result",
		},
		[]string{"result"},
	)

	// FailuresTotal counts failed projections by the step that failed.
	// Labels: reason (infeasible_endpoint, midpoint_projection,
	// insufficient_progress, max_depth, steering)
	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kinproj",
			Subsystem: "pathprojector",
			Name:      "failures_total",
			Help:      "Total number of failed path projections by reason",
		},
		[]string{"reason"},
	)

	// SegmentsPerProjection tracks how many Hermite curves a projection
	// produced.
	SegmentsPerProjection = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kinproj",
			Subsystem: "pathprojector",
			Name:      "segments",
			Help:      "Number of Hermite segments in a projected path",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// RecursionDepth tracks the deepest split of a projection.
	RecursionDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kinproj",
			Subsystem: "pathprojector",
			Name:      "recursion_depth",
			Help:      "Deepest midpoint split reached by a path projection",
			Buckets:   prometheus.LinearBuckets(0, 2, 17),
		},
	)

	// ProjectionDuration tracks how long a projection takes.
	ProjectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kinproj",
			Subsystem: "pathprojector",
			Name:      "projection_duration_seconds",
			Help:      "Duration of path projections in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// recordOutcome updates the collectors after one projection.
func recordOutcome(o *outcome, seconds float64) {
	result := "success"
	if !o.ok {
		result = "failure"
		FailuresTotal.WithLabelValues(o.reason).Inc()
	}
	ProjectionsTotal.WithLabelValues(result).Inc()
	SegmentsPerProjection.Observe(float64(o.segments))
	RecursionDepth.Observe(float64(o.depth))
	ProjectionDuration.Observe(seconds)
}
