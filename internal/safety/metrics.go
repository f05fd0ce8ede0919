package safety

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blocksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safety_blocks_total",
			Help: "Total number of direct user blocks created",
		},
	)

	reportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safety_reports_total",
			Help: "Total number of user reports filed",
		},
		[]string{"reason"},
	)

	reviewFlagsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safety_review_flags_total",
			Help: "Total number of users flagged for moderation review",
		},
	)
)

func RecordBlock() {
	blocksTotal.Inc()
}

func RecordReport(reason string) {
	reportsTotal.WithLabelValues(reason).Inc()
}

func RecordReviewFlag() {
	reviewFlagsTotal.Inc()
}
