package actions

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actions_batches_total",
		Help: "Action batches submitted",
	})

	batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "actions_batch_size",
		Help:    "Actions per submitted batch",
		Buckets: []float64{1, 3, 5, 10, 25, 50, 100, 200},
	})

	actionsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actions_applied_total",
		Help: "Actions applied",
	})

	actionsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actions_failed_total",
		Help: "Actions rejected or failed",
	})

	duplicateActions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actions_duplicates_total",
		Help: "Submissions short-circuited by idempotency key",
	})

	matchesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actions_matches_created_total",
		Help: "Mutual matches created by the processor",
	})

	syncRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actions_sync_requests_total",
		Help: "Offline sync requests",
	}, []string{"full_resync"})
)

func recordBatch(size, applied, failed int) {
	batchesSubmitted.Inc()
	batchSize.Observe(float64(size))
	actionsApplied.Add(float64(applied))
	actionsFailed.Add(float64(failed))
}
