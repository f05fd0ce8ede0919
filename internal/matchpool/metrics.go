package matchpool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	poolsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchpool_pools_generated_total",
		Help: "Total number of daily pools generated",
	}, []string{"outcome"})

	poolGenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "matchpool_generation_duration_seconds",
		Help:    "Time spent generating one pool",
		Buckets: prometheus.DefBuckets,
	})

	poolEntryCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "matchpool_entries_per_pool",
		Help:    "Distribution of entry counts in generated pools",
		Buckets: []float64{0, 1, 3, 5, 10, 15, 20, 30},
	})

	lowSupplyPools = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchpool_low_supply_total",
		Help: "Pools generated below the minimum viable size",
	})

	batchesServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchpool_batches_served_total",
		Help: "Discovery batches handed to clients",
	})
)

func recordGeneration(outcome string, seconds float64, entries int, lowSupply bool) {
	poolsGenerated.WithLabelValues(outcome).Inc()
	poolGenerationDuration.Observe(seconds)
	poolEntryCount.Observe(float64(entries))
	if lowSupply {
		lowSupplyPools.Inc()
	}
}
