package lookup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsedive_lookup_batches_total",
		Help: "Total lookup batches by result.",
	}, []string{"result"})

	lookupOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsedive_lookup_outcomes_total",
		Help: "Total per-indicator lookup outcomes (success, miss, filtered, error).",
	}, []string{"outcome"})

	entitiesIgnored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsedive_entities_ignored_total",
		Help: "Indicators skipped before any request, by reason.",
	}, []string{"reason"})

	blocklistCompiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsedive_blocklist_compiles_total",
		Help: "Block filter rebuilds by filter.",
	}, []string{"filter"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulsedive_request_duration_seconds",
		Help:    "Pulsedive info.php request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	})
)
