package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesTotal counts resolved page fetches by resource and outcome (ok, failed).
	PagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "woo_loader_pages_total",
			Help: "Total number of page fetches resolved by the list loader",
		},
		[]string{"resource", "outcome"},
	)

	// DuplicatesDropped counts fetched items skipped because their key was already loaded.
	DuplicatesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "woo_loader_duplicates_dropped_total",
			Help: "Total number of fetched items dropped as duplicates",
		},
		[]string{"resource"},
	)

	// StaleResponses counts responses discarded because a newer session had started.
	StaleResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "woo_loader_stale_responses_total",
			Help: "Total number of page responses discarded after a reset",
		},
		[]string{"resource"},
	)
)
