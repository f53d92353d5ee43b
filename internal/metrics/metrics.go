package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_search_requests_total",
			Help: "Total number of drug availability searches by outcome",
		},
		[]string{"outcome"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pharmacy_search_duration_seconds",
			Help:    "Duration of drug availability searches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pharmacy_search_results",
			Help:    "Number of matches before pagination",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	InventoryWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_writes_total",
			Help: "Inventory write attempts by operation and result",
		},
		[]string{"operation", "result"},
	)

	ApprovalTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_approval_transitions_total",
			Help: "Pharmacy approval state transitions by target status",
		},
		[]string{"to"},
	)

	OrderEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_events_processed_total",
			Help: "Order events consumed by result",
		},
		[]string{"result"},
	)
)
