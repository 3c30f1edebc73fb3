package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes.
const (
	OutcomeUpdated = "updated"
	OutcomeFresh   = "fresh"
	OutcomeFailed  = "failed"
)

// Drop reasons.
const (
	DropBlacklisted = "blacklisted"
	DropUnassigned  = "unassigned"
)

var (
	// RefreshTotal counts refresh attempts by outcome
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acestream_playlist_refresh_total",
		Help: "Total number of playlist refresh attempts by outcome",
	}, []string{"outcome"})

	// RefreshDuration tracks how long a full pipeline run takes
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "acestream_playlist_refresh_duration_seconds",
		Help:    "Duration of playlist rebuilds",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// Descriptors tracks the number of descriptors in the last successful run
	Descriptors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "acestream_playlist_descriptors",
		Help: "Number of channel descriptors processed by the last rebuild",
	})

	// Entries tracks the number of entries written by the last successful run
	Entries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "acestream_playlist_entries",
		Help: "Number of entries in the current playlist",
	})

	// ExternalFetchFailures counts failed external fragment fetches per group
	ExternalFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acestream_playlist_external_fetch_failures_total",
		Help: "Total number of failed external playlist fetches",
	}, []string{"group"})

	// CircuitBreakerState tracks the current state of circuit breakers
	// 0=closed, 1=open, 2=half-open
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "acestream_playlist_circuit_breaker_state",
		Help: "Current state of circuit breaker (0=closed, 1=open, 2=half-open)",
	}, []string{"source"})

	// ItemsDropped counts stream items that produced no entry
	ItemsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acestream_playlist_items_dropped_total",
		Help: "Total number of stream items dropped during classification",
	}, []string{"reason"})
)

// SetCircuitBreakerState updates the circuit breaker state metric
// state should be one of: "CLOSED" (0), "OPEN" (1), "HALF-OPEN" (2)
func SetCircuitBreakerState(source, state string) {
	var value float64
	switch state {
	case "CLOSED":
		value = 0
	case "OPEN":
		value = 1
	case "HALF-OPEN":
		value = 2
	}
	CircuitBreakerState.WithLabelValues(source).Set(value)
}

// RecordRefresh records one refresh attempt.
func RecordRefresh(outcome string) {
	RefreshTotal.WithLabelValues(outcome).Inc()
}

// ObserveRefreshDuration records the duration of one pipeline run.
func ObserveRefreshDuration(d time.Duration) {
	RefreshDuration.Observe(d.Seconds())
}

// SetPlaylistSize records the size of the last written playlist.
func SetPlaylistSize(descriptors, entries int) {
	Descriptors.Set(float64(descriptors))
	Entries.Set(float64(entries))
}

// RecordExternalFetchFailure increments the failure counter for a group
func RecordExternalFetchFailure(group string) {
	ExternalFetchFailures.WithLabelValues(group).Inc()
}

// RecordItemsDropped adds n dropped items for reason.
func RecordItemsDropped(reason string, n int) {
	if n <= 0 {
		return
	}
	ItemsDropped.WithLabelValues(reason).Add(float64(n))
}
