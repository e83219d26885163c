package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for monitoring pipeline health and throughput
var (
	TripEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trip_events_total",
			Help: "Total number of trip lifecycle events pulled from the stream",
		},
	)

	TripEventsProcessedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trip_events_processed_total",
			Help: "Total number of trip events merged into the reconciliation store",
		},
	)

	TripsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trips_completed_total",
			Help: "Total number of trips whose both halves have been reconciled",
		},
	)

	TripEventsQuarantinedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trip_events_quarantined_total",
			Help: "Total number of invalid trip events archived to quarantine",
		},
	)

	TripEventErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trip_event_errors_total",
			Help: "Total number of per-record failures by error category",
		},
		[]string{"category"},
	)

	BatchProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_processing_duration_seconds",
			Help:    "Duration of one batch invocation",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(TripEventsTotal)
	prometheus.MustRegister(TripEventsProcessedTotal)
	prometheus.MustRegister(TripsCompletedTotal)
	prometheus.MustRegister(TripEventsQuarantinedTotal)
	prometheus.MustRegister(TripEventErrorsTotal)
	prometheus.MustRegister(BatchProcessingDuration)
}
