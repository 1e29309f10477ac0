// Package metrics defines the Prometheus instruments for the location
// ingest and fan-out path.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SamplesRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackd_location_samples_total",
			Help: "Total number of GPS samples durably recorded",
		},
	)

	SamplesRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackd_location_samples_rejected_total",
			Help: "Total number of GPS samples rejected by validation",
		},
	)

	MessagesPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackd_bus_messages_published_total",
			Help: "Total number of messages accepted by the publish channel",
		},
	)

	PublishesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackd_bus_publishes_dropped_total",
			Help: "Total number of publishes dropped (transport down or subscriber queue full)",
		},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trackd_location_ingest_duration_seconds",
			Help:    "Duration of the persist-resolve-publish pipeline",
			Buckets: prometheus.DefBuckets,
		},
	)

	GatewayConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackd_gateway_connections",
			Help: "Currently open realtime connections",
		},
	)

	GatewayDeliveries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackd_gateway_deliveries_total",
			Help: "Total number of messages delivered to realtime subscribers",
		},
	)

	GatewayDeliveriesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackd_gateway_deliveries_dropped_total",
			Help: "Total number of deliveries dropped on slow or closed connections",
		},
	)
)

// Register registers all instruments on the default registry. Call once at
// process start.
func Register() {
	prometheus.MustRegister(
		SamplesRecorded,
		SamplesRejected,
		MessagesPublished,
		PublishesDropped,
		IngestDuration,
		GatewayConnections,
		GatewayDeliveries,
		GatewayDeliveriesDropped,
	)
}
