// Package httpserver exposes the trackd HTTP surface: location ingestion
// and queries, the shipment and driver read surface, the event history
// projections, the websocket gateway endpoint, and metrics.
package httpserver
