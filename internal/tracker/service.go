// Package tracker implements the ingestion pipeline: persist a GPS sample,
// resolve the shipments it affects, and fan the update out on the publish
// channel.
//
// The pipeline's defining contract is asymmetric failure handling: a
// persistence failure fails the whole write, while resolution or publish
// failures never do — the sample is already durable and realtime fan-out is
// best-effort.
package tracker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropmate/trackd/internal/domain"
	"github.com/dropmate/trackd/internal/metrics"
	"github.com/dropmate/trackd/internal/pubsub"
	"github.com/dropmate/trackd/pkg/log"
)

// LocationRecorder persists validated samples. Implemented by the location
// service.
type LocationRecorder interface {
	Record(ctx context.Context, driverID int64, lat, lng float64, accuracy *float64) (domain.LocationSample, error)
}

// ActiveResolver derives the affected shipments for a driver. Implemented
// by the shipment service.
type ActiveResolver interface {
	ActiveShipmentsFor(ctx context.Context, driverID int64) ([]int64, error)
}

// LocationUpdate is the wire payload broadcast to realtime subscribers.
// Field names are part of the client contract.
type LocationUpdate struct {
	DriverID   int64     `json:"driverId"`
	ShipmentID int64     `json:"shipmentId,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Service is the ingestion pipeline.
type Service struct {
	recorder LocationRecorder
	resolver ActiveResolver
	bus      pubsub.Bus
	logger   log.Logger
}

// NewService creates a tracker Service.
func NewService(recorder LocationRecorder, resolver ActiveResolver, bus pubsub.Bus, logger log.Logger) *Service {
	return &Service{recorder: recorder, resolver: resolver, bus: bus, logger: logger.WithComponent("tracker")}
}

// RecordAndBroadcast persists one sample and fans it out. It publishes one
// message on the driver's topic and one per active shipment, in that order,
// and returns the stored sample plus the number of shipments broadcast to.
//
// Only the persist step can fail the call. The active set is resolved fresh
// on every write; if resolution fails the driver topic is still published
// and the shipment count is zero.
func (s *Service) RecordAndBroadcast(ctx context.Context, driverID int64, lat, lng float64, accuracy *float64) (domain.LocationSample, int, error) {
	start := time.Now()
	sample, err := s.recorder.Record(ctx, driverID, lat, lng, accuracy)
	if err != nil {
		return domain.LocationSample{}, 0, err
	}

	actives, err := s.resolver.ActiveShipmentsFor(ctx, driverID)
	if err != nil {
		// The sample is durable; a resolver outage degrades fan-out, it
		// does not fail the write.
		s.logger.Error("active shipment resolution failed", log.Int64("driver_id", driverID), log.Err(err))
		actives = nil
	}

	update := LocationUpdate{
		DriverID:  driverID,
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
		Accuracy:  sample.Accuracy,
		Timestamp: sample.OccurredAt,
	}
	s.publish(ctx, pubsub.DriverTopic(driverID), update)

	for _, shipmentID := range actives {
		shipmentUpdate := update
		shipmentUpdate.ShipmentID = shipmentID
		s.publish(ctx, pubsub.ShipmentTopic(shipmentID), shipmentUpdate)
	}

	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	return sample, len(actives), nil
}

func (s *Service) publish(ctx context.Context, topic pubsub.Topic, update LocationUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		s.logger.Error("marshal update", log.Str("topic", string(topic)), log.Err(err))
		return
	}
	s.bus.Publish(ctx, topic, payload)
}
