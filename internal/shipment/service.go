// Package shipment implements the shipment read surface, the
// active-shipment resolver, and the status-mutating glue that feeds the
// event log.
//
// The resolver is deliberately uncached: it queries on every location write
// so a shipment that just transitioned out of the active set stops
// receiving fan-out immediately.
package shipment

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/dropmate/trackd/internal/domain"
	"github.com/dropmate/trackd/pkg/log"
)

// Store is the durable shipment/driver store.
type Store interface {
	ActiveIDsFor(ctx context.Context, driverID int64) ([]int64, error)
	Create(ctx context.Context, sh domain.Shipment) (domain.Shipment, error)
	Get(ctx context.Context, id int64) (domain.Shipment, error)
	GetByTracking(ctx context.Context, trackingNumber string) (domain.Shipment, error)
	List(ctx context.Context) ([]domain.Shipment, error)
	GetLocation(ctx context.Context, id int64) (domain.ShipmentLocation, error)
	UpdateStatus(ctx context.Context, id int64, status domain.Status) (domain.Shipment, error)
	AssignDriver(ctx context.Context, id, driverID int64) (domain.Shipment, error)

	ListDrivers(ctx context.Context) ([]domain.Driver, error)
	UpdateDriverStatus(ctx context.Context, driverID int64, status string) (domain.Driver, error)
}

// TransitionRecorder appends the events that record lifecycle changes.
// Implemented by the events service.
type TransitionRecorder interface {
	LogTransition(ctx context.Context, shipmentID int64, from, to domain.Status, actorUserID *int64, md domain.Metadata) (domain.ShipmentEvent, error)
	LogCreated(ctx context.Context, shipmentID int64, actorUserID *int64, md domain.Metadata) (domain.ShipmentEvent, error)
}

// Service serves shipment reads and the status mutations of the CRUD glue.
type Service struct {
	store    Store
	recorder TransitionRecorder
	logger   log.Logger
}

// NewService creates a shipment Service.
func NewService(store Store, recorder TransitionRecorder, logger log.Logger) *Service {
	return &Service{store: store, recorder: recorder, logger: logger.WithComponent("shipment")}
}

// Create registers a new pending shipment with a generated tracking
// number and records the creation event.
func (s *Service) Create(ctx context.Context, orderID, actorUserID *int64) (domain.Shipment, error) {
	sh, err := s.store.Create(ctx, domain.Shipment{
		TrackingNumber: newTrackingNumber(),
		Status:         domain.StatusPending,
		OrderID:        orderID,
	})
	if err != nil {
		return domain.Shipment{}, err
	}
	if _, err := s.recorder.LogCreated(ctx, sh.ID, actorUserID, nil); err != nil {
		return domain.Shipment{}, err
	}
	s.logger.Info("shipment created",
		log.Int64("shipment_id", sh.ID), log.Str("tracking_number", sh.TrackingNumber))
	return sh, nil
}

// newTrackingNumber derives a short customer-facing code from a UUID.
func newTrackingNumber() string {
	u := uuid.New()
	return "DM-" + strings.ToUpper(hex.EncodeToString(u[:6]))
}

// ActiveShipmentsFor returns the ids of the driver's shipments whose status
// makes location relevant. The result is computed fresh on every call; a
// driver with no active shipments yields an empty slice, not an error.
func (s *Service) ActiveShipmentsFor(ctx context.Context, driverID int64) ([]int64, error) {
	ids, err := s.store.ActiveIDsFor(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// Get returns one shipment by id.
func (s *Service) Get(ctx context.Context, id int64) (domain.Shipment, error) {
	return s.store.Get(ctx, id)
}

// TrackByNumber returns one shipment by tracking number.
func (s *Service) TrackByNumber(ctx context.Context, trackingNumber string) (domain.Shipment, error) {
	if trackingNumber == "" {
		return domain.Shipment{}, domain.Validationf("tracking_number", "must not be empty")
	}
	return s.store.GetByTracking(ctx, trackingNumber)
}

// List returns all shipments, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Shipment, error) {
	return s.store.List(ctx)
}

// GetLocation returns the shipment merged with driver metadata and the
// driver's current location. CurrentLocation is nil when no driver is
// assigned or the driver has no samples yet.
func (s *Service) GetLocation(ctx context.Context, id int64) (domain.ShipmentLocation, error) {
	return s.store.GetLocation(ctx, id)
}

// AssignDriver assigns a driver to a pending shipment, moves it to
// assigned, and records the allocation event.
func (s *Service) AssignDriver(ctx context.Context, shipmentID, driverID int64, actorUserID *int64) (domain.Shipment, error) {
	cur, err := s.store.Get(ctx, shipmentID)
	if err != nil {
		return domain.Shipment{}, err
	}
	if cur.DriverID != nil {
		return domain.Shipment{}, domain.Validationf("driver_id", "shipment already claimed by driver %d", *cur.DriverID)
	}
	if cur.Status != domain.StatusPending {
		return domain.Shipment{}, domain.Validationf("status", "shipment cannot be assigned in status %q", cur.Status)
	}
	updated, err := s.store.AssignDriver(ctx, shipmentID, driverID)
	if err != nil {
		return domain.Shipment{}, err
	}
	_, err = s.recorder.LogTransition(ctx, shipmentID, cur.Status, updated.Status, actorUserID,
		domain.Metadata{"driver_id": driverID})
	if err != nil {
		return domain.Shipment{}, err
	}
	return updated, nil
}

// UpdateStatus transitions a shipment to the given status and records
// exactly one event with the prior status as fromStatus. A no-op transition
// is rejected with domain.ErrNoTransition so duplicate events cannot be
// produced.
func (s *Service) UpdateStatus(ctx context.Context, shipmentID int64, to domain.Status, actorUserID *int64) (domain.Shipment, error) {
	if !to.Valid() {
		return domain.Shipment{}, domain.Validationf("status", "unknown status %q", to)
	}
	cur, err := s.store.Get(ctx, shipmentID)
	if err != nil {
		return domain.Shipment{}, err
	}
	if cur.Status == to {
		return domain.Shipment{}, domain.ErrNoTransition
	}
	updated, err := s.store.UpdateStatus(ctx, shipmentID, to)
	if err != nil {
		return domain.Shipment{}, err
	}
	if _, err := s.recorder.LogTransition(ctx, shipmentID, cur.Status, to, actorUserID, nil); err != nil {
		return domain.Shipment{}, err
	}
	return updated, nil
}

// ListDrivers returns all driver profiles with their last known location.
func (s *Service) ListDrivers(ctx context.Context) ([]domain.Driver, error) {
	return s.store.ListDrivers(ctx)
}

// UpdateDriverStatus updates a driver's duty status.
func (s *Service) UpdateDriverStatus(ctx context.Context, driverID int64, status string) (domain.Driver, error) {
	if status == "" {
		return domain.Driver{}, domain.Validationf("status", "must not be empty")
	}
	return s.store.UpdateDriverStatus(ctx, driverID, status)
}

// IsNoTransition reports whether err marks a rejected no-op transition.
func IsNoTransition(err error) bool { return errors.Is(err, domain.ErrNoTransition) }
