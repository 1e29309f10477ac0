// Package events implements the append-only shipment event log and its
// projections.
//
// # Overview
//
// Events carry a closed type set (domain.EventType) and an opaque metadata
// blob. LOCATION_UPDATED entries are high-volume: list reads exclude them
// at the query level by default, and CleanupLocationEvents prunes them
// without touching the rest of the history.
//
// The transition helpers are the only sanctioned way to record a status
// change: LogTransition consults domain.TransitionEvent so the mapping from
// transition to event type lives in exactly one place.
package events

import (
	"context"
	"time"

	"github.com/dropmate/trackd/internal/domain"
	"github.com/dropmate/trackd/pkg/log"
)

// List limits
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// ListOptions bounds an event list read. IncludeLocationUpdates defaults to
// false; exclusion happens in the store query, not post-hoc.
type ListOptions struct {
	Limit                  int
	IncludeLocationUpdates bool
}

// Store is the durable event store.
type Store interface {
	Insert(ctx context.Context, ev domain.ShipmentEvent) (domain.ShipmentEvent, error)
	ListFor(ctx context.Context, shipmentID int64, opts ListOptions) ([]domain.ShipmentEvent, error)
	CustomerVisible(ctx context.Context, shipmentID int64) ([]domain.CustomerEvent, error)
	ShipmentExists(ctx context.Context, shipmentID int64) (bool, error)
	DeleteLocationEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service validates and appends shipment events and serves projections.
type Service struct {
	store  Store
	logger log.Logger
	now    func() time.Time
}

// NewService creates an event log Service.
func NewService(store Store, logger log.Logger) *Service {
	return &Service{store: store, logger: logger.WithComponent("events"), now: time.Now}
}

// Append validates and appends ev. It fails with a ValidationError when the
// event type is outside the closed set and with domain.ErrNotFound when the
// shipment does not exist. An empty description is filled from the type's
// canonical description.
func (s *Service) Append(ctx context.Context, ev domain.ShipmentEvent) (domain.ShipmentEvent, error) {
	if !ev.Type.Valid() {
		return domain.ShipmentEvent{}, domain.Validationf("event_type", "unknown event type %q", ev.Type)
	}
	ok, err := s.store.ShipmentExists(ctx, ev.ShipmentID)
	if err != nil {
		return domain.ShipmentEvent{}, err
	}
	if !ok {
		return domain.ShipmentEvent{}, domain.ErrNotFound
	}
	if ev.Description == "" {
		ev.Description = ev.Type.Description()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.now().UTC()
	}
	return s.store.Insert(ctx, ev)
}

// ListFor returns events for a shipment, most recent first.
func (s *Service) ListFor(ctx context.Context, shipmentID int64, opts ListOptions) ([]domain.ShipmentEvent, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	return s.store.ListFor(ctx, shipmentID, opts)
}

// CustomerVisible returns the customer-facing projection, oldest first.
// High-volume and internal types never appear; actors are presented by
// driver display name only.
func (s *Service) CustomerVisible(ctx context.Context, shipmentID int64) ([]domain.CustomerEvent, error) {
	ok, err := s.store.ShipmentExists(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.store.CustomerVisible(ctx, shipmentID)
}

// LogTransition records exactly one event for a status transition, with the
// event type taken from the canonical transition table.
func (s *Service) LogTransition(ctx context.Context, shipmentID int64, from, to domain.Status, actorUserID *int64, md domain.Metadata) (domain.ShipmentEvent, error) {
	return s.Append(ctx, domain.ShipmentEvent{
		ShipmentID:      shipmentID,
		Type:            domain.TransitionEvent(from, to),
		CreatedByUserID: actorUserID,
		FromStatus:      &from,
		ToStatus:        &to,
		Metadata:        md,
	})
}

// LogCreated records the shipment creation event.
func (s *Service) LogCreated(ctx context.Context, shipmentID int64, actorUserID *int64, md domain.Metadata) (domain.ShipmentEvent, error) {
	to := domain.StatusPending
	return s.Append(ctx, domain.ShipmentEvent{
		ShipmentID:      shipmentID,
		Type:            domain.EventShipmentCreated,
		CreatedByUserID: actorUserID,
		ToStatus:        &to,
		Metadata:        md,
	})
}

// LogNote records a manual note with the given text as description.
func (s *Service) LogNote(ctx context.Context, shipmentID int64, actorUserID *int64, note string) (domain.ShipmentEvent, error) {
	return s.Append(ctx, domain.ShipmentEvent{
		ShipmentID:      shipmentID,
		Type:            domain.EventNoteAdded,
		Description:     note,
		CreatedByUserID: actorUserID,
	})
}

// LogIssue records a reported issue with the given text as description.
func (s *Service) LogIssue(ctx context.Context, shipmentID int64, actorUserID *int64, issue string) (domain.ShipmentEvent, error) {
	return s.Append(ctx, domain.ShipmentEvent{
		ShipmentID:      shipmentID,
		Type:            domain.EventIssueReported,
		Description:     issue,
		CreatedByUserID: actorUserID,
	})
}

// LogLocationUpdate records a high-volume location marker on a shipment.
func (s *Service) LogLocationUpdate(ctx context.Context, shipmentID int64, lat, lng float64) (domain.ShipmentEvent, error) {
	return s.Append(ctx, domain.ShipmentEvent{
		ShipmentID: shipmentID,
		Type:       domain.EventLocationUpdated,
		Latitude:   &lat,
		Longitude:  &lng,
	})
}

// CleanupLocationEvents prunes LOCATION_UPDATED rows older than cutoff and
// returns the count removed.
func (s *Service) CleanupLocationEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.store.DeleteLocationEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("pruned location update events", log.Int64("deleted", n), log.Time("cutoff", cutoff))
	return n, nil
}
