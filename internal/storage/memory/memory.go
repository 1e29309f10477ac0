// Package memory implements the trackd stores in process memory. It backs
// the single-binary dev mode (no external Postgres) and the service tests,
// which the design requires to run against a substitutable store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dropmate/trackd/internal/domain"
	"github.com/dropmate/trackd/internal/events"
	"github.com/dropmate/trackd/internal/location"
)

// DB holds the shared in-memory tables. Per-aggregate store views over it
// satisfy the location, events, and shipment store interfaces. All methods
// are safe for concurrent use.
type DB struct {
	mu sync.RWMutex

	samples      []domain.LocationSample
	nextSampleID int64

	evs         []domain.ShipmentEvent
	nextEventID int64

	shipments      map[int64]domain.Shipment
	nextShipmentID int64

	drivers map[int64]domain.Driver
}

// NewDB creates an empty in-memory store.
func NewDB() *DB {
	return &DB{
		shipments: make(map[int64]domain.Shipment),
		drivers:   make(map[int64]domain.Driver),
	}
}

// Health reports ready; the in-memory store has no external dependency.
func (db *DB) Health(context.Context) error { return nil }

// Locations returns the location store view.
func (db *DB) Locations() *LocationStore { return &LocationStore{db: db} }

// Events returns the event store view.
func (db *DB) Events() *EventStore { return &EventStore{db: db} }

// Shipments returns the shipment store view.
func (db *DB) Shipments() *ShipmentStore { return &ShipmentStore{db: db} }

// AddDriver inserts a driver profile, assigning an id when unset.
func (db *DB) AddDriver(d domain.Driver) domain.Driver {
	db.mu.Lock()
	defer db.mu.Unlock()
	if d.ID == 0 {
		d.ID = int64(len(db.drivers) + 1)
	}
	db.drivers[d.ID] = d
	return d
}

// AddShipment inserts a shipment, assigning an id when unset.
func (db *DB) AddShipment(sh domain.Shipment) domain.Shipment {
	db.mu.Lock()
	defer db.mu.Unlock()
	if sh.ID == 0 {
		db.nextShipmentID++
		sh.ID = db.nextShipmentID
	} else if sh.ID > db.nextShipmentID {
		db.nextShipmentID = sh.ID
	}
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = time.Now().UTC()
	}
	sh.UpdatedAt = sh.CreatedAt
	db.shipments[sh.ID] = sh
	return sh
}

func (db *DB) latestSample(driverID int64) (domain.LocationSample, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var best *domain.LocationSample
	for i := range db.samples {
		s := &db.samples[i]
		if s.DriverID != driverID {
			continue
		}
		if best == nil || !s.OccurredAt.Before(best.OccurredAt) {
			best = s
		}
	}
	if best == nil {
		return domain.LocationSample{}, false
	}
	return *best, true
}

// LocationStore implements location.Store.
type LocationStore struct{ db *DB }

// Insert appends a sample and assigns its id.
func (s *LocationStore) Insert(_ context.Context, sample domain.LocationSample) (domain.LocationSample, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextSampleID++
	sample.ID = db.nextSampleID
	db.samples = append(db.samples, sample)
	return sample, nil
}

// Latest returns the sample with the maximum OccurredAt for the driver,
// breaking ties toward the later insertion.
func (s *LocationStore) Latest(_ context.Context, driverID int64) (domain.LocationSample, error) {
	sample, ok := s.db.latestSample(driverID)
	if !ok {
		return domain.LocationSample{}, domain.ErrNotFound
	}
	return sample, nil
}

// History returns samples newest first, bounded by opts.
func (s *LocationStore) History(_ context.Context, driverID int64, opts location.HistoryOptions) ([]domain.LocationSample, error) {
	db := s.db
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]domain.LocationSample, 0)
	for _, smp := range db.samples {
		if smp.DriverID != driverID {
			continue
		}
		if opts.Since != nil && smp.OccurredAt.Before(*opts.Since) {
			continue
		}
		out = append(out, smp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// PurgeBefore deletes samples older than cutoff.
func (s *LocationStore) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	kept := db.samples[:0]
	var deleted int64
	for _, smp := range db.samples {
		if smp.OccurredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, smp)
	}
	db.samples = kept
	return deleted, nil
}

// EventStore implements events.Store.
type EventStore struct{ db *DB }

// Insert appends an event and assigns its id.
func (s *EventStore) Insert(_ context.Context, ev domain.ShipmentEvent) (domain.ShipmentEvent, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextEventID++
	ev.ID = db.nextEventID
	db.evs = append(db.evs, ev)
	return ev, nil
}

// ListFor returns a shipment's events, most recent first.
func (s *EventStore) ListFor(_ context.Context, shipmentID int64, opts events.ListOptions) ([]domain.ShipmentEvent, error) {
	db := s.db
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]domain.ShipmentEvent, 0)
	for _, ev := range db.evs {
		if ev.ShipmentID != shipmentID {
			continue
		}
		if !opts.IncludeLocationUpdates && ev.Type == domain.EventLocationUpdated {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// CustomerVisible returns the customer projection, oldest first.
func (s *EventStore) CustomerVisible(_ context.Context, shipmentID int64) ([]domain.CustomerEvent, error) {
	db := s.db
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]domain.CustomerEvent, 0)
	for _, ev := range db.evs {
		if ev.ShipmentID != shipmentID || ev.Type.HiddenFromCustomer() {
			continue
		}
		ce := domain.CustomerEvent{
			Type:        ev.Type,
			Description: ev.Description,
			OccurredAt:  ev.OccurredAt,
			ToStatus:    ev.ToStatus,
		}
		if ev.CreatedByUserID != nil {
			for _, d := range db.drivers {
				if d.UserID == *ev.CreatedByUserID {
					name := d.Name
					ce.DriverName = &name
					break
				}
			}
		}
		out = append(out, ce)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

// ShipmentExists reports whether the shipment id is known.
func (s *EventStore) ShipmentExists(_ context.Context, shipmentID int64) (bool, error) {
	db := s.db
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.shipments[shipmentID]
	return ok, nil
}

// DeleteLocationEventsBefore prunes LOCATION_UPDATED events older than cutoff.
func (s *EventStore) DeleteLocationEventsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	kept := db.evs[:0]
	var deleted int64
	for _, ev := range db.evs {
		if ev.Type == domain.EventLocationUpdated && ev.OccurredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	db.evs = kept
	return deleted, nil
}

// ShipmentStore implements shipment.Store.
type ShipmentStore struct{ db *DB }

// Create inserts a new shipment and assigns its id.
func (s *ShipmentStore) Create(_ context.Context, sh domain.Shipment) (domain.Shipment, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextShipmentID++
	sh.ID = db.nextShipmentID
	now := time.Now().UTC()
	sh.CreatedAt, sh.UpdatedAt = now, now
	db.shipments[sh.ID] = sh
	return sh, nil
}

// ActiveIDsFor returns ids of the driver's location-relevant shipments.
func (s *ShipmentStore) ActiveIDsFor(_ context.Context, driverID int64) ([]int64, error) {
	db := s.db
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []int64
	for _, sh := range db.shipments {
		if sh.DriverID != nil && *sh.DriverID == driverID && sh.Status.LocationRelevant() {
			out = append(out, sh.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Get returns one shipment by id.
func (s *ShipmentStore) Get(_ context.Context, id int64) (domain.Shipment, error) {
	db := s.db
	db.mu.RLock()
	defer db.mu.RUnlock()
	sh, ok := db.shipments[id]
	if !ok {
		return domain.Shipment{}, domain.ErrNotFound
	}
	return sh, nil
}

// GetByTracking returns one shipment by tracking number.
func (s *ShipmentStore) GetByTracking(_ context.Context, trackingNumber string) (domain.Shipment, error) {
	db := s.db
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, sh := range db.shipments {
		if sh.TrackingNumber == trackingNumber {
			return sh, nil
		}
	}
	return domain.Shipment{}, domain.ErrNotFound
}

// List returns all shipments, newest first.
func (s *ShipmentStore) List(_ context.Context) ([]domain.Shipment, error) {
	db := s.db
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]domain.Shipment, 0, len(db.shipments))
	for _, sh := range db.shipments {
		out = append(out, sh)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GetLocation returns a shipment merged with driver metadata and the
// driver's latest sample.
func (s *ShipmentStore) GetLocation(ctx context.Context, id int64) (domain.ShipmentLocation, error) {
	sh, err := s.Get(ctx, id)
	if err != nil {
		return domain.ShipmentLocation{}, err
	}
	out := domain.ShipmentLocation{Shipment: sh}
	if sh.DriverID == nil {
		return out, nil
	}
	db := s.db
	db.mu.RLock()
	d, ok := db.drivers[*sh.DriverID]
	db.mu.RUnlock()
	if ok {
		name, vehicle := d.Name, d.VehicleType
		out.DriverName = &name
		out.VehicleType = &vehicle
	}
	if latest, found := db.latestSample(*sh.DriverID); found {
		out.CurrentLocation = &latest
	}
	return out, nil
}

// UpdateStatus sets a shipment's status.
func (s *ShipmentStore) UpdateStatus(_ context.Context, id int64, status domain.Status) (domain.Shipment, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	sh, ok := db.shipments[id]
	if !ok {
		return domain.Shipment{}, domain.ErrNotFound
	}
	sh.Status = status
	sh.UpdatedAt = time.Now().UTC()
	db.shipments[id] = sh
	return sh, nil
}

// AssignDriver sets the driver and moves the shipment to assigned.
func (s *ShipmentStore) AssignDriver(_ context.Context, id, driverID int64) (domain.Shipment, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	sh, ok := db.shipments[id]
	if !ok {
		return domain.Shipment{}, domain.ErrNotFound
	}
	sh.DriverID = &driverID
	sh.Status = domain.StatusAssigned
	sh.UpdatedAt = time.Now().UTC()
	db.shipments[id] = sh
	return sh, nil
}

// ListDrivers returns all driver profiles with their last known location,
// ordered by name.
func (s *ShipmentStore) ListDrivers(_ context.Context) ([]domain.Driver, error) {
	db := s.db
	db.mu.RLock()
	out := make([]domain.Driver, 0, len(db.drivers))
	for _, d := range db.drivers {
		out = append(out, d)
	}
	db.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	for i := range out {
		if latest, ok := db.latestSample(out[i].ID); ok {
			loc := latest
			out[i].LastLocation = &loc
		}
	}
	return out, nil
}

// UpdateDriverStatus sets a driver's duty status.
func (s *ShipmentStore) UpdateDriverStatus(_ context.Context, driverID int64, status string) (domain.Driver, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	d, ok := db.drivers[driverID]
	if !ok {
		return domain.Driver{}, domain.ErrNotFound
	}
	d.Status = status
	db.drivers[driverID] = d
	return d, nil
}
