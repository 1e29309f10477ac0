package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropmate/trackd/internal/domain"
)

// ShipmentStore implements shipment.Store over shipments and drivers.
type ShipmentStore struct {
	pool *pgxpool.Pool
}

const shipmentColumns = `s.id, s.tracking_number, s.status, s.driver_id, s.order_id, o.customer_id, s.created_at, s.updated_at`

// Create inserts a new shipment row.
func (s *ShipmentStore) Create(ctx context.Context, sh domain.Shipment) (domain.Shipment, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO shipments (tracking_number, status, order_id, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())
		 RETURNING id, created_at, updated_at`,
		sh.TrackingNumber, string(sh.Status), sh.OrderID)
	if err := row.Scan(&sh.ID, &sh.CreatedAt, &sh.UpdatedAt); err != nil {
		return domain.Shipment{}, err
	}
	return sh, nil
}

// ActiveIDsFor returns the ids of the driver's shipments in a status where
// location is relevant. Delivered and cancelled shipments never appear.
func (s *ShipmentStore) ActiveIDsFor(ctx context.Context, driverID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM shipments
		  WHERE driver_id = $1 AND status IN ($2, $3)
		  ORDER BY id`,
		driverID, string(domain.StatusAssigned), string(domain.StatusInTransit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *ShipmentStore) Get(ctx context.Context, id int64) (domain.Shipment, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT `+shipmentColumns+`
		   FROM shipments s
		   LEFT JOIN orders o ON o.id = s.order_id
		  WHERE s.id = $1`, id))
}

func (s *ShipmentStore) GetByTracking(ctx context.Context, trackingNumber string) (domain.Shipment, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT `+shipmentColumns+`
		   FROM shipments s
		   LEFT JOIN orders o ON o.id = s.order_id
		  WHERE s.tracking_number = $1`, trackingNumber))
}

func (s *ShipmentStore) List(ctx context.Context) ([]domain.Shipment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+shipmentColumns+`
		   FROM shipments s
		   LEFT JOIN orders o ON o.id = s.order_id
		  ORDER BY s.created_at DESC, s.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Shipment, 0)
	for rows.Next() {
		var sh domain.Shipment
		if err := rows.Scan(&sh.ID, &sh.TrackingNumber, &sh.Status, &sh.DriverID,
			&sh.OrderID, &sh.CustomerID, &sh.CreatedAt, &sh.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

// GetLocation merges the shipment with driver metadata and the driver's
// latest sample. The lateral subquery keeps "latest" consistent with the
// ordering the location store uses.
func (s *ShipmentStore) GetLocation(ctx context.Context, id int64) (domain.ShipmentLocation, error) {
	var loc domain.ShipmentLocation
	var sampleID, sampleDriverID *int64
	var lat, lng, acc *float64
	var occurredAt *time.Time
	row := s.pool.QueryRow(ctx,
		`SELECT `+shipmentColumns+`,
		        d.name, d.vehicle_type,
		        l.id, l.driver_id, l.latitude, l.longitude, l.accuracy, l.occurred_at
		   FROM shipments s
		   LEFT JOIN orders o ON o.id = s.order_id
		   LEFT JOIN drivers d ON d.id = s.driver_id
		   LEFT JOIN LATERAL (
		        SELECT id, driver_id, latitude, longitude, accuracy, occurred_at
		          FROM driver_location_events
		         WHERE driver_id = s.driver_id
		         ORDER BY occurred_at DESC, id DESC
		         LIMIT 1
		   ) l ON true
		  WHERE s.id = $1`, id)
	err := row.Scan(&loc.ID, &loc.TrackingNumber, &loc.Status, &loc.DriverID,
		&loc.OrderID, &loc.CustomerID, &loc.CreatedAt, &loc.UpdatedAt,
		&loc.DriverName, &loc.VehicleType,
		&sampleID, &sampleDriverID, &lat, &lng, &acc, &occurredAt)
	if err != nil {
		return domain.ShipmentLocation{}, notFound(err)
	}
	if sampleID != nil {
		loc.CurrentLocation = &domain.LocationSample{
			ID:         *sampleID,
			DriverID:   *sampleDriverID,
			Latitude:   *lat,
			Longitude:  *lng,
			Accuracy:   acc,
			OccurredAt: *occurredAt,
		}
	}
	return loc, nil
}

func (s *ShipmentStore) UpdateStatus(ctx context.Context, id int64, status domain.Status) (domain.Shipment, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE shipments SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return domain.Shipment{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.Shipment{}, domain.ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *ShipmentStore) AssignDriver(ctx context.Context, id, driverID int64) (domain.Shipment, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE shipments SET driver_id = $2, status = $3, updated_at = now() WHERE id = $1`,
		id, driverID, string(domain.StatusAssigned))
	if err != nil {
		return domain.Shipment{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.Shipment{}, domain.ErrNotFound
	}
	return s.Get(ctx, id)
}

// ListDrivers returns driver profiles with each driver's latest sample.
func (s *ShipmentStore) ListDrivers(ctx context.Context) ([]domain.Driver, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT d.id, d.user_id, d.name, d.vehicle_type, d.license_number, d.status,
		        l.id, l.latitude, l.longitude, l.accuracy, l.occurred_at
		   FROM drivers d
		   LEFT JOIN LATERAL (
		        SELECT id, latitude, longitude, accuracy, occurred_at
		          FROM driver_location_events
		         WHERE driver_id = d.id
		         ORDER BY occurred_at DESC, id DESC
		         LIMIT 1
		   ) l ON true
		  ORDER BY d.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Driver, 0)
	for rows.Next() {
		var d domain.Driver
		var sampleID *int64
		var lat, lng, acc *float64
		var occurredAt *time.Time
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.VehicleType, &d.LicenseNumber, &d.Status,
			&sampleID, &lat, &lng, &acc, &occurredAt); err != nil {
			return nil, err
		}
		if sampleID != nil {
			d.LastLocation = &domain.LocationSample{
				ID:         *sampleID,
				DriverID:   d.ID,
				Latitude:   *lat,
				Longitude:  *lng,
				Accuracy:   acc,
				OccurredAt: *occurredAt,
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *ShipmentStore) UpdateDriverStatus(ctx context.Context, driverID int64, status string) (domain.Driver, error) {
	var d domain.Driver
	err := s.pool.QueryRow(ctx,
		`UPDATE drivers SET status = $2
		  WHERE id = $1
		  RETURNING id, user_id, name, vehicle_type, license_number, status`,
		driverID, status).Scan(&d.ID, &d.UserID, &d.Name, &d.VehicleType, &d.LicenseNumber, &d.Status)
	if err != nil {
		return domain.Driver{}, notFound(err)
	}
	return d, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *ShipmentStore) scanOne(row rowScanner) (domain.Shipment, error) {
	var sh domain.Shipment
	err := row.Scan(&sh.ID, &sh.TrackingNumber, &sh.Status, &sh.DriverID,
		&sh.OrderID, &sh.CustomerID, &sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		return domain.Shipment{}, notFound(err)
	}
	return sh, nil
}
