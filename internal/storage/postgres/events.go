package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropmate/trackd/internal/domain"
	"github.com/dropmate/trackd/internal/events"
)

// EventStore implements events.Store over shipment_events.
type EventStore struct {
	pool *pgxpool.Pool
}

// Insert appends one event. Metadata is serialized to JSON at this
// boundary; it has no closed schema.
func (s *EventStore) Insert(ctx context.Context, ev domain.ShipmentEvent) (domain.ShipmentEvent, error) {
	md, err := json.Marshal(ev.Metadata)
	if err != nil {
		return domain.ShipmentEvent{}, err
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO shipment_events
		   (shipment_id, event_type, description, created_by_user_id,
		    from_status, to_status, latitude, longitude, metadata, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		ev.ShipmentID, string(ev.Type), ev.Description, ev.CreatedByUserID,
		ev.FromStatus, ev.ToStatus, ev.Latitude, ev.Longitude, md, ev.OccurredAt)
	if err := row.Scan(&ev.ID); err != nil {
		return domain.ShipmentEvent{}, err
	}
	return ev, nil
}

// ListFor returns a shipment's events, most recent first. When location
// updates are excluded, the filter is part of the query so the high-volume
// rows are never fetched.
func (s *EventStore) ListFor(ctx context.Context, shipmentID int64, opts events.ListOptions) ([]domain.ShipmentEvent, error) {
	query := `SELECT id, shipment_id, event_type, description, created_by_user_id,
	                 from_status, to_status, latitude, longitude, metadata, occurred_at
	            FROM shipment_events
	           WHERE shipment_id = $1`
	args := []any{shipmentID}
	if !opts.IncludeLocationUpdates {
		query += ` AND event_type != $2`
		args = append(args, string(domain.EventLocationUpdated))
	}
	query += ` ORDER BY occurred_at DESC, id DESC LIMIT $` + itoa(len(args)+1)
	args = append(args, opts.Limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ShipmentEvent, 0)
	for rows.Next() {
		var ev domain.ShipmentEvent
		var md []byte
		if err := rows.Scan(&ev.ID, &ev.ShipmentID, &ev.Type, &ev.Description, &ev.CreatedByUserID,
			&ev.FromStatus, &ev.ToStatus, &ev.Latitude, &ev.Longitude, &md, &ev.OccurredAt); err != nil {
			return nil, err
		}
		if len(md) > 0 {
			if err := json.Unmarshal(md, &ev.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// CustomerVisible returns the customer projection, oldest first. The actor
// is presented via the drivers join as a display name only.
func (s *EventStore) CustomerVisible(ctx context.Context, shipmentID int64) ([]domain.CustomerEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.event_type, e.description, e.occurred_at, e.to_status,
		        CASE WHEN u.role = 'driver' THEN d.name ELSE NULL END AS driver_name
		   FROM shipment_events e
		   LEFT JOIN users u ON u.id = e.created_by_user_id
		   LEFT JOIN drivers d ON d.user_id = u.id
		  WHERE e.shipment_id = $1
		    AND e.event_type != $2
		  ORDER BY e.occurred_at ASC, e.id ASC`,
		shipmentID, string(domain.EventLocationUpdated))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.CustomerEvent, 0)
	for rows.Next() {
		var ce domain.CustomerEvent
		if err := rows.Scan(&ce.Type, &ce.Description, &ce.OccurredAt, &ce.ToStatus, &ce.DriverName); err != nil {
			return nil, err
		}
		out = append(out, ce)
	}
	return out, rows.Err()
}

// ShipmentExists reports whether the shipment id exists.
func (s *EventStore) ShipmentExists(ctx context.Context, shipmentID int64) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM shipments WHERE id = $1)`, shipmentID).Scan(&ok)
	return ok, err
}

// DeleteLocationEventsBefore prunes LOCATION_UPDATED rows older than cutoff.
func (s *EventStore) DeleteLocationEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM shipment_events WHERE event_type = $1 AND occurred_at < $2`,
		string(domain.EventLocationUpdated), cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
