package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropmate/trackd/internal/domain"
	"github.com/dropmate/trackd/internal/location"
)

// LocationStore implements location.Store over driver_location_events.
type LocationStore struct {
	pool *pgxpool.Pool
}

// Insert durably appends one sample and returns it with the assigned id.
func (s *LocationStore) Insert(ctx context.Context, sample domain.LocationSample) (domain.LocationSample, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO driver_location_events (driver_id, latitude, longitude, accuracy, occurred_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		sample.DriverID, sample.Latitude, sample.Longitude, sample.Accuracy, sample.OccurredAt)
	if err := row.Scan(&sample.ID); err != nil {
		return domain.LocationSample{}, err
	}
	return sample, nil
}

// Latest returns the driver's most recent sample.
func (s *LocationStore) Latest(ctx context.Context, driverID int64) (domain.LocationSample, error) {
	var out domain.LocationSample
	err := s.pool.QueryRow(ctx,
		`SELECT id, driver_id, latitude, longitude, accuracy, occurred_at
		   FROM driver_location_events
		  WHERE driver_id = $1
		  ORDER BY occurred_at DESC, id DESC
		  LIMIT 1`,
		driverID).Scan(&out.ID, &out.DriverID, &out.Latitude, &out.Longitude, &out.Accuracy, &out.OccurredAt)
	if err != nil {
		return domain.LocationSample{}, notFound(err)
	}
	return out, nil
}

// History returns samples newest first, bounded by opts.
func (s *LocationStore) History(ctx context.Context, driverID int64, opts location.HistoryOptions) ([]domain.LocationSample, error) {
	query := `SELECT id, driver_id, latitude, longitude, accuracy, occurred_at
	            FROM driver_location_events
	           WHERE driver_id = $1`
	args := []any{driverID}
	if opts.Since != nil {
		query += ` AND occurred_at >= $2`
		args = append(args, *opts.Since)
	}
	query += ` ORDER BY occurred_at DESC, id DESC LIMIT $` + itoa(len(args)+1)
	args = append(args, opts.Limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.LocationSample, 0, opts.Limit)
	for rows.Next() {
		var sm domain.LocationSample
		if err := rows.Scan(&sm.ID, &sm.DriverID, &sm.Latitude, &sm.Longitude, &sm.Accuracy, &sm.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// PurgeBefore bulk-deletes samples older than cutoff.
func (s *LocationStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM driver_location_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
