package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropmate/trackd/internal/domain"
)

// DB wraps a pgx connection pool and hands out per-aggregate store views.
type DB struct {
	pool *pgxpool.Pool
}

// Open connects a pool and verifies it with a ping.
func Open(ctx context.Context, url string) (*DB, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &DB{pool: pool}, nil
}

// Close releases the pool.
func (db *DB) Close() { db.pool.Close() }

// Health pings the database.
func (db *DB) Health(ctx context.Context) error { return db.pool.Ping(ctx) }

// Locations returns the location store view.
func (db *DB) Locations() *LocationStore { return &LocationStore{pool: db.pool} }

// Events returns the event store view.
func (db *DB) Events() *EventStore { return &EventStore{pool: db.pool} }

// Shipments returns the shipment store view.
func (db *DB) Shipments() *ShipmentStore { return &ShipmentStore{pool: db.pool} }

// notFound converts pgx's no-rows into the domain sentinel.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// itoa builds numbered placeholders for dynamically assembled queries.
func itoa(n int) string { return strconv.Itoa(n) }
