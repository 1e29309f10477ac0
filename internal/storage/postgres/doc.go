// Package postgres implements the trackd stores over PostgreSQL via pgx.
//
// # Schema contract
//
// The stores expect the following tables (managed outside this service;
// schema migration tooling is out of scope):
//
//	drivers(id, user_id, name, vehicle_type, license_number, status, updated_at)
//	shipments(id, tracking_number, status, driver_id, order_id, created_at, updated_at)
//	orders(id, customer_id, ...)
//	driver_location_events(id, driver_id, latitude, longitude, accuracy, occurred_at)
//	shipment_events(id, shipment_id, event_type, description, created_by_user_id,
//	                from_status, to_status, latitude, longitude, metadata, occurred_at)
//	users(id, role, email, ...)
//
// driver_location_events is append-only and high-volume; it is expected to
// be partitioned or at least indexed on (driver_id, occurred_at DESC).
package postgres
