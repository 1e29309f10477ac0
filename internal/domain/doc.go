// Package domain holds the shared types of the shipment tracking core:
// shipment statuses, the closed shipment event type set, location samples,
// and the error taxonomy that the HTTP layer maps onto status codes.
//
// Statuses and event types are typed string constants rather than free-form
// strings. Every site that branches on them switches exhaustively, so adding
// a status forces each consumer to be revisited instead of silently falling
// through to a generic default.
package domain
