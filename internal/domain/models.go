package domain

import "time"

// LocationSample is one immutable GPS reading for a driver. Samples are
// ordered by OccurredAt; "latest" is the maximum OccurredAt for a driver.
type LocationSample struct {
	ID         int64     `json:"id"`
	DriverID   int64     `json:"driver_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Metadata is the opaque key-value blob attached to shipment events. It is
// serialized as JSON at the storage boundary and deliberately has no closed
// schema; its purpose is per-event-type extensibility.
type Metadata map[string]any

// ShipmentEvent is one append-only entry in a shipment's event log.
type ShipmentEvent struct {
	ID              int64     `json:"id"`
	ShipmentID      int64     `json:"shipment_id"`
	Type            EventType `json:"event_type"`
	Description     string    `json:"description"`
	CreatedByUserID *int64    `json:"created_by_user_id,omitempty"`
	FromStatus      *Status   `json:"from_status,omitempty"`
	ToStatus        *Status   `json:"to_status,omitempty"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	Metadata        Metadata  `json:"metadata,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// CustomerEvent is the customer-visible projection of a ShipmentEvent. It
// carries the driver's display name, never the driver's account id.
type CustomerEvent struct {
	Type        EventType `json:"event_type"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
	ToStatus    *Status   `json:"to_status,omitempty"`
	DriverName  *string   `json:"driver_name,omitempty"`
}

// Shipment is the CRUD layer's shipment row as read by the core. The core
// treats Status and DriverID as read-only inputs.
type Shipment struct {
	ID             int64     `json:"id"`
	TrackingNumber string    `json:"tracking_number"`
	Status         Status    `json:"status"`
	DriverID       *int64    `json:"driver_id,omitempty"`
	OrderID        *int64    `json:"order_id,omitempty"`
	CustomerID     *int64    `json:"customer_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Driver is a driver profile with an optional last known location. UserID
// links the profile to the identity the event log records as actor.
type Driver struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id,omitempty"`
	Name          string          `json:"name"`
	VehicleType   string          `json:"vehicle_type"`
	LicenseNumber string          `json:"license_number,omitempty"`
	Status        string          `json:"status"`
	LastLocation  *LocationSample `json:"last_location,omitempty"`
}

// ShipmentLocation is a shipment merged with its driver metadata and the
// driver's current location, for the tracking UI.
type ShipmentLocation struct {
	Shipment
	DriverName      *string         `json:"driver_name,omitempty"`
	VehicleType     *string         `json:"vehicle_type,omitempty"`
	CurrentLocation *LocationSample `json:"current_location,omitempty"`
}
