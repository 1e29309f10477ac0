package domain

// EventType identifies a shipment lifecycle event. The set is closed;
// Append rejects unknown types.
type EventType string

// Shipment event types
const (
	// Creation and assignment
	EventShipmentCreated EventType = "shipment_created"
	// EventDriverAllocated is the canonical assignment event. The legacy
	// EventDriverAssigned alias is still accepted on read paths but is no
	// longer produced by the transition table.
	EventDriverAllocated  EventType = "driver_allocated"
	EventDriverAssigned   EventType = "driver_assigned"
	EventDriverUnassigned EventType = "driver_unassigned"

	// Pickup phase
	EventDriverEnRouteToPickup EventType = "driver_en_route_to_pickup"
	EventArrivedAtPickup       EventType = "arrived_at_pickup"
	EventPackagePickedUp       EventType = "package_picked_up"

	// Delivery phase
	EventOutForDelivery          EventType = "out_for_delivery"
	EventInTransit               EventType = "in_transit"
	EventDriverEnRouteToDelivery EventType = "driver_en_route_to_delivery"
	EventArrivedAtDestination    EventType = "arrived_at_destination"
	EventDeliveryAttempted       EventType = "delivery_attempted"
	EventDelivered               EventType = "delivered"

	// Status changes
	EventStatusChanged EventType = "status_changed"

	// Issues and notes
	EventPackageDelayed EventType = "package_delayed"
	EventIssueReported  EventType = "issue_reported"
	EventNoteAdded      EventType = "note_added"
	EventCancelled      EventType = "cancelled"

	// High-volume; excluded from history projections by default
	EventLocationUpdated EventType = "location_updated"
)

// Valid reports whether e is a member of the closed event type set.
func (e EventType) Valid() bool {
	switch e {
	case EventShipmentCreated, EventDriverAllocated, EventDriverAssigned,
		EventDriverUnassigned, EventDriverEnRouteToPickup, EventArrivedAtPickup,
		EventPackagePickedUp, EventOutForDelivery, EventInTransit,
		EventDriverEnRouteToDelivery, EventArrivedAtDestination,
		EventDeliveryAttempted, EventDelivered, EventStatusChanged,
		EventPackageDelayed, EventIssueReported, EventNoteAdded,
		EventCancelled, EventLocationUpdated:
		return true
	}
	return false
}

// Description returns the customer-friendly description for e, used when a
// caller does not supply one.
func (e EventType) Description() string {
	switch e {
	case EventShipmentCreated:
		return "Package created and awaiting driver"
	case EventDriverAllocated:
		return "Driver accepted delivery request"
	case EventDriverAssigned:
		return "Driver assigned to package"
	case EventDriverUnassigned:
		return "Driver unassigned from package"
	case EventDriverEnRouteToPickup:
		return "Driver is heading to pickup location"
	case EventArrivedAtPickup:
		return "Driver arrived at pickup location"
	case EventPackagePickedUp:
		return "Package picked up from sender"
	case EventOutForDelivery:
		return "Package is out for delivery"
	case EventInTransit:
		return "Package is in transit"
	case EventDriverEnRouteToDelivery:
		return "Driver is heading to delivery location"
	case EventArrivedAtDestination:
		return "Driver arrived at delivery location"
	case EventDeliveryAttempted:
		return "Delivery attempted but unsuccessful"
	case EventDelivered:
		return "Package delivered successfully"
	case EventStatusChanged:
		return "Package status updated"
	case EventPackageDelayed:
		return "Package delayed"
	case EventIssueReported:
		return "Issue reported"
	case EventNoteAdded:
		return "Note added"
	case EventCancelled:
		return "Package cancelled"
	case EventLocationUpdated:
		return "Driver location updated"
	}
	return string(e)
}

// HiddenFromCustomer reports whether e is excluded from the customer-visible
// history projection.
func (e EventType) HiddenFromCustomer() bool {
	return e == EventLocationUpdated
}

// TransitionEvent maps a status transition onto the event type that records
// it. This is the single source of truth for the transition log: every call
// site that changes a shipment's status goes through it, so new call sites
// cannot drift from the canonical history mapping.
func TransitionEvent(from, to Status) EventType {
	switch to {
	case StatusAssigned:
		return EventDriverAllocated
	case StatusInTransit:
		return EventOutForDelivery
	case StatusDelivered:
		return EventDelivered
	case StatusCancelled:
		return EventCancelled
	case StatusPending:
		return EventStatusChanged
	}
	return EventStatusChanged
}
