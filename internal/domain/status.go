package domain

// Status is a shipment's lifecycle status. The set is closed; Valid rejects
// anything else at the boundary.
type Status string

// Shipment statuses
const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every valid status.
func Statuses() []Status {
	return []Status{StatusPending, StatusAssigned, StatusInTransit, StatusDelivered, StatusCancelled}
}

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// LocationRelevant reports whether a shipment in this status should receive
// live driver location fan-out.
func (s Status) LocationRelevant() bool {
	switch s {
	case StatusAssigned, StatusInTransit:
		return true
	case StatusPending, StatusDelivered, StatusCancelled:
		return false
	}
	return false
}

// ActiveStatuses returns the statuses for which driver location is relevant.
// The resolver query binds these directly.
func ActiveStatuses() []Status {
	return []Status{StatusAssigned, StatusInTransit}
}
