package models

// Service types selecting which orchestration branch runs.
const (
	ServiceDineIn   = "dine_in"
	ServiceTakeaway = "takeaway"
	ServicePickup   = "pickup"
	ServiceDelivery = "delivery"
)

// ValidServiceType -> true for one of the four known service types.
func ValidServiceType(s string) bool {
	switch s {
	case ServiceDineIn, ServiceTakeaway, ServicePickup, ServiceDelivery:
		return true
	}
	return false
}

// Order statuses considered finished. An order in any of these states no
// longer owns the table.
var TerminalOrderStatuses = map[string]bool{
	"paid":      true,
	"cancelled": true,
	"returned":  true,
	"completed": true,
}

// OrderActive -> the Order Activity Flag: a persisted order id with a
// status outside the terminal set. When true the device already owns (or
// owned) a legitimate session and occupancy logic is bypassed.
func OrderActive(orderID, orderStatus string) bool {
	if orderID == "" {
		return false
	}
	return !TerminalOrderStatuses[orderStatus]
}

// SessionRecord -> this device's claim to an ordering session.
type SessionRecord struct {
	ServiceType  string `json:"service_type"`
	SessionToken string `json:"session_token"`
	ScanToken    string `json:"scan_token"`
	OrderID      string `json:"order_id"`
	OrderStatus  string `json:"order_status"`
}

// Active -> Order Activity Flag for this record.
func (s *SessionRecord) Active() bool {
	if s == nil {
		return false
	}
	return OrderActive(s.OrderID, s.OrderStatus)
}
