package models

// Table status as reported by the platform backend.
const (
	TableAvailable = "available"
	TableOccupied  = "occupied"
	TableOther     = "other"
)

// TableSnapshot -> the last table state this device observed. The platform
// is the authority; a snapshot is a cache with a refresh obligation.
type TableSnapshot struct {
	TableID        uint   `json:"table_id"`
	TableNumber    string `json:"table_number"`
	Status         string `json:"status"`
	CurrentOrderID string `json:"current_order_id,omitempty"`
	SessionToken   string `json:"session_token,omitempty"`
	Capacity       int    `json:"capacity"`
}

// IsAvailable -> true when the snapshot shows a free table.
func (t *TableSnapshot) IsAvailable() bool {
	return t != nil && t.Status == TableAvailable
}
