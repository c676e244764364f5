package models

import "time"

// StateEntry is one persisted key/value pair of a device's local state.
// All device-side caches (table snapshot, tokens, order ids) live in this
// table, namespaced by key prefix.
type StateEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DeviceID  string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_device_key,priority:1" json:"device_id"`
	Key       string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_device_key,priority:2" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Persisted state keys. The prefix is the namespace: dinein.* and
// takeaway.* are disjoint by the session-rotation rule.
const (
	KeyTableSnapshot = "table.snapshot"
	KeySessionToken  = "session.token"
	KeyScanToken     = "session.scan_token"
	KeyServiceType   = "session.service_type"

	KeyWaitlistToken = "waitlist.token"
	KeyWaitlistEntry = "waitlist.entry"

	KeyDineInOrderID     = "dinein.order_id"
	KeyDineInOrderStatus = "dinein.order_status"
	KeyDineInCart        = "dinein.cart"
	KeyDineInOrderTS     = "dinein.order_ts"
	KeyDineInPrevOrder   = "dinein.prev_order"

	KeyTakeawayOrderID     = "takeaway.order_id"
	KeyTakeawayOrderStatus = "takeaway.order_status"
)

// DineInScopedKeys -> the keys cleared by a dine-in session rotation.
// Takeaway keys are deliberately absent.
func DineInScopedKeys() []string {
	return []string{
		KeyDineInOrderID,
		KeyDineInOrderStatus,
		KeyDineInCart,
		KeyDineInOrderTS,
		KeyDineInPrevOrder,
	}
}

// TakeawayScopedKeys -> the keys owned by the takeaway flow.
func TakeawayScopedKeys() []string {
	return []string{
		KeyTakeawayOrderID,
		KeyTakeawayOrderStatus,
	}
}

// WaitlistKeys -> all locally cached waitlist state.
func WaitlistKeys() []string {
	return []string{KeyWaitlistToken, KeyWaitlistEntry}
}
