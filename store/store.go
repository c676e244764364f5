package store

import (
	"encoding/json"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dineflow/customer-gateway/models"
	"github.com/dineflow/customer-gateway/utils"
)

// Store is the single source of truth for what a device currently
// believes: table snapshot, session tokens, waitlist entry, order state.
// All values are whole-field replacements from the latest authoritative
// response; nothing here merges partial deltas.
type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// Get -> the stored value for a key, "" when absent. Absence is normal,
// not an error.
func (s *Store) Get(deviceID, key string) (string, error) {
	var entry models.StateEntry
	err := s.DB.Where("device_id = ? AND `key` = ?", deviceID, key).First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

// Set -> upsert one key for a device.
func (s *Store) Set(deviceID, key, value string) error {
	entry := models.StateEntry{DeviceID: deviceID, Key: key, Value: value}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// Clear -> delete the given keys for a device. Missing keys are fine.
func (s *Store) Clear(deviceID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.DB.Where("device_id = ? AND `key` IN ?", deviceID, keys).
		Delete(&models.StateEntry{}).Error
}

// RotateSession applies the session-rotation rule: a new session token
// invalidates all dine-in order state, and only dine-in state. The token
// itself is persisted unconditionally; rotating to the same token clears
// nothing, so repeated calls are safe.
func (s *Store) RotateSession(deviceID, newToken, oldToken string) error {
	if newToken == "" {
		return nil
	}
	if newToken != oldToken {
		if err := s.Clear(deviceID, models.DineInScopedKeys()...); err != nil {
			return err
		}
		utils.InfoLogger.Printf("Session rotated for device %s", deviceID)
	}
	return s.Set(deviceID, models.KeySessionToken, newToken)
}

// SaveTableSnapshot persists the full snapshot as JSON.
func (s *Store) SaveTableSnapshot(deviceID string, snap *models.TableSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.Set(deviceID, models.KeyTableSnapshot, string(raw))
}

// TableSnapshot -> the cached snapshot, nil when none is stored.
func (s *Store) TableSnapshot(deviceID string) (*models.TableSnapshot, error) {
	raw, err := s.Get(deviceID, models.KeyTableSnapshot)
	if err != nil || raw == "" {
		return nil, err
	}
	var snap models.TableSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SaveWaitlistEntry persists the entry and its token.
func (s *Store) SaveWaitlistEntry(deviceID string, entry *models.WaitlistEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := s.Set(deviceID, models.KeyWaitlistEntry, string(raw)); err != nil {
		return err
	}
	return s.Set(deviceID, models.KeyWaitlistToken, entry.Token)
}

// WaitlistEntry -> the cached entry, nil when the device is not queued.
func (s *Store) WaitlistEntry(deviceID string) (*models.WaitlistEntry, error) {
	raw, err := s.Get(deviceID, models.KeyWaitlistEntry)
	if err != nil || raw == "" {
		return nil, err
	}
	var entry models.WaitlistEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ClearWaitlist purges all local waitlist state.
func (s *Store) ClearWaitlist(deviceID string) error {
	return s.Clear(deviceID, models.WaitlistKeys()...)
}

// SessionRecord assembles the device's current session claim from the
// individual keys.
func (s *Store) SessionRecord(deviceID string) (*models.SessionRecord, error) {
	rec := &models.SessionRecord{}
	var err error
	if rec.ServiceType, err = s.Get(deviceID, models.KeyServiceType); err != nil {
		return nil, err
	}
	if rec.SessionToken, err = s.Get(deviceID, models.KeySessionToken); err != nil {
		return nil, err
	}
	if rec.ScanToken, err = s.Get(deviceID, models.KeyScanToken); err != nil {
		return nil, err
	}
	if rec.OrderID, err = s.Get(deviceID, models.KeyDineInOrderID); err != nil {
		return nil, err
	}
	if rec.OrderStatus, err = s.Get(deviceID, models.KeyDineInOrderStatus); err != nil {
		return nil, err
	}
	return rec, nil
}

// ActiveOrder -> the Order Activity Flag for a service scope.
func (s *Store) ActiveOrder(deviceID, serviceType string) (bool, error) {
	idKey, statusKey := models.KeyDineInOrderID, models.KeyDineInOrderStatus
	if serviceType == models.ServiceTakeaway {
		idKey, statusKey = models.KeyTakeawayOrderID, models.KeyTakeawayOrderStatus
	}
	orderID, err := s.Get(deviceID, idKey)
	if err != nil {
		return false, err
	}
	status, err := s.Get(deviceID, statusKey)
	if err != nil {
		return false, err
	}
	return models.OrderActive(orderID, status), nil
}

// AdoptOrder stores an order observed in an authoritative response.
func (s *Store) AdoptOrder(deviceID, serviceType, orderID, status string) error {
	idKey, statusKey := models.KeyDineInOrderID, models.KeyDineInOrderStatus
	if serviceType == models.ServiceTakeaway {
		idKey, statusKey = models.KeyTakeawayOrderID, models.KeyTakeawayOrderStatus
	}
	if err := s.Set(deviceID, idKey, orderID); err != nil {
		return err
	}
	return s.Set(deviceID, statusKey, status)
}

// Reset wipes every stored key for a device.
func (s *Store) Reset(deviceID string) error {
	return s.DB.Where("device_id = ?", deviceID).Delete(&models.StateEntry{}).Error
}
