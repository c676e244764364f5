package services

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/dineflow/customer-gateway/models"
	"github.com/dineflow/customer-gateway/store"
	"github.com/dineflow/customer-gateway/upstream"
	"github.com/dineflow/customer-gateway/utils"
)

// WaitlistAPI is the slice of the platform client the manager needs.
type WaitlistAPI interface {
	JoinWaitlist(ctx context.Context, req upstream.JoinRequest) (*upstream.WaitlistState, error)
	GetWaitlistStatus(ctx context.Context, token string) (*upstream.WaitlistState, error)
	LeaveWaitlist(ctx context.Context, token string) error
}

// Waitlist manages one device's place in a table's wait queue: join,
// poll, leave, and the seated/cancelled transitions.
type Waitlist struct {
	Store *store.Store
	API   WaitlistAPI
}

func NewWaitlist(st *store.Store, api WaitlistAPI) *Waitlist {
	return &Waitlist{Store: st, API: api}
}

// JoinInput is the validated join request.
type JoinInput struct {
	TableID   uint   `json:"table_id"`
	GuestName string `json:"guest_name"`
	PartySize int    `json:"party_size"`
}

// Validate rejects bad input before any network call. Capacity is bound
// by the cached table snapshot when one exists.
func (in JoinInput) Validate(capacity int) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.TableID, validation.Required),
		validation.Field(&in.GuestName, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.PartySize, validation.Required, validation.Min(1)),
	)
	if err != nil {
		return err
	}
	if capacity > 0 && in.PartySize > capacity {
		return validation.Errors{
			"party_size": fmt.Errorf("party of %d exceeds table capacity %d", in.PartySize, capacity),
		}
	}
	return nil
}

// Join adds the device to a table's queue. The stored session token is
// sent only on a rejoin (an existing local token), so a fresh join can
// never be matched to a stale session.
func (w *Waitlist) Join(ctx context.Context, deviceID string, in JoinInput) (*models.WaitlistEntry, error) {
	capacity := 0
	snap, err := w.Store.TableSnapshot(deviceID)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		capacity = snap.Capacity
	}
	if err := in.Validate(capacity); err != nil {
		return nil, err
	}

	existingToken, err := w.Store.Get(deviceID, models.KeyWaitlistToken)
	if err != nil {
		return nil, err
	}

	req := upstream.JoinRequest{
		TableID:   in.TableID,
		GuestName: in.GuestName,
		PartySize: in.PartySize,
		Token:     existingToken,
	}
	if existingToken != "" {
		sessionToken, err := w.Store.Get(deviceID, models.KeySessionToken)
		if err != nil {
			return nil, err
		}
		req.SessionToken = sessionToken
	}

	state, err := w.API.JoinWaitlist(ctx, req)
	if err != nil {
		return nil, err
	}

	entry := &models.WaitlistEntry{
		Token:     state.Token,
		TableID:   in.TableID,
		Status:    state.Status,
		Position:  state.Position,
		GuestName: in.GuestName,
		PartySize: in.PartySize,
	}
	if entry.Status == "" {
		entry.Status = models.WaitlistWaiting
	}
	if err := w.Store.SaveWaitlistEntry(deviceID, entry); err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Device %s joined waitlist for table %d at position %d",
		deviceID, in.TableID, entry.Position)
	return entry, nil
}

// Poll refreshes the entry from the server. Position is always replaced
// with the server value; other parties joining or leaving shift everyone.
// A not-found response expires the entry and purges local state.
func (w *Waitlist) Poll(ctx context.Context, deviceID string) (*models.WaitlistEntry, error) {
	entry, err := w.Store.WaitlistEntry(deviceID)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.Token == "" {
		return nil, ErrNotQueued
	}

	state, err := w.API.GetWaitlistStatus(ctx, entry.Token)
	if errors.Is(err, upstream.ErrNotFound) {
		if purgeErr := w.Store.ClearWaitlist(deviceID); purgeErr != nil {
			return nil, purgeErr
		}
		return nil, ErrWaitlistExpired
	}
	if err != nil {
		return nil, err
	}

	// Terminal states never regress; a late or reordered response cannot
	// pull an entry back into the queue.
	if !models.CanTransition(entry.Status, state.Status) {
		utils.InfoLogger.Printf("Ignoring waitlist regression %s -> %s for device %s",
			entry.Status, state.Status, deviceID)
		return entry, nil
	}

	entry.Status = state.Status
	entry.Position = state.Position

	if entry.Status == models.WaitlistSeated {
		if state.SessionToken != "" {
			oldToken, err := w.Store.Get(deviceID, models.KeySessionToken)
			if err != nil {
				return nil, err
			}
			if err := w.Store.RotateSession(deviceID, state.SessionToken, oldToken); err != nil {
				return nil, err
			}
		}
		if err := w.Store.ClearWaitlist(deviceID); err != nil {
			return nil, err
		}
		utils.InfoLogger.Printf("Device %s seated, waitlist entry retired", deviceID)
		return entry, nil
	}

	if entry.Status == models.WaitlistCancelled {
		if err := w.Store.ClearWaitlist(deviceID); err != nil {
			return nil, err
		}
		return entry, nil
	}

	if err := w.Store.SaveWaitlistEntry(deviceID, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Leave removes the device from the queue. The remote delete is best
// effort; local state is purged regardless, so a dead entry can always
// be cleared from the UI.
func (w *Waitlist) Leave(ctx context.Context, deviceID string) error {
	entry, err := w.Store.WaitlistEntry(deviceID)
	if err != nil {
		return err
	}
	if entry != nil && entry.Token != "" {
		if err := w.API.LeaveWaitlist(ctx, entry.Token); err != nil && !errors.Is(err, upstream.ErrNotFound) {
			utils.ErrorLogger.Printf("Remote waitlist leave failed for device %s: %v", deviceID, err)
		}
	}
	return w.Store.ClearWaitlist(deviceID)
}
