package services

import (
	"context"

	"github.com/dineflow/customer-gateway/models"
	"github.com/dineflow/customer-gateway/store"
	"github.com/dineflow/customer-gateway/upstream"
	"github.com/dineflow/customer-gateway/utils"
)

// Blocked reasons surfaced to the UI.
const (
	ReasonTableNotFound = "table not found"
	ReasonUnverifiable  = "unable to verify table status"
)

// TableAPI is the slice of the platform client the resolver needs.
type TableAPI interface {
	LookupTable(ctx context.Context, slug, sessionToken, waitlistToken string) (*upstream.LookupResult, error)
}

// Resolver turns a table lookup into an admission decision. It reads and
// writes only the device state store; the waitlist manager never calls it
// directly, they meet in the store.
type Resolver struct {
	Store *store.Store
	API   TableAPI
}

func NewResolver(st *store.Store, api TableAPI) *Resolver {
	return &Resolver{Store: st, API: api}
}

// ResolveAccess decides whether a device may order at the table behind
// scanSlug. Priority: active order wins over everything, an available
// table wins over a stale waitlist token, takeaway never queues.
func (r *Resolver) ResolveAccess(ctx context.Context, deviceID, scanSlug, serviceType string) (models.Decision, error) {
	// A live order means the device already owns the session. Never
	// contact the server, never re-queue on an occupancy flap.
	active, err := r.Store.ActiveOrder(deviceID, models.ServiceDineIn)
	if err != nil {
		return models.Blocked(ReasonUnverifiable), err
	}
	if active {
		snap, _ := r.Store.TableSnapshot(deviceID)
		return models.Proceed(snap), nil
	}

	sessionToken, err := r.Store.Get(deviceID, models.KeySessionToken)
	if err != nil {
		return models.Blocked(ReasonUnverifiable), err
	}
	waitlistToken, err := r.Store.Get(deviceID, models.KeyWaitlistToken)
	if err != nil {
		return models.Blocked(ReasonUnverifiable), err
	}

	result, err := r.API.LookupTable(ctx, scanSlug, sessionToken, waitlistToken)
	if err != nil {
		// Fail safe: keep the last-known-good snapshot, surface a
		// retry-oriented message.
		utils.ErrorLogger.Printf("Table lookup failed for device %s: %v", deviceID, err)
		return models.Blocked(ReasonUnverifiable), nil
	}

	if err := r.Store.Set(deviceID, models.KeyScanToken, scanSlug); err != nil {
		return models.Blocked(ReasonUnverifiable), err
	}

	switch result.Outcome {
	case upstream.OutcomeNotFound:
		return r.resolveNotFound(deviceID)
	case upstream.OutcomeLocked:
		return r.resolveLocked(deviceID, serviceType, sessionToken, result)
	default:
		return r.resolveOK(deviceID, serviceType, sessionToken, result)
	}
}

// resolveNotFound: the table is gone server-side, so every local claim to
// it is invalid.
func (r *Resolver) resolveNotFound(deviceID string) (models.Decision, error) {
	keys := append([]string{
		models.KeyTableSnapshot,
		models.KeySessionToken,
		models.KeyScanToken,
	}, models.WaitlistKeys()...)
	if err := r.Store.Clear(deviceID, keys...); err != nil {
		return models.Blocked(ReasonUnverifiable), err
	}
	return models.Blocked(ReasonTableNotFound), nil
}

// resolveLocked: another session holds the table. The lock and status
// fields can transiently disagree, so an available status inside a locked
// response is treated as success.
func (r *Resolver) resolveLocked(deviceID, serviceType, sessionToken string, result *upstream.LookupResult) (models.Decision, error) {
	if result.Table.IsAvailable() {
		return r.resolveOK(deviceID, serviceType, sessionToken, result)
	}

	if result.Table != nil {
		if err := r.Store.SaveTableSnapshot(deviceID, result.Table); err != nil {
			return models.Blocked(ReasonUnverifiable), err
		}
	}

	if r.ownershipProven(deviceID, sessionToken, result) {
		if err := r.adoptResult(deviceID, serviceType, sessionToken, result); err != nil {
			return models.Blocked(ReasonUnverifiable), err
		}
		return models.Proceed(result.Table), nil
	}

	// Takeaway never queues.
	if serviceType == models.ServiceTakeaway {
		return models.Proceed(result.Table), nil
	}
	return models.RequireWaitlist(result.Table), nil
}

// resolveOK: the lookup succeeded; branch on the observed status.
func (r *Resolver) resolveOK(deviceID, serviceType, sessionToken string, result *upstream.LookupResult) (models.Decision, error) {
	if result.Table != nil {
		if err := r.Store.SaveTableSnapshot(deviceID, result.Table); err != nil {
			return models.Blocked(ReasonUnverifiable), err
		}
	}

	if result.Table.IsAvailable() {
		// An available table invalidates any waitlist entry and any
		// prior order data; a new customer is assumed.
		if err := r.Store.ClearWaitlist(deviceID); err != nil {
			return models.Blocked(ReasonUnverifiable), err
		}
		if err := r.Store.Clear(deviceID, models.DineInScopedKeys()...); err != nil {
			return models.Blocked(ReasonUnverifiable), err
		}
		if err := r.Store.RotateSession(deviceID, result.SessionToken, sessionToken); err != nil {
			return models.Blocked(ReasonUnverifiable), err
		}
		return models.Proceed(result.Table), nil
	}

	// Occupied. An order in the response is adopted as ours.
	if result.Order != nil {
		if err := r.adoptResult(deviceID, serviceType, sessionToken, result); err != nil {
			return models.Blocked(ReasonUnverifiable), err
		}
		return models.Proceed(result.Table), nil
	}

	// A matching session token proves the occupancy is ours even when the
	// response carries no order object.
	if sessionToken != "" && result.SessionToken == sessionToken {
		return models.Proceed(result.Table), nil
	}

	// A seated waitlist entry means this occupancy is ours; adopt the
	// issued session token and retire the entry.
	entry, err := r.Store.WaitlistEntry(deviceID)
	if err != nil {
		return models.Blocked(ReasonUnverifiable), err
	}
	if entry != nil && entry.Status == models.WaitlistSeated && result.SessionToken != "" {
		if err := r.Store.RotateSession(deviceID, result.SessionToken, sessionToken); err != nil {
			return models.Blocked(ReasonUnverifiable), err
		}
		if err := r.Store.ClearWaitlist(deviceID); err != nil {
			return models.Blocked(ReasonUnverifiable), err
		}
		return models.Proceed(result.Table), nil
	}

	if serviceType == models.ServiceTakeaway {
		return models.Proceed(result.Table), nil
	}
	return models.RequireWaitlist(result.Table), nil
}

// ownershipProven checks the three independent proofs that the lock
// belongs to this device: matching order id, matching session token, or
// an order object in the response.
func (r *Resolver) ownershipProven(deviceID, sessionToken string, result *upstream.LookupResult) bool {
	if result.Order != nil {
		localOrderID, _ := r.Store.Get(deviceID, models.KeyDineInOrderID)
		if localOrderID != "" && localOrderID == result.Order.ID {
			return true
		}
	}
	if sessionToken != "" && result.SessionToken == sessionToken {
		return true
	}
	if result.Table != nil && sessionToken != "" && result.Table.SessionToken == sessionToken {
		return true
	}
	return result.Order != nil
}

// adoptResult persists the order and session token from an authoritative
// response as this device's own. Rotation runs first so it cannot wipe
// the order being adopted.
func (r *Resolver) adoptResult(deviceID, serviceType, oldToken string, result *upstream.LookupResult) error {
	if err := r.Store.RotateSession(deviceID, result.SessionToken, oldToken); err != nil {
		return err
	}
	if result.Order != nil {
		scope := models.ServiceDineIn
		if serviceType == models.ServiceTakeaway {
			scope = models.ServiceTakeaway
		}
		return r.Store.AdoptOrder(deviceID, scope, result.Order.ID, result.Order.Status)
	}
	return nil
}
