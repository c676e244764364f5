package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dineflow/customer-gateway/models"
	"github.com/dineflow/customer-gateway/upstream"
)

// fakeWaitlistAPI scripts the platform's waitlist responses.
type fakeWaitlistAPI struct {
	joinState  *upstream.WaitlistState
	joinErr    error
	pollState  *upstream.WaitlistState
	pollErr    error
	leaveErr   error
	lastJoin   upstream.JoinRequest
	leaveCalls int
}

func (f *fakeWaitlistAPI) JoinWaitlist(ctx context.Context, req upstream.JoinRequest) (*upstream.WaitlistState, error) {
	f.lastJoin = req
	return f.joinState, f.joinErr
}

func (f *fakeWaitlistAPI) GetWaitlistStatus(ctx context.Context, token string) (*upstream.WaitlistState, error) {
	return f.pollState, f.pollErr
}

func (f *fakeWaitlistAPI) LeaveWaitlist(ctx context.Context, token string) error {
	f.leaveCalls++
	return f.leaveErr
}

func TestJoinValidation(t *testing.T) {
	st := setupTestStore(t)
	api := &fakeWaitlistAPI{}
	w := NewWaitlist(st, api)

	assert.NoError(t, st.SaveTableSnapshot("dev-1", &models.TableSnapshot{
		TableID: 5, Status: models.TableOccupied, Capacity: 4,
	}))

	tests := []struct {
		name    string
		in      JoinInput
		wantErr bool
	}{
		{"empty guest name", JoinInput{TableID: 5, GuestName: "", PartySize: 2}, true},
		{"zero party size", JoinInput{TableID: 5, GuestName: "Ana", PartySize: 0}, true},
		{"negative party size", JoinInput{TableID: 5, GuestName: "Ana", PartySize: -1}, true},
		{"party exceeds capacity", JoinInput{TableID: 5, GuestName: "Ana", PartySize: 5}, true},
		{"party equals capacity", JoinInput{TableID: 5, GuestName: "Ana", PartySize: 4}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api.joinState = &upstream.WaitlistState{Token: "wl-1", Position: 1, Status: models.WaitlistWaiting}
			_, err := w.Join(context.Background(), "dev-1", tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, IsValidation(err), "expected a validation error, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestJoinOmitsSessionTokenOnFreshJoin(t *testing.T) {
	st := setupTestStore(t)
	api := &fakeWaitlistAPI{joinState: &upstream.WaitlistState{Token: "wl-1", Position: 3, Status: models.WaitlistWaiting}}
	w := NewWaitlist(st, api)

	// The device has a session token but no existing waitlist entry: a
	// fresh join must not send it, or the server may match a stale
	// session and answer "already joined".
	assert.NoError(t, st.Set("dev-1", models.KeySessionToken, "tok-old"))

	entry, err := w.Join(context.Background(), "dev-1", JoinInput{TableID: 5, GuestName: "Ana", PartySize: 2})
	assert.NoError(t, err)
	assert.Equal(t, "", api.lastJoin.SessionToken)
	assert.Equal(t, 3, entry.Position)

	// Rejoin: now the token goes along.
	api.joinState = &upstream.WaitlistState{Token: "wl-1", Position: 2, Status: models.WaitlistWaiting}
	_, err = w.Join(context.Background(), "dev-1", JoinInput{TableID: 5, GuestName: "Ana", PartySize: 2})
	assert.NoError(t, err)
	assert.Equal(t, "tok-old", api.lastJoin.SessionToken)
	assert.Equal(t, "wl-1", api.lastJoin.Token)
}

func TestPollPositionIsServerAuthoritative(t *testing.T) {
	st := setupTestStore(t)
	api := &fakeWaitlistAPI{}
	w := NewWaitlist(st, api)

	assert.NoError(t, st.SaveWaitlistEntry("dev-1", &models.WaitlistEntry{
		Token: "wl-1", TableID: 5, Status: models.WaitlistWaiting, Position: 2,
	}))

	// Position can go up as well as down; the server value always wins.
	for _, position := range []int{5, 1, 4} {
		api.pollState = &upstream.WaitlistState{Status: models.WaitlistWaiting, Position: position}
		entry, err := w.Poll(context.Background(), "dev-1")
		assert.NoError(t, err)
		assert.Equal(t, position, entry.Position)

		stored, _ := st.WaitlistEntry("dev-1")
		assert.Equal(t, position, stored.Position)
	}
}

func TestPollExpiredPurgesState(t *testing.T) {
	st := setupTestStore(t)
	api := &fakeWaitlistAPI{pollErr: upstream.ErrNotFound}
	w := NewWaitlist(st, api)

	assert.NoError(t, st.SaveWaitlistEntry("dev-1", &models.WaitlistEntry{
		Token: "wl-1", TableID: 5, Status: models.WaitlistWaiting, Position: 2,
	}))

	_, err := w.Poll(context.Background(), "dev-1")
	assert.True(t, errors.Is(err, ErrWaitlistExpired))

	entry, _ := st.WaitlistEntry("dev-1")
	assert.Nil(t, entry)
	token, _ := st.Get("dev-1", models.KeyWaitlistToken)
	assert.Equal(t, "", token)
}

func TestPollSeatedAdoptsSessionAndRetiresEntry(t *testing.T) {
	st := setupTestStore(t)
	api := &fakeWaitlistAPI{pollState: &upstream.WaitlistState{
		Status: models.WaitlistSeated, Position: 0, SessionToken: "tok-seated",
	}}
	w := NewWaitlist(st, api)

	assert.NoError(t, st.SaveWaitlistEntry("dev-1", &models.WaitlistEntry{
		Token: "wl-1", TableID: 5, Status: models.WaitlistNotified, Position: 1,
	}))

	entry, err := w.Poll(context.Background(), "dev-1")
	assert.NoError(t, err)
	assert.Equal(t, models.WaitlistSeated, entry.Status)

	tok, _ := st.Get("dev-1", models.KeySessionToken)
	assert.Equal(t, "tok-seated", tok)
	stored, _ := st.WaitlistEntry("dev-1")
	assert.Nil(t, stored)
}

func TestPollNeverLeavesTerminalState(t *testing.T) {
	st := setupTestStore(t)
	api := &fakeWaitlistAPI{pollState: &upstream.WaitlistState{
		Status: models.WaitlistWaiting, Position: 3,
	}}
	w := NewWaitlist(st, api)

	// A seated entry can never be pulled back into the queue by a late
	// response.
	assert.NoError(t, st.SaveWaitlistEntry("dev-1", &models.WaitlistEntry{
		Token: "wl-1", TableID: 5, Status: models.WaitlistSeated, Position: 0,
	}))

	entry, err := w.Poll(context.Background(), "dev-1")
	assert.NoError(t, err)
	assert.Equal(t, models.WaitlistSeated, entry.Status)

	stored, _ := st.WaitlistEntry("dev-1")
	assert.Equal(t, models.WaitlistSeated, stored.Status)
}

func TestPollWithoutEntry(t *testing.T) {
	st := setupTestStore(t)
	w := NewWaitlist(st, &fakeWaitlistAPI{})

	_, err := w.Poll(context.Background(), "dev-1")
	assert.True(t, errors.Is(err, ErrNotQueued))
}

func TestLeavePurgesLocallyEvenWhenRemoteFails(t *testing.T) {
	st := setupTestStore(t)
	api := &fakeWaitlistAPI{leaveErr: &upstream.TransientError{Op: "waitlist leave", Err: assert.AnError}}
	w := NewWaitlist(st, api)

	assert.NoError(t, st.SaveWaitlistEntry("dev-1", &models.WaitlistEntry{
		Token: "wl-1", TableID: 5, Status: models.WaitlistWaiting, Position: 2,
	}))

	assert.NoError(t, w.Leave(context.Background(), "dev-1"))
	assert.Equal(t, 1, api.leaveCalls)

	entry, _ := st.WaitlistEntry("dev-1")
	assert.Nil(t, entry)
}
