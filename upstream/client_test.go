package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dineflow/customer-gateway/models"
)

func TestLookupTableOutcomes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tables/gone/lookup":
			w.WriteHeader(http.StatusNotFound)
		case "/tables/busy/lookup":
			w.WriteHeader(http.StatusLocked)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"table": map[string]interface{}{"table_id": 5, "status": models.TableOccupied},
			})
		case "/tables/free/lookup":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"table":         map[string]interface{}{"table_id": 5, "status": models.TableAvailable},
				"session_token": "tok-1",
			})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	result, err := client.LookupTable(ctx, "gone", "", "")
	assert.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, result.Outcome)

	result, err = client.LookupTable(ctx, "busy", "", "")
	assert.NoError(t, err)
	assert.Equal(t, OutcomeLocked, result.Outcome)
	assert.Equal(t, models.TableOccupied, result.Table.Status)

	result, err = client.LookupTable(ctx, "free", "", "")
	assert.NoError(t, err)
	assert.Equal(t, OutcomeOK, result.Outcome)
	assert.Equal(t, "tok-1", result.SessionToken)

	// 5xx is transient, not an outcome.
	_, err = client.LookupTable(ctx, "broken", "", "")
	assert.True(t, IsTransient(err))
}

func TestLookupTableForwardsTokens(t *testing.T) {
	var gotSession, gotWaitlist string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = r.URL.Query().Get("session_token")
		gotWaitlist = r.URL.Query().Get("waitlist_token")
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.LookupTable(context.Background(), "slug-5", "tok-a", "wl-b")
	assert.NoError(t, err)
	assert.Equal(t, "tok-a", gotSession)
	assert.Equal(t, "wl-b", gotWaitlist)
}

func TestWaitlistStatusNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.GetWaitlistStatus(context.Background(), "wl-expired")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestJoinWaitlistDecodesState(t *testing.T) {
	var gotBody JoinRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(WaitlistState{Token: "wl-1", Status: models.WaitlistWaiting, Position: 4})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	state, err := client.JoinWaitlist(context.Background(), JoinRequest{
		TableID: 5, GuestName: "Ana", PartySize: 2,
	})
	assert.NoError(t, err)
	assert.Equal(t, "wl-1", state.Token)
	assert.Equal(t, 4, state.Position)
	assert.Equal(t, uint(5), gotBody.TableID)
	assert.Equal(t, "", gotBody.SessionToken)
}

func TestGeocodeNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	point, err := client.Geocode(context.Background(), "nowhere")
	assert.NoError(t, err)
	assert.Nil(t, point)
}

func TestConnectionRefusedIsTransient(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	_, err := client.LookupTable(context.Background(), "slug-5", "", "")
	assert.True(t, IsTransient(err))
	assert.False(t, errors.Is(err, ErrNotFound))
}
