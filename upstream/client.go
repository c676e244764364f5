package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dineflow/customer-gateway/models"
)

// Lookup outcome classes. The admission logic branches on these, not on
// payload shape alone.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeLocked   = "locked"
)

// OrderInfo is the order object a lookup may carry.
type OrderInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// LookupResult is the decoded table lookup response.
type LookupResult struct {
	Outcome      string                `json:"outcome"`
	Table        *models.TableSnapshot `json:"table,omitempty"`
	Order        *OrderInfo            `json:"order,omitempty"`
	SessionToken string                `json:"session_token,omitempty"`
}

// WaitlistState is the platform's view of one waitlist entry.
type WaitlistState struct {
	Token        string `json:"token"`
	Status       string `json:"status"`
	Position     int    `json:"position"`
	SessionToken string `json:"session_token,omitempty"`
}

// JoinRequest is the join-waitlist payload. SessionToken is included only
// on a rejoin; sending it on a fresh join can match a stale session and
// come back "already joined".
type JoinRequest struct {
	TableID      uint   `json:"table_id"`
	GuestName    string `json:"guest_name"`
	PartySize    int    `json:"party_size"`
	Token        string `json:"token,omitempty"`
	SessionToken string `json:"session_token,omitempty"`
}

// GeoPoint is a geocoding result.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Client talks to the restaurant platform backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// LookupTable resolves a scanned slug to the table's current server
// record. 404 and 423 are recognized outcome classes, not failures.
func (c *Client) LookupTable(ctx context.Context, slug, sessionToken, waitlistToken string) (*LookupResult, error) {
	q := url.Values{}
	if sessionToken != "" {
		q.Set("session_token", sessionToken)
	}
	if waitlistToken != "" {
		q.Set("waitlist_token", waitlistToken)
	}
	endpoint := fmt.Sprintf("%s/tables/%s/lookup", c.BaseURL, url.PathEscape(slug))
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransientError{Op: "lookup", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return &LookupResult{Outcome: OutcomeNotFound}, nil
	case http.StatusLocked:
		result := &LookupResult{}
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return nil, &TransientError{Op: "lookup decode", Err: err}
		}
		result.Outcome = OutcomeLocked
		return result, nil
	case http.StatusOK:
		result := &LookupResult{}
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return nil, &TransientError{Op: "lookup decode", Err: err}
		}
		result.Outcome = OutcomeOK
		return result, nil
	default:
		return nil, &TransientError{Op: "lookup", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
}

// JoinWaitlist adds a party to a table's wait queue.
func (c *Client) JoinWaitlist(ctx context.Context, req JoinRequest) (*WaitlistState, error) {
	endpoint := c.BaseURL + "/waitlist"
	resp, err := c.do(ctx, http.MethodPost, endpoint, req)
	if err != nil {
		return nil, &TransientError{Op: "waitlist join", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusOK, http.StatusCreated:
		var state WaitlistState
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			return nil, &TransientError{Op: "waitlist join decode", Err: err}
		}
		return &state, nil
	default:
		return nil, &TransientError{Op: "waitlist join", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
}

// GetWaitlistStatus polls one entry. ErrNotFound means the entry expired
// server-side.
func (c *Client) GetWaitlistStatus(ctx context.Context, token string) (*WaitlistState, error) {
	endpoint := fmt.Sprintf("%s/waitlist/%s", c.BaseURL, url.PathEscape(token))
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransientError{Op: "waitlist status", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusOK:
		var state WaitlistState
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			return nil, &TransientError{Op: "waitlist status decode", Err: err}
		}
		return &state, nil
	default:
		return nil, &TransientError{Op: "waitlist status", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
}

// LeaveWaitlist removes an entry. Callers treat failures as best-effort.
func (c *Client) LeaveWaitlist(ctx context.Context, token string) error {
	endpoint := fmt.Sprintf("%s/waitlist/%s", c.BaseURL, url.PathEscape(token))
	resp, err := c.do(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return &TransientError{Op: "waitlist leave", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return &TransientError{Op: "waitlist leave", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}

// ListNearbyCarts -> carts sorted by distance from the given point.
func (c *Client) ListNearbyCarts(ctx context.Context, lat, lng float64, orderType string) ([]models.Cart, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("order_type", orderType)
	return c.listCarts(ctx, c.BaseURL+"/carts/nearby?"+q.Encode())
}

// ListAvailableCarts -> all carts accepting the given order type.
func (c *Client) ListAvailableCarts(ctx context.Context, orderType string) ([]models.Cart, error) {
	q := url.Values{}
	q.Set("order_type", orderType)
	return c.listCarts(ctx, c.BaseURL+"/carts?"+q.Encode())
}

func (c *Client) listCarts(ctx context.Context, endpoint string) ([]models.Cart, error) {
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransientError{Op: "list carts", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransientError{Op: "list carts", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	var carts []models.Cart
	if err := json.NewDecoder(resp.Body).Decode(&carts); err != nil {
		return nil, &TransientError{Op: "list carts decode", Err: err}
	}
	return carts, nil
}

// Geocode resolves a free-form address. A nil point with nil error means
// no match.
func (c *Client) Geocode(ctx context.Context, address string) (*GeoPoint, error) {
	q := url.Values{}
	q.Set("address", address)
	resp, err := c.do(ctx, http.MethodGet, c.BaseURL+"/geocode?"+q.Encode(), nil)
	if err != nil {
		return nil, &TransientError{Op: "geocode", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotFound:
		return nil, nil
	case http.StatusOK:
		var point GeoPoint
		if err := json.NewDecoder(resp.Body).Decode(&point); err != nil {
			return nil, &TransientError{Op: "geocode decode", Err: err}
		}
		return &point, nil
	default:
		return nil, &TransientError{Op: "geocode", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.HTTPClient.Do(req)
}
