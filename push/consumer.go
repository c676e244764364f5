package push

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/dineflow/customer-gateway/models"
	"github.com/dineflow/customer-gateway/services"
	"github.com/dineflow/customer-gateway/store"
	"github.com/dineflow/customer-gateway/utils"
)

// Topics published by the platform push endpoint.
const (
	TopicTableStatus    = "table-status"
	TopicWaitlistUpdate = "waitlist-update"
)

// A connection that held at least this long earns a fresh backoff on the
// next redial; shorter-lived ones keep escalating.
const stableConnection = time.Minute

// PlatformEvent is one message from the platform push channel.
type PlatformEvent struct {
	Topic    string `json:"topic"`
	EntityID string `json:"entity_id"`
	TableID  uint   `json:"table_id,omitempty"`
	Status   string `json:"status,omitempty"`
}

// DecisionSource re-derives a decision; the consumer is only a trigger,
// never a parallel source of truth.
type DecisionSource interface {
	ResolveAccess(ctx context.Context, deviceID, scanSlug, serviceType string) (models.Decision, error)
}

// WaitlistPoller refreshes a device's waitlist entry from the server.
type WaitlistPoller interface {
	Poll(ctx context.Context, deviceID string) (*models.WaitlistEntry, error)
}

// Consumer maintains the websocket subscription to the platform and
// feeds matching events back through the resolver.
type Consumer struct {
	URL      string
	Store    *store.Store
	Registry *services.Registry
	Resolver DecisionSource
	Waitlist WaitlistPoller
	Hub      *Hub

	Dialer *websocket.Dialer

	// ReconnectWait seeds the redial backoff. Tests shrink it.
	ReconnectWait time.Duration

	connected atomic.Bool
}

// Connected reports whether the push subscription is currently live. The
// fallback monitor polls only while this is false.
func (c *Consumer) Connected() bool {
	return c.connected.Load()
}

func (c *Consumer) setConnected(up bool) {
	c.connected.Store(up)
}

func NewConsumer(url string, st *store.Store, registry *services.Registry, resolver DecisionSource, waitlist WaitlistPoller, hub *Hub) *Consumer {
	return &Consumer{
		URL:           url,
		Store:         st,
		Registry:      registry,
		Resolver:      resolver,
		Waitlist:      waitlist,
		Hub:           hub,
		Dialer:        websocket.DefaultDialer,
		ReconnectWait: time.Second,
	}
}

// Run keeps the subscription alive until ctx is cancelled, reconnecting
// with bounded backoff. The backoff covers drops as well as dial
// failures, so a flapping upstream is never redialed in a tight loop.
// The fallback monitor covers the gaps.
func (c *Consumer) Run(ctx context.Context) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.ReconnectWait
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = time.Second
	}
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0 // retry forever, the interval is what is bounded

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := c.Dialer.DialContext(ctx, c.URL, nil)
		if err != nil {
			wait := policy.NextBackOff()
			utils.ErrorLogger.Printf("Push channel dial failed, retrying in %s: %v", wait, err)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return
			}
		}

		c.setConnected(true)
		utils.InfoLogger.Println("Push channel connected")
		connectedAt := time.Now()

		c.readLoop(ctx, conn)

		c.setConnected(false)
		conn.Close()
		utils.InfoLogger.Println("Push channel disconnected")

		if time.Since(connectedAt) >= stableConnection {
			policy.Reset()
		}
		select {
		case <-time.After(policy.NextBackOff()):
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) readLoop(ctx context.Context, conn *websocket.Conn) {
	// The watcher closes the connection on cancel and exits with the
	// read loop; it must not outlive this connection.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for _, topic := range []string{TopicTableStatus, TopicWaitlistUpdate} {
		sub := map[string]string{"action": "subscribe", "topic": topic}
		if err := conn.WriteJSON(sub); err != nil {
			utils.ErrorLogger.Printf("Push subscribe failed for %s: %v", topic, err)
			return
		}
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				utils.ErrorLogger.Printf("Push channel read failed: %v", err)
			}
			return
		}

		var event PlatformEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			utils.ErrorLogger.Printf("Ignoring malformed push event: %v", err)
			continue
		}
		c.handleEvent(ctx, event)
	}
}

// handleEvent reacts to one platform event. Only devices tracking the
// affected entity re-evaluate, and never while they hold an active order;
// an admin-side status change must not interrupt a customer mid-order.
func (c *Consumer) handleEvent(ctx context.Context, event PlatformEvent) {
	switch event.Topic {
	case TopicTableStatus:
		// Devices tracked before a snapshot was saved sit at table id 0;
		// an event with no table id must not fan out to all of them.
		if event.TableID == 0 {
			return
		}
		for _, t := range c.Registry.ByTable(event.TableID) {
			c.reevaluate(ctx, t)
		}
	case TopicWaitlistUpdate:
		t, ok := c.Registry.ByWaitlistToken(event.EntityID)
		if !ok {
			return
		}
		entry, err := c.Waitlist.Poll(ctx, t.DeviceID)
		if err != nil && !errors.Is(err, services.ErrWaitlistExpired) && !errors.Is(err, services.ErrNotQueued) {
			utils.ErrorLogger.Printf("Waitlist refresh failed for device %s: %v", t.DeviceID, err)
			return
		}
		c.Hub.SendWaitlistUpdate(t.DeviceID, entry)
		c.reevaluate(ctx, t)
	}
}

func (c *Consumer) reevaluate(ctx context.Context, t services.Tracking) {
	active, err := c.Store.ActiveOrder(t.DeviceID, models.ServiceDineIn)
	if err != nil {
		utils.ErrorLogger.Printf("Push state read failed for device %s: %v", t.DeviceID, err)
		return
	}
	if active {
		return
	}

	gen := c.Registry.Bump(t.DeviceID)
	decision, err := c.Resolver.ResolveAccess(ctx, t.DeviceID, t.Slug, t.ServiceType)
	if err != nil {
		utils.ErrorLogger.Printf("Push-triggered resolve failed for device %s: %v", t.DeviceID, err)
		return
	}
	// Superseded by a newer trigger while resolving; drop this result.
	if c.Registry.Generation(t.DeviceID) != gen {
		return
	}
	c.Hub.SendDecision(t.DeviceID, decision)
}
