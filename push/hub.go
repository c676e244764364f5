package push

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dineflow/customer-gateway/models"
	"github.com/dineflow/customer-gateway/utils"
)

// Event types pushed to UI clients.
const (
	EventDecisionUpdate = "decision_update"
	EventWaitlistUpdate = "waitlist_update"
	EventSessionReset   = "session_reset"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds every connected UI client keyed by its device id, so decision
// updates reach only the device they belong to.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> device id
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]string)}
}

// RegisterClient adds a connection for a device.
func (h *Hub) RegisterClient(conn *websocket.Conn, deviceID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = deviceID
}

// UnregisterClient drops and closes a connection.
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

// SendDecision pushes a freshly derived decision to one device.
func (h *Hub) SendDecision(deviceID string, decision models.Decision) {
	h.send(deviceID, Message{Event: EventDecisionUpdate, Data: decision})
}

// SendWaitlistUpdate pushes a refreshed waitlist entry to one device.
func (h *Hub) SendWaitlistUpdate(deviceID string, entry *models.WaitlistEntry) {
	h.send(deviceID, Message{Event: EventWaitlistUpdate, Data: entry})
}

func (h *Hub) send(deviceID string, msg Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling push message: %v", err)
		return
	}

	for conn, id := range h.clients {
		if id != deviceID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Printf("Error sending push message to device %s: %v", deviceID, err)
		}
	}
}
