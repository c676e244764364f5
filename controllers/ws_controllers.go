package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dineflow/customer-gateway/middlewares"
	"github.com/dineflow/customer-gateway/push"
	"github.com/dineflow/customer-gateway/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSController struct {
	Hub *push.Hub
}

func NewWSController(hub *push.Hub) *WSController {
	return &WSController{Hub: hub}
}

// Connect upgrades the UI connection and registers it for decision and
// waitlist updates scoped to this device.
func (wsc *WSController) Connect(c *gin.Context) {
	deviceID := middlewares.DeviceID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	wsc.Hub.RegisterClient(conn, deviceID)
	utils.InfoLogger.Printf("UI client connected for device %s", deviceID)

	go func() {
		defer wsc.Hub.UnregisterClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
