package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dineflow/customer-gateway/utils"
)

const deviceCookie = "device_token"

// DeviceIdentity resolves the calling device. A valid device token in the
// cookie (or query, for websocket upgrades) is honored; otherwise a new
// device id is minted and set. Handlers read the id from the context.
func DeviceIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(deviceCookie)
		if token == "" {
			token = c.Query("device_token")
		}

		if token != "" {
			if claims, err := utils.ParseDeviceToken(token); err == nil {
				c.Set("device_id", claims.DeviceID)
				c.Next()
				return
			}
		}

		deviceID := uuid.NewString()
		fresh, err := utils.GenerateDeviceToken(deviceID)
		if err != nil {
			utils.ErrorLogger.Printf("Failed to mint device token: %v", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.SetCookie(deviceCookie, fresh, 30*24*3600, "/", "", false, true)
		c.Set("device_id", deviceID)
		c.Next()
	}
}

// DeviceID -> the device id set by DeviceIdentity.
func DeviceID(c *gin.Context) string {
	id, _ := c.Get("device_id")
	s, _ := id.(string)
	return s
}
