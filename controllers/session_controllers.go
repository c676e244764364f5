package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dineflow/customer-gateway/middlewares"
	"github.com/dineflow/customer-gateway/services"
	"github.com/dineflow/customer-gateway/store"
	"github.com/dineflow/customer-gateway/utils"
)

type SessionController struct {
	Store    *store.Store
	Registry *services.Registry
}

func NewSessionController(st *store.Store, registry *services.Registry) *SessionController {
	return &SessionController{Store: st, Registry: registry}
}

// GetSession -> the device's current session claim and table snapshot.
func (sc *SessionController) GetSession(c *gin.Context) {
	deviceID := middlewares.DeviceID(c)

	record, err := sc.Store.SessionRecord(deviceID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	snapshot, err := sc.Store.TableSnapshot(deviceID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	entry, err := sc.Store.WaitlistEntry(deviceID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Current session", gin.H{
		"session":  record,
		"table":    snapshot,
		"waitlist": entry,
		"active":   record.Active(),
	})
}

// ResetSession -> wipe everything this device believes. Flow teardown
// also stops any tracking so no timer keeps mutating dead state.
func (sc *SessionController) ResetSession(c *gin.Context) {
	deviceID := middlewares.DeviceID(c)

	sc.Registry.Untrack(deviceID)
	if err := sc.Store.Reset(deviceID); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Session reset for device %s", deviceID)
	utils.RespondJSON(c, http.StatusOK, "Session reset", nil)
}
