package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dineflow/customer-gateway/middlewares"
	"github.com/dineflow/customer-gateway/services"
	"github.com/dineflow/customer-gateway/store"
	"github.com/dineflow/customer-gateway/utils"
)

type WaitlistController struct {
	Store    *store.Store
	Waitlist *services.Waitlist
	Registry *services.Registry
}

func NewWaitlistController(st *store.Store, waitlist *services.Waitlist, registry *services.Registry) *WaitlistController {
	return &WaitlistController{Store: st, Waitlist: waitlist, Registry: registry}
}

// Join -> add this device's party to the scanned table's queue.
func (wc *WaitlistController) Join(c *gin.Context) {
	deviceID := middlewares.DeviceID(c)

	var in services.JoinInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	entry, err := wc.Waitlist.Join(c.Request.Context(), deviceID, in)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	wc.updateTracking(deviceID, entry.Token)
	utils.RespondJSON(c, http.StatusCreated, "Joined waitlist", entry)
}

// Status -> poll the device's entry; position always comes back as the
// server sees it.
func (wc *WaitlistController) Status(c *gin.Context) {
	deviceID := middlewares.DeviceID(c)

	entry, err := wc.Waitlist.Poll(c.Request.Context(), deviceID)
	if err != nil {
		if errors.Is(err, services.ErrWaitlistExpired) {
			wc.updateTracking(deviceID, "")
		}
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Waitlist status", entry)
}

// Leave -> drop out of the queue. Always succeeds locally.
func (wc *WaitlistController) Leave(c *gin.Context) {
	deviceID := middlewares.DeviceID(c)

	if err := wc.Waitlist.Leave(c.Request.Context(), deviceID); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	wc.updateTracking(deviceID, "")
	utils.RespondJSON(c, http.StatusOK, "Left waitlist", nil)
}

func (wc *WaitlistController) updateTracking(deviceID, token string) {
	for _, t := range wc.Registry.All() {
		if t.DeviceID == deviceID {
			t.WaitlistToken = token
			wc.Registry.Track(t)
			return
		}
	}
}
