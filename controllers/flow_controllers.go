package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dineflow/customer-gateway/middlewares"
	"github.com/dineflow/customer-gateway/models"
	"github.com/dineflow/customer-gateway/services"
	"github.com/dineflow/customer-gateway/store"
	"github.com/dineflow/customer-gateway/upstream"
	"github.com/dineflow/customer-gateway/utils"
)

type FlowController struct {
	Store    *store.Store
	Flow     *services.Flow
	Resolver *services.Resolver
	Registry *services.Registry
}

func NewFlowController(st *store.Store, flow *services.Flow, resolver *services.Resolver, registry *services.Registry) *FlowController {
	return &FlowController{Store: st, Flow: flow, Resolver: resolver, Registry: registry}
}

// Scan -> resolve access for a scanned table QR.
func (fc *FlowController) Scan(c *gin.Context) {
	deviceID := middlewares.DeviceID(c)
	slug := c.Param("slug")

	var req struct {
		ServiceType string `json:"service_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.ServiceType == "" {
		req.ServiceType = models.ServiceDineIn
	}
	if !models.ValidServiceType(req.ServiceType) {
		utils.RespondError(c, http.StatusBadRequest, errUnknownServiceType)
		return
	}

	decision, err := fc.Resolver.ResolveAccess(c.Request.Context(), deviceID, slug, req.ServiceType)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	// A blocked scan leaves nothing valid to watch; tracking it would
	// keep the fallback poller re-resolving a dead slug.
	if decision.Kind == models.DecisionBlocked {
		fc.Registry.Untrack(deviceID)
	} else {
		fc.track(deviceID, slug, req.ServiceType)
	}

	utils.InfoLogger.Printf("Scan resolved for device %s: %s", deviceID, decision.Kind)
	utils.RespondJSON(c, http.StatusOK, "Access resolved", decision)
}

// StartFlow -> run the orchestration branch for a service type.
func (fc *FlowController) StartFlow(c *gin.Context) {
	deviceID := middlewares.DeviceID(c)

	var req services.FlowRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	req.ServiceType = c.Param("service_type")

	result, err := fc.Flow.StartFlow(c.Request.Context(), deviceID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if req.ServiceType == models.ServiceDineIn {
		if result.Decision != nil && result.Decision.Kind == models.DecisionBlocked {
			fc.Registry.Untrack(deviceID)
		} else {
			fc.track(deviceID, req.Slug, req.ServiceType)
		}
	} else if req.ServiceType == models.ServiceTakeaway {
		// A takeaway flow has no table to watch.
		fc.Registry.Untrack(deviceID)
	}

	utils.RespondJSON(c, http.StatusOK, "Flow started", result)
}

// track registers what this device's decision now depends on.
func (fc *FlowController) track(deviceID, slug, serviceType string) {
	t := services.Tracking{DeviceID: deviceID, Slug: slug, ServiceType: serviceType}
	if snap, err := fc.Store.TableSnapshot(deviceID); err == nil && snap != nil {
		t.TableID = snap.TableID
	}
	if token, err := fc.Store.Get(deviceID, models.KeyWaitlistToken); err == nil {
		t.WaitlistToken = token
	}
	fc.Registry.Track(t)
}

// respondServiceError maps the service error taxonomy onto HTTP codes.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case services.IsValidation(err):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrNotQueued):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrWaitlistExpired):
		utils.RespondError(c, http.StatusGone, err)
	case errors.Is(err, upstream.ErrNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case upstream.IsTransient(err):
		utils.RespondError(c, http.StatusBadGateway, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}

var errUnknownServiceType = &CustomError{"Unknown service type"}

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string { return e.Message }
