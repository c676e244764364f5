package services

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"

	"github.com/dineflow/customer-gateway/models"
	"github.com/dineflow/customer-gateway/store"
	"github.com/dineflow/customer-gateway/upstream"
	"github.com/dineflow/customer-gateway/utils"
)

// Flow actions returned to the UI.
const (
	ActionNavigate = "navigate"
	ActionModal    = "modal"
	ActionBlocked  = "blocked"
)

// Modal identifiers the UI knows how to render.
const (
	ModalWaitlistJoin    = "waitlist_join"
	ModalCustomerDetails = "customer_details"
	ModalSelectCart      = "select_cart"
	ModalDeliveryPoint   = "delivery_point"
)

// CartAPI is the slice of the platform client the pickup/delivery branch
// needs. The occupancy core never touches it.
type CartAPI interface {
	ListNearbyCarts(ctx context.Context, lat, lng float64, orderType string) ([]models.Cart, error)
	ListAvailableCarts(ctx context.Context, orderType string) ([]models.Cart, error)
	Geocode(ctx context.Context, address string) (*upstream.GeoPoint, error)
}

// FlowRequest carries everything a flow start may need. Slug is required
// for dine-in; cart and delivery point only matter for pickup/delivery.
type FlowRequest struct {
	ServiceType string  `json:"service_type"`
	Slug        string  `json:"slug"`
	CartID      uint    `json:"cart_id"`
	Address     string  `json:"address"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// FlowResult tells the UI what to do next: navigate to ordering, open a
// modal, or show a blocked reason.
type FlowResult struct {
	Action   string           `json:"action"`
	Target   string           `json:"target,omitempty"`
	Modal    string           `json:"modal,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Decision *models.Decision `json:"decision,omitempty"`

	DistanceKm float64       `json:"distance_km,omitempty"`
	RadiusKm   float64       `json:"radius_km,omitempty"`
	Carts      []models.Cart `json:"carts,omitempty"`
}

// Flow selects and bootstraps the right service flow for a device.
type Flow struct {
	Store    *store.Store
	Resolver *Resolver
	Carts    CartAPI
}

func NewFlow(st *store.Store, resolver *Resolver, carts CartAPI) *Flow {
	return &Flow{Store: st, Resolver: resolver, Carts: carts}
}

// StartFlow runs the branch for the requested service type.
func (f *Flow) StartFlow(ctx context.Context, deviceID string, req FlowRequest) (*FlowResult, error) {
	if !models.ValidServiceType(req.ServiceType) {
		return nil, validation.Errors{
			"service_type": fmt.Errorf("unknown service type %q", req.ServiceType),
		}
	}
	if err := f.Store.Set(deviceID, models.KeyServiceType, req.ServiceType); err != nil {
		return nil, err
	}

	switch req.ServiceType {
	case models.ServiceTakeaway:
		return f.startTakeaway(ctx, deviceID)
	case models.ServiceDineIn:
		return f.startDineIn(ctx, deviceID, req)
	default:
		return f.startOffPremise(ctx, deviceID, req)
	}
}

// startTakeaway: takeaway never queues, so any waitlist state is stale by
// definition and purged up front.
func (f *Flow) startTakeaway(ctx context.Context, deviceID string) (*FlowResult, error) {
	if err := f.Store.ClearWaitlist(deviceID); err != nil {
		return nil, err
	}

	active, err := f.Store.ActiveOrder(deviceID, models.ServiceTakeaway)
	if err != nil {
		return nil, err
	}
	if active {
		return &FlowResult{Action: ActionNavigate, Target: "ordering"}, nil
	}

	oldToken, err := f.Store.Get(deviceID, models.KeySessionToken)
	if err != nil {
		return nil, err
	}
	if err := f.Store.RotateSession(deviceID, uuid.NewString(), oldToken); err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("New takeaway session issued for device %s", deviceID)
	return &FlowResult{Action: ActionModal, Modal: ModalCustomerDetails}, nil
}

func (f *Flow) startDineIn(ctx context.Context, deviceID string, req FlowRequest) (*FlowResult, error) {
	if req.Slug == "" {
		return nil, validation.Errors{"slug": fmt.Errorf("scan slug is required for dine-in")}
	}

	decision, err := f.Resolver.ResolveAccess(ctx, deviceID, req.Slug, models.ServiceDineIn)
	if err != nil {
		return nil, err
	}

	switch decision.Kind {
	case models.DecisionProceed:
		return &FlowResult{Action: ActionNavigate, Target: "ordering", Decision: &decision}, nil
	case models.DecisionRequireWaitlist:
		return &FlowResult{Action: ActionModal, Modal: ModalWaitlistJoin, Decision: &decision}, nil
	default:
		return &FlowResult{Action: ActionBlocked, Reason: decision.Reason, Decision: &decision}, nil
	}
}

// startOffPremise handles pickup and delivery: both need a resolved cart,
// delivery additionally needs an in-radius delivery point.
func (f *Flow) startOffPremise(ctx context.Context, deviceID string, req FlowRequest) (*FlowResult, error) {
	lat, lng, located, err := f.resolvePoint(ctx, req)
	if err != nil {
		return nil, err
	}

	cart, carts, err := f.resolveCart(ctx, req, lat, lng, located)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &FlowResult{Action: ActionModal, Modal: ModalSelectCart, Carts: carts}, nil
	}

	if req.ServiceType == models.ServiceDelivery {
		if !located {
			return &FlowResult{Action: ActionModal, Modal: ModalDeliveryPoint}, nil
		}
		distance := RoundKm(DistanceKm(lat, lng, cart.Lat, cart.Lng))
		if distance > cart.DeliveryRadiusKm {
			utils.InfoLogger.Printf("Delivery out of range for device %s: %.2f km > %.2f km",
				deviceID, distance, cart.DeliveryRadiusKm)
			return &FlowResult{
				Action:     ActionBlocked,
				Reason:     "delivery point outside the store's delivery radius",
				DistanceKm: distance,
				RadiusKm:   cart.DeliveryRadiusKm,
			}, nil
		}
	}

	return &FlowResult{Action: ActionNavigate, Target: "ordering"}, nil
}

// resolvePoint turns the request into coordinates, geocoding the address
// when no explicit point was sent.
func (f *Flow) resolvePoint(ctx context.Context, req FlowRequest) (lat, lng float64, located bool, err error) {
	if req.Lat != 0 || req.Lng != 0 {
		return req.Lat, req.Lng, true, nil
	}
	if req.Address == "" {
		return 0, 0, false, nil
	}
	point, err := f.Carts.Geocode(ctx, req.Address)
	if err != nil {
		return 0, 0, false, err
	}
	if point == nil {
		return 0, 0, false, nil
	}
	return point.Lat, point.Lng, true, nil
}

// resolveCart finds the requested cart, or returns the candidate list so
// the UI can ask the customer to pick one.
func (f *Flow) resolveCart(ctx context.Context, req FlowRequest, lat, lng float64, located bool) (*models.Cart, []models.Cart, error) {
	var carts []models.Cart
	var err error
	if located {
		carts, err = f.Carts.ListNearbyCarts(ctx, lat, lng, req.ServiceType)
	} else {
		carts, err = f.Carts.ListAvailableCarts(ctx, req.ServiceType)
	}
	if err != nil {
		return nil, nil, err
	}

	if req.CartID != 0 {
		for i := range carts {
			if carts[i].ID == req.CartID {
				return &carts[i], carts, nil
			}
		}
	}
	return nil, carts, nil
}
