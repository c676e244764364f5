package models

// Cart -> a store location serving pickup or delivery orders.
type Cart struct {
	ID               uint    `json:"id"`
	Name             string  `json:"name"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	DeliveryRadiusKm float64 `json:"delivery_radius_km"`
	OrderType        string  `json:"order_type"`
}
