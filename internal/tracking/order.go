// Package tracking turns a backend order record into a shipment
// timeline. The reducer is pure; the service around it owns fetching
// and a short-lived cache of order records.
package tracking

import "time"

// OrderRecord is the slice of the orders API this service consumes.
// Only ID, Status, and CreatedAt are guaranteed; everything else is
// populated as the order progresses.
type OrderRecord struct {
	ID                string     `json:"id"`
	OrderNumber       string     `json:"order_number,omitempty"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	ShippedAt         *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	Carrier           string     `json:"carrier,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}
