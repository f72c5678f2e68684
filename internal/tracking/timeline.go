package tracking

import (
	"fmt"
	"time"
)

// Shipment statuses in fulfillment order. An order's status indexes into
// this sequence; anything not listed (refunds, cancellations) yields an
// empty timeline rather than a guess.
var statusSequence = []string{
	"pending",
	"confirmed",
	"processing",
	"shipped",
	"delivered",
}

var statusLabels = map[string]string{
	"pending":    "Order Placed",
	"confirmed":  "Order Confirmed",
	"processing": "Processing",
	"shipped":    "Shipped",
	"delivered":  "Delivered",
}

type Event struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Label       string     `json:"label"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	Current     bool       `json:"current"`
}

type Timeline struct {
	OrderID           string     `json:"order_id"`
	OrderNumber       string     `json:"order_number,omitempty"`
	CurrentStatus     string     `json:"current_status"`
	Events            []Event    `json:"events"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	Carrier           string     `json:"carrier,omitempty"`
}

// BuildTimeline derives the shipment timeline from an order record.
// Steps past the current status are excluded, as are earlier steps with
// no known timestamp, so the result reads as history up to now. An
// unknown status produces an empty event list.
func BuildTimeline(o OrderRecord) Timeline {
	currentIndex := statusIndex(o.Status)

	events := make([]Event, 0, len(statusSequence))
	for i, status := range statusSequence {
		if currentIndex < 0 || i > currentIndex {
			break
		}

		ts := stepTimestamp(o, status)
		current := i == currentIndex
		if ts == nil && !current {
			continue
		}

		events = append(events, Event{
			ID:          status,
			Status:      status,
			Label:       statusLabels[status],
			Timestamp:   ts,
			Description: stepDescription(o, status, current),
			Completed:   true,
			Current:     current,
		})
	}

	return Timeline{
		OrderID:           o.ID,
		OrderNumber:       o.OrderNumber,
		CurrentStatus:     o.Status,
		Events:            events,
		EstimatedDelivery: o.EstimatedDelivery,
		TrackingNumber:    o.TrackingNumber,
		Carrier:           o.Carrier,
	}
}

func statusIndex(status string) int {
	for i, s := range statusSequence {
		if s == status {
			return i
		}
	}
	return -1
}

// stepTimestamp maps a step to its dedicated order field. Confirmed and
// processing have none and so surface without a timestamp.
func stepTimestamp(o OrderRecord, status string) *time.Time {
	switch status {
	case "pending":
		if o.CreatedAt.IsZero() {
			return nil
		}
		ts := o.CreatedAt
		return &ts
	case "shipped":
		return o.ShippedAt
	case "delivered":
		return o.DeliveredAt
	default:
		return nil
	}
}

// stepDescription annotates only the current step, and only when the
// record carries useful context for it.
func stepDescription(o OrderRecord, status string, current bool) string {
	if !current {
		return ""
	}

	switch status {
	case "shipped":
		if o.TrackingNumber == "" {
			return ""
		}
		if o.Carrier != "" {
			return fmt.Sprintf("In transit with %s, tracking number %s", o.Carrier, o.TrackingNumber)
		}
		return fmt.Sprintf("In transit, tracking number %s", o.TrackingNumber)
	case "delivered":
		return "Package delivered"
	default:
		return ""
	}
}
