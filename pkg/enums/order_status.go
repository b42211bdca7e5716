package enums

import "slices"

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusForVerification OrderStatus = "for_verification"
	OrderStatusApproved        OrderStatus = "approved"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusPreparing       OrderStatus = "preparing"
	OrderStatusReadyForPickup  OrderStatus = "ready_for_pickup"
	OrderStatusWaitingForRider OrderStatus = "waiting_for_rider"
	OrderStatusPickedUp        OrderStatus = "picked_up"
	OrderStatusInTransit       OrderStatus = "in_transit"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCompleted       OrderStatus = "completed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusForVerification,
	OrderStatusApproved,
	OrderStatusRejected,
	OrderStatusCancelled,
	OrderStatusPreparing,
	OrderStatusReadyForPickup,
	OrderStatusWaitingForRider,
	OrderStatusPickedUp,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusCompleted,
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	return slices.Contains(validOrderStatuses, s)
}

// IsTerminal reports whether no further transition leaves the status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusRejected, OrderStatusCancelled, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parseEnum("order status", validOrderStatuses, value)
}
