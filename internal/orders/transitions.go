package orders

import (
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

// pickupFlow serves dine-in and pickup orders.
var pickupFlow = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:         {enums.OrderStatusForVerification, enums.OrderStatusRejected, enums.OrderStatusCancelled},
	enums.OrderStatusForVerification: {enums.OrderStatusApproved, enums.OrderStatusRejected, enums.OrderStatusCancelled},
	enums.OrderStatusApproved:        {enums.OrderStatusPreparing, enums.OrderStatusRejected, enums.OrderStatusCancelled},
	enums.OrderStatusPreparing:       {enums.OrderStatusReadyForPickup, enums.OrderStatusRejected, enums.OrderStatusCancelled},
	enums.OrderStatusReadyForPickup:  {enums.OrderStatusCompleted, enums.OrderStatusRejected, enums.OrderStatusCancelled},
}

// deliveryFlow serves rider-delivered orders. delivered only moves forward.
var deliveryFlow = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:         {enums.OrderStatusForVerification, enums.OrderStatusRejected, enums.OrderStatusCancelled},
	enums.OrderStatusForVerification: {enums.OrderStatusApproved, enums.OrderStatusRejected, enums.OrderStatusCancelled},
	enums.OrderStatusApproved:        {enums.OrderStatusPreparing, enums.OrderStatusRejected, enums.OrderStatusCancelled},
	enums.OrderStatusPreparing:       {enums.OrderStatusWaitingForRider, enums.OrderStatusRejected, enums.OrderStatusCancelled},
	enums.OrderStatusWaitingForRider: {enums.OrderStatusPickedUp, enums.OrderStatusRejected, enums.OrderStatusCancelled},
	enums.OrderStatusPickedUp:        {enums.OrderStatusInTransit, enums.OrderStatusRejected, enums.OrderStatusCancelled},
	enums.OrderStatusInTransit:       {enums.OrderStatusDelivered, enums.OrderStatusRejected, enums.OrderStatusCancelled},
	enums.OrderStatusDelivered:       {enums.OrderStatusCompleted},
}

func flowFor(orderType enums.OrderType) map[enums.OrderStatus][]enums.OrderStatus {
	if orderType.IsDelivery() {
		return deliveryFlow
	}
	return pickupFlow
}

// CanTransition reports whether to is reachable from from in one step along
// the flow selected by orderType.
func CanTransition(orderType enums.OrderType, from, to enums.OrderStatus) bool {
	for _, candidate := range flowFor(orderType)[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the legal targets from the given status.
func NextStatuses(orderType enums.OrderType, from enums.OrderStatus) []enums.OrderStatus {
	next := flowFor(orderType)[from]
	out := make([]enums.OrderStatus, len(next))
	copy(out, next)
	return out
}

// stockHeld reports whether an order in this status has had its stock
// deducted and its payment verified.
func stockHeld(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusApproved,
		enums.OrderStatusPreparing,
		enums.OrderStatusReadyForPickup,
		enums.OrderStatusWaitingForRider,
		enums.OrderStatusPickedUp,
		enums.OrderStatusInTransit:
		return true
	default:
		return false
	}
}

// edge is a legal step plus who asked for it.
type edge struct {
	from     enums.OrderStatus
	to       enums.OrderStatus
	isReturn bool
}

// actorAllowed applies the role rules on top of the flow table. Ownership
// (customer owns the order, driver is assigned) is checked by the caller.
func actorAllowed(actor types.Actor, e edge) bool {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return true
	case enums.ActorRoleSystem:
		return e.from == enums.OrderStatusDelivered && e.to == enums.OrderStatusCompleted
	case enums.ActorRoleCustomer:
		if e.from == enums.OrderStatusPending && e.to == enums.OrderStatusForVerification {
			return true
		}
		return e.to == enums.OrderStatusCancelled &&
			(e.from == enums.OrderStatusPending || e.from == enums.OrderStatusForVerification)
	case enums.ActorRoleDriver:
		if e.isReturn {
			return e.from == enums.OrderStatusInTransit && e.to == enums.OrderStatusRejected
		}
		switch e.to {
		case enums.OrderStatusPickedUp, enums.OrderStatusInTransit, enums.OrderStatusDelivered:
			return true
		}
		return false
	default:
		return false
	}
}
