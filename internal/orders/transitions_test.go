package orders

import (
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

func TestCanTransitionFollowsFlow(t *testing.T) {
	cases := []struct {
		name      string
		orderType enums.OrderType
		from, to  enums.OrderStatus
		want      bool
	}{
		{"pickup ready to completed", enums.OrderTypePickup, enums.OrderStatusReadyForPickup, enums.OrderStatusCompleted, true},
		{"dine in uses pickup flow", enums.OrderTypeDineIn, enums.OrderStatusPreparing, enums.OrderStatusReadyForPickup, true},
		{"pickup never waits for rider", enums.OrderTypePickup, enums.OrderStatusPreparing, enums.OrderStatusWaitingForRider, false},
		{"delivery never ready for pickup", enums.OrderTypeDelivery, enums.OrderStatusPreparing, enums.OrderStatusReadyForPickup, false},
		{"delivery transit to delivered", enums.OrderTypeDelivery, enums.OrderStatusInTransit, enums.OrderStatusDelivered, true},
		{"delivered cannot be cancelled", enums.OrderTypeDelivery, enums.OrderStatusDelivered, enums.OrderStatusCancelled, false},
		{"no skipping verification", enums.OrderTypeDelivery, enums.OrderStatusPending, enums.OrderStatusApproved, false},
		{"terminal stays terminal", enums.OrderTypePickup, enums.OrderStatusCompleted, enums.OrderStatusRejected, false},
		{"cancel while preparing", enums.OrderTypeDelivery, enums.OrderStatusPreparing, enums.OrderStatusCancelled, true},
		{"same status is not a transition", enums.OrderTypePickup, enums.OrderStatusApproved, enums.OrderStatusApproved, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.orderType, tc.from, tc.to); got != tc.want {
				t.Fatalf("CanTransition(%s, %s, %s) = %v, want %v", tc.orderType, tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestEveryNonTerminalStatusCanBeLeft(t *testing.T) {
	for _, flow := range []map[enums.OrderStatus][]enums.OrderStatus{pickupFlow, deliveryFlow} {
		for from, targets := range flow {
			if from.IsTerminal() {
				t.Fatalf("terminal status %s has outgoing edges", from)
			}
			if len(targets) == 0 {
				t.Fatalf("status %s has no outgoing edges", from)
			}
		}
	}
}

func TestNextStatusesReturnsCopy(t *testing.T) {
	next := NextStatuses(enums.OrderTypeDelivery, enums.OrderStatusDelivered)
	if len(next) != 1 || next[0] != enums.OrderStatusCompleted {
		t.Fatalf("unexpected next statuses %v", next)
	}
	next[0] = enums.OrderStatusCancelled
	if deliveryFlow[enums.OrderStatusDelivered][0] != enums.OrderStatusCompleted {
		t.Fatalf("NextStatuses leaked the transition table")
	}
}

func TestActorAllowed(t *testing.T) {
	admin := types.Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin}
	customer := types.Actor{ID: uuid.New(), Role: enums.ActorRoleCustomer}
	driver := types.Actor{ID: uuid.New(), Role: enums.ActorRoleDriver}
	system := types.SystemActor()

	cases := []struct {
		name  string
		actor types.Actor
		e     edge
		want  bool
	}{
		{"admin approves", admin, edge{from: enums.OrderStatusForVerification, to: enums.OrderStatusApproved}, true},
		{"customer submits proof", customer, edge{from: enums.OrderStatusPending, to: enums.OrderStatusForVerification}, true},
		{"customer cancels pending", customer, edge{from: enums.OrderStatusPending, to: enums.OrderStatusCancelled}, true},
		{"customer cannot cancel approved", customer, edge{from: enums.OrderStatusApproved, to: enums.OrderStatusCancelled}, false},
		{"customer cannot approve", customer, edge{from: enums.OrderStatusForVerification, to: enums.OrderStatusApproved}, false},
		{"driver picks up", driver, edge{from: enums.OrderStatusWaitingForRider, to: enums.OrderStatusPickedUp}, true},
		{"driver delivers", driver, edge{from: enums.OrderStatusInTransit, to: enums.OrderStatusDelivered}, true},
		{"driver cannot complete", driver, edge{from: enums.OrderStatusDelivered, to: enums.OrderStatusCompleted}, false},
		{"driver rejects only by return", driver, edge{from: enums.OrderStatusInTransit, to: enums.OrderStatusRejected}, false},
		{"driver return edge", driver, edge{from: enums.OrderStatusInTransit, to: enums.OrderStatusRejected, isReturn: true}, true},
		{"system completes delivered", system, edge{from: enums.OrderStatusDelivered, to: enums.OrderStatusCompleted}, true},
		{"system cannot complete pickup", system, edge{from: enums.OrderStatusReadyForPickup, to: enums.OrderStatusCompleted}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := actorAllowed(tc.actor, tc.e); got != tc.want {
				t.Fatalf("actorAllowed = %v, want %v", got, tc.want)
			}
		})
	}
}
