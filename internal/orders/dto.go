package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

// CreateOrderInput is a checkout. Customers order for themselves; admins may
// place an order on behalf of CustomerID.
type CreateOrderInput struct {
	CustomerID  uuid.UUID
	OrderType   enums.OrderType
	Items       []ItemInput
	DeliveryFee decimal.Decimal
	DistanceKm  *decimal.Decimal
	Notes       *string
	Actor       types.Actor
}

type ItemInput struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// TransitionInput requests a status change. Reason is stored as the
// rejection reason when the target is rejected or cancelled.
type TransitionInput struct {
	OrderID uuid.UUID
	To      enums.OrderStatus
	Actor   types.Actor
	Reason  string
}

type AssignDriverInput struct {
	OrderID  uuid.UUID
	DriverID uuid.UUID
	Actor    types.Actor
}

// ReturnInput records a rider bringing an in-transit order back.
type ReturnInput struct {
	OrderID  uuid.UUID
	Reason   enums.ReturnReason
	PhotoURL *string
	Notes    string
	Actor    types.Actor
}

type RefundInput struct {
	OrderID   uuid.UUID
	Reference string
	Actor     types.Actor
}

// ListParams filters the order list. Non-admin callers are pinned to their
// own orders by the service.
type ListParams struct {
	Status     *enums.OrderStatus
	DriverID   *uuid.UUID
	CustomerID *uuid.UUID
	Limit      int
	Cursor     string
}

type OrderList struct {
	Items  []models.Order `json:"items"`
	Cursor string         `json:"cursor"`
}

// AutoCompleteResult reports one run of the delivered-order sweep.
type AutoCompleteResult struct {
	Scanned   int
	Completed int
	Skipped   int
}
