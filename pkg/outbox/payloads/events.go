package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodops-backend/pkg/enums"
)

// LifecycleEvent is the data block of every fulfilment and ledger event. Only
// the fields relevant to EventType are set.
type LifecycleEvent struct {
	EventType      enums.OutboxEventType `json:"eventType"`
	OrderID        *uuid.UUID            `json:"orderId,omitempty"`
	OrderNumber    int                   `json:"orderNumber,omitempty"`
	OrderType      enums.OrderType       `json:"orderType,omitempty"`
	CustomerID     *uuid.UUID            `json:"customerId,omitempty"`
	DriverID       *uuid.UUID            `json:"driverId,omitempty"`
	PayoutID       *uuid.UUID            `json:"payoutId,omitempty"`
	EarningID      *uuid.UUID            `json:"earningId,omitempty"`
	StockID        *uuid.UUID            `json:"stockId,omitempty"`
	PreviousStatus string                `json:"previousStatus,omitempty"`
	NewStatus      string                `json:"newStatus,omitempty"`
	Amount         *decimal.Decimal      `json:"amount,omitempty"`
	Reason         string                `json:"reason,omitempty"`
	ProductName    string                `json:"productName,omitempty"`
	Quantity       *int                  `json:"quantity,omitempty"`
	QuantityChange *int                  `json:"quantityChange,omitempty"`
	Threshold      *int                  `json:"threshold,omitempty"`
}

// UUIDPtr returns a pointer to a copy of id, or nil for uuid.Nil.
func UUIDPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// AmountPtr returns a pointer to a copy of amount.
func AmountPtr(amount decimal.Decimal) *decimal.Decimal {
	return &amount
}

// IntPtr returns a pointer to a copy of v.
func IntPtr(v int) *int {
	return &v
}
