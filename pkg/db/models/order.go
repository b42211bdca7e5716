package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodops-backend/pkg/enums"
)

// Order is one customer purchase moving through the fulfilment state machine.
// Status is only ever written by the orders service, and every status write
// also stamps StatusChangedAt.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     int                 `gorm:"column:order_number;not null"`
	OrderDate       time.Time           `gorm:"column:order_date;type:date;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:order_status;not null"`
	OrderType       enums.OrderType     `gorm:"column:order_type;type:order_type;not null"`
	CustomerID      uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	DriverID        *uuid.UUID          `gorm:"column:driver_id;type:uuid"`
	Subtotal        decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee     decimal.Decimal     `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	DistanceKm      *decimal.Decimal    `gorm:"column:distance_km;type:numeric(8,2)"`
	PaymentProofURL *string             `gorm:"column:payment_proof_url"`
	RejectionReason *string             `gorm:"column:rejection_reason"`
	ReturnReason    *enums.ReturnReason `gorm:"column:return_reason;type:return_reason"`
	ReturnPhotoURL  *string             `gorm:"column:return_photo_url"`
	RefundStatus    enums.RefundStatus  `gorm:"column:refund_status;type:refund_status;not null"`
	RefundAmount    *decimal.Decimal    `gorm:"column:refund_amount;type:numeric(12,2)"`
	RefundReference *string             `gorm:"column:refund_reference"`
	Notes           *string             `gorm:"column:notes"`
	StatusChangedAt time.Time           `gorm:"column:status_changed_at;not null"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID;references:ID"`
}

// OrderItem snapshots a product line at checkout.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
