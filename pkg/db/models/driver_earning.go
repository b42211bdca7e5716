package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodops-backend/pkg/enums"
)

// DriverEarning is the fee a driver earned on one order. DeliveryFee is a
// snapshot taken at creation and is never updated.
type DriverEarning struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DriverID    uuid.UUID           `gorm:"column:driver_id;type:uuid;not null"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	DeliveryFee decimal.Decimal     `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	DistanceKm  *decimal.Decimal    `gorm:"column:distance_km;type:numeric(8,2)"`
	Status      enums.EarningStatus `gorm:"column:status;type:earning_status;not null"`
	PayoutID    *uuid.UUID          `gorm:"column:payout_id;type:uuid"`
	AvailableAt *time.Time          `gorm:"column:available_at"`
	PaidAt      *time.Time          `gorm:"column:paid_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
