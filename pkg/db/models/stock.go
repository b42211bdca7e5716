package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/pkg/enums"
)

// Stock tracks on-hand quantity for a stock-tracked product.
type Stock struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex"`
	ProductName       string    `gorm:"column:product_name;not null"`
	Quantity          int       `gorm:"column:quantity;not null"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold;not null"`
	Enabled           bool      `gorm:"column:enabled;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// StockAdjustment is an insert-only audit row for every quantity change.
type StockAdjustment struct {
	ID               uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StockID          uuid.UUID                 `gorm:"column:stock_id;type:uuid;not null"`
	AdjustmentType   enums.StockAdjustmentType `gorm:"column:adjustment_type;type:stock_adjustment_type;not null"`
	QuantityChange   int                       `gorm:"column:quantity_change;not null"`
	PreviousQuantity int                       `gorm:"column:previous_quantity;not null"`
	NewQuantity      int                       `gorm:"column:new_quantity;not null"`
	ActorID          *uuid.UUID                `gorm:"column:actor_id;type:uuid"`
	ActorRole        enums.ActorRole           `gorm:"column:actor_role;not null"`
	OrderID          *uuid.UUID                `gorm:"column:order_id;type:uuid"`
	Notes            *string                   `gorm:"column:notes"`
	CreatedAt        time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
