package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/internal/inventory"
	"github.com/angelmondragon/foodops-backend/internal/ledger"
	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateIfStatus(ctx context.Context, id uuid.UUID, current enums.OrderStatus, updates map[string]any) (int64, error)
	MarkRefunded(ctx context.Context, id uuid.UUID, reference string, now time.Time) (int64, error)
	MaxOrderNumber(ctx context.Context, day time.Time) (int, error)
	List(ctx context.Context, params listOrdersParams) ([]models.Order, *pagination.Cursor, error)
	ListDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StockAdjuster is the slice of the stock engine the state machine drives on
// approval and cancellation.
type StockAdjuster interface {
	AdjustForOrderTx(ctx context.Context, tx *gorm.DB, input inventory.OrderStockInput) ([]inventory.AdjustResult, error)
}

// EarningsLedger is the slice of the earnings ledger the state machine drives
// on delivery and completion.
type EarningsLedger interface {
	CreatePendingTx(ctx context.Context, tx *gorm.DB, input ledger.CreateEarningInput) (*models.DriverEarning, error)
	CreateAvailableTx(ctx context.Context, tx *gorm.DB, input ledger.CreateEarningInput) (*models.DriverEarning, error)
	MarkAvailableTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor types.Actor) (*models.DriverEarning, error)
}

// NumberAllocator hands out the human-readable per-day order number.
type NumberAllocator interface {
	Next(ctx context.Context, tx *gorm.DB, day time.Time) (int, error)
}
