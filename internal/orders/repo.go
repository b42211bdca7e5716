package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

type listOrdersParams struct {
	Status     *enums.OrderStatus
	DriverID   *uuid.UUID
	CustomerID *uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateIfStatus writes updates only while the order is still in current.
// Zero rows affected means another writer moved the order first.
func (r *repository) UpdateIfStatus(ctx context.Context, id uuid.UUID, current enums.OrderStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, current).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) MarkRefunded(ctx context.Context, id uuid.UUID, reference string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND refund_status = ?", id, enums.RefundStatusPending).
		Updates(map[string]any{
			"refund_status":    enums.RefundStatusRefunded,
			"refund_reference": reference,
			"updated_at":       now,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MaxOrderNumber(ctx context.Context, day time.Time) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(MAX(order_number), 0)").
		Where("order_date = ?", day).
		Scan(&max).Error
	return max, err
}

func (r *repository) List(ctx context.Context, params listOrdersParams) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.DriverID != nil {
		query = query.Where("driver_id = ?", *params.DriverID)
	}
	if params.CustomerID != nil {
		query = query.Where("customer_id = ?", *params.CustomerID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var orders []models.Order
	err := query.
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&orders).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(orders, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}

// ListDeliveredBefore returns delivery orders that reached delivered before
// cutoff, oldest first.
func (r *repository) ListDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("order_type = ? AND status = ? AND status_changed_at < ?",
			enums.OrderTypeDelivery, enums.OrderStatusDelivered, cutoff).
		Order("status_changed_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
