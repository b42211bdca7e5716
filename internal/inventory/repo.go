package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
)

// Repository exposes stock and adjustment persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, stock *models.Stock) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Stock, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Stock, error)
	FindEnabledByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]models.Stock, error)
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]models.Stock, error)
	ListOrderAdjustments(ctx context.Context, orderID uuid.UUID) ([]models.StockAdjustment, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, previous, next int) (int64, error)
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (int64, error)
	InsertAdjustment(ctx context.Context, adjustment *models.StockAdjustment) error
	List(ctx context.Context, params listStocksParams) ([]models.Stock, *pagination.Cursor, error)
	ListAdjustments(ctx context.Context, params listAdjustmentsParams) ([]models.StockAdjustment, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

type listStocksParams struct {
	Limit       int
	Cursor      *pagination.Cursor
	LowOnly     bool
	EnabledOnly bool
}

type listAdjustmentsParams struct {
	StockID uuid.UUID
	Limit   int
	Cursor  *pagination.Cursor
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, stock *models.Stock) error {
	if stock.ID == uuid.Nil {
		stock.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(stock).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&stock).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *repositoryImpl) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&stock).Error
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

// FindEnabledByProductIDs locks the stock rows of stock-tracked products in a
// stable order so concurrent approvals touching the same products cannot deadlock.
func (r *repositoryImpl) FindEnabledByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]models.Stock, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var stocks []models.Stock
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id IN ? AND enabled = ?", productIDs, true).
		Order("id ASC").
		Find(&stocks).Error
	if err != nil {
		return nil, err
	}
	return stocks, nil
}

// FindByIDsForUpdate locks rows by id whatever their enabled flag, in id
// order like FindEnabledByProductIDs.
func (r *repositoryImpl) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]models.Stock, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var stocks []models.Stock
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&stocks).Error
	if err != nil {
		return nil, err
	}
	return stocks, nil
}

// ListOrderAdjustments returns the order-driven rows written for orderID.
func (r *repositoryImpl) ListOrderAdjustments(ctx context.Context, orderID uuid.UUID) ([]models.StockAdjustment, error) {
	var rows []models.StockAdjustment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND adjustment_type IN ?", orderID, []string{
			string(enums.StockAdjustmentOrderApproved),
			string(enums.StockAdjustmentOrderCancelled),
		}).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateQuantity writes the new quantity only if the row still holds previous.
func (r *repositoryImpl) UpdateQuantity(ctx context.Context, id uuid.UUID, previous, next int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("id = ? AND quantity = ?", id, previous).
		Updates(map[string]any{"quantity": next, "updated_at": r.db.NowFunc()})
	return res.RowsAffected, res.Error
}

func (r *repositoryImpl) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("id = ?", id).
		Updates(map[string]any{"enabled": enabled, "updated_at": r.db.NowFunc()})
	return res.RowsAffected, res.Error
}

func (r *repositoryImpl) InsertAdjustment(ctx context.Context, adjustment *models.StockAdjustment) error {
	if adjustment.ID == uuid.Nil {
		adjustment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(adjustment).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listStocksParams) ([]models.Stock, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Stock{})
	if params.EnabledOnly {
		query = query.Where("enabled = ?", true)
	}
	if params.LowOnly {
		query = query.Where("quantity <= low_stock_threshold")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var stocks []models.Stock
	err := query.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&stocks).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(stocks, params.Limit, func(s models.Stock) pagination.Cursor {
		return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
	})
	return page, next, nil
}

func (r *repositoryImpl) ListAdjustments(ctx context.Context, params listAdjustmentsParams) ([]models.StockAdjustment, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.StockAdjustment{}).Where("stock_id = ?", params.StockID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.StockAdjustment
	err := query.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(rows, params.Limit, func(a models.StockAdjustment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: a.CreatedAt, ID: a.ID}
	})
	return page, next, nil
}
