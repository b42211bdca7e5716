package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
)

// Repository persists driver payouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.DriverPayout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DriverPayout, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.DriverPayout, error)
	HasPending(ctx context.Context, driverID uuid.UUID) (bool, error)
	ResolvePending(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	List(ctx context.Context, params listPayoutsParams) ([]models.DriverPayout, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

type listPayoutsParams struct {
	DriverID *uuid.UUID
	Status   *enums.PayoutStatus
	Limit    int
	Cursor   *pagination.Cursor
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.DriverPayout) error {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DriverPayout, error) {
	var payout models.DriverPayout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.DriverPayout, error) {
	var payout models.DriverPayout
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) HasPending(ctx context.Context, driverID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DriverPayout{}).
		Where("driver_id = ? AND status = ?", driverID, enums.PayoutStatusPending).
		Count(&count).Error
	return count > 0, err
}

// ResolvePending applies updates only while the payout is still pending.
func (r *repository) ResolvePending(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DriverPayout{}).
		Where("id = ? AND status = ?", id, enums.PayoutStatusPending).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) List(ctx context.Context, params listPayoutsParams) ([]models.DriverPayout, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.DriverPayout{})
	if params.DriverID != nil {
		query = query.Where("driver_id = ?", *params.DriverID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var payouts []models.DriverPayout
	err := query.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&payouts).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(payouts, params.Limit, func(p models.DriverPayout) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return page, next, nil
}
