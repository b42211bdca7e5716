package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
)

// Repository manages persistence for driver earnings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, earning *models.DriverEarning) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.DriverEarning, error)
	MarkAvailable(ctx context.Context, id uuid.UUID, now time.Time) (int64, error)
	ListAvailableForUpdate(ctx context.Context, driverID uuid.UUID) ([]models.DriverEarning, error)
	MarkRequested(ctx context.Context, ids []uuid.UUID, payoutID uuid.UUID, now time.Time) (int64, error)
	MarkPaidByPayout(ctx context.Context, payoutID uuid.UUID, now time.Time) (int64, error)
	ReleaseByPayout(ctx context.Context, payoutID uuid.UUID, now time.Time) (int64, error)
	ListByPayout(ctx context.Context, payoutID uuid.UUID) ([]models.DriverEarning, error)
	ListByDriver(ctx context.Context, params listEarningsParams) ([]models.DriverEarning, *pagination.Cursor, error)
	ListAmountsByDriver(ctx context.Context, driverID uuid.UUID) ([]models.DriverEarning, error)
}

type repository struct {
	db *gorm.DB
}

type listEarningsParams struct {
	DriverID uuid.UUID
	Status   *enums.EarningStatus
	Limit    int
	Cursor   *pagination.Cursor
}

// NewRepository returns an earnings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, earning *models.DriverEarning) error {
	if earning.ID == uuid.Nil {
		earning.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(earning).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.DriverEarning, error) {
	var earning models.DriverEarning
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&earning).Error
	if err != nil {
		return nil, err
	}
	return &earning, nil
}

func (r *repository) MarkAvailable(ctx context.Context, id uuid.UUID, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DriverEarning{}).
		Where("id = ? AND status = ?", id, enums.EarningStatusPending).
		Updates(map[string]any{
			"status":       enums.EarningStatusAvailable,
			"available_at": now,
			"updated_at":   now,
		})
	return res.RowsAffected, res.Error
}

// ListAvailableForUpdate locks every available earning of the driver so a
// concurrent payout request blocks until this one commits.
func (r *repository) ListAvailableForUpdate(ctx context.Context, driverID uuid.UUID) ([]models.DriverEarning, error) {
	var earnings []models.DriverEarning
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("driver_id = ? AND status = ? AND payout_id IS NULL", driverID, enums.EarningStatusAvailable).
		Order("created_at ASC, id ASC").
		Find(&earnings).Error
	if err != nil {
		return nil, err
	}
	return earnings, nil
}

func (r *repository) MarkRequested(ctx context.Context, ids []uuid.UUID, payoutID uuid.UUID, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.DriverEarning{}).
		Where("id IN ? AND status = ? AND payout_id IS NULL", ids, enums.EarningStatusAvailable).
		Updates(map[string]any{
			"status":     enums.EarningStatusRequested,
			"payout_id":  payoutID,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkPaidByPayout(ctx context.Context, payoutID uuid.UUID, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DriverEarning{}).
		Where("payout_id = ? AND status = ?", payoutID, enums.EarningStatusRequested).
		Updates(map[string]any{
			"status":     enums.EarningStatusPaid,
			"paid_at":    now,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

// ReleaseByPayout returns the payout's earnings to available and clears the
// binding so the next request can claim them.
func (r *repository) ReleaseByPayout(ctx context.Context, payoutID uuid.UUID, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DriverEarning{}).
		Where("payout_id = ? AND status = ?", payoutID, enums.EarningStatusRequested).
		Updates(map[string]any{
			"status":     enums.EarningStatusAvailable,
			"payout_id":  gorm.Expr("NULL"),
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ListByPayout(ctx context.Context, payoutID uuid.UUID) ([]models.DriverEarning, error) {
	var earnings []models.DriverEarning
	err := r.db.WithContext(ctx).
		Where("payout_id = ?", payoutID).
		Order("created_at ASC, id ASC").
		Find(&earnings).Error
	if err != nil {
		return nil, err
	}
	return earnings, nil
}

func (r *repository) ListByDriver(ctx context.Context, params listEarningsParams) ([]models.DriverEarning, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.DriverEarning{}).Where("driver_id = ?", params.DriverID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var earnings []models.DriverEarning
	err := query.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&earnings).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(earnings, params.Limit, func(e models.DriverEarning) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return page, next, nil
}

// ListAmountsByDriver loads only the columns summaries need. Amounts are added
// up in Go so the same code runs on numeric and text-backed columns.
func (r *repository) ListAmountsByDriver(ctx context.Context, driverID uuid.UUID) ([]models.DriverEarning, error) {
	var earnings []models.DriverEarning
	err := r.db.WithContext(ctx).
		Select("id", "status", "delivery_fee").
		Where("driver_id = ?", driverID).
		Find(&earnings).Error
	if err != nil {
		return nil, err
	}
	return earnings, nil
}
