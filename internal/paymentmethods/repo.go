package paymentmethods

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
)

// Repository persists driver payout destinations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, method *models.DriverPaymentMethod) error
	FindForDriver(ctx context.Context, driverID, id uuid.UUID) (*models.DriverPaymentMethod, error)
	ListByDriver(ctx context.Context, driverID uuid.UUID) ([]models.DriverPaymentMethod, error)
	ClearDefault(ctx context.Context, driverID uuid.UUID) error
	SetDefault(ctx context.Context, driverID, id uuid.UUID) (int64, error)
	Delete(ctx context.Context, driverID, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
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

func (r *repository) Create(ctx context.Context, method *models.DriverPaymentMethod) error {
	if method.ID == uuid.Nil {
		method.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(method).Error
}

// FindForDriver scopes the lookup to the owner so one driver can never read
// or snapshot another driver's account.
func (r *repository) FindForDriver(ctx context.Context, driverID, id uuid.UUID) (*models.DriverPaymentMethod, error) {
	var method models.DriverPaymentMethod
	err := r.db.WithContext(ctx).
		Where("id = ? AND driver_id = ?", id, driverID).
		First(&method).Error
	if err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]models.DriverPaymentMethod, error) {
	var methods []models.DriverPaymentMethod
	err := r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Order("is_default DESC, created_at ASC").
		Find(&methods).Error
	if err != nil {
		return nil, err
	}
	return methods, nil
}

func (r *repository) ClearDefault(ctx context.Context, driverID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.DriverPaymentMethod{}).
		Where("driver_id = ? AND is_default = ?", driverID, true).
		Updates(map[string]any{"is_default": false, "updated_at": r.db.NowFunc()}).Error
}

func (r *repository) SetDefault(ctx context.Context, driverID, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DriverPaymentMethod{}).
		Where("id = ? AND driver_id = ?", id, driverID).
		Updates(map[string]any{"is_default": true, "updated_at": r.db.NowFunc()})
	return res.RowsAffected, res.Error
}

func (r *repository) Delete(ctx context.Context, driverID, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND driver_id = ?", id, driverID).
		Delete(&models.DriverPaymentMethod{})
	return res.RowsAffected, res.Error
}
