package paymentmethods

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
)

// Service manages the payout destinations a driver can choose from.
type Service interface {
	Create(ctx context.Context, driverID uuid.UUID, input CreateInput) (*models.DriverPaymentMethod, error)
	List(ctx context.Context, driverID uuid.UUID) ([]models.DriverPaymentMethod, error)
	Get(ctx context.Context, driverID, id uuid.UUID) (*models.DriverPaymentMethod, error)
	SetDefault(ctx context.Context, driverID, id uuid.UUID) error
	Delete(ctx context.Context, driverID, id uuid.UUID) error
}

// CreateInput captures a new e-wallet or bank destination.
type CreateInput struct {
	MethodType    enums.PaymentMethodType
	AccountName   string
	AccountNumber string
	BankName      string
	IsDefault     bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     Repository
	txRunner txRunner
}

// NewService constructs a payment method service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment method repo required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{repo: repo, txRunner: tx}, nil
}

// Create stores the method. The first method of a driver always becomes the
// default, and a new default demotes the previous one.
func (s *service) Create(ctx context.Context, driverID uuid.UUID, input CreateInput) (*models.DriverPaymentMethod, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id is required")
	}
	method, err := buildMethod(driverID, input)
	if err != nil {
		return nil, err
	}

	if err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		existing, err := txRepo.ListByDriver(ctx, driverID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
		}
		hasDefault := false
		for _, m := range existing {
			if m.IsDefault {
				hasDefault = true
				break
			}
		}
		method.IsDefault = input.IsDefault || !hasDefault
		if method.IsDefault && hasDefault {
			if err := txRepo.ClearDefault(ctx, driverID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default payment method")
			}
		}
		if err := txRepo.Create(ctx, method); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment method")
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return method, nil
}

func (s *service) List(ctx context.Context, driverID uuid.UUID) ([]models.DriverPaymentMethod, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id is required")
	}
	methods, err := s.repo.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}
	return methods, nil
}

func (s *service) Get(ctx context.Context, driverID, id uuid.UUID) (*models.DriverPaymentMethod, error) {
	method, err := s.repo.FindForDriver(ctx, driverID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
	}
	return method, nil
}

func (s *service) SetDefault(ctx context.Context, driverID, id uuid.UUID) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.FindForDriver(ctx, driverID, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
		}
		if err := txRepo.ClearDefault(ctx, driverID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default payment method")
		}
		if _, err := txRepo.SetDefault(ctx, driverID, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set default payment method")
		}
		return nil
	})
}

// Delete removes a method owned by the driver. Payouts keep their snapshot.
func (s *service) Delete(ctx context.Context, driverID, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, driverID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment method")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
	}
	return nil
}

func buildMethod(driverID uuid.UUID, input CreateInput) (*models.DriverPaymentMethod, error) {
	if !input.MethodType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "method type must be gcash, maya or bank_transfer")
	}
	name := strings.TrimSpace(input.AccountName)
	number := strings.TrimSpace(input.AccountNumber)
	if name == "" || number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account name and number are required")
	}
	method := &models.DriverPaymentMethod{
		DriverID:      driverID,
		MethodType:    input.MethodType,
		AccountName:   name,
		AccountNumber: number,
	}
	bank := strings.TrimSpace(input.BankName)
	if input.MethodType.RequiresBankName() {
		if bank == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank name is required for bank transfers")
		}
		method.BankName = &bank
	}
	return method, nil
}
