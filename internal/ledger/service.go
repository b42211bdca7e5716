package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/pkg/db"
	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns the driver earning lifecycle:
// pending -> available -> requested -> paid, with requested -> available on a
// rejected payout. The *Tx methods run inside the caller's transaction.
type Service interface {
	CreatePendingTx(ctx context.Context, tx *gorm.DB, input CreateEarningInput) (*models.DriverEarning, error)
	CreateAvailableTx(ctx context.Context, tx *gorm.DB, input CreateEarningInput) (*models.DriverEarning, error)
	MarkAvailableTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor types.Actor) (*models.DriverEarning, error)
	LockAvailableTx(ctx context.Context, tx *gorm.DB, driverID uuid.UUID) ([]models.DriverEarning, error)
	MarkRequestedTx(ctx context.Context, tx *gorm.DB, payoutID uuid.UUID, earnings []models.DriverEarning) error
	MarkPaidTx(ctx context.Context, tx *gorm.DB, payoutID uuid.UUID) (int64, error)
	ReleaseTx(ctx context.Context, tx *gorm.DB, payoutID uuid.UUID) (int64, error)
	ListByDriver(ctx context.Context, params ListParams) (*EarningList, error)
	ListByPayout(ctx context.Context, payoutID uuid.UUID) ([]models.DriverEarning, error)
	Summary(ctx context.Context, driverID uuid.UUID) (*Summary, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.DriverEarning, error)
}

type service struct {
	repo   Repository
	outbox outboxPublisher
	now    func() time.Time
}

// CreateEarningInput snapshots the order's delivery fee for the driver.
type CreateEarningInput struct {
	DriverID    uuid.UUID
	OrderID     uuid.UUID
	DeliveryFee decimal.Decimal
	DistanceKm  *decimal.Decimal
	Actor       types.Actor
}

type ListParams struct {
	DriverID uuid.UUID
	Status   *enums.EarningStatus
	Limit    int
	Cursor   string
}

type EarningList struct {
	Items  []models.DriverEarning `json:"items"`
	Cursor string                 `json:"cursor"`
}

// StatusTotal is the count and amount of a driver's earnings in one status.
type StatusTotal struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type Summary struct {
	DriverID  uuid.UUID       `json:"driverId"`
	Pending   StatusTotal     `json:"pending"`
	Available StatusTotal     `json:"available"`
	Requested StatusTotal     `json:"requested"`
	Paid      StatusTotal     `json:"paid"`
	Lifetime  decimal.Decimal `json:"lifetime"`
}

// NewService wires the earnings ledger.
func NewService(repo Repository, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		outbox: outbox,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreatePendingTx(ctx context.Context, tx *gorm.DB, input CreateEarningInput) (*models.DriverEarning, error) {
	return s.create(ctx, tx, input, enums.EarningStatusPending)
}

func (s *service) CreateAvailableTx(ctx context.Context, tx *gorm.DB, input CreateEarningInput) (*models.DriverEarning, error) {
	return s.create(ctx, tx, input, enums.EarningStatusAvailable)
}

func (s *service) create(ctx context.Context, tx *gorm.DB, input CreateEarningInput, status enums.EarningStatus) (*models.DriverEarning, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for earning creation")
	}
	if input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.DeliveryFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery fee must not be negative")
	}

	now := s.now()
	earning := &models.DriverEarning{
		DriverID:    input.DriverID,
		OrderID:     input.OrderID,
		DeliveryFee: input.DeliveryFee,
		DistanceKm:  input.DistanceKm,
		Status:      status,
	}
	if status == enums.EarningStatusAvailable {
		earning.AvailableAt = &now
	}
	if err := s.repo.WithTx(tx).Create(ctx, earning); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already has an earning")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create earning")
	}

	if status == enums.EarningStatusAvailable {
		if err := s.emitAvailable(ctx, tx, earning, input.Actor); err != nil {
			return nil, err
		}
	}
	return earning, nil
}

// MarkAvailableTx releases the order's pending earning. It returns nil when
// the order has no earning, which is the case for orders without a driver.
func (s *service) MarkAvailableTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor types.Actor) (*models.DriverEarning, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for earning update")
	}
	repo := s.repo.WithTx(tx)
	earning, err := repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load earning")
	}
	if earning.Status != enums.EarningStatusPending {
		return earning, nil
	}

	now := s.now()
	affected, err := repo.MarkAvailable(ctx, earning.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark earning available")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "earning is no longer pending")
	}
	earning.Status = enums.EarningStatusAvailable
	earning.AvailableAt = &now

	if err := s.emitAvailable(ctx, tx, earning, actor); err != nil {
		return nil, err
	}
	return earning, nil
}

func (s *service) LockAvailableTx(ctx context.Context, tx *gorm.DB, driverID uuid.UUID) ([]models.DriverEarning, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required to lock earnings")
	}
	earnings, err := s.repo.WithTx(tx).ListAvailableForUpdate(ctx, driverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock available earnings")
	}
	return earnings, nil
}

// MarkRequestedTx binds exactly the given earnings to the payout. A row count
// mismatch means another request claimed one of them first.
func (s *service) MarkRequestedTx(ctx context.Context, tx *gorm.DB, payoutID uuid.UUID, earnings []models.DriverEarning) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required to request earnings")
	}
	ids := make([]uuid.UUID, 0, len(earnings))
	for _, e := range earnings {
		ids = append(ids, e.ID)
	}
	affected, err := s.repo.WithTx(tx).MarkRequested(ctx, ids, payoutID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark earnings requested")
	}
	if affected != int64(len(ids)) {
		return pkgerrors.New(pkgerrors.CodeConflict, "earnings changed while requesting payout; retry")
	}
	return nil
}

func (s *service) MarkPaidTx(ctx context.Context, tx *gorm.DB, payoutID uuid.UUID) (int64, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "transaction required to settle earnings")
	}
	affected, err := s.repo.WithTx(tx).MarkPaidByPayout(ctx, payoutID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark earnings paid")
	}
	return affected, nil
}

func (s *service) ReleaseTx(ctx context.Context, tx *gorm.DB, payoutID uuid.UUID) (int64, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "transaction required to release earnings")
	}
	affected, err := s.repo.WithTx(tx).ReleaseByPayout(ctx, payoutID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release earnings")
	}
	return affected, nil
}

func (s *service) ListByDriver(ctx context.Context, params ListParams) (*EarningList, error) {
	if params.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid earning status")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByDriver(ctx, listEarningsParams{
		DriverID: params.DriverID,
		Status:   params.Status,
		Limit:    params.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list earnings")
	}
	return &EarningList{Items: rows, Cursor: pagination.NextCursor(next)}, nil
}

func (s *service) ListByPayout(ctx context.Context, payoutID uuid.UUID) ([]models.DriverEarning, error) {
	rows, err := s.repo.ListByPayout(ctx, payoutID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payout earnings")
	}
	return rows, nil
}

func (s *service) Summary(ctx context.Context, driverID uuid.UUID) (*Summary, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	rows, err := s.repo.ListAmountsByDriver(ctx, driverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize earnings")
	}

	summary := &Summary{
		DriverID:  driverID,
		Pending:   StatusTotal{Amount: decimal.Zero},
		Available: StatusTotal{Amount: decimal.Zero},
		Requested: StatusTotal{Amount: decimal.Zero},
		Paid:      StatusTotal{Amount: decimal.Zero},
		Lifetime:  decimal.Zero,
	}
	for _, row := range rows {
		var bucket *StatusTotal
		switch row.Status {
		case enums.EarningStatusPending:
			bucket = &summary.Pending
		case enums.EarningStatusAvailable:
			bucket = &summary.Available
		case enums.EarningStatusRequested:
			bucket = &summary.Requested
		case enums.EarningStatusPaid:
			bucket = &summary.Paid
		default:
			continue
		}
		bucket.Count++
		bucket.Amount = bucket.Amount.Add(row.DeliveryFee)
		summary.Lifetime = summary.Lifetime.Add(row.DeliveryFee)
	}
	return summary, nil
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.DriverEarning, error) {
	earning, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "earning not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load earning")
	}
	return earning, nil
}

func (s *service) emitAvailable(ctx context.Context, tx *gorm.DB, earning *models.DriverEarning, actor types.Actor) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEarningAvailable,
		AggregateType: enums.AggregateEarning,
		AggregateID:   earning.ID,
		Actor:         actor.OutboxRef(),
		Data: payloads.LifecycleEvent{
			EventType: enums.EventEarningAvailable,
			EarningID: payloads.UUIDPtr(earning.ID),
			OrderID:   payloads.UUIDPtr(earning.OrderID),
			DriverID:  payloads.UUIDPtr(earning.DriverID),
			Amount:    payloads.AmountPtr(earning.DeliveryFee),
		},
	})
}
