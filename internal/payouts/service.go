package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/internal/ledger"
	"github.com/angelmondragon/foodops-backend/internal/paymentmethods"
	"github.com/angelmondragon/foodops-backend/pkg/db"
	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/metrics"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

const pendingPayoutIndex = "driver_payouts_one_pending_idx"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the payout reconciliation engine.
type Service interface {
	RequestPayout(ctx context.Context, input RequestInput) (*models.DriverPayout, error)
	ResolvePayout(ctx context.Context, input ResolveInput) (*models.DriverPayout, error)
	Get(ctx context.Context, id uuid.UUID, actor types.Actor) (*PayoutDetail, error)
	ListByDriver(ctx context.Context, driverID uuid.UUID, params ListParams) (*PayoutList, error)
	ListForAdmin(ctx context.Context, params ListParams) (*PayoutList, error)
}

// ServiceParams groups the engine dependencies.
type ServiceParams struct {
	Repo           Repository
	PaymentMethods paymentmethods.Repository
	Ledger         ledger.Service
	Tx             txRunner
	Outbox         outboxPublisher
	Logger         *logger.Logger
	Metrics        *metrics.FulfillmentMetrics
	Now            func() time.Time
}

type service struct {
	repo    Repository
	methods paymentmethods.Repository
	ledger  ledger.Service
	tx      txRunner
	outbox  outboxPublisher
	logg    *logger.Logger
	metrics *metrics.FulfillmentMetrics
	now     func() time.Time
}

// RequestInput asks for every available earning of the driver to be paid to
// the chosen payment method.
type RequestInput struct {
	DriverID        uuid.UUID
	PaymentMethodID uuid.UUID
	Actor           types.Actor
}

// ResolveInput is an admin decision. Complete needs ProofURL, reject needs
// RejectionReason.
type ResolveInput struct {
	PayoutID        uuid.UUID
	Decision        enums.PayoutDecision
	Actor           types.Actor
	ProofURL        string
	RejectionReason string
}

type ListParams struct {
	Status *enums.PayoutStatus
	Limit  int
	Cursor string
}

type PayoutList struct {
	Items  []models.DriverPayout `json:"items"`
	Cursor string                `json:"cursor"`
}

// PayoutDetail is a payout with the earnings currently bound to it.
type PayoutDetail struct {
	Payout   models.DriverPayout    `json:"payout"`
	Earnings []models.DriverEarning `json:"earnings"`
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	if params.PaymentMethods == nil {
		return nil, fmt.Errorf("payment method repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("earnings ledger required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:    params.Repo,
		methods: params.PaymentMethods,
		ledger:  params.Ledger,
		tx:      params.Tx,
		outbox:  params.Outbox,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// RequestPayout locks the driver's available earnings, snapshots the payment
// method into a pending payout for their sum and binds the locked earnings to
// it, all in one transaction. A driver may hold one pending payout at a time.
func (s *service) RequestPayout(ctx context.Context, input RequestInput) (*models.DriverPayout, error) {
	if input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	if input.PaymentMethodID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method id required")
	}
	if !input.Actor.IsDriver() || input.Actor.ID != input.DriverID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "drivers may only request their own payouts")
	}

	var payout *models.DriverPayout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pending, err := repo.HasPending(ctx, input.DriverID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending payouts")
		}
		if pending {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "a payout request is already pending")
		}

		method, err := s.methods.WithTx(tx).FindForDriver(ctx, input.DriverID, input.PaymentMethodID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
		}

		earnings, err := s.ledger.LockAvailableTx(ctx, tx, input.DriverID)
		if err != nil {
			return err
		}
		amount := decimal.Zero
		for _, e := range earnings {
			amount = amount.Add(e.DeliveryFee)
		}
		if !amount.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeNoFundsAvailable, "no available earnings to pay out")
		}

		methodID := method.ID
		payout = &models.DriverPayout{
			DriverID:        input.DriverID,
			Amount:          amount,
			PaymentMethodID: &methodID,
			MethodType:      method.MethodType,
			AccountName:     method.AccountName,
			AccountNumber:   method.AccountNumber,
			BankName:        method.BankName,
			Status:          enums.PayoutStatusPending,
			RequestedAt:     s.now(),
		}
		if err := repo.Create(ctx, payout); err != nil {
			if db.IsUniqueViolation(err, pendingPayoutIndex) {
				return pkgerrors.New(pkgerrors.CodeInvalidState, "a payout request is already pending")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}

		if err := s.ledger.MarkRequestedTx(ctx, tx, payout.ID, earnings); err != nil {
			return err
		}

		return s.emit(ctx, tx, enums.EventPayoutRequested, payout, input.Actor, "")
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayout(string(enums.PayoutStatusPending))
	s.log(ctx, payout, "payout requested")
	return payout, nil
}

// ResolvePayout settles or rejects a pending payout. Only earnings bound to
// this payout are touched.
func (s *service) ResolvePayout(ctx context.Context, input ResolveInput) (*models.DriverPayout, error) {
	if input.PayoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins resolve payouts")
	}
	proof := strings.TrimSpace(input.ProofURL)
	reason := strings.TrimSpace(input.RejectionReason)

	var target enums.PayoutStatus
	var eventType enums.OutboxEventType
	switch input.Decision {
	case enums.PayoutDecisionComplete:
		if proof == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "proof of payment is required to complete a payout")
		}
		target, eventType = enums.PayoutStatusCompleted, enums.EventPayoutCompleted
	case enums.PayoutDecisionReject:
		if reason == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required to reject a payout")
		}
		target, eventType = enums.PayoutStatusRejected, enums.EventPayoutRejected
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be complete or reject")
	}

	var payout *models.DriverPayout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		payout, err = repo.FindByIDForUpdate(ctx, input.PayoutID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
		}
		if payout.Status != enums.PayoutStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "payout is not pending").WithDetails(map[string]any{
				"status": payout.Status,
			})
		}

		now := s.now()
		processedBy := input.Actor.ID
		updates := map[string]any{
			"status":       target,
			"processed_at": now,
			"processed_by": processedBy,
			"updated_at":   now,
		}
		if target == enums.PayoutStatusCompleted {
			updates["proof_url"] = proof
		} else {
			updates["rejection_reason"] = reason
		}
		affected, err := repo.ResolvePending(ctx, payout.ID, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve payout")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "payout is not pending")
		}

		if target == enums.PayoutStatusCompleted {
			if _, err := s.ledger.MarkPaidTx(ctx, tx, payout.ID); err != nil {
				return err
			}
			payout.ProofURL = &proof
		} else {
			if _, err := s.ledger.ReleaseTx(ctx, tx, payout.ID); err != nil {
				return err
			}
			payout.RejectionReason = &reason
		}
		payout.Status = target
		payout.ProcessedAt = &now
		payout.ProcessedBy = &processedBy

		return s.emit(ctx, tx, eventType, payout, input.Actor, reason)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayout(string(target))
	s.log(ctx, payout, "payout resolved")
	return payout, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor types.Actor) (*PayoutDetail, error) {
	payout, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	if !actor.IsAdmin() && payout.DriverID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
	}
	earnings, err := s.ledger.ListByPayout(ctx, payout.ID)
	if err != nil {
		return nil, err
	}
	return &PayoutDetail{Payout: *payout, Earnings: earnings}, nil
}

func (s *service) ListByDriver(ctx context.Context, driverID uuid.UUID, params ListParams) (*PayoutList, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	return s.list(ctx, &driverID, params)
}

func (s *service) ListForAdmin(ctx context.Context, params ListParams) (*PayoutList, error) {
	return s.list(ctx, nil, params)
}

func (s *service) list(ctx context.Context, driverID *uuid.UUID, params ListParams) (*PayoutList, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payout status")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, listPayoutsParams{
		DriverID: driverID,
		Status:   params.Status,
		Limit:    params.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	return &PayoutList{Items: rows, Cursor: pagination.NextCursor(next)}, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, payout *models.DriverPayout, actor types.Actor, reason string) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayout,
		AggregateID:   payout.ID,
		Actor:         actor.OutboxRef(),
		Data: payloads.LifecycleEvent{
			EventType: eventType,
			PayoutID:  payloads.UUIDPtr(payout.ID),
			DriverID:  payloads.UUIDPtr(payout.DriverID),
			NewStatus: string(payout.Status),
			Amount:    payloads.AmountPtr(payout.Amount),
			Reason:    reason,
		},
	})
}

func (s *service) log(ctx context.Context, payout *models.DriverPayout, msg string) {
	if s.logg == nil || payout == nil {
		return
	}
	logCtx := s.logg.WithDriverID(ctx, payout.DriverID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"payout_id": payout.ID.String(),
		"status":    payout.Status,
		"amount":    payout.Amount.StringFixed(2),
	})
	s.logg.Info(logCtx, msg)
}
