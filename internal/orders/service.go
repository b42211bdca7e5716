package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/internal/inventory"
	"github.com/angelmondragon/foodops-backend/internal/ledger"
	"github.com/angelmondragon/foodops-backend/pkg/config"
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

// Service is the order state machine. It is the only writer of order status.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	SubmitPaymentProof(ctx context.Context, orderID uuid.UUID, proofURL string, actor types.Actor) (*models.Order, error)
	AssignDriver(ctx context.Context, input AssignDriverInput) (*models.Order, error)
	ReturnOrder(ctx context.Context, input ReturnInput) (*models.Order, error)
	MarkRefunded(ctx context.Context, input RefundInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Order, error)
	List(ctx context.Context, actor types.Actor, params ListParams) (*OrderList, error)
	AutoCompleteDelivered(ctx context.Context) (*AutoCompleteResult, error)
}

// ServiceParams wires the state machine. Numbers defaults to a database-only
// Sequencer when nil.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Stock    StockAdjuster
	Ledger   EarningsLedger
	Numbers  NumberAllocator
	Settings config.FulfillmentConfig
	Logger   *logger.Logger
	Metrics  *metrics.FulfillmentMetrics
	Now      func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	stock    StockAdjuster
	ledger   EarningsLedger
	numbers  NumberAllocator
	settings config.FulfillmentConfig
	loc      *time.Location
	logg     *logger.Logger
	metrics  *metrics.FulfillmentMetrics
	now      func() time.Time
}

// transitionOpts carries what differs between the public entry points that
// all funnel into one status write.
type transitionOpts struct {
	isReturn  bool
	eventType enums.OutboxEventType
	reason    string
	extra     map[string]any
	mutate    func(order *models.Order)
}

// NewService builds the order state machine with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("earnings ledger required")
	}
	loc, err := params.Settings.Location()
	if err != nil {
		return nil, err
	}
	numbers := params.Numbers
	if numbers == nil {
		numbers = NewSequencer(nil, params.Repo, params.Logger)
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		stock:    params.Stock,
		ledger:   params.Ledger,
		numbers:  numbers,
		settings: params.Settings,
		loc:      loc,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	customerID, err := checkoutCustomer(input)
	if err != nil {
		return nil, err
	}
	if !input.OrderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order type")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	if input.DeliveryFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery fee must not be negative")
	}
	if !input.OrderType.IsDelivery() && !input.DeliveryFee.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery fee only applies to delivery orders")
	}
	if input.DistanceKm != nil && input.DistanceKm.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "distance must not be negative")
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	subtotal := decimal.Zero
	for i, item := range input.Items {
		name := strings.TrimSpace(item.ProductName)
		switch {
		case item.ProductID == uuid.Nil:
			return nil, itemError(i, "product id required")
		case name == "":
			return nil, itemError(i, "product name required")
		case item.Quantity <= 0:
			return nil, itemError(i, "quantity must be positive")
		case item.UnitPrice.IsNegative():
			return nil, itemError(i, "unit price must not be negative")
		}
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		subtotal = subtotal.Add(lineTotal)
		items = append(items, models.OrderItem{
			ProductID:   item.ProductID,
			ProductName: name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Round(2),
			LineTotal:   lineTotal,
		})
	}

	fee := input.DeliveryFee.Round(2)
	var distance *decimal.Decimal
	if input.OrderType.IsDelivery() && input.DistanceKm != nil {
		d := input.DistanceKm.Round(2)
		distance = &d
	}

	now := s.now().Truncate(time.Microsecond)
	day := s.orderDay(now)
	order := &models.Order{
		OrderDate:       day,
		Status:          enums.OrderStatusPending,
		OrderType:       input.OrderType,
		CustomerID:      customerID,
		Subtotal:        subtotal,
		DeliveryFee:     fee,
		Total:           subtotal.Add(fee),
		DistanceKm:      distance,
		RefundStatus:    enums.RefundStatusNone,
		Notes:           input.Notes,
		StatusChangedAt: now,
		Items:           items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		number, err := s.numbers.Next(ctx, tx, day)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
		}
		order.OrderNumber = number
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already taken, retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return s.emit(ctx, tx, enums.EventOrderCreated, order, input.Actor, "", "")
	})
	if err != nil {
		return nil, err
	}

	s.log(ctx, order, input.Actor, "order created")
	return order, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if !input.To.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	return s.transition(ctx, input.OrderID, input.To, input.Actor, transitionOpts{
		reason: strings.TrimSpace(input.Reason),
	})
}

func (s *service) SubmitPaymentProof(ctx context.Context, orderID uuid.UUID, proofURL string, actor types.Actor) (*models.Order, error) {
	proof := strings.TrimSpace(proofURL)
	if proof == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment proof url required")
	}
	return s.transition(ctx, orderID, enums.OrderStatusForVerification, actor, transitionOpts{
		extra: map[string]any{"payment_proof_url": proof},
		mutate: func(order *models.Order) {
			order.PaymentProofURL = &proof
		},
	})
}

// ReturnOrder is the rider's return-to-restaurant edge: in_transit -> rejected
// with a reason code. It restores stock and opens a refund like any other
// rejection after approval.
func (s *service) ReturnOrder(ctx context.Context, input ReturnInput) (*models.Order, error) {
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid return reason")
	}
	reason := input.Reason
	extra := map[string]any{"return_reason": reason}
	var photo *string
	if input.PhotoURL != nil && strings.TrimSpace(*input.PhotoURL) != "" {
		p := strings.TrimSpace(*input.PhotoURL)
		photo = &p
		extra["return_photo_url"] = p
	}
	return s.transition(ctx, input.OrderID, enums.OrderStatusRejected, input.Actor, transitionOpts{
		isReturn:  true,
		eventType: enums.EventOrderReturned,
		reason:    firstNonEmpty(strings.TrimSpace(input.Notes), string(reason)),
		extra:     extra,
		mutate: func(order *models.Order) {
			order.ReturnReason = &reason
			order.ReturnPhotoURL = photo
		},
	})
}

func (s *service) transition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, actor types.Actor, opts transitionOpts) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := actor.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor")
	}

	var order *models.Order
	var from enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if !canSee(order, actor) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		from = order.Status

		if !CanTransition(order.OrderType, from, to) || (opts.isReturn && from != enums.OrderStatusInTransit) {
			return invalidTransition(order, to)
		}
		if !actorAllowed(actor, edge{from: from, to: to, isReturn: opts.isReturn}) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "actor may not perform this transition").WithDetails(map[string]any{
				"role": actor.Role,
				"from": from,
				"to":   to,
			})
		}
		if actor.IsDriver() && !assignedTo(order, actor.ID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this driver")
		}
		if to == enums.OrderStatusPickedUp && order.DriverID == nil {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "a driver must be assigned before pickup")
		}

		now := s.stamp(order.StatusChangedAt)
		updates := map[string]any{
			"status":            to,
			"status_changed_at": now,
			"updated_at":        now,
		}
		for k, v := range opts.extra {
			updates[k] = v
		}
		refundOwed := isCancellation(to) && stockHeld(from)
		if isCancellation(to) && opts.reason != "" {
			updates["rejection_reason"] = opts.reason
		}
		if refundOwed {
			updates["refund_status"] = enums.RefundStatusPending
			updates["refund_amount"] = order.Total
		}

		affected, err := repo.UpdateIfStatus(ctx, order.ID, from, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order status changed concurrently").WithDetails(map[string]any{
				"from": from,
				"to":   to,
			})
		}

		order.Status = to
		order.StatusChangedAt = now
		order.UpdatedAt = now
		if isCancellation(to) && opts.reason != "" {
			reason := opts.reason
			order.RejectionReason = &reason
		}
		if refundOwed {
			total := order.Total
			order.RefundStatus = enums.RefundStatusPending
			order.RefundAmount = &total
		}
		if opts.mutate != nil {
			opts.mutate(order)
		}

		if err := s.applySideEffects(ctx, tx, order, from, actor); err != nil {
			return err
		}

		eventType := opts.eventType
		if eventType == "" {
			eventType = enums.EventOrderStatusChanged
		}
		return s.emit(ctx, tx, eventType, order, actor, from, opts.reason)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			s.metrics.IncTransitionRejected(string(typed.Code()))
		}
		return nil, err
	}

	s.metrics.IncTransition(string(from), string(to))
	s.log(ctx, order, actor, "order status changed")
	return order, nil
}

// applySideEffects runs the work bound to the edge just written, inside the
// same transaction as the status write.
func (s *service) applySideEffects(ctx context.Context, tx *gorm.DB, order *models.Order, from enums.OrderStatus, actor types.Actor) error {
	switch {
	case order.Status == enums.OrderStatusApproved:
		_, err := s.stock.AdjustForOrderTx(ctx, tx, inventory.OrderStockInput{
			OrderID: order.ID,
			Type:    enums.StockAdjustmentOrderApproved,
			Lines:   orderLines(order),
			Actor:   actor,
		})
		return err

	case isCancellation(order.Status) && stockHeld(from):
		_, err := s.stock.AdjustForOrderTx(ctx, tx, inventory.OrderStockInput{
			OrderID: order.ID,
			Type:    enums.StockAdjustmentOrderCancelled,
			Lines:   orderLines(order),
			Actor:   actor,
		})
		return err

	case order.Status == enums.OrderStatusDelivered && order.DriverID != nil:
		_, err := s.ledger.CreatePendingTx(ctx, tx, earningInput(order, actor))
		return err

	case order.Status == enums.OrderStatusCompleted:
		if order.OrderType.IsDelivery() {
			_, err := s.ledger.MarkAvailableTx(ctx, tx, order.ID, actor)
			return err
		}
		if order.DriverID != nil {
			_, err := s.ledger.CreateAvailableTx(ctx, tx, earningInput(order, actor))
			return err
		}
	}
	return nil
}

// AssignDriver sets or replaces the rider before the order is picked up.
func (s *service) AssignDriver(ctx context.Context, input AssignDriverInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins assign drivers")
	}

	var order *models.Order
	unchanged := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return mapLoadError(err)
		}
		if !driverAssignable(order.Status) {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "driver can no longer be assigned").WithDetails(map[string]any{
				"status": order.Status,
			})
		}
		if assignedTo(order, input.DriverID) {
			unchanged = true
			return nil
		}

		now := s.now()
		affected, err := repo.UpdateIfStatus(ctx, order.ID, order.Status, map[string]any{
			"driver_id":  input.DriverID,
			"updated_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign driver")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "order status changed concurrently")
		}
		driverID := input.DriverID
		order.DriverID = &driverID
		order.UpdatedAt = now
		return s.emit(ctx, tx, enums.EventOrderDriverAssigned, order, input.Actor, "", "")
	})
	if err != nil {
		return nil, err
	}
	if !unchanged {
		s.log(ctx, order, input.Actor, "driver assigned")
	}
	return order, nil
}

func (s *service) MarkRefunded(ctx context.Context, input RefundInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reference required")
	}
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins record refunds")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return mapLoadError(err)
		}
		if order.RefundStatus != enums.RefundStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "order has no pending refund").WithDetails(map[string]any{
				"refundStatus": order.RefundStatus,
			})
		}
		now := s.now()
		affected, err := repo.MarkRefunded(ctx, order.ID, reference, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark refunded")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "order has no pending refund")
		}
		order.RefundStatus = enums.RefundStatusRefunded
		order.RefundReference = &reference
		order.UpdatedAt = now
		return s.emit(ctx, tx, enums.EventOrderRefunded, order, input.Actor, "", reference)
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx, order, input.Actor, "refund recorded")
	return order, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !canSee(order, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor types.Actor, params ListParams) (*OrderList, error) {
	if err := actor.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	filters := listOrdersParams{
		Status:     params.Status,
		DriverID:   params.DriverID,
		CustomerID: params.CustomerID,
		Limit:      params.Limit,
	}
	switch actor.Role {
	case enums.ActorRoleCustomer:
		id := actor.ID
		filters.CustomerID = &id
	case enums.ActorRoleDriver:
		id := actor.ID
		filters.DriverID = &id
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filters.Cursor = cursor

	rows, next, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return &OrderList{Items: rows, Cursor: pagination.NextCursor(next)}, nil
}

// AutoCompleteDelivered completes delivery orders that have sat in delivered
// for longer than the configured grace period, acting as the system actor so
// the usual completion side effects run. Orders moved by someone else in the
// meantime are skipped.
func (s *service) AutoCompleteDelivered(ctx context.Context) (*AutoCompleteResult, error) {
	cutoff := s.now().Add(-s.settings.DeliveredGracePeriod)
	candidates, err := s.repo.ListDeliveredBefore(ctx, cutoff, s.settings.AutoCompleteBatchSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivered orders")
	}

	result := &AutoCompleteResult{Scanned: len(candidates)}
	var errs error
	for _, candidate := range candidates {
		_, err := s.transition(ctx, candidate.ID, enums.OrderStatusCompleted, types.SystemActor(), transitionOpts{
			reason: "auto-completed after grace period",
		})
		switch {
		case err == nil:
			result.Completed++
		case pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition):
			result.Skipped++
		default:
			errs = multierr.Append(errs, fmt.Errorf("complete order %s: %w", candidate.ID, err))
		}
	}
	return result, errs
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order *models.Order, actor types.Actor, previous enums.OrderStatus, reason string) error {
	data := payloads.LifecycleEvent{
		EventType:      eventType,
		OrderID:        payloads.UUIDPtr(order.ID),
		OrderNumber:    order.OrderNumber,
		OrderType:      order.OrderType,
		CustomerID:     payloads.UUIDPtr(order.CustomerID),
		DriverID:       order.DriverID,
		PreviousStatus: string(previous),
		NewStatus:      string(order.Status),
		Amount:         payloads.AmountPtr(order.Total),
		Reason:         reason,
	}
	if eventType == enums.EventOrderRefunded && order.RefundAmount != nil {
		data.Amount = payloads.AmountPtr(*order.RefundAmount)
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor.OutboxRef(),
		Data:          data,
	})
}

func (s *service) log(ctx context.Context, order *models.Order, actor types.Actor, msg string) {
	if s.logg == nil || order == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithActorRole(logCtx, string(actor.Role))
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"order_number": order.OrderNumber,
		"status":       order.Status,
	})
	s.logg.Info(logCtx, msg)
}

// stamp returns a status timestamp strictly after prev at the storage
// resolution, so status_changed_at always moves forward.
func (s *service) stamp(prev time.Time) time.Time {
	now := s.now().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return now
}

// orderDay is the calendar day, in the configured timezone, that numbers the
// order. It is stored as a UTC midnight date.
func (s *service) orderDay(now time.Time) time.Time {
	local := now.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func checkoutCustomer(input CreateOrderInput) (uuid.UUID, error) {
	if err := input.Actor.Validate(); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor")
	}
	switch {
	case input.Actor.IsCustomer():
		if input.CustomerID != uuid.Nil && input.CustomerID != input.Actor.ID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "customers order for themselves")
		}
		return input.Actor.ID, nil
	case input.Actor.IsAdmin():
		if input.CustomerID == uuid.Nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
		}
		return input.CustomerID, nil
	default:
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor may not place orders")
	}
}

func canSee(order *models.Order, actor types.Actor) bool {
	switch actor.Role {
	case enums.ActorRoleAdmin, enums.ActorRoleSystem:
		return true
	case enums.ActorRoleCustomer:
		return order.CustomerID == actor.ID
	case enums.ActorRoleDriver:
		return assignedTo(order, actor.ID)
	default:
		return false
	}
}

func assignedTo(order *models.Order, driverID uuid.UUID) bool {
	return order.DriverID != nil && *order.DriverID == driverID
}

func driverAssignable(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusPending,
		enums.OrderStatusForVerification,
		enums.OrderStatusApproved,
		enums.OrderStatusPreparing,
		enums.OrderStatusReadyForPickup,
		enums.OrderStatusWaitingForRider:
		return true
	default:
		return false
	}
}

func isCancellation(status enums.OrderStatus) bool {
	return status == enums.OrderStatusRejected || status == enums.OrderStatusCancelled
}

func orderLines(order *models.Order) []inventory.OrderLine {
	lines := make([]inventory.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, inventory.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

func earningInput(order *models.Order, actor types.Actor) ledger.CreateEarningInput {
	return ledger.CreateEarningInput{
		DriverID:    *order.DriverID,
		OrderID:     order.ID,
		DeliveryFee: order.DeliveryFee,
		DistanceKm:  order.DistanceKm,
		Actor:       actor,
	}
}

func invalidTransition(order *models.Order, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "status change not allowed from current status").WithDetails(map[string]any{
		"from":    order.Status,
		"to":      to,
		"allowed": NextStatuses(order.OrderType, order.Status),
	})
}

func itemError(index int, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"item": index})
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
