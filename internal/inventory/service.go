package inventory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

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

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the stock adjustment engine. Every quantity change goes through
// Adjust or AdjustTx and leaves exactly one adjustment row behind.
type Service interface {
	CreateStock(ctx context.Context, input CreateStockInput) (*models.Stock, error)
	GetStock(ctx context.Context, id uuid.UUID) (*models.Stock, error)
	ListStocks(ctx context.Context, params ListStocksParams) (*StockList, error)
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool, actor types.Actor) (*models.Stock, error)
	Adjust(ctx context.Context, input AdjustInput) (*AdjustResult, error)
	AdjustTx(ctx context.Context, tx *gorm.DB, input AdjustInput) (*AdjustResult, error)
	AdjustForOrderTx(ctx context.Context, tx *gorm.DB, input OrderStockInput) ([]AdjustResult, error)
	ListAdjustments(ctx context.Context, params ListAdjustmentsParams) (*AdjustmentList, error)
}

// ServiceParams wires the engine. Settings carries the default low-stock
// threshold applied when a stock row is created without one.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Settings config.FulfillmentConfig
	Logger   *logger.Logger
	Metrics  *metrics.FulfillmentMetrics
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	settings config.FulfillmentConfig
	logg     *logger.Logger
	metrics  *metrics.FulfillmentMetrics
}

// CreateStockInput registers a stock-tracked product.
type CreateStockInput struct {
	ProductID         uuid.UUID
	ProductName       string
	Quantity          int
	LowStockThreshold *int
	Actor             types.Actor
}

// AdjustInput is one quantity change. For manual types Delta must be positive
// and the sign comes from the type. Order-driven types use Delta as given.
type AdjustInput struct {
	StockID uuid.UUID
	Delta   int
	Type    enums.StockAdjustmentType
	Actor   types.Actor
	Notes   *string
	OrderID *uuid.UUID
}

// AdjustResult carries the updated stock row and the adjustment written for it.
type AdjustResult struct {
	Stock      *models.Stock
	Adjustment *models.StockAdjustment
}

// OrderLine is the product quantity an order holds.
type OrderLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderStockInput deducts (order_approved) the quantities of an order's lines
// or restores (order_cancelled) what the order's approval deducted. Lines are
// only read on approval; products without an enabled stock row are skipped.
type OrderStockInput struct {
	OrderID uuid.UUID
	Type    enums.StockAdjustmentType
	Lines   []OrderLine
	Actor   types.Actor
}

type ListStocksParams struct {
	Limit       int
	Cursor      string
	LowOnly     bool
	EnabledOnly bool
}

type StockList struct {
	Items  []models.Stock `json:"items"`
	Cursor string         `json:"cursor"`
}

type ListAdjustmentsParams struct {
	StockID uuid.UUID
	Limit   int
	Cursor  string
}

type AdjustmentList struct {
	Items  []models.StockAdjustment `json:"items"`
	Cursor string                   `json:"cursor"`
}

// NewService builds the stock adjustment engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		settings: params.Settings,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

func (s *service) CreateStock(ctx context.Context, input CreateStockInput) (*models.Stock, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins manage stock")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	name := strings.TrimSpace(input.ProductName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	threshold := s.settings.DefaultLowStockThreshold
	if input.LowStockThreshold != nil {
		if *input.LowStockThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "low stock threshold must not be negative")
		}
		threshold = *input.LowStockThreshold
	}

	stock := &models.Stock{
		ProductID:         input.ProductID,
		ProductName:       name,
		Quantity:          input.Quantity,
		LowStockThreshold: threshold,
		Enabled:           true,
	}
	if err := s.repo.Create(ctx, stock); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already has a stock record")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock")
	}
	return stock, nil
}

func (s *service) GetStock(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock id required")
	}
	stock, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return stock, nil
}

func (s *service) ListStocks(ctx context.Context, params ListStocksParams) (*StockList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, listStocksParams{
		Limit:       params.Limit,
		Cursor:      cursor,
		LowOnly:     params.LowOnly,
		EnabledOnly: params.EnabledOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stocks")
	}
	return &StockList{Items: rows, Cursor: pagination.NextCursor(next)}, nil
}

func (s *service) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool, actor types.Actor) (*models.Stock, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins manage stock")
	}
	var stock *models.Stock
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected, err := repo.SetEnabled(ctx, id, enabled)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
		}
		stock, err = repo.FindByID(ctx, id)
		if err != nil {
			return mapLoadError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stock, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*AdjustResult, error) {
	var result *AdjustResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.AdjustTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) AdjustTx(ctx context.Context, tx *gorm.DB, input AdjustInput) (*AdjustResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for stock adjustment")
	}
	if input.StockID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock id required")
	}
	delta, err := signedDelta(input)
	if err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	stock, err := repo.FindByIDForUpdate(ctx, input.StockID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return s.apply(ctx, tx, repo, stock, delta, input)
}

func (s *service) AdjustForOrderTx(ctx context.Context, tx *gorm.DB, input OrderStockInput) ([]AdjustResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for stock adjustment")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	repo := s.repo.WithTx(tx)
	switch input.Type {
	case enums.StockAdjustmentOrderApproved:
		return s.deductForOrder(ctx, tx, repo, input)
	case enums.StockAdjustmentOrderCancelled:
		return s.restoreForOrder(ctx, tx, repo, input)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order stock adjustment must be order_approved or order_cancelled")
	}
}

// deductForOrder takes each line's quantity from the product's enabled stock
// row. Products without one are not stock-tracked.
func (s *service) deductForOrder(ctx context.Context, tx *gorm.DB, repo Repository, input OrderStockInput) ([]AdjustResult, error) {
	totals := make(map[uuid.UUID]int, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity > 0 {
			totals[line.ProductID] += line.Quantity
		}
	}
	if len(totals) == 0 {
		return nil, nil
	}

	stocks, err := repo.FindEnabledByProductIDs(ctx, slices.Collect(maps.Keys(totals)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock rows")
	}
	deltas := make(map[uuid.UUID]int, len(stocks))
	for _, stock := range stocks {
		deltas[stock.ID] = -totals[stock.ProductID]
	}
	return s.applyForOrder(ctx, tx, repo, stocks, deltas, input)
}

// restoreForOrder gives back exactly what this order still has deducted, per
// stock row, read from its own adjustment rows. Lines are ignored: a stock row
// created or disabled after approval must not change what is returned.
func (s *service) restoreForOrder(ctx context.Context, tx *gorm.DB, repo Repository, input OrderStockInput) ([]AdjustResult, error) {
	history, err := repo.ListOrderAdjustments(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order stock adjustments")
	}
	outstanding := make(map[uuid.UUID]int, len(history))
	for _, row := range history {
		outstanding[row.StockID] -= row.QuantityChange
	}
	maps.DeleteFunc(outstanding, func(_ uuid.UUID, qty int) bool { return qty <= 0 })
	if len(outstanding) == 0 {
		return nil, nil
	}

	stocks, err := repo.FindByIDsForUpdate(ctx, slices.Collect(maps.Keys(outstanding)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock rows")
	}
	if len(stocks) != len(outstanding) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock row deducted by order is missing")
	}
	return s.applyForOrder(ctx, tx, repo, stocks, outstanding, input)
}

func (s *service) applyForOrder(ctx context.Context, tx *gorm.DB, repo Repository, stocks []models.Stock, deltas map[uuid.UUID]int, input OrderStockInput) ([]AdjustResult, error) {
	orderID := input.OrderID
	results := make([]AdjustResult, 0, len(stocks))
	for i := range stocks {
		stock := stocks[i]
		adj := AdjustInput{
			StockID: stock.ID,
			Delta:   deltas[stock.ID],
			Type:    input.Type,
			Actor:   input.Actor,
			OrderID: &orderID,
		}
		res, err := s.apply(ctx, tx, repo, &stock, adj.Delta, adj)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, nil
}

func (s *service) apply(ctx context.Context, tx *gorm.DB, repo Repository, stock *models.Stock, delta int, input AdjustInput) (*AdjustResult, error) {
	previous := stock.Quantity
	next := previous + delta
	if next < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(map[string]any{
			"stockId":     stock.ID,
			"productName": stock.ProductName,
			"available":   previous,
			"requested":   -delta,
		})
	}

	affected, err := repo.UpdateQuantity(ctx, stock.ID, previous, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock quantity")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "stock changed concurrently; retry")
	}

	adjustment := &models.StockAdjustment{
		StockID:          stock.ID,
		AdjustmentType:   input.Type,
		QuantityChange:   delta,
		PreviousQuantity: previous,
		NewQuantity:      next,
		ActorID:          input.Actor.IDPtr(),
		ActorRole:        input.Actor.Role,
		OrderID:          input.OrderID,
		Notes:            input.Notes,
	}
	if err := repo.InsertAdjustment(ctx, adjustment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert stock adjustment")
	}
	stock.Quantity = next

	if err := s.emit(ctx, tx, enums.EventStockAdjusted, stock, input, delta); err != nil {
		return nil, err
	}
	if stock.Enabled && previous > stock.LowStockThreshold && next <= stock.LowStockThreshold {
		if err := s.emit(ctx, tx, enums.EventStockLow, stock, input, delta); err != nil {
			return nil, err
		}
	}

	s.metrics.IncStockAdjustment(string(input.Type))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"stock_id":        stock.ID.String(),
			"adjustment_type": input.Type,
			"previous":        previous,
			"new":             next,
		})
		s.logg.Info(logCtx, "stock adjusted")
	}
	return &AdjustResult{Stock: stock, Adjustment: adjustment}, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, stock *models.Stock, input AdjustInput, delta int) error {
	data := payloads.LifecycleEvent{
		EventType:   eventType,
		StockID:     payloads.UUIDPtr(stock.ID),
		ProductName: stock.ProductName,
		Quantity:    payloads.IntPtr(stock.Quantity),
		Threshold:   payloads.IntPtr(stock.LowStockThreshold),
		Reason:      string(input.Type),
	}
	if input.OrderID != nil {
		data.OrderID = payloads.UUIDPtr(*input.OrderID)
	}
	if eventType == enums.EventStockAdjusted {
		data.QuantityChange = payloads.IntPtr(delta)
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateStock,
		AggregateID:   stock.ID,
		Actor:         input.Actor.OutboxRef(),
		Data:          data,
	})
}

func (s *service) ListAdjustments(ctx context.Context, params ListAdjustmentsParams) (*AdjustmentList, error) {
	if params.StockID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListAdjustments(ctx, listAdjustmentsParams{
		StockID: params.StockID,
		Limit:   params.Limit,
		Cursor:  cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock adjustments")
	}
	return &AdjustmentList{Items: rows, Cursor: pagination.NextCursor(next)}, nil
}

// signedDelta applies the type's sign to manual adjustments and checks that
// the actor may perform them.
func signedDelta(input AdjustInput) (int, error) {
	if !input.Type.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid adjustment type")
	}
	if err := input.Actor.Validate(); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "actor required")
	}
	if input.Type.IsManual() {
		if !input.Actor.IsAdmin() {
			return 0, pkgerrors.New(pkgerrors.CodeForbidden, "manual stock adjustments require an admin")
		}
		if input.Delta <= 0 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "manual adjustment quantity must be positive")
		}
		if input.Type == enums.StockAdjustmentManualDeduct {
			return -input.Delta, nil
		}
		return input.Delta, nil
	}
	if input.OrderID == nil || *input.OrderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order-driven adjustments require an order id")
	}
	if input.Delta == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "adjustment delta must not be zero")
	}
	return input.Delta, nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
}
