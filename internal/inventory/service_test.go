package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/db/testdb"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

type harness struct {
	conn *gorm.DB
	svc  Service
}

func newHarness(t *testing.T) harness {
	t.Helper()
	client := testdb.Client(t)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(client.DB()),
		Tx:       client,
		Outbox:   outbox.NewService(outbox.NewRepository(client.DB()), nil),
		Settings: config.FulfillmentConfig{DefaultLowStockThreshold: 3},
	})
	require.NoError(t, err)
	return harness{conn: client.DB(), svc: svc}
}

func admin() types.Actor {
	return types.Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin}
}

func (h harness) createStock(t *testing.T, qty int) *models.Stock {
	t.Helper()
	stock, err := h.svc.CreateStock(context.Background(), CreateStockInput{
		ProductID:   uuid.New(),
		ProductName: "Chicken Adobo",
		Quantity:    qty,
		Actor:       admin(),
	})
	require.NoError(t, err)
	return stock
}

func (h harness) adjustments(t *testing.T, stockID uuid.UUID) []models.StockAdjustment {
	t.Helper()
	var rows []models.StockAdjustment
	require.NoError(t, h.conn.Where("stock_id = ?", stockID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

func (h harness) eventCount(t *testing.T, stockID uuid.UUID, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.conn.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", stockID, eventType).
		Count(&count).Error)
	return count
}

func TestCreateStockAppliesDefaultThreshold(t *testing.T) {
	h := newHarness(t)
	stock := h.createStock(t, 10)
	assert.Equal(t, 3, stock.LowStockThreshold)
	assert.True(t, stock.Enabled)

	_, err := h.svc.CreateStock(context.Background(), CreateStockInput{
		ProductID:   stock.ProductID,
		ProductName: "dup",
		Actor:       admin(),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestManualAdjustTakesSignFromType(t *testing.T) {
	h := newHarness(t)
	stock := h.createStock(t, 10)
	ctx := context.Background()

	res, err := h.svc.Adjust(ctx, AdjustInput{StockID: stock.ID, Delta: 4, Type: enums.StockAdjustmentManualDeduct, Actor: admin()})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Stock.Quantity)
	assert.Equal(t, -4, res.Adjustment.QuantityChange)

	res, err = h.svc.Adjust(ctx, AdjustInput{StockID: stock.ID, Delta: 5, Type: enums.StockAdjustmentManualAdd, Actor: admin()})
	require.NoError(t, err)
	assert.Equal(t, 11, res.Stock.Quantity)

	_, err = h.svc.Adjust(ctx, AdjustInput{StockID: stock.ID, Delta: -5, Type: enums.StockAdjustmentManualAdd, Actor: admin()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	driver := types.Actor{ID: uuid.New(), Role: enums.ActorRoleDriver}
	_, err = h.svc.Adjust(ctx, AdjustInput{StockID: stock.ID, Delta: 1, Type: enums.StockAdjustmentManualAdd, Actor: driver})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	rows := h.adjustments(t, stock.ID)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, row.PreviousQuantity+row.QuantityChange, row.NewQuantity)
		assert.GreaterOrEqual(t, row.NewQuantity, 0)
	}
}

func TestAdjustRejectsOverdraftWithoutWriting(t *testing.T) {
	h := newHarness(t)
	stock := h.createStock(t, 2)

	_, err := h.svc.Adjust(context.Background(), AdjustInput{
		StockID: stock.ID,
		Delta:   3,
		Type:    enums.StockAdjustmentManualDeduct,
		Actor:   admin(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	reloaded, err := h.svc.GetStock(context.Background(), stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Quantity)
	assert.Empty(t, h.adjustments(t, stock.ID))
}

func TestLowStockEventFiresOnceWhenCrossingThreshold(t *testing.T) {
	h := newHarness(t)
	stock := h.createStock(t, 5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := h.svc.Adjust(ctx, AdjustInput{StockID: stock.ID, Delta: 1, Type: enums.StockAdjustmentManualDeduct, Actor: admin()})
		require.NoError(t, err)
	}

	assert.EqualValues(t, 3, h.eventCount(t, stock.ID, enums.EventStockAdjusted))
	assert.EqualValues(t, 1, h.eventCount(t, stock.ID, enums.EventStockLow))
}

func TestAdjustForOrderSkipsUntrackedProducts(t *testing.T) {
	h := newHarness(t)
	tracked := h.createStock(t, 10)
	disabled := h.createStock(t, 10)
	_, err := h.svc.SetEnabled(context.Background(), disabled.ID, false, admin())
	require.NoError(t, err)

	orderID := uuid.New()
	var results []AdjustResult
	err = h.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		results, err = h.svc.AdjustForOrderTx(context.Background(), tx, OrderStockInput{
			OrderID: orderID,
			Type:    enums.StockAdjustmentOrderApproved,
			Actor:   admin(),
			Lines: []OrderLine{
				{ProductID: tracked.ProductID, Quantity: 1},
				{ProductID: tracked.ProductID, Quantity: 1},
				{ProductID: disabled.ProductID, Quantity: 4},
				{ProductID: uuid.New(), Quantity: 9},
			},
		})
		return err
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 8, results[0].Stock.Quantity)
	require.NotNil(t, results[0].Adjustment.OrderID)
	assert.Equal(t, orderID, *results[0].Adjustment.OrderID)

	untouched, err := h.svc.GetStock(context.Background(), disabled.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, untouched.Quantity)
}

func TestListAdjustmentsPaginates(t *testing.T) {
	h := newHarness(t)
	stock := h.createStock(t, 10)
	for i := 0; i < 3; i++ {
		_, err := h.svc.Adjust(context.Background(), AdjustInput{StockID: stock.ID, Delta: 1, Type: enums.StockAdjustmentManualAdd, Actor: admin()})
		require.NoError(t, err)
	}

	first, err := h.svc.ListAdjustments(context.Background(), ListAdjustmentsParams{StockID: stock.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.Cursor)

	second, err := h.svc.ListAdjustments(context.Background(), ListAdjustmentsParams{StockID: stock.ID, Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.Cursor)
	assert.NotEqual(t, first.Items[1].ID, second.Items[0].ID)
}

func TestAdjustRequiresOrderForOrderDrivenTypes(t *testing.T) {
	h := newHarness(t)
	stock := h.createStock(t, 10)

	for _, typ := range []enums.StockAdjustmentType{enums.StockAdjustmentOrderApproved, enums.StockAdjustmentOrderCancelled} {
		_, err := h.svc.Adjust(context.Background(), AdjustInput{StockID: stock.ID, Delta: 5, Type: typ, Actor: admin()})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), typ)
	}

	reloaded, err := h.svc.GetStock(context.Background(), stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.Quantity)
	assert.Empty(t, h.adjustments(t, stock.ID))
}

func TestRestoreFollowsOrderHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tracked := h.createStock(t, 10)
	lateProduct := uuid.New()
	orderID := uuid.New()

	orderTx := func(typ enums.StockAdjustmentType) []AdjustResult {
		var results []AdjustResult
		require.NoError(t, h.conn.Transaction(func(tx *gorm.DB) error {
			var err error
			results, err = h.svc.AdjustForOrderTx(ctx, tx, OrderStockInput{
				OrderID: orderID,
				Type:    typ,
				Actor:   admin(),
				Lines: []OrderLine{
					{ProductID: tracked.ProductID, Quantity: 3},
					{ProductID: lateProduct, Quantity: 4},
				},
			})
			return err
		}))
		return results
	}

	require.Len(t, orderTx(enums.StockAdjustmentOrderApproved), 1)

	late, err := h.svc.CreateStock(ctx, CreateStockInput{ProductID: lateProduct, ProductName: "Halo-halo", Quantity: 20, Actor: admin()})
	require.NoError(t, err)
	_, err = h.svc.SetEnabled(ctx, tracked.ID, false, admin())
	require.NoError(t, err)

	restored := orderTx(enums.StockAdjustmentOrderCancelled)
	require.Len(t, restored, 1)
	assert.Equal(t, tracked.ID, restored[0].Stock.ID)
	assert.Equal(t, 10, restored[0].Stock.Quantity)
	assert.Equal(t, 3, restored[0].Adjustment.QuantityChange)

	assert.Empty(t, orderTx(enums.StockAdjustmentOrderCancelled), "nothing left to restore")

	untouched, err := h.svc.GetStock(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, untouched.Quantity)
}
