package stocks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/foodops-backend/api/middleware"
	"github.com/angelmondragon/foodops-backend/internal/inventory"
	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

type stubInventory struct {
	inventory.Service
	createFn      func(ctx context.Context, input inventory.CreateStockInput) (*models.Stock, error)
	listFn        func(ctx context.Context, params inventory.ListStocksParams) (*inventory.StockList, error)
	adjustFn      func(ctx context.Context, input inventory.AdjustInput) (*inventory.AdjustResult, error)
	setEnabledFn  func(ctx context.Context, id uuid.UUID, enabled bool, actor types.Actor) (*models.Stock, error)
	adjustmentsFn func(ctx context.Context, params inventory.ListAdjustmentsParams) (*inventory.AdjustmentList, error)
}

func (s *stubInventory) CreateStock(ctx context.Context, input inventory.CreateStockInput) (*models.Stock, error) {
	return s.createFn(ctx, input)
}

func (s *stubInventory) ListStocks(ctx context.Context, params inventory.ListStocksParams) (*inventory.StockList, error) {
	return s.listFn(ctx, params)
}

func (s *stubInventory) Adjust(ctx context.Context, input inventory.AdjustInput) (*inventory.AdjustResult, error) {
	return s.adjustFn(ctx, input)
}

func (s *stubInventory) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool, actor types.Actor) (*models.Stock, error) {
	return s.setEnabledFn(ctx, id, enabled, actor)
}

func (s *stubInventory) ListAdjustments(ctx context.Context, params inventory.ListAdjustmentsParams) (*inventory.AdjustmentList, error) {
	return s.adjustmentsFn(ctx, params)
}

var admin = types.Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin}

func serve(method, pattern, target, body string, handler http.HandlerFunc) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.MethodFunc(method, pattern, handler)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(middleware.WithActor(req.Context(), admin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCreateStock(t *testing.T) {
	productID := uuid.New()
	svc := &stubInventory{
		createFn: func(ctx context.Context, input inventory.CreateStockInput) (*models.Stock, error) {
			assert.Equal(t, productID, input.ProductID)
			assert.Equal(t, "Chicken Adobo", input.ProductName)
			assert.Nil(t, input.LowStockThreshold)
			assert.Equal(t, admin, input.Actor)
			return &models.Stock{ID: uuid.New(), ProductID: productID, ProductName: input.ProductName, Quantity: input.Quantity, LowStockThreshold: 10, Enabled: true}, nil
		},
	}

	body := `{"productId":"` + productID.String() + `","productName":" Chicken Adobo ","quantity":4}`
	resp := serve(http.MethodPost, "/admin/stocks", "/admin/stocks", body, CreateStock(svc, nil))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var out struct {
		Data stockDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, 4, out.Data.Quantity)
	assert.True(t, out.Data.IsLow)
}

func TestCreateStockRejectsNegativeQuantity(t *testing.T) {
	body := `{"productId":"` + uuid.NewString() + `","productName":"Rice","quantity":-1}`
	resp := serve(http.MethodPost, "/admin/stocks", "/admin/stocks", body, CreateStock(&stubInventory{}, nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdjustStock(t *testing.T) {
	stockID := uuid.New()
	svc := &stubInventory{
		adjustFn: func(ctx context.Context, input inventory.AdjustInput) (*inventory.AdjustResult, error) {
			assert.Equal(t, stockID, input.StockID)
			assert.Equal(t, 3, input.Delta)
			assert.Equal(t, enums.StockAdjustmentManualDeduct, input.Type)
			require.NotNil(t, input.Notes)
			return &inventory.AdjustResult{
				Stock: &models.Stock{ID: stockID, Quantity: 7, LowStockThreshold: 5},
				Adjustment: &models.StockAdjustment{
					StockID:          stockID,
					AdjustmentType:   input.Type,
					QuantityChange:   -3,
					PreviousQuantity: 10,
					NewQuantity:      7,
					ActorRole:        enums.ActorRoleAdmin,
				},
			}, nil
		},
	}

	resp := serve(http.MethodPost, "/admin/stocks/{stockId}/adjust", "/admin/stocks/"+stockID.String()+"/adjust",
		`{"type":"manual_deduct","quantity":3,"notes":"spoiled"}`, AdjustStock(svc, nil))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out struct {
		Data adjustResultDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, 7, out.Data.Stock.Quantity)
	assert.Equal(t, -3, out.Data.Adjustment.QuantityChange)
	assert.Equal(t, 10, out.Data.Adjustment.PreviousQuantity)
}

func TestAdjustStockRejectsOrderTypes(t *testing.T) {
	resp := serve(http.MethodPost, "/admin/stocks/{stockId}/adjust", "/admin/stocks/"+uuid.NewString()+"/adjust",
		`{"type":"order_approved","quantity":3}`, AdjustStock(&stubInventory{}, nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdjustStockInsufficient(t *testing.T) {
	svc := &stubInventory{
		adjustFn: func(ctx context.Context, input inventory.AdjustInput) (*inventory.AdjustResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")
		},
	}
	resp := serve(http.MethodPost, "/admin/stocks/{stockId}/adjust", "/admin/stocks/"+uuid.NewString()+"/adjust",
		`{"type":"manual_deduct","quantity":30}`, AdjustStock(svc, nil))
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestListStocksFlags(t *testing.T) {
	svc := &stubInventory{
		listFn: func(ctx context.Context, params inventory.ListStocksParams) (*inventory.StockList, error) {
			assert.True(t, params.LowOnly)
			assert.False(t, params.EnabledOnly)
			assert.Equal(t, 10, params.Limit)
			return &inventory.StockList{Items: []models.Stock{{ID: uuid.New(), Quantity: 1, LowStockThreshold: 2}}}, nil
		},
	}
	resp := serve(http.MethodGet, "/admin/stocks", "/admin/stocks?lowOnly=true&limit=10", "", ListStocks(svc, nil))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out struct {
		Data stockListDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.Len(t, out.Data.Items, 1)
	assert.True(t, out.Data.Items[0].IsLow)
}

func TestSetStockEnabledRequiresFlag(t *testing.T) {
	resp := serve(http.MethodPatch, "/admin/stocks/{stockId}", "/admin/stocks/"+uuid.NewString(), `{}`, SetStockEnabled(&stubInventory{}, nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	stockID := uuid.New()
	svc := &stubInventory{
		setEnabledFn: func(ctx context.Context, id uuid.UUID, enabled bool, actor types.Actor) (*models.Stock, error) {
			assert.False(t, enabled)
			return &models.Stock{ID: id}, nil
		},
	}
	resp = serve(http.MethodPatch, "/admin/stocks/{stockId}", "/admin/stocks/"+stockID.String(), `{"enabled":false}`, SetStockEnabled(svc, nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestListAdjustments(t *testing.T) {
	stockID := uuid.New()
	svc := &stubInventory{
		adjustmentsFn: func(ctx context.Context, params inventory.ListAdjustmentsParams) (*inventory.AdjustmentList, error) {
			assert.Equal(t, stockID, params.StockID)
			return &inventory.AdjustmentList{Cursor: "c2"}, nil
		},
	}
	resp := serve(http.MethodGet, "/admin/stocks/{stockId}/adjustments", "/admin/stocks/"+stockID.String()+"/adjustments", "", ListAdjustments(svc, nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"cursor":"c2"`)
	assert.Contains(t, resp.Body.String(), `"items":[]`)
}
