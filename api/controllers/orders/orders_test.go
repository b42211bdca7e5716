package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodops-backend/api/middleware"
	internalorders "github.com/angelmondragon/foodops-backend/internal/orders"
	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

type stubOrdersService struct {
	createFn     func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error)
	transitionFn func(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error)
	proofFn      func(ctx context.Context, orderID uuid.UUID, proofURL string, actor types.Actor) (*models.Order, error)
	assignFn     func(ctx context.Context, input internalorders.AssignDriverInput) (*models.Order, error)
	returnFn     func(ctx context.Context, input internalorders.ReturnInput) (*models.Order, error)
	refundFn     func(ctx context.Context, input internalorders.RefundInput) (*models.Order, error)
	getFn        func(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Order, error)
	listFn       func(ctx context.Context, actor types.Actor, params internalorders.ListParams) (*internalorders.OrderList, error)
}

func (s *stubOrdersService) CreateOrder(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	return s.createFn(ctx, input)
}

func (s *stubOrdersService) Transition(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
	return s.transitionFn(ctx, input)
}

func (s *stubOrdersService) SubmitPaymentProof(ctx context.Context, orderID uuid.UUID, proofURL string, actor types.Actor) (*models.Order, error) {
	return s.proofFn(ctx, orderID, proofURL, actor)
}

func (s *stubOrdersService) AssignDriver(ctx context.Context, input internalorders.AssignDriverInput) (*models.Order, error) {
	return s.assignFn(ctx, input)
}

func (s *stubOrdersService) ReturnOrder(ctx context.Context, input internalorders.ReturnInput) (*models.Order, error) {
	return s.returnFn(ctx, input)
}

func (s *stubOrdersService) MarkRefunded(ctx context.Context, input internalorders.RefundInput) (*models.Order, error) {
	return s.refundFn(ctx, input)
}

func (s *stubOrdersService) Get(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Order, error) {
	return s.getFn(ctx, id, actor)
}

func (s *stubOrdersService) List(ctx context.Context, actor types.Actor, params internalorders.ListParams) (*internalorders.OrderList, error) {
	return s.listFn(ctx, actor, params)
}

func (s *stubOrdersService) AutoCompleteDelivered(ctx context.Context) (*internalorders.AutoCompleteResult, error) {
	return &internalorders.AutoCompleteResult{}, nil
}

func sampleOrder(status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		OrderNumber:     3,
		OrderDate:       time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		Status:          status,
		OrderType:       enums.OrderTypeDelivery,
		CustomerID:      uuid.New(),
		Subtotal:        decimal.RequireFromString("200.00"),
		DeliveryFee:     decimal.RequireFromString("50.00"),
		Total:           decimal.RequireFromString("250.00"),
		RefundStatus:    enums.RefundStatusNone,
		StatusChangedAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}
}

func serve(t *testing.T, actor *types.Actor, method, pattern, target, body string, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.MethodFunc(method, pattern, handler)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload.Error.Code
}

func TestCreateOrderMapsBody(t *testing.T) {
	customer := types.Actor{ID: uuid.New(), Role: enums.ActorRoleCustomer}
	productID := uuid.New()
	var captured internalorders.CreateOrderInput
	svc := &stubOrdersService{
		createFn: func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
			captured = input
			return sampleOrder(enums.OrderStatusPending), nil
		},
	}

	body := `{"orderType":"delivery","deliveryFee":"50.00","distanceKm":3.5,"notes":"  ring twice ","items":[{"productId":"` + productID.String() + `","productName":"Adobo","quantity":2,"unitPrice":"100.00"}]}`
	resp := serve(t, &customer, http.MethodPost, "/orders", "/orders", body, CreateOrder(svc, nil))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Actor != customer {
		t.Fatalf("expected actor %+v got %+v", customer, captured.Actor)
	}
	if captured.OrderType != enums.OrderTypeDelivery || !captured.DeliveryFee.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("unexpected order input %+v", captured)
	}
	if captured.Notes == nil || *captured.Notes != "ring twice" {
		t.Fatalf("expected sanitized notes, got %v", captured.Notes)
	}
	if len(captured.Items) != 1 || captured.Items[0].ProductID != productID || captured.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", captured.Items)
	}

	var payload struct {
		Data struct {
			OrderNumber  int      `json:"orderNumber"`
			OrderDate    string   `json:"orderDate"`
			Total        string   `json:"total"`
			NextStatuses []string `json:"nextStatuses"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data.OrderNumber != 3 || payload.Data.OrderDate != "2026-10-17" || payload.Data.Total != "250" {
		t.Fatalf("unexpected payload %+v", payload.Data)
	}
	if len(payload.Data.NextStatuses) == 0 || payload.Data.NextStatuses[0] != string(enums.OrderStatusForVerification) {
		t.Fatalf("unexpected next statuses %v", payload.Data.NextStatuses)
	}
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	customer := types.Actor{ID: uuid.New(), Role: enums.ActorRoleCustomer}
	svc := &stubOrdersService{
		createFn: func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	resp := serve(t, &customer, http.MethodPost, "/orders", "/orders", `{"orderType":"pickup","items":[]}`, CreateOrder(svc, nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestHandlersRequireActor(t *testing.T) {
	svc := &stubOrdersService{}
	resp := serve(t, nil, http.MethodGet, "/orders", "/orders", "", List(svc, nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestDetailPassesServiceErrors(t *testing.T) {
	driver := types.Actor{ID: uuid.New(), Role: enums.ActorRoleDriver}
	orderID := uuid.New()
	svc := &stubOrdersService{
		getFn: func(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Order, error) {
			if id != orderID || actor != driver {
				t.Fatalf("unexpected get %s %+v", id, actor)
			}
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		},
	}
	resp := serve(t, &driver, http.MethodGet, "/orders/{orderId}", "/orders/"+orderID.String(), "", Detail(svc, nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != string(pkgerrors.CodeNotFound) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestCancelOrderAcceptsEmptyBody(t *testing.T) {
	customer := types.Actor{ID: uuid.New(), Role: enums.ActorRoleCustomer}
	orderID := uuid.New()
	svc := &stubOrdersService{
		transitionFn: func(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
			if input.To != enums.OrderStatusCancelled || input.OrderID != orderID || input.Reason != "" {
				t.Fatalf("unexpected transition %+v", input)
			}
			return sampleOrder(enums.OrderStatusCancelled), nil
		},
	}
	resp := serve(t, &customer, http.MethodPost, "/orders/{orderId}/cancel", "/orders/"+orderID.String()+"/cancel", "", CancelOrder(svc, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminTransitionValidatesStatus(t *testing.T) {
	admin := types.Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin}
	orderID := uuid.New()
	var captured internalorders.TransitionInput
	svc := &stubOrdersService{
		transitionFn: func(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
			captured = input
			return sampleOrder(input.To), nil
		},
	}

	bad := serve(t, &admin, http.MethodPost, "/admin/orders/{orderId}/transition", "/admin/orders/"+orderID.String()+"/transition", `{"status":"teleported"}`, AdminTransition(svc, nil))
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", bad.Code)
	}

	ok := serve(t, &admin, http.MethodPost, "/admin/orders/{orderId}/transition", "/admin/orders/"+orderID.String()+"/transition", `{"status":"rejected","reason":"blurry receipt"}`, AdminTransition(svc, nil))
	if ok.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", ok.Code)
	}
	if captured.To != enums.OrderStatusRejected || captured.Reason != "blurry receipt" || captured.Actor != admin {
		t.Fatalf("unexpected transition %+v", captured)
	}
}

func TestInvalidTransitionIsConflict(t *testing.T) {
	driver := types.Actor{ID: uuid.New(), Role: enums.ActorRoleDriver}
	svc := &stubOrdersService{
		transitionFn: func(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
			if input.To != enums.OrderStatusDelivered {
				t.Fatalf("expected delivered target, got %s", input.To)
			}
			return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move order from picked_up to delivered")
		},
	}
	resp := serve(t, &driver, http.MethodPost, "/driver/orders/{orderId}/deliver", "/driver/orders/"+uuid.NewString()+"/deliver", "", DriverDeliver(svc, nil))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != string(pkgerrors.CodeInvalidTransition) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestDriverReturnRequiresKnownReason(t *testing.T) {
	driver := types.Actor{ID: uuid.New(), Role: enums.ActorRoleDriver}
	var captured internalorders.ReturnInput
	svc := &stubOrdersService{
		returnFn: func(ctx context.Context, input internalorders.ReturnInput) (*models.Order, error) {
			captured = input
			return sampleOrder(enums.OrderStatusRejected), nil
		},
	}
	target := "/driver/orders/" + uuid.NewString() + "/return"

	bad := serve(t, &driver, http.MethodPost, "/driver/orders/{orderId}/return", target, `{"reason":"lazy"}`, DriverReturn(svc, nil))
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", bad.Code)
	}

	ok := serve(t, &driver, http.MethodPost, "/driver/orders/{orderId}/return", target, `{"reason":"customer_unavailable","notes":"no answer"}`, DriverReturn(svc, nil))
	if ok.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", ok.Code, ok.Body.String())
	}
	if captured.Reason != enums.ReturnReasonCustomerUnavailable || captured.Notes != "no answer" {
		t.Fatalf("unexpected return input %+v", captured)
	}
}

func TestListParsesFilters(t *testing.T) {
	admin := types.Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin}
	driverID := uuid.New()
	var captured internalorders.ListParams
	svc := &stubOrdersService{
		listFn: func(ctx context.Context, actor types.Actor, params internalorders.ListParams) (*internalorders.OrderList, error) {
			captured = params
			return &internalorders.OrderList{Items: []models.Order{*sampleOrder(enums.OrderStatusInTransit)}, Cursor: "next"}, nil
		},
	}

	resp := serve(t, &admin, http.MethodGet, "/admin/orders", "/admin/orders?status=in_transit&driverId="+driverID.String()+"&limit=10", "", List(svc, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Limit != 10 || captured.Status == nil || *captured.Status != enums.OrderStatusInTransit {
		t.Fatalf("unexpected params %+v", captured)
	}
	if captured.DriverID == nil || *captured.DriverID != driverID {
		t.Fatalf("expected driver filter %s", driverID)
	}

	var payload struct {
		Data struct {
			Items  []map[string]any `json:"items"`
			Cursor string           `json:"cursor"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Data.Items) != 1 || payload.Data.Cursor != "next" {
		t.Fatalf("unexpected list payload %+v", payload.Data)
	}

	bad := serve(t, &admin, http.MethodGet, "/admin/orders", "/admin/orders?status=lost", "", List(svc, nil))
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", bad.Code)
	}
}
