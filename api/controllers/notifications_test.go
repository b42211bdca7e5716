package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/api/middleware"
	"github.com/angelmondragon/foodops-backend/internal/audit"
	"github.com/angelmondragon/foodops-backend/internal/notifications"
	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

type testNotificationsService struct {
	listFn        func(ctx context.Context, actor types.Actor, params notifications.ListParams) (*notifications.ListResult, error)
	markReadFn    func(ctx context.Context, actor types.Actor, notificationID uuid.UUID) error
	markAllReadFn func(ctx context.Context, actor types.Actor) (int64, error)
}

func (s *testNotificationsService) List(ctx context.Context, actor types.Actor, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, actor, params)
	}
	return &notifications.ListResult{}, nil
}

func (s *testNotificationsService) MarkRead(ctx context.Context, actor types.Actor, notificationID uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, actor, notificationID)
	}
	return nil
}

func (s *testNotificationsService) MarkAllRead(ctx context.Context, actor types.Actor) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx, actor)
	}
	return 0, nil
}

type testAuditService struct {
	listFn func(ctx context.Context, actor types.Actor, params audit.ListParams) (*audit.ListResult, error)
}

func (s *testAuditService) List(ctx context.Context, actor types.Actor, params audit.ListParams) (*audit.ListResult, error) {
	return s.listFn(ctx, actor, params)
}

func serveWithActor(actor *types.Actor, method, pattern, target string, handler http.HandlerFunc) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.MethodFunc(method, pattern, handler)
	req := httptest.NewRequest(method, target, nil)
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestListNotificationsPassesFilters(t *testing.T) {
	driver := types.Actor{ID: uuid.New(), Role: enums.ActorRoleDriver}
	link := "/driver/earnings"
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, actor types.Actor, params notifications.ListParams) (*notifications.ListResult, error) {
			if actor != driver {
				t.Fatalf("unexpected actor %+v", actor)
			}
			if params.Limit != 5 || !params.UnreadOnly || params.Cursor != "abc" {
				t.Fatalf("unexpected params %+v", params)
			}
			return &notifications.ListResult{
				Items: []models.Notification{{
					ID:        uuid.New(),
					Audience:  enums.NotificationAudienceDriver,
					Type:      enums.NotificationTypeEarning,
					Title:     "Earning available",
					Message:   "Your earning is now available for payout.",
					Link:      &link,
					CreatedAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
				}},
				Cursor: "next",
			}, nil
		},
	}

	resp := serveWithActor(&driver, http.MethodGet, "/notifications", "/notifications?limit=5&unreadOnly=true&cursor=abc", ListNotifications(svc, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Data struct {
			Items []struct {
				Title string  `json:"title"`
				Link  *string `json:"link"`
			} `json:"items"`
			Cursor string `json:"cursor"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data.Items) != 1 || body.Data.Items[0].Title != "Earning available" {
		t.Fatalf("unexpected items %+v", body.Data.Items)
	}
	if body.Data.Items[0].Link == nil || *body.Data.Items[0].Link != link {
		t.Fatalf("expected link %q", link)
	}
	if body.Data.Cursor != "next" {
		t.Fatalf("expected cursor next, got %q", body.Data.Cursor)
	}
}

func TestListNotificationsRejectsBadLimit(t *testing.T) {
	driver := types.Actor{ID: uuid.New(), Role: enums.ActorRoleDriver}
	resp := serveWithActor(&driver, http.MethodGet, "/notifications", "/notifications?limit=1000", ListNotifications(&testNotificationsService{}, nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestMarkNotificationReadSuccess(t *testing.T) {
	admin := types.Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin}
	notificationID := uuid.New()
	called := false
	svc := &testNotificationsService{
		markReadFn: func(ctx context.Context, actor types.Actor, nid uuid.UUID) error {
			called = true
			if actor != admin || nid != notificationID {
				t.Fatalf("unexpected call %+v %s", actor, nid)
			}
			return nil
		},
	}

	resp := serveWithActor(&admin, http.MethodPost, "/notifications/{notificationId}/read", "/notifications/"+notificationID.String()+"/read", MarkNotificationRead(svc, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service to be called")
	}
}

func TestMarkNotificationReadNotFound(t *testing.T) {
	customer := types.Actor{ID: uuid.New(), Role: enums.ActorRoleCustomer}
	svc := &testNotificationsService{
		markReadFn: func(ctx context.Context, actor types.Actor, nid uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		},
	}
	resp := serveWithActor(&customer, http.MethodPost, "/notifications/{notificationId}/read", "/notifications/"+uuid.NewString()+"/read", MarkNotificationRead(svc, nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestMarkNotificationReadInvalidID(t *testing.T) {
	customer := types.Actor{ID: uuid.New(), Role: enums.ActorRoleCustomer}
	resp := serveWithActor(&customer, http.MethodPost, "/notifications/{notificationId}/read", "/notifications/nope/read", MarkNotificationRead(&testNotificationsService{}, nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	driver := types.Actor{ID: uuid.New(), Role: enums.ActorRoleDriver}
	svc := &testNotificationsService{
		markAllReadFn: func(ctx context.Context, actor types.Actor) (int64, error) {
			return 4, nil
		},
	}
	resp := serveWithActor(&driver, http.MethodPost, "/notifications/read-all", "/notifications/read-all", MarkAllNotificationsRead(svc, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Data struct {
			Updated int64 `json:"updated"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.Updated != 4 {
		t.Fatalf("expected 4 updated, got %d", body.Data.Updated)
	}
}

func TestNotificationsRequireActor(t *testing.T) {
	resp := serveWithActor(nil, http.MethodPost, "/notifications/read-all", "/notifications/read-all", MarkAllNotificationsRead(&testNotificationsService{}, nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestListAuditLogsForwardsFilters(t *testing.T) {
	admin := types.Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin}
	aggregateID := uuid.New()
	svc := &testAuditService{
		listFn: func(ctx context.Context, actor types.Actor, params audit.ListParams) (*audit.ListResult, error) {
			if params.AggregateType != "order" || params.AggregateID != aggregateID.String() || params.EventType != "order_created" {
				t.Fatalf("unexpected params %+v", params)
			}
			return &audit.ListResult{Items: []models.AuditLog{{
				ID:            uuid.New(),
				EventID:       uuid.New(),
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   aggregateID,
				Payload:       json.RawMessage(`{"orderNumber":1}`),
			}}}, nil
		},
	}

	target := "/admin/audit-logs?aggregateType=order&aggregateId=" + aggregateID.String() + "&eventType=order_created"
	resp := serveWithActor(&admin, http.MethodGet, "/admin/audit-logs", target, ListAuditLogs(svc, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Data struct {
			Items []struct {
				AggregateID string          `json:"aggregateId"`
				Payload     json.RawMessage `json:"payload"`
			} `json:"items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data.Items) != 1 || body.Data.Items[0].AggregateID != aggregateID.String() {
		t.Fatalf("unexpected items %+v", body.Data.Items)
	}
	if string(body.Data.Items[0].Payload) != `{"orderNumber":1}` {
		t.Fatalf("unexpected payload %s", body.Data.Items[0].Payload)
	}
}

func TestListAuditLogsForbidden(t *testing.T) {
	driver := types.Actor{ID: uuid.New(), Role: enums.ActorRoleDriver}
	svc := &testAuditService{
		listFn: func(ctx context.Context, actor types.Actor, params audit.ListParams) (*audit.ListResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "audit log is admin only")
		},
	}
	resp := serveWithActor(&driver, http.MethodGet, "/admin/audit-logs", "/admin/audit-logs", ListAuditLogs(svc, nil))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"postgres": ok, "redis": ok})(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Header().Get("X-FoodOps-Env") != "test" {
		t.Fatalf("missing env header")
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"postgres": ok, "redis": down})(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	resp := httptest.NewRecorder()
	HealthLive(cfg)(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}
