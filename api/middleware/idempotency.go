package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/foodops-backend/api/responses"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/foodops-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	maxIdempotencyKey = 255

	standardReplayTTL = 24 * time.Hour
	// money moves or an order comes into existence
	criticalReplayTTL = 7 * 24 * time.Hour

	// how long an unanswered reservation blocks retries
	inFlightTTL = 2 * time.Minute
)

type idempotentRoute struct {
	method   string
	template string // "{}" matches exactly one path segment
	ttl      time.Duration
}

var idempotentRoutes = []idempotentRoute{
	{http.MethodPost, "/api/v1/orders", criticalReplayTTL},
	{http.MethodPost, "/api/v1/orders/{}/cancel", criticalReplayTTL},
	{http.MethodPost, "/api/v1/orders/{}/payment-proof", standardReplayTTL},
	{http.MethodPost, "/api/v1/notifications/read-all", standardReplayTTL},
	{http.MethodPost, "/api/v1/notifications/{}/read", standardReplayTTL},
	{http.MethodPost, "/api/v1/admin/orders/{}/transition", standardReplayTTL},
	{http.MethodPost, "/api/v1/admin/orders/{}/assign-driver", standardReplayTTL},
	{http.MethodPost, "/api/v1/admin/orders/{}/refund", criticalReplayTTL},
	{http.MethodPost, "/api/v1/admin/stocks", standardReplayTTL},
	{http.MethodPost, "/api/v1/admin/stocks/{}/adjust", standardReplayTTL},
	{http.MethodPost, "/api/v1/admin/payouts/{}/resolve", criticalReplayTTL},
	{http.MethodPost, "/api/v1/admin/outbox/dead-letters/{}/replay", standardReplayTTL},
	{http.MethodPost, "/api/v1/driver/orders/{}/{}", standardReplayTTL},
	{http.MethodPost, "/api/v1/driver/payment-methods", standardReplayTTL},
	{http.MethodPost, "/api/v1/driver/payment-methods/{}/default", standardReplayTTL},
	{http.MethodPost, "/api/v1/driver/payouts", criticalReplayTTL},
}

// replayTTL reports how long the response for method+urlPath is kept, and
// whether the route takes an Idempotency-Key at all.
func replayTTL(method, urlPath string) (time.Duration, bool) {
	segments := splitPath(urlPath)
	for _, route := range idempotentRoutes {
		if route.method == method && matchSegments(splitPath(route.template), segments) {
			return route.ttl, true
		}
	}
	return 0, false
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(path.Clean("/"+p), "/"), "/")
}

func matchSegments(template, actual []string) bool {
	if len(template) != len(actual) {
		return false
	}
	for i, seg := range template {
		if seg != "{}" && seg != actual[i] {
			return false
		}
	}
	return true
}

// storedResponse is the redis value under an idempotency key. A record with
// InFlight set is a reservation held while the first request runs.
type storedResponse struct {
	InFlight    bool   `json:"in_flight,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the first response for a repeated Idempotency-Key on the
// mutating routes listed above. Keys are scoped per caller, method and path.
// A second request arriving while the first is still running gets 409, and
// 5xx answers are not kept so the client may retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := replayTTL(r.Method, r.URL.Path)
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			switch {
			case clientKey == "":
				fail(pkgerrors.New(pkgerrors.CodeValidation, idempotencyHeader+" header required"))
				return
			case len(clientKey) > maxIdempotencyKey:
				fail(pkgerrors.Newf(pkgerrors.CodeValidation, "%s longer than %d characters", idempotencyHeader, maxIdempotencyKey))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			fingerprint := hex.EncodeToString(sum[:])
			key := store.IdempotencyKey(callerID(ctx)+"|"+r.Method+"|"+path.Clean(r.URL.Path), clientKey)

			raw, err := store.Get(ctx, key)
			if err != nil && !errors.Is(err, redis.Nil) {
				fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup failed"))
				return
			}
			if raw != "" {
				var prior storedResponse
				if err := json.Unmarshal([]byte(raw), &prior); err != nil {
					fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "corrupt idempotency record"))
					return
				}
				switch {
				case prior.Fingerprint != fingerprint:
					fail(pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request body"))
				case prior.InFlight:
					fail(pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
				default:
					replay(w, prior)
				}
				return
			}

			reservation, _ := json.Marshal(storedResponse{InFlight: true, Fingerprint: fingerprint})
			reserved, err := store.SetNX(ctx, key, string(reservation), inFlightTTL)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency reservation failed"))
				return
			}
			if !reserved {
				fail(pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
				return
			}

			capture := &capturingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)

			// the handler's context may be cancelled by now; the bookkeeping still has to land
			bookkeeping := context.WithoutCancel(ctx)
			if capture.status >= http.StatusInternalServerError {
				if err := store.Del(bookkeeping, key); err != nil && logg != nil {
					logg.Error(bookkeeping, "release idempotency reservation", err)
				}
				return
			}
			final, _ := json.Marshal(storedResponse{
				Fingerprint: fingerprint,
				Status:      capture.status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(bookkeeping, key, string(final), ttl); err != nil && logg != nil {
				logg.Error(bookkeeping, "persist idempotent response", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, prior storedResponse) {
	if prior.ContentType != "" {
		w.Header().Set("Content-Type", prior.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(prior.Status)
	_, _ = w.Write(prior.Body)
}

type capturingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (c *capturingWriter) WriteHeader(status int) {
	if !c.wroteHeader {
		c.status, c.wroteHeader = status, true
	}
	c.ResponseWriter.WriteHeader(status)
}

func (c *capturingWriter) Write(b []byte) (int, error) {
	c.wroteHeader = true
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
