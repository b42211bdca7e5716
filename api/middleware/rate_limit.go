package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/foodops-backend/api/responses"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// RateLimitPolicy is a fixed window budget for one traffic surface. A zero
// window or limit disables it.
type RateLimitPolicy struct {
	name   string
	window time.Duration
	limit  int
}

func NewRateLimitPolicy(name string, window time.Duration, limit int) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "api"
	}
	return RateLimitPolicy{name: name, window: window, limit: limit}
}

// RateLimit charges each request to the authenticated user, falling back to
// the client address, and answers 429 once the window's budget is spent.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	if policy.window <= 0 || policy.limit <= 0 || store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	limit := strconv.Itoa(policy.limit)
	retryAfter := strconv.Itoa(int((policy.window + time.Second - 1) / time.Second))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			scope, subject := "user", callerID(ctx)
			if subject == "" {
				scope, subject = "ip", clientIP(r)
			}
			if subject == "" {
				next.ServeHTTP(w, r)
				return
			}

			used, err := store.IncrWithTTL(ctx, store.RateLimitKey(policy.name+":"+scope+":"+subject), policy.window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
				return
			}

			remaining := int64(policy.limit) - used
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(remaining, 0), 10))
			if remaining >= 0 {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", retryAfter)
			if logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{
					"policy":   policy.name,
					"scope":    scope,
					"attempts": used,
					"limit":    policy.limit,
				}), "rate_limit.blocked")
			}
			responses.WriteError(ctx, nil, w, pkgerrors.Newf(pkgerrors.CodeRateLimit, "at most %d requests per %s", policy.limit, policy.window))
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, as set by the load
// balancer in front of the API.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
