package redis

import "strings"

// Every key FoodOps writes lives under this namespace so a shared Redis can be
// flushed or inspected per application.
const keyNamespace = "fo"

const (
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	counterPrefix     = "counter"
	lockPrefix        = "lock"
)

// IdempotencyKey returns the key guarding one idempotent operation.
func (c *Client) IdempotencyKey(scope, id string) string {
	return joinKey(idempotencyPrefix, scope, id)
}

// RateLimitKey returns the key holding a fixed-window counter.
func (c *Client) RateLimitKey(scope string) string {
	return joinKey(rateLimitPrefix, scope)
}

// CounterKey returns the key of a named sequence such as the per-day order
// number counter.
func (c *Client) CounterKey(name string) string {
	return joinKey(counterPrefix, name)
}

// LockKey returns the key of a distributed lock.
func (c *Client) LockKey(name string) string {
	return joinKey(lockPrefix, name)
}

// joinKey prefixes the namespace and drops blank segments.
func joinKey(parts ...string) string {
	segments := make([]string, 0, len(parts)+1)
	segments = append(segments, keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, ":")
}
