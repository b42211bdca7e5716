package errors

import "net/http"

// Code is the machine readable error identifier returned in API envelopes.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	// Fulfillment and ledger outcomes.
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeNoFundsAvailable  Code = "NO_FUNDS_AVAILABLE"
	CodeInvalidState      Code = "INVALID_STATE"
)

// Metadata describes how a code surfaces over HTTP.
//
// ExposeMessage lets the caller-facing message replace PublicMessage; it is
// off for codes whose messages may carry internals.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	ExposeMessage  bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:        {http.StatusBadRequest, false, "validation failed", true, true},
	CodeUnauthorized:      {http.StatusUnauthorized, false, "authentication required", false, true},
	CodeForbidden:         {http.StatusForbidden, false, "access denied", false, true},
	CodeNotFound:          {http.StatusNotFound, false, "resource not found", false, true},
	CodeConflict:          {http.StatusConflict, false, "conflict detected", false, true},
	CodeIdempotency:       {http.StatusConflict, false, "idempotency key reused", true, true},
	CodeRateLimit:         {http.StatusTooManyRequests, false, "rate limit exceeded", false, true},
	CodeInternal:          {http.StatusInternalServerError, true, "internal server error", false, false},
	CodeDependency:        {http.StatusServiceUnavailable, true, "dependency unavailable", true, false},
	CodeInvalidTransition: {http.StatusConflict, false, "order status transition not allowed", true, true},
	CodeInsufficientStock: {http.StatusConflict, false, "insufficient stock", true, true},
	CodeNoFundsAvailable:  {http.StatusUnprocessableEntity, false, "no available earnings to pay out", false, true},
	CodeInvalidState:      {http.StatusConflict, false, "resource is not in a valid state for this action", true, true},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}
