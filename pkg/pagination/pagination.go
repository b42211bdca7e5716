// Package pagination implements keyset paging over (created_at, id) ordered
// listings. Cursors are opaque to clients.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

const cursorSep = "~"

var errMalformedCursor = errors.New("malformed cursor")

// Params is what list endpoints accept from clients.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row a client has seen; the next page starts
// strictly after it in descending order.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer over-fetches by one row so Page can tell whether another
// page exists.
func LimitWithBuffer(limit int) int { return NormalizeLimit(limit) + 1 }

func EncodeCursor(c Cursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + cursorSep + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor returns nil for a blank value so callers can pass query
// parameters straight through.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedCursor, err)
	}
	at, id, ok := strings.Cut(string(raw), cursorSep)
	if !ok {
		return nil, errMalformedCursor
	}

	createdAt, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %w", errMalformedCursor, err)
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %w", errMalformedCursor, err)
	}
	return &Cursor{CreatedAt: createdAt, ID: parsedID}, nil
}

// Page cuts rows fetched with LimitWithBuffer back to the page size and, when
// the extra row was present, returns the cursor of the last row kept.
func Page[T any](rows []T, limit int, key func(T) Cursor) ([]T, *Cursor) {
	size := NormalizeLimit(limit)
	if len(rows) <= size {
		return rows, nil
	}
	kept := rows[:size]
	next := key(kept[size-1])
	return kept, &next
}

func NextCursor(c *Cursor) string {
	if c == nil {
		return ""
	}
	return EncodeCursor(*c)
}
