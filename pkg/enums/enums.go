// Package enums holds the string enums shared by the API, the database
// schema and the event payloads. Values match the Postgres enum labels.
package enums

import (
	"fmt"
	"slices"
)

func parseEnum[T ~string](kind string, known []T, raw string) (T, error) {
	if v := T(raw); slices.Contains(known, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
