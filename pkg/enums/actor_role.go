package enums

import (
	"fmt"
	"slices"
	"strings"
)

// ActorRole identifies who drives a lifecycle change. Tokens carry it as the
// role claim; the cron worker acts as system.
type ActorRole string

const (
	ActorRoleAdmin    ActorRole = "admin"
	ActorRoleDriver   ActorRole = "driver"
	ActorRoleCustomer ActorRole = "customer"
	ActorRoleSystem   ActorRole = "system"
)

var validActorRoles = []ActorRole{
	ActorRoleAdmin,
	ActorRoleDriver,
	ActorRoleCustomer,
	ActorRoleSystem,
}

func (r ActorRole) String() string {
	return string(r)
}

func (r ActorRole) IsValid() bool {
	return slices.Contains(validActorRoles, r)
}

// ParseActorRole is case-insensitive so role claims minted by other services match.
func ParseActorRole(value string) (ActorRole, error) {
	normalized := ActorRole(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
