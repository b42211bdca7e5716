package types

import (
	"errors"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
)

// Actor identifies who requested a state change. The system actor (cron) has
// no user id.
type Actor struct {
	ID   uuid.UUID
	Role enums.ActorRole
}

// SystemActor is used by scheduled jobs.
func SystemActor() Actor {
	return Actor{Role: enums.ActorRoleSystem}
}

func (a Actor) IsAdmin() bool    { return a.Role == enums.ActorRoleAdmin }
func (a Actor) IsDriver() bool   { return a.Role == enums.ActorRoleDriver }
func (a Actor) IsCustomer() bool { return a.Role == enums.ActorRoleCustomer }
func (a Actor) IsSystem() bool   { return a.Role == enums.ActorRoleSystem }

// Validate rejects unknown roles and human actors without an id.
func (a Actor) Validate() error {
	if !a.Role.IsValid() {
		return errors.New("actor role is invalid")
	}
	if a.Role != enums.ActorRoleSystem && a.ID == uuid.Nil {
		return errors.New("actor id is required")
	}
	return nil
}

// IDPtr returns nil for the system actor.
func (a Actor) IDPtr() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

// OutboxRef converts the actor into the envelope representation.
func (a Actor) OutboxRef() *outbox.ActorRef {
	return &outbox.ActorRef{UserID: a.ID, Role: string(a.Role)}
}
