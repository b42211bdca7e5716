package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/api/middleware"
	"github.com/angelmondragon/foodops-backend/api/responses"
	"github.com/angelmondragon/foodops-backend/api/validators"
	"github.com/angelmondragon/foodops-backend/internal/audit"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
)

type auditLogDTO struct {
	ID            uuid.UUID                 `json:"id"`
	EventID       uuid.UUID                 `json:"eventId"`
	EventType     enums.OutboxEventType     `json:"eventType"`
	AggregateType enums.OutboxAggregateType `json:"aggregateType"`
	AggregateID   uuid.UUID                 `json:"aggregateId"`
	ActorID       *uuid.UUID                `json:"actorId,omitempty"`
	ActorRole     *string                   `json:"actorRole,omitempty"`
	Payload       json.RawMessage           `json:"payload"`
	OccurredAt    time.Time                 `json:"occurredAt"`
}

type auditLogListDTO struct {
	Items  []auditLogDTO `json:"items"`
	Cursor string        `json:"cursor"`
}

// ListAuditLogs pages through the event trail. Filters: aggregateType,
// aggregateId, eventType.
func ListAuditLogs(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), actor, audit.ListParams{
			AggregateType: validators.ParseQueryString(r, "aggregateType", 32),
			AggregateID:   validators.ParseQueryString(r, "aggregateId", 64),
			EventType:     validators.ParseQueryString(r, "eventType", 64),
			Limit:         limit,
			Cursor:        validators.ParseQueryString(r, "cursor", 512),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := auditLogListDTO{Items: make([]auditLogDTO, 0, len(resp.Items)), Cursor: resp.Cursor}
		for _, row := range resp.Items {
			out.Items = append(out.Items, auditLogDTO{
				ID:            row.ID,
				EventID:       row.EventID,
				EventType:     row.EventType,
				AggregateType: row.AggregateType,
				AggregateID:   row.AggregateID,
				ActorID:       row.ActorID,
				ActorRole:     row.ActorRole,
				Payload:       row.Payload,
				OccurredAt:    row.OccurredAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
