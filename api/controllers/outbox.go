package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/api/responses"
	"github.com/angelmondragon/foodops-backend/api/validators"
	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
)

// DeadLetterService is satisfied by *outbox.DeadLetters.
type DeadLetterService interface {
	List(ctx context.Context, limit int, before *time.Time) ([]models.OutboxDLQ, error)
	Replay(ctx context.Context, id uuid.UUID) (*models.OutboxEvent, error)
}

type deadLetterDTO struct {
	ID            uuid.UUID                  `json:"id"`
	EventID       uuid.UUID                  `json:"eventId"`
	EventType     enums.OutboxEventType      `json:"eventType"`
	AggregateType enums.OutboxAggregateType  `json:"aggregateType"`
	AggregateID   uuid.UUID                  `json:"aggregateId"`
	Payload       json.RawMessage            `json:"payload"`
	ErrorReason   enums.OutboxDLQErrorReason `json:"errorReason"`
	ErrorMessage  *string                    `json:"errorMessage,omitempty"`
	AttemptCount  int                        `json:"attemptCount"`
	FailedAt      time.Time                  `json:"failedAt"`
}

type queuedEventDTO struct {
	ID            uuid.UUID                 `json:"id"`
	EventType     enums.OutboxEventType     `json:"eventType"`
	AggregateType enums.OutboxAggregateType `json:"aggregateType"`
	AggregateID   uuid.UUID                 `json:"aggregateId"`
}

// ListDeadLetters returns dead letters newest first. Page with ?before=<failedAt
// of the last row>.
func ListDeadLetters(svc DeadLetterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var before *time.Time
		if raw := strings.TrimSpace(r.URL.Query().Get("before")); raw != "" {
			t, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "before must be an RFC3339 timestamp"))
				return
			}
			before = &t
		}

		rows, err := svc.List(r.Context(), limit, before)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]deadLetterDTO, 0, len(rows))
		for _, row := range rows {
			out = append(out, deadLetterDTO{
				ID:            row.ID,
				EventID:       row.EventID,
				EventType:     row.EventType,
				AggregateType: row.AggregateType,
				AggregateID:   row.AggregateID,
				Payload:       row.Payload,
				ErrorReason:   row.ErrorReason,
				ErrorMessage:  row.ErrorMessage,
				AttemptCount:  row.AttemptCount,
				FailedAt:      row.FailedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

func ReplayDeadLetter(svc DeadLetterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "deadLetterId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		queued, err := svc.Replay(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, queuedEventDTO{
			ID:            queued.ID,
			EventType:     queued.EventType,
			AggregateType: queued.AggregateType,
			AggregateID:   queued.AggregateID,
		})
	}
}
