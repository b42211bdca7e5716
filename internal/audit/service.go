package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

// Service exposes the audit trail to admins.
type Service interface {
	List(ctx context.Context, actor types.Actor, params ListParams) (*ListResult, error)
}

// ListParams filters the trail. Empty strings mean no filter.
type ListParams struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Limit         int
	Cursor        string
}

type ListResult struct {
	Items  []models.AuditLog
	Cursor string
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, actor types.Actor, params ListParams) (*ListResult, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "audit log is admin only")
	}

	query := listAuditParams{Limit: params.Limit}
	if params.AggregateType != "" {
		aggregateType, err := enums.ParseOutboxAggregateType(params.AggregateType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid aggregate type")
		}
		query.AggregateType = &aggregateType
	}
	if params.AggregateID != "" {
		id, err := uuid.Parse(params.AggregateID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid aggregate id")
		}
		query.AggregateID = &id
	}
	if params.EventType != "" {
		eventType, err := enums.ParseOutboxEventType(params.EventType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event type")
		}
		query.EventType = &eventType
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit logs")
	}
	return &ListResult{Items: rows, Cursor: pagination.NextCursor(next)}, nil
}
