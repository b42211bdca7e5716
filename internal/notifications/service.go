package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

// Service is the caller's own inbox. Every operation is scoped to the actor.
type Service interface {
	List(ctx context.Context, actor types.Actor, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, actor types.Actor, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, actor types.Actor) (int64, error)
}

type ListParams struct {
	Limit      int
	Cursor     string
	UnreadOnly bool
}

type ListResult struct {
	Items  []models.Notification
	Cursor string
}

type inboxService struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &inboxService{repo: repo, now: time.Now}, nil
}

// inboxOf maps the actor's role to an audience. The system actor has none.
func inboxOf(actor types.Actor) (Inbox, error) {
	if err := actor.Validate(); err != nil {
		return Inbox{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor")
	}
	audience, ok := enums.AudienceForRole(actor.Role)
	if !ok {
		return Inbox{}, pkgerrors.New(pkgerrors.CodeForbidden, "role has no notification inbox")
	}
	return Inbox{Audience: audience, RecipientID: actor.ID}, nil
}

func (s *inboxService) List(ctx context.Context, actor types.Actor, params ListParams) (*ListResult, error) {
	inbox, err := inboxOf(actor)
	if err != nil {
		return nil, err
	}
	q := listQuery{Inbox: inbox, Limit: params.Limit, UnreadOnly: params.UnreadOnly}
	if params.Cursor != "" {
		if q.After, err = pagination.ParseCursor(params.Cursor); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
	}

	rows, next, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return &ListResult{Items: rows, Cursor: pagination.NextCursor(next)}, nil
}

// MarkRead succeeds for rows that were already read.
func (s *inboxService) MarkRead(ctx context.Context, actor types.Actor, notificationID uuid.UUID) error {
	inbox, err := inboxOf(actor)
	if err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	outcome, err := s.repo.MarkRead(ctx, inbox, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if outcome == readMissing {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *inboxService) MarkAllRead(ctx context.Context, actor types.Actor) (int64, error) {
	inbox, err := inboxOf(actor)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.MarkAllRead(ctx, inbox, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return n, nil
}
