package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

// stubRepo records the last query and answers with canned values.
type stubRepo struct {
	rows    []models.Notification
	next    *pagination.Cursor
	outcome readOutcome
	marked  int64
	err     error

	lastQuery listQuery
	lastInbox Inbox
}

func (s *stubRepo) Insert(context.Context, *gorm.DB, []models.Notification) error { return s.err }

func (s *stubRepo) List(_ context.Context, q listQuery) ([]models.Notification, *pagination.Cursor, error) {
	s.lastQuery = q
	return s.rows, s.next, s.err
}

func (s *stubRepo) MarkRead(_ context.Context, inbox Inbox, _ uuid.UUID, _ time.Time) (readOutcome, error) {
	s.lastInbox = inbox
	return s.outcome, s.err
}

func (s *stubRepo) MarkAllRead(_ context.Context, inbox Inbox, _ time.Time) (int64, error) {
	s.lastInbox = inbox
	return s.marked, s.err
}

func (s *stubRepo) DeleteReadOlderThan(context.Context, *gorm.DB, time.Time) (int64, error) {
	return 0, s.err
}

func newInbox(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc
}

func driver() types.Actor {
	return types.Actor{ID: uuid.New(), Role: enums.ActorRoleDriver}
}

func TestListScopesToActorAndReturnsCursor(t *testing.T) {
	actor := driver()
	nextID := uuid.New()
	repo := &stubRepo{
		rows: []models.Notification{{ID: uuid.New()}},
		next: &pagination.Cursor{CreatedAt: time.Now().UTC(), ID: nextID},
	}

	res, err := newInbox(t, repo).List(context.Background(), actor, ListParams{Limit: 1, UnreadOnly: true})
	require.NoError(t, err)

	assert.Equal(t, Inbox{Audience: enums.NotificationAudienceDriver, RecipientID: actor.ID}, repo.lastQuery.Inbox)
	assert.Equal(t, 1, repo.lastQuery.Limit)
	assert.True(t, repo.lastQuery.UnreadOnly)
	assert.Len(t, res.Items, 1)

	decoded, err := pagination.ParseCursor(res.Cursor)
	require.NoError(t, err)
	assert.Equal(t, nextID, decoded.ID)
}

func TestListPassesCursorThrough(t *testing.T) {
	after := pagination.Cursor{CreatedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), ID: uuid.New()}
	repo := &stubRepo{}

	res, err := newInbox(t, repo).List(context.Background(), driver(), ListParams{Cursor: pagination.EncodeCursor(after)})
	require.NoError(t, err)
	require.NotNil(t, repo.lastQuery.After)
	assert.Equal(t, after.ID, repo.lastQuery.After.ID)
	assert.Empty(t, res.Cursor, "last page has no cursor")
}

func TestListErrors(t *testing.T) {
	cases := []struct {
		name   string
		actor  types.Actor
		params ListParams
		repo   *stubRepo
		code   pkgerrors.Code
	}{
		{"bad cursor", driver(), ListParams{Cursor: "bad"}, &stubRepo{}, pkgerrors.CodeValidation},
		{"system actor", types.SystemActor(), ListParams{}, &stubRepo{}, pkgerrors.CodeForbidden},
		{"store down", driver(), ListParams{}, &stubRepo{err: errors.New("conn reset")}, pkgerrors.CodeDependency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newInbox(t, tc.repo).List(context.Background(), tc.actor, tc.params)
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.As(err).Code())
		})
	}
}

func TestMarkRead(t *testing.T) {
	cases := []struct {
		name    string
		outcome readOutcome
		id      uuid.UUID
		code    pkgerrors.Code
	}{
		{"marked", readMarked, uuid.New(), ""},
		{"already read", readAlready, uuid.New(), ""},
		{"not in inbox", readMissing, uuid.New(), pkgerrors.CodeNotFound},
		{"nil id", readMarked, uuid.Nil, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := newInbox(t, &stubRepo{outcome: tc.outcome}).MarkRead(context.Background(), driver(), tc.id)
			if tc.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.As(err).Code())
		})
	}
}

func TestMarkAllRead(t *testing.T) {
	admin := types.Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin}
	repo := &stubRepo{marked: 3}

	n, err := newInbox(t, repo).MarkAllRead(context.Background(), admin)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, enums.NotificationAudienceAdmin, repo.lastInbox.Audience)

	_, err = newInbox(t, &stubRepo{err: errors.New("boom")}).MarkAllRead(context.Background(), admin)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}
