package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/db/testdb"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
)

func seedNotification(t *testing.T, repo Repository, audience enums.NotificationAudience, recipient *uuid.UUID, createdAt time.Time) models.Notification {
	t.Helper()
	n := models.Notification{
		Audience:    audience,
		RecipientID: recipient,
		Type:        enums.NotificationTypeOrderUpdate,
		Title:       "title",
		Message:     "message",
		CreatedAt:   createdAt,
	}
	rows := []models.Notification{n}
	require.NoError(t, repo.Insert(context.Background(), nil, rows))
	return rows[0]
}

func TestRepositoryScopesInboxes(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testdb.Open(t))
	base := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	admin := uuid.New()
	otherAdmin := uuid.New()
	driver := uuid.New()

	broadcast := seedNotification(t, repo, enums.NotificationAudienceAdmin, nil, base)
	direct := seedNotification(t, repo, enums.NotificationAudienceAdmin, &admin, base.Add(time.Minute))
	seedNotification(t, repo, enums.NotificationAudienceAdmin, &otherAdmin, base.Add(2*time.Minute))
	driverRow := seedNotification(t, repo, enums.NotificationAudienceDriver, &driver, base.Add(3*time.Minute))
	// same id in a different audience stays invisible to the driver
	seedNotification(t, repo, enums.NotificationAudienceCustomer, &driver, base.Add(4*time.Minute))

	adminRows, next, err := repo.List(ctx, listQuery{Inbox: Inbox{Audience: enums.NotificationAudienceAdmin, RecipientID: admin}})
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, adminRows, 2)
	assert.Equal(t, direct.ID, adminRows[0].ID)
	assert.Equal(t, broadcast.ID, adminRows[1].ID)

	driverInbox := Inbox{Audience: enums.NotificationAudienceDriver, RecipientID: driver}
	driverRows, _, err := repo.List(ctx, listQuery{Inbox: driverInbox})
	require.NoError(t, err)
	require.Len(t, driverRows, 1)
	assert.Equal(t, driverRow.ID, driverRows[0].ID)

	outcome, err := repo.MarkRead(ctx, driverInbox, direct.ID, base)
	require.NoError(t, err)
	assert.Equal(t, readMissing, outcome)
}

func TestRepositoryPaginatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testdb.Open(t))
	driver := uuid.New()
	inbox := Inbox{Audience: enums.NotificationAudienceDriver, RecipientID: driver}
	base := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		n := seedNotification(t, repo, enums.NotificationAudienceDriver, &driver, base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, n.ID)
	}

	page, next, err := repo.List(ctx, listQuery{Inbox: inbox, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	rest, next, err := repo.List(ctx, listQuery{Inbox: inbox, Limit: 2, After: next})
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[0], rest[0].ID)
}

func TestRepositoryMarkReadAndCleanup(t *testing.T) {
	ctx := context.Background()
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	customer := uuid.New()
	inbox := Inbox{Audience: enums.NotificationAudienceCustomer, RecipientID: customer}
	old := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	first := seedNotification(t, repo, enums.NotificationAudienceCustomer, &customer, old)
	seedNotification(t, repo, enums.NotificationAudienceCustomer, &customer, old.Add(time.Minute))
	seedNotification(t, repo, enums.NotificationAudienceCustomer, &customer, now)

	outcome, err := repo.MarkRead(ctx, inbox, first.ID, now)
	require.NoError(t, err)
	assert.Equal(t, readMarked, outcome)

	outcome, err = repo.MarkRead(ctx, inbox, first.ID, now)
	require.NoError(t, err)
	assert.Equal(t, readAlready, outcome)

	unread, _, err := repo.List(ctx, listQuery{Inbox: inbox, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	// only the read row is old enough and read
	deleted, err := repo.DeleteReadOlderThan(ctx, nil, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	updated, err := repo.MarkAllRead(ctx, inbox, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	unread, _, err = repo.List(ctx, listQuery{Inbox: inbox, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)
}
