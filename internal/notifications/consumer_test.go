package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/db/testdb"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/foodops-backend/pkg/outbox/payloads"
	pkgredis "github.com/angelmondragon/foodops-backend/pkg/redis"
)

type consumerFixture struct {
	conn     *gorm.DB
	consumer *Consumer
	redis    *miniredis.Miniredis
	subs     *stubSubscriber
}

type stubSubscriber struct {
	deliveries []outbox.Delivery
	errs       []error
}

func (s *stubSubscriber) Receive(ctx context.Context, handler outbox.Handler) error {
	for _, d := range s.deliveries {
		s.errs = append(s.errs, handler(ctx, d))
	}
	return nil
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := pkgredis.New(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	manager, err := idempotency.NewManager(client, time.Hour)
	require.NoError(t, err)

	dbClient := testdb.Client(t)
	subs := &stubSubscriber{}
	consumer, err := NewConsumer(ConsumerParams{
		Repo:         NewRepository(dbClient.DB()),
		Tx:           dbClient,
		Subscription: subs,
		Idempotency:  manager,
		Logger:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return &consumerFixture{conn: dbClient.DB(), consumer: consumer, redis: mr, subs: subs}
}

func (f *consumerFixture) rows(t *testing.T) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, f.conn.Order("audience ASC").Find(&rows).Error)
	return rows
}

func delivery(t *testing.T, eventID uuid.UUID, event payloads.LifecycleEvent) outbox.Delivery {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.CurrentVersion,
		EventID:    eventID.String(),
		OccurredAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		Data:       data,
	})
	require.NoError(t, err)
	return outbox.Delivery{
		ID:   uuid.NewString(),
		Data: raw,
		Attributes: map[string]string{
			outbox.AttrEventID:   eventID.String(),
			outbox.AttrEventType: string(event.EventType),
		},
	}
}

func TestConsumerWritesNotificationsOnce(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	orderID := uuid.New()
	driverID := uuid.New()
	customerID := uuid.New()
	eventID := uuid.New()

	msg := delivery(t, eventID, payloads.LifecycleEvent{
		EventType:   enums.EventOrderDriverAssigned,
		OrderID:     &orderID,
		OrderNumber: 12,
		CustomerID:  &customerID,
		DriverID:    &driverID,
	})

	require.NoError(t, f.consumer.Handle(ctx, msg))
	require.NoError(t, f.consumer.Handle(ctx, msg))

	rows := f.rows(t)
	require.Len(t, rows, 2)
	assert.Equal(t, enums.NotificationAudienceCustomer, rows[0].Audience)
	assert.Equal(t, customerID, *rows[0].RecipientID)
	assert.Equal(t, enums.NotificationAudienceDriver, rows[1].Audience)
	assert.Equal(t, driverID, *rows[1].RecipientID)
	assert.Equal(t, enums.NotificationTypeAssignment, rows[1].Type)
	assert.Contains(t, rows[1].Message, "#12")

	assert.True(t, f.redis.Exists("fo:idempotency:evt:processed:notifications:"+eventID.String()))
}

func TestConsumerAcksMalformedDeliveries(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()

	unknown := outbox.Delivery{ID: "1", Data: []byte(`{}`), Attributes: map[string]string{outbox.AttrEventType: "license_status_changed"}}
	require.NoError(t, f.consumer.Handle(ctx, unknown))

	garbage := outbox.Delivery{ID: "2", Data: []byte(`not json`), Attributes: map[string]string{outbox.AttrEventType: string(enums.EventOrderCreated)}}
	require.NoError(t, f.consumer.Handle(ctx, garbage))

	assert.Empty(t, f.rows(t))
}

func TestConsumerSkipsSilentEvents(t *testing.T) {
	f := newConsumerFixture(t)
	eventID := uuid.New()
	stockID := uuid.New()

	msg := delivery(t, eventID, payloads.LifecycleEvent{
		EventType:      enums.EventStockAdjusted,
		StockID:        &stockID,
		QuantityChange: payloads.IntPtr(-2),
	})
	require.NoError(t, f.consumer.Handle(context.Background(), msg))

	assert.Empty(t, f.rows(t))
	assert.False(t, f.redis.Exists("fo:idempotency:evt:processed:notifications:"+eventID.String()))
}

func TestConsumerReleasesKeyWhenStorageFails(t *testing.T) {
	f := newConsumerFixture(t)
	require.NoError(t, f.conn.Exec("DROP TABLE notifications").Error)
	eventID := uuid.New()
	orderID := uuid.New()

	msg := delivery(t, eventID, payloads.LifecycleEvent{
		EventType: enums.EventOrderCreated,
		OrderID:   &orderID,
		OrderType: enums.OrderTypeDelivery,
		Amount:    payloads.AmountPtr(decimal.RequireFromString("250.00")),
	})
	require.Error(t, f.consumer.Handle(context.Background(), msg))
	assert.False(t, f.redis.Exists("fo:idempotency:evt:processed:notifications:"+eventID.String()))
}

func TestConsumerRunDrainsSubscription(t *testing.T) {
	f := newConsumerFixture(t)
	driverID := uuid.New()
	f.subs.deliveries = []outbox.Delivery{
		delivery(t, uuid.New(), payloads.LifecycleEvent{
			EventType: enums.EventEarningAvailable,
			DriverID:  &driverID,
			Amount:    payloads.AmountPtr(decimal.RequireFromString("45.00")),
		}),
		delivery(t, uuid.New(), payloads.LifecycleEvent{
			EventType: enums.EventPayoutCompleted,
			DriverID:  &driverID,
			Amount:    payloads.AmountPtr(decimal.RequireFromString("45.00")),
		}),
	}

	require.NoError(t, f.consumer.Run(context.Background()))
	for _, err := range f.subs.errs {
		assert.NoError(t, err)
	}

	rows := f.rows(t)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, enums.NotificationAudienceDriver, row.Audience)
		assert.Contains(t, row.Message, "45.00")
	}
}
