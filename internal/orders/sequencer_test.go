package orders

import (
	"context"
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
	pkgredis "github.com/angelmondragon/foodops-backend/pkg/redis"
)

var sequencerDay = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

func seedOrder(t *testing.T, conn *gorm.DB, number int) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, NewRepository(conn).Create(context.Background(), &models.Order{
		OrderNumber:     number,
		OrderDate:       sequencerDay,
		Status:          enums.OrderStatusPending,
		OrderType:       enums.OrderTypePickup,
		CustomerID:      uuid.New(),
		Subtotal:        decimal.NewFromInt(100),
		DeliveryFee:     decimal.Zero,
		Total:           decimal.NewFromInt(100),
		RefundStatus:    enums.RefundStatusNone,
		StatusChangedAt: now,
	}))
}

func TestSequencerFallsBackToDatabase(t *testing.T) {
	conn := testdb.Open(t)
	seq := NewSequencer(nil, NewRepository(conn), nil)

	n, err := seq.Next(context.Background(), conn, sequencerDay)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	seedOrder(t, conn, 7)
	n, err = seq.Next(context.Background(), conn, sequencerDay)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	n, err = seq.Next(context.Background(), conn, sequencerDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSequencerUsesRedisCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := pkgredis.New(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	conn := testdb.Open(t)
	seq := NewSequencer(client, NewRepository(conn), nil)

	for want := 1; want <= 3; want++ {
		n, err := seq.Next(context.Background(), conn, sequencerDay)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.True(t, mr.Exists("fo:counter:orders:20261017"))
	assert.Greater(t, mr.TTL("fo:counter:orders:20261017"), time.Duration(0))
}

func TestSequencerReseedsEvictedCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := pkgredis.New(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	conn := testdb.Open(t)
	seedOrder(t, conn, 4)
	seq := NewSequencer(client, NewRepository(conn), nil)

	n, err := seq.Next(context.Background(), conn, sequencerDay)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = seq.Next(context.Background(), conn, sequencerDay)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestSequencerSurvivesRedisOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := pkgredis.New(context.Background(), config.RedisConfig{
		URL:         "redis://" + mr.Addr(),
		DialTimeout: 200 * time.Millisecond,
		ReadTimeout: 200 * time.Millisecond,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	conn := testdb.Open(t)
	seedOrder(t, conn, 2)
	seq := NewSequencer(client, NewRepository(conn), nil)
	mr.Close()

	n, err := seq.Next(context.Background(), conn, sequencerDay)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
