package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/db/testdb"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := testdb.Open(t)
	svc, err := NewService(NewRepository(conn), outbox.NewService(outbox.NewRepository(conn), nil))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func inTx(t *testing.T, conn *gorm.DB, fn func(tx *gorm.DB) error) {
	t.Helper()
	if err := conn.Transaction(fn); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func fee(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestPendingEarningBecomesAvailableOnce(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	driverID := uuid.New()
	orderID := uuid.New()

	inTx(t, conn, func(tx *gorm.DB) error {
		_, err := svc.CreatePendingTx(ctx, tx, CreateEarningInput{DriverID: driverID, OrderID: orderID, DeliveryFee: fee("75.00")})
		return err
	})

	var released *models.DriverEarning
	inTx(t, conn, func(tx *gorm.DB) error {
		var err error
		released, err = svc.MarkAvailableTx(ctx, tx, orderID, types.SystemActor())
		return err
	})
	if released == nil || released.Status != enums.EarningStatusAvailable || released.AvailableAt == nil {
		t.Fatalf("expected available earning, got %+v", released)
	}

	inTx(t, conn, func(tx *gorm.DB) error {
		_, err := svc.MarkAvailableTx(ctx, tx, orderID, types.SystemActor())
		return err
	})

	var events int64
	conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventEarningAvailable).Count(&events)
	if events != 1 {
		t.Fatalf("expected a single earning_available event, got %d", events)
	}

	got, err := svc.GetByOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("get by order: %v", err)
	}
	if !got.DeliveryFee.Equal(fee("75.00")) {
		t.Fatalf("delivery fee snapshot changed: %s", got.DeliveryFee)
	}
}

func TestMarkAvailableWithoutEarningIsNoop(t *testing.T) {
	svc, conn := newTestService(t)
	inTx(t, conn, func(tx *gorm.DB) error {
		earning, err := svc.MarkAvailableTx(context.Background(), tx, uuid.New(), types.SystemActor())
		if earning != nil {
			t.Fatalf("expected no earning, got %+v", earning)
		}
		return err
	})
}

func TestSecondEarningForOrderConflicts(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	input := CreateEarningInput{DriverID: uuid.New(), OrderID: uuid.New(), DeliveryFee: fee("40.00")}

	inTx(t, conn, func(tx *gorm.DB) error {
		_, err := svc.CreateAvailableTx(ctx, tx, input)
		return err
	})
	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.CreateAvailableTx(ctx, tx, input)
		return err
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRequestPaidAndReleaseFollowPayoutBinding(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	driverID := uuid.New()

	for _, amount := range []string{"75.00", "50.00"} {
		amount := amount
		inTx(t, conn, func(tx *gorm.DB) error {
			_, err := svc.CreateAvailableTx(ctx, tx, CreateEarningInput{DriverID: driverID, OrderID: uuid.New(), DeliveryFee: fee(amount)})
			return err
		})
	}

	payoutID := uuid.New()
	inTx(t, conn, func(tx *gorm.DB) error {
		locked, err := svc.LockAvailableTx(ctx, tx, driverID)
		if err != nil {
			return err
		}
		if len(locked) != 2 {
			t.Fatalf("expected 2 locked earnings, got %d", len(locked))
		}
		return svc.MarkRequestedTx(ctx, tx, payoutID, locked)
	})

	summary, err := svc.Summary(ctx, driverID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Requested.Count != 2 || !summary.Requested.Amount.Equal(fee("125.00")) {
		t.Fatalf("unexpected requested bucket %+v", summary.Requested)
	}
	if !summary.Available.Amount.IsZero() {
		t.Fatalf("expected nothing available, got %s", summary.Available.Amount)
	}

	inTx(t, conn, func(tx *gorm.DB) error {
		released, err := svc.ReleaseTx(ctx, tx, payoutID)
		if released != 2 {
			t.Fatalf("expected 2 released, got %d", released)
		}
		return err
	})
	rows, err := svc.ListByPayout(ctx, payoutID)
	if err != nil {
		t.Fatalf("list by payout: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("released earnings must drop the payout binding, got %d", len(rows))
	}

	summary, err = svc.Summary(ctx, driverID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !summary.Available.Amount.Equal(fee("125.00")) || !summary.Lifetime.Equal(fee("125.00")) {
		t.Fatalf("unexpected summary after release %+v", summary)
	}
}

func TestMarkRequestedDetectsStaleSelection(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	driverID := uuid.New()

	var earning *models.DriverEarning
	inTx(t, conn, func(tx *gorm.DB) error {
		var err error
		earning, err = svc.CreateAvailableTx(ctx, tx, CreateEarningInput{DriverID: driverID, OrderID: uuid.New(), DeliveryFee: fee("20.00")})
		return err
	})
	inTx(t, conn, func(tx *gorm.DB) error {
		return svc.MarkRequestedTx(ctx, tx, uuid.New(), []models.DriverEarning{*earning})
	})

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.MarkRequestedTx(ctx, tx, uuid.New(), []models.DriverEarning{*earning})
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for an already requested earning, got %v", err)
	}
}

func TestListByDriverFiltersStatus(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	driverID := uuid.New()

	inTx(t, conn, func(tx *gorm.DB) error {
		if _, err := svc.CreatePendingTx(ctx, tx, CreateEarningInput{DriverID: driverID, OrderID: uuid.New(), DeliveryFee: fee("10.00")}); err != nil {
			return err
		}
		_, err := svc.CreateAvailableTx(ctx, tx, CreateEarningInput{DriverID: driverID, OrderID: uuid.New(), DeliveryFee: fee("12.00")})
		return err
	})

	status := enums.EarningStatusPending
	list, err := svc.ListByDriver(ctx, ListParams{DriverID: driverID, Status: &status})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Status != enums.EarningStatusPending {
		t.Fatalf("unexpected items %+v", list.Items)
	}
	if _, err := svc.ListByDriver(ctx, ListParams{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
