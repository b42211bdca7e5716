package paymentmethods

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/pkg/db/testdb"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	client := testdb.Client(t)
	svc, err := NewService(NewRepository(client.DB()), client)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateFirstMethodBecomesDefault(t *testing.T) {
	svc := newTestService(t)
	driverID := uuid.New()

	first, err := svc.Create(context.Background(), driverID, CreateInput{
		MethodType:    enums.PaymentMethodTypeGCash,
		AccountName:   " Juan Dela Cruz ",
		AccountNumber: "09171234567",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !first.IsDefault {
		t.Fatal("expected first method to be default")
	}
	if first.AccountName != "Juan Dela Cruz" {
		t.Fatalf("expected trimmed account name, got %q", first.AccountName)
	}
	if first.BankName != nil {
		t.Fatal("gcash should not carry a bank name")
	}

	second, err := svc.Create(context.Background(), driverID, CreateInput{
		MethodType:    enums.PaymentMethodTypeMaya,
		AccountName:   "Juan Dela Cruz",
		AccountNumber: "09998887777",
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.IsDefault {
		t.Fatal("second method should not steal the default")
	}
}

func TestCreateExplicitDefaultDemotesPrevious(t *testing.T) {
	svc := newTestService(t)
	driverID := uuid.New()
	ctx := context.Background()

	if _, err := svc.Create(ctx, driverID, CreateInput{MethodType: enums.PaymentMethodTypeGCash, AccountName: "A", AccountNumber: "1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	bank, err := svc.Create(ctx, driverID, CreateInput{
		MethodType:    enums.PaymentMethodTypeBankTransfer,
		AccountName:   "A",
		AccountNumber: "0012-3456",
		BankName:      "BDO",
		IsDefault:     true,
	})
	if err != nil {
		t.Fatalf("create bank: %v", err)
	}

	methods, err := svc.List(ctx, driverID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defaults := 0
	for _, m := range methods {
		if m.IsDefault {
			defaults++
			if m.ID != bank.ID {
				t.Fatalf("expected bank transfer to be default, got %s", m.MethodType)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default, got %d", defaults)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	cases := map[string]CreateInput{
		"unknown type":   {MethodType: "paypal", AccountName: "A", AccountNumber: "1"},
		"missing number": {MethodType: enums.PaymentMethodTypeGCash, AccountName: "A"},
		"bank no name":   {MethodType: enums.PaymentMethodTypeBankTransfer, AccountName: "A", AccountNumber: "1"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), uuid.New(), input)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestOwnershipIsEnforced(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	method, err := svc.Create(ctx, owner, CreateInput{MethodType: enums.PaymentMethodTypeGCash, AccountName: "A", AccountNumber: "1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stranger := uuid.New()
	if _, err := svc.Get(ctx, stranger, method.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for stranger, got %v", err)
	}
	if err := svc.Delete(ctx, stranger, method.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found deleting as stranger, got %v", err)
	}
	if err := svc.SetDefault(ctx, stranger, method.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found setting default as stranger, got %v", err)
	}
	if err := svc.Delete(ctx, owner, method.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}
