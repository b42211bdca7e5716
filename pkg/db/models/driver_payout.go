package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodops-backend/pkg/enums"
)

// DriverPayout aggregates the earnings locked at request time. The payment
// destination columns are a snapshot and do not follow later method edits.
type DriverPayout struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DriverID        uuid.UUID               `gorm:"column:driver_id;type:uuid;not null"`
	Amount          decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentMethodID *uuid.UUID              `gorm:"column:payment_method_id;type:uuid"`
	MethodType      enums.PaymentMethodType `gorm:"column:method_type;type:payment_method_type;not null"`
	AccountName     string                  `gorm:"column:account_name;not null"`
	AccountNumber   string                  `gorm:"column:account_number;not null"`
	BankName        *string                 `gorm:"column:bank_name"`
	Status          enums.PayoutStatus      `gorm:"column:status;type:payout_status;not null"`
	RequestedAt     time.Time               `gorm:"column:requested_at;not null"`
	ProcessedAt     *time.Time              `gorm:"column:processed_at"`
	ProcessedBy     *uuid.UUID              `gorm:"column:processed_by;type:uuid"`
	ProofURL        *string                 `gorm:"column:proof_url"`
	RejectionReason *string                 `gorm:"column:rejection_reason"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// DriverPaymentMethod is a payout destination registered by a driver.
type DriverPaymentMethod struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DriverID      uuid.UUID               `gorm:"column:driver_id;type:uuid;not null;index"`
	MethodType    enums.PaymentMethodType `gorm:"column:method_type;type:payment_method_type;not null"`
	AccountName   string                  `gorm:"column:account_name;not null"`
	AccountNumber string                  `gorm:"column:account_number;not null"`
	BankName      *string                 `gorm:"column:bank_name"`
	IsDefault     bool                    `gorm:"column:is_default;not null"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
