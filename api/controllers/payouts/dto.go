package payouts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
)

type earningDTO struct {
	ID          uuid.UUID           `json:"id"`
	OrderID     uuid.UUID           `json:"orderId"`
	DeliveryFee decimal.Decimal     `json:"deliveryFee"`
	DistanceKm  *decimal.Decimal    `json:"distanceKm,omitempty"`
	Status      enums.EarningStatus `json:"status"`
	PayoutID    *uuid.UUID          `json:"payoutId,omitempty"`
	AvailableAt *time.Time          `json:"availableAt,omitempty"`
	PaidAt      *time.Time          `json:"paidAt,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

type paymentMethodDTO struct {
	ID            uuid.UUID               `json:"id"`
	MethodType    enums.PaymentMethodType `json:"methodType"`
	AccountName   string                  `json:"accountName"`
	AccountNumber string                  `json:"accountNumber"`
	BankName      *string                 `json:"bankName,omitempty"`
	IsDefault     bool                    `json:"isDefault"`
	CreatedAt     time.Time               `json:"createdAt"`
}

type payoutDTO struct {
	ID              uuid.UUID               `json:"id"`
	DriverID        uuid.UUID               `json:"driverId"`
	Amount          decimal.Decimal         `json:"amount"`
	PaymentMethodID *uuid.UUID              `json:"paymentMethodId,omitempty"`
	MethodType      enums.PaymentMethodType `json:"methodType"`
	AccountName     string                  `json:"accountName"`
	AccountNumber   string                  `json:"accountNumber"`
	BankName        *string                 `json:"bankName,omitempty"`
	Status          enums.PayoutStatus      `json:"status"`
	RequestedAt     time.Time               `json:"requestedAt"`
	ProcessedAt     *time.Time              `json:"processedAt,omitempty"`
	ProcessedBy     *uuid.UUID              `json:"processedBy,omitempty"`
	ProofURL        *string                 `json:"proofUrl,omitempty"`
	RejectionReason *string                 `json:"rejectionReason,omitempty"`
}

type payoutDetailDTO struct {
	payoutDTO
	Earnings []earningDTO `json:"earnings"`
}

type listDTO[T any] struct {
	Items  []T    `json:"items"`
	Cursor string `json:"cursor,omitempty"`
}

func newEarningDTO(e *models.DriverEarning) earningDTO {
	return earningDTO{
		ID:          e.ID,
		OrderID:     e.OrderID,
		DeliveryFee: e.DeliveryFee,
		DistanceKm:  e.DistanceKm,
		Status:      e.Status,
		PayoutID:    e.PayoutID,
		AvailableAt: e.AvailableAt,
		PaidAt:      e.PaidAt,
		CreatedAt:   e.CreatedAt,
	}
}

func newEarningDTOs(rows []models.DriverEarning) []earningDTO {
	out := make([]earningDTO, 0, len(rows))
	for i := range rows {
		out = append(out, newEarningDTO(&rows[i]))
	}
	return out
}

func newPaymentMethodDTO(m *models.DriverPaymentMethod) paymentMethodDTO {
	return paymentMethodDTO{
		ID:            m.ID,
		MethodType:    m.MethodType,
		AccountName:   m.AccountName,
		AccountNumber: m.AccountNumber,
		BankName:      m.BankName,
		IsDefault:     m.IsDefault,
		CreatedAt:     m.CreatedAt,
	}
}

func newPayoutDTO(p *models.DriverPayout) payoutDTO {
	return payoutDTO{
		ID:              p.ID,
		DriverID:        p.DriverID,
		Amount:          p.Amount,
		PaymentMethodID: p.PaymentMethodID,
		MethodType:      p.MethodType,
		AccountName:     p.AccountName,
		AccountNumber:   p.AccountNumber,
		BankName:        p.BankName,
		Status:          p.Status,
		RequestedAt:     p.RequestedAt,
		ProcessedAt:     p.ProcessedAt,
		ProcessedBy:     p.ProcessedBy,
		ProofURL:        p.ProofURL,
		RejectionReason: p.RejectionReason,
	}
}

func newPayoutDTOs(rows []models.DriverPayout) []payoutDTO {
	out := make([]payoutDTO, 0, len(rows))
	for i := range rows {
		out = append(out, newPayoutDTO(&rows[i]))
	}
	return out
}
