package stocks

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/internal/inventory"
	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
)

type stockDTO struct {
	ID                uuid.UUID `json:"id"`
	ProductID         uuid.UUID `json:"productId"`
	ProductName       string    `json:"productName"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"lowStockThreshold"`
	IsLow             bool      `json:"isLow"`
	Enabled           bool      `json:"enabled"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type adjustmentDTO struct {
	ID               uuid.UUID                 `json:"id"`
	StockID          uuid.UUID                 `json:"stockId"`
	AdjustmentType   enums.StockAdjustmentType `json:"adjustmentType"`
	QuantityChange   int                       `json:"quantityChange"`
	PreviousQuantity int                       `json:"previousQuantity"`
	NewQuantity      int                       `json:"newQuantity"`
	ActorID          *uuid.UUID                `json:"actorId,omitempty"`
	ActorRole        enums.ActorRole           `json:"actorRole"`
	OrderID          *uuid.UUID                `json:"orderId,omitempty"`
	Notes            *string                   `json:"notes,omitempty"`
	CreatedAt        time.Time                 `json:"createdAt"`
}

type stockListDTO struct {
	Items  []stockDTO `json:"items"`
	Cursor string     `json:"cursor"`
}

type adjustmentListDTO struct {
	Items  []adjustmentDTO `json:"items"`
	Cursor string          `json:"cursor"`
}

type adjustResultDTO struct {
	Stock      stockDTO      `json:"stock"`
	Adjustment adjustmentDTO `json:"adjustment"`
}

func newStockDTO(s *models.Stock) stockDTO {
	return stockDTO{
		ID:                s.ID,
		ProductID:         s.ProductID,
		ProductName:       s.ProductName,
		Quantity:          s.Quantity,
		LowStockThreshold: s.LowStockThreshold,
		IsLow:             s.Quantity <= s.LowStockThreshold,
		Enabled:           s.Enabled,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func newAdjustmentDTO(a *models.StockAdjustment) adjustmentDTO {
	return adjustmentDTO{
		ID:               a.ID,
		StockID:          a.StockID,
		AdjustmentType:   a.AdjustmentType,
		QuantityChange:   a.QuantityChange,
		PreviousQuantity: a.PreviousQuantity,
		NewQuantity:      a.NewQuantity,
		ActorID:          a.ActorID,
		ActorRole:        a.ActorRole,
		OrderID:          a.OrderID,
		Notes:            a.Notes,
		CreatedAt:        a.CreatedAt,
	}
}

func newStockListDTO(list *inventory.StockList) stockListDTO {
	out := stockListDTO{Items: make([]stockDTO, 0, len(list.Items)), Cursor: list.Cursor}
	for i := range list.Items {
		out.Items = append(out.Items, newStockDTO(&list.Items[i]))
	}
	return out
}

func newAdjustmentListDTO(list *inventory.AdjustmentList) adjustmentListDTO {
	out := adjustmentListDTO{Items: make([]adjustmentDTO, 0, len(list.Items)), Cursor: list.Cursor}
	for i := range list.Items {
		out.Items = append(out.Items, newAdjustmentDTO(&list.Items[i]))
	}
	return out
}
