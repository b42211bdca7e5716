package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalorders "github.com/angelmondragon/foodops-backend/internal/orders"
	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
)

type orderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// orderDTO is the wire shape of an order. NextStatuses lists the legal
// targets from the current status so clients can render actions.
type orderDTO struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     int                 `json:"orderNumber"`
	OrderDate       string              `json:"orderDate"`
	Status          enums.OrderStatus   `json:"status"`
	NextStatuses    []enums.OrderStatus `json:"nextStatuses"`
	OrderType       enums.OrderType     `json:"orderType"`
	CustomerID      uuid.UUID           `json:"customerId"`
	DriverID        *uuid.UUID          `json:"driverId,omitempty"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	DeliveryFee     decimal.Decimal     `json:"deliveryFee"`
	Total           decimal.Decimal     `json:"total"`
	DistanceKm      *decimal.Decimal    `json:"distanceKm,omitempty"`
	PaymentProofURL *string             `json:"paymentProofUrl,omitempty"`
	RejectionReason *string             `json:"rejectionReason,omitempty"`
	ReturnReason    *enums.ReturnReason `json:"returnReason,omitempty"`
	ReturnPhotoURL  *string             `json:"returnPhotoUrl,omitempty"`
	RefundStatus    enums.RefundStatus  `json:"refundStatus"`
	RefundAmount    *decimal.Decimal    `json:"refundAmount,omitempty"`
	RefundReference *string             `json:"refundReference,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	StatusChangedAt time.Time           `json:"statusChangedAt"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
	Items           []orderItemDTO      `json:"items,omitempty"`
}

type orderListDTO struct {
	Items  []orderDTO `json:"items"`
	Cursor string     `json:"cursor"`
}

func newOrderDTO(order *models.Order) orderDTO {
	dto := orderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		OrderDate:       order.OrderDate.Format(time.DateOnly),
		Status:          order.Status,
		NextStatuses:    internalorders.NextStatuses(order.OrderType, order.Status),
		OrderType:       order.OrderType,
		CustomerID:      order.CustomerID,
		DriverID:        order.DriverID,
		Subtotal:        order.Subtotal,
		DeliveryFee:     order.DeliveryFee,
		Total:           order.Total,
		DistanceKm:      order.DistanceKm,
		PaymentProofURL: order.PaymentProofURL,
		RejectionReason: order.RejectionReason,
		ReturnReason:    order.ReturnReason,
		ReturnPhotoURL:  order.ReturnPhotoURL,
		RefundStatus:    order.RefundStatus,
		RefundAmount:    order.RefundAmount,
		RefundReference: order.RefundReference,
		Notes:           order.Notes,
		StatusChangedAt: order.StatusChangedAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, orderItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	return dto
}

func newOrderListDTO(list *internalorders.OrderList) orderListDTO {
	out := orderListDTO{Items: make([]orderDTO, 0)}
	if list == nil {
		return out
	}
	out.Cursor = list.Cursor
	for i := range list.Items {
		out.Items = append(out.Items, newOrderDTO(&list.Items[i]))
	}
	return out
}
