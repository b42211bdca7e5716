package orders

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodops-backend/api/middleware"
	"github.com/angelmondragon/foodops-backend/api/responses"
	"github.com/angelmondragon/foodops-backend/api/validators"
	internalorders "github.com/angelmondragon/foodops-backend/internal/orders"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
)

type createOrderItemRequest struct {
	ProductID   uuid.UUID       `json:"productId" validate:"required"`
	ProductName string          `json:"productName" validate:"required,max=200"`
	Quantity    int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type createOrderRequest struct {
	CustomerID  *uuid.UUID               `json:"customerId"`
	OrderType   string                   `json:"orderType" validate:"required,oneof=dine_in pickup delivery"`
	Items       []createOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	DeliveryFee decimal.Decimal          `json:"deliveryFee"`
	DistanceKm  *decimal.Decimal         `json:"distanceKm"`
	Notes       *string                  `json:"notes" validate:"omitempty,max=500"`
}

type paymentProofRequest struct {
	ProofURL string `json:"proofUrl" validate:"required,url,max=2048"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// CreateOrder is checkout. Customers order for themselves; admins must name
// the customer.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateOrderInput{
			OrderType:   enums.OrderType(body.OrderType),
			DeliveryFee: body.DeliveryFee,
			DistanceKm:  body.DistanceKm,
			Actor:       actor,
		}
		if body.CustomerID != nil {
			input.CustomerID = *body.CustomerID
		}
		if body.Notes != nil {
			notes := validators.SanitizeString(*body.Notes, 500)
			if notes != "" {
				input.Notes = &notes
			}
		}
		for _, item := range body.Items {
			input.Items = append(input.Items, internalorders.ItemInput{
				ProductID:   item.ProductID,
				ProductName: validators.SanitizeString(item.ProductName, 200),
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
			})
		}

		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, newOrderDTO(order))
	}
}

// SubmitPaymentProof moves a pending order to for_verification.
func SubmitPaymentProof(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body paymentProofRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.SubmitPaymentProof(r.Context(), orderID, body.ProofURL, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderDTO(order))
	}
}

// CancelOrder lets a customer cancel before approval. The body is optional.
func CancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cancelOrderRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Transition(r.Context(), internalorders.TransitionInput{
			OrderID: orderID,
			To:      enums.OrderStatusCancelled,
			Actor:   actor,
			Reason:  validators.SanitizeString(body.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderDTO(order))
	}
}

// Detail returns one order the caller may see. Orders outside the caller's
// scope read as not found.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderDTO(order))
	}
}

// List pages through orders newest first. Customers and drivers only ever see
// their own orders; the driverId and customerId filters matter to admins.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalorders.ListParams{
			Limit:  limit,
			Cursor: validators.ParseQueryString(r, "cursor", 512),
		}
		if raw := validators.ParseQueryString(r, "status", 32); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}
		if params.DriverID, err = validators.ParseOptionalUUIDQuery(r, "driverId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.CustomerID, err = validators.ParseOptionalUUIDQuery(r, "customerId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderListDTO(list))
	}
}
