package orders

import (
	"net/http"

	"github.com/angelmondragon/foodops-backend/api/middleware"
	"github.com/angelmondragon/foodops-backend/api/responses"
	"github.com/angelmondragon/foodops-backend/api/validators"
	internalorders "github.com/angelmondragon/foodops-backend/internal/orders"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
)

type returnOrderRequest struct {
	Reason   string  `json:"reason" validate:"required,oneof=customer_unavailable customer_refused wrong_address damaged other"`
	PhotoURL *string `json:"photoUrl" validate:"omitempty,url,max=2048"`
	Notes    string  `json:"notes" validate:"max=500"`
}

func DriverPickup(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return driverStep(svc, logg, enums.OrderStatusPickedUp)
}

func DriverInTransit(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return driverStep(svc, logg, enums.OrderStatusInTransit)
}

func DriverDeliver(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return driverStep(svc, logg, enums.OrderStatusDelivered)
}

// driverStep moves an assigned order one step along the rider flow.
func driverStep(svc internalorders.Service, logg *logger.Logger, to enums.OrderStatus) http.HandlerFunc {
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

		order, err := svc.Transition(r.Context(), internalorders.TransitionInput{
			OrderID: orderID,
			To:      to,
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderDTO(order))
	}
}

// DriverReturn brings an in-transit order back to the restaurant.
func DriverReturn(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body returnOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reason, err := enums.ParseReturnReason(body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return reason"))
			return
		}

		order, err := svc.ReturnOrder(r.Context(), internalorders.ReturnInput{
			OrderID:  orderID,
			Reason:   reason,
			PhotoURL: body.PhotoURL,
			Notes:    validators.SanitizeString(body.Notes, 500),
			Actor:    actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderDTO(order))
	}
}
