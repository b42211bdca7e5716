package payouts

import (
	"net/http"

	"github.com/angelmondragon/foodops-backend/api/middleware"
	"github.com/angelmondragon/foodops-backend/api/responses"
	"github.com/angelmondragon/foodops-backend/api/validators"
	"github.com/angelmondragon/foodops-backend/internal/paymentmethods"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
)

type createPaymentMethodRequest struct {
	MethodType    enums.PaymentMethodType `json:"methodType" validate:"required,oneof=gcash maya bank_transfer"`
	AccountName   string                  `json:"accountName" validate:"required,max=120"`
	AccountNumber string                  `json:"accountNumber" validate:"required,max=64"`
	BankName      string                  `json:"bankName" validate:"required_if=MethodType bank_transfer,max=120"`
	IsDefault     bool                    `json:"isDefault"`
}

func methodsUnavailable(r *http.Request, logg *logger.Logger, w http.ResponseWriter) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment methods service unavailable"))
}

func ListPaymentMethods(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			methodsUnavailable(r, logg, w)
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		methods, err := svc.List(r.Context(), actor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]paymentMethodDTO, 0, len(methods))
		for i := range methods {
			out = append(out, newPaymentMethodDTO(&methods[i]))
		}
		responses.WriteSuccess(w, listDTO[paymentMethodDTO]{Items: out})
	}
}

// CreatePaymentMethod registers a payout destination. The first method a
// driver adds becomes the default.
func CreatePaymentMethod(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			methodsUnavailable(r, logg, w)
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createPaymentMethodRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := svc.Create(r.Context(), actor.ID, paymentmethods.CreateInput{
			MethodType:    body.MethodType,
			AccountName:   validators.SanitizeString(body.AccountName, 120),
			AccountNumber: validators.SanitizeString(body.AccountNumber, 64),
			BankName:      validators.SanitizeString(body.BankName, 120),
			IsDefault:     body.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, newPaymentMethodDTO(method))
	}
}

func SetDefaultPaymentMethod(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			methodsUnavailable(r, logg, w)
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		methodID, err := validators.ParseUUIDParam(r, "methodId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetDefault(r.Context(), actor.ID, methodID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"isDefault": true})
	}
}

func DeletePaymentMethod(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			methodsUnavailable(r, logg, w)
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		methodID, err := validators.ParseUUIDParam(r, "methodId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor.ID, methodID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
