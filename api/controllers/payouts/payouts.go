package payouts

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/api/middleware"
	"github.com/angelmondragon/foodops-backend/api/responses"
	"github.com/angelmondragon/foodops-backend/api/validators"
	internalpayouts "github.com/angelmondragon/foodops-backend/internal/payouts"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
)

type requestPayoutRequest struct {
	PaymentMethodID uuid.UUID `json:"paymentMethodId" validate:"required"`
}

type resolvePayoutRequest struct {
	Decision        string `json:"decision" validate:"required,oneof=complete reject"`
	ProofURL        string `json:"proofUrl" validate:"required_if=Decision complete,max=1000"`
	RejectionReason string `json:"rejectionReason" validate:"required_if=Decision reject,max=500"`
}

func payoutsUnavailable(r *http.Request, logg *logger.Logger, w http.ResponseWriter) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
}

func parseListParams(r *http.Request) (internalpayouts.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return internalpayouts.ListParams{}, err
	}
	params := internalpayouts.ListParams{
		Limit:  limit,
		Cursor: validators.ParseQueryString(r, "cursor", 512),
	}
	if raw := validators.ParseQueryString(r, "status", 32); raw != "" {
		status, err := enums.ParsePayoutStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &status
	}
	return params, nil
}

// RequestPayout locks every available earning of the caller into one pending
// payout. Responds 201.
func RequestPayout(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			payoutsUnavailable(r, logg, w)
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body requestPayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.RequestPayout(r.Context(), internalpayouts.RequestInput{
			DriverID:        actor.ID,
			PaymentMethodID: body.PaymentMethodID,
			Actor:           actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, newPayoutDTO(payout))
	}
}

func DriverPayouts(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			payoutsUnavailable(r, logg, w)
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByDriver(r.Context(), actor.ID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listDTO[payoutDTO]{Items: newPayoutDTOs(list.Items), Cursor: list.Cursor})
	}
}

// PayoutDetail serves both the driver and admin views; the service scopes
// drivers to their own payouts.
func PayoutDetail(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			payoutsUnavailable(r, logg, w)
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payoutID, err := validators.ParseUUIDParam(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Get(r.Context(), payoutID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payoutDetailDTO{
			payoutDTO: newPayoutDTO(&detail.Payout),
			Earnings:  newEarningDTOs(detail.Earnings),
		})
	}
}

func AdminPayouts(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			payoutsUnavailable(r, logg, w)
			return
		}
		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForAdmin(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listDTO[payoutDTO]{Items: newPayoutDTOs(list.Items), Cursor: list.Cursor})
	}
}

// ResolvePayout completes a payout with a proof link or rejects it with a
// reason. Rejection returns the locked earnings to available.
func ResolvePayout(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			payoutsUnavailable(r, logg, w)
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payoutID, err := validators.ParseUUIDParam(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body resolvePayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		decision, err := enums.ParsePayoutDecision(body.Decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid decision"))
			return
		}

		payout, err := svc.ResolvePayout(r.Context(), internalpayouts.ResolveInput{
			PayoutID:        payoutID,
			Decision:        decision,
			Actor:           actor,
			ProofURL:        body.ProofURL,
			RejectionReason: validators.SanitizeString(body.RejectionReason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPayoutDTO(payout))
	}
}
