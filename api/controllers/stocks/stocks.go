package stocks

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/api/middleware"
	"github.com/angelmondragon/foodops-backend/api/responses"
	"github.com/angelmondragon/foodops-backend/api/validators"
	"github.com/angelmondragon/foodops-backend/internal/inventory"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
)

type createStockRequest struct {
	ProductID         uuid.UUID `json:"productId" validate:"required"`
	ProductName       string    `json:"productName" validate:"required,max=200"`
	Quantity          int       `json:"quantity" validate:"gte=0"`
	LowStockThreshold *int      `json:"lowStockThreshold" validate:"omitempty,gte=0"`
}

type adjustStockRequest struct {
	Type     enums.StockAdjustmentType `json:"type" validate:"required,oneof=manual_add manual_deduct"`
	Quantity int                       `json:"quantity" validate:"gt=0"`
	Notes    *string                   `json:"notes" validate:"omitempty,max=500"`
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func unavailable(r *http.Request, logg *logger.Logger, w http.ResponseWriter) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
}

// CreateStock starts tracking a product. Responds 201.
func CreateStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, logg, w)
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stock, err := svc.CreateStock(r.Context(), inventory.CreateStockInput{
			ProductID:         body.ProductID,
			ProductName:       validators.SanitizeString(body.ProductName, 200),
			Quantity:          body.Quantity,
			LowStockThreshold: body.LowStockThreshold,
			Actor:             actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, newStockDTO(stock))
	}
}

func ListStocks(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, logg, w)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lowOnly, err := validators.ParseQueryBool(r, "lowOnly")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		enabledOnly, err := validators.ParseQueryBool(r, "enabledOnly")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListStocks(r.Context(), inventory.ListStocksParams{
			Limit:       limit,
			Cursor:      validators.ParseQueryString(r, "cursor", 512),
			LowOnly:     lowOnly,
			EnabledOnly: enabledOnly,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newStockListDTO(list))
	}
}

func GetStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, logg, w)
			return
		}
		stockID, err := validators.ParseUUIDParam(r, "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stock, err := svc.GetStock(r.Context(), stockID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newStockDTO(stock))
	}
}

// SetStockEnabled toggles tracking. Disabled stock is skipped by order
// approval and cancellation.
func SetStockEnabled(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, logg, w)
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stockID, err := validators.ParseUUIDParam(r, "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body setEnabledRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stock, err := svc.SetEnabled(r.Context(), stockID, *body.Enabled, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newStockDTO(stock))
	}
}

// AdjustStock applies a manual add or deduct and returns the new row with the
// adjustment it wrote.
func AdjustStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, logg, w)
			return
		}
		actor, err := middleware.AuthenticatedActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stockID, err := validators.ParseUUIDParam(r, "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body adjustStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Adjust(r.Context(), inventory.AdjustInput{
			StockID: stockID,
			Delta:   body.Quantity,
			Type:    body.Type,
			Actor:   actor,
			Notes:   body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, adjustResultDTO{
			Stock:      newStockDTO(result.Stock),
			Adjustment: newAdjustmentDTO(result.Adjustment),
		})
	}
}

func ListAdjustments(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, logg, w)
			return
		}
		stockID, err := validators.ParseUUIDParam(r, "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAdjustments(r.Context(), inventory.ListAdjustmentsParams{
			StockID: stockID,
			Limit:   limit,
			Cursor:  validators.ParseQueryString(r, "cursor", 512),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newAdjustmentListDTO(list))
	}
}
