package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/foodops-backend/internal/orders"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
)

type deliveredCompleter interface {
	AutoCompleteDelivered(ctx context.Context) (*orders.AutoCompleteResult, error)
}

// DeliveredAutoCompleteJobParams configure the delivered-order sweep.
type DeliveredAutoCompleteJobParams struct {
	Logger *logger.Logger
	Orders deliveredCompleter
}

// NewDeliveredAutoCompleteJob builds the job that completes delivery orders
// once their grace period has passed. The grace period and batch size live on
// the orders service.
func NewDeliveredAutoCompleteJob(params DeliveredAutoCompleteJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	return &deliveredAutoCompleteJob{logg: params.Logger, orders: params.Orders}, nil
}

type deliveredAutoCompleteJob struct {
	logg   *logger.Logger
	orders deliveredCompleter
}

func (j *deliveredAutoCompleteJob) Name() string { return "delivered-auto-complete" }

func (j *deliveredAutoCompleteJob) Run(ctx context.Context) error {
	result, err := j.orders.AutoCompleteDelivered(ctx)
	if result != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"scanned":   result.Scanned,
			"completed": result.Completed,
			"skipped":   result.Skipped,
		})
		j.logg.Info(logCtx, "delivered auto-complete sweep finished")
	}
	if err != nil {
		return fmt.Errorf("delivered auto-complete: %w", err)
	}
	return nil
}
