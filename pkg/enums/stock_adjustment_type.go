package enums

import "slices"

// StockAdjustmentType maps to the stock_adjustment_type enum in Postgres.
type StockAdjustmentType string

const (
	StockAdjustmentManualAdd      StockAdjustmentType = "manual_add"
	StockAdjustmentManualDeduct   StockAdjustmentType = "manual_deduct"
	StockAdjustmentOrderApproved  StockAdjustmentType = "order_approved"
	StockAdjustmentOrderCancelled StockAdjustmentType = "order_cancelled"
)

var validStockAdjustmentTypes = []StockAdjustmentType{
	StockAdjustmentManualAdd,
	StockAdjustmentManualDeduct,
	StockAdjustmentOrderApproved,
	StockAdjustmentOrderCancelled,
}

func (t StockAdjustmentType) String() string {
	return string(t)
}

func (t StockAdjustmentType) IsValid() bool {
	return slices.Contains(validStockAdjustmentTypes, t)
}

// IsManual reports whether the adjustment originates from an admin action.
// Manual adjustments carry an unsigned delta; the type decides the sign.
func (t StockAdjustmentType) IsManual() bool {
	return t == StockAdjustmentManualAdd || t == StockAdjustmentManualDeduct
}

func ParseStockAdjustmentType(value string) (StockAdjustmentType, error) {
	return parseEnum("stock adjustment type", validStockAdjustmentTypes, value)
}
