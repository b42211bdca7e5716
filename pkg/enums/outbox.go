package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateStock   OutboxAggregateType = "stock"
	AggregateEarning OutboxAggregateType = "earning"
	AggregatePayout  OutboxAggregateType = "payout"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateStock,
	AggregateEarning,
	AggregatePayout,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseEnum("aggregate type", validAggregateTypes, value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated        OutboxEventType = "order_created"
	EventOrderStatusChanged  OutboxEventType = "order_status_changed"
	EventOrderReturned       OutboxEventType = "order_returned"
	EventOrderDriverAssigned OutboxEventType = "order_driver_assigned"
	EventOrderRefunded       OutboxEventType = "order_refunded"
	EventStockAdjusted       OutboxEventType = "stock_adjusted"
	EventStockLow            OutboxEventType = "stock_low"
	EventEarningAvailable    OutboxEventType = "earning_available"
	EventPayoutRequested     OutboxEventType = "payout_requested"
	EventPayoutCompleted     OutboxEventType = "payout_completed"
	EventPayoutRejected      OutboxEventType = "payout_rejected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderReturned,
	EventOrderDriverAssigned,
	EventOrderRefunded,
	EventStockAdjusted,
	EventStockLow,
	EventEarningAvailable,
	EventPayoutRequested,
	EventPayoutCompleted,
	EventPayoutRejected,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseEnum("event type", validOutboxEventTypes, value)
}
