package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics counts state changes across orders, stock and payouts.
// A nil receiver or one built without a registerer is a no-op.
type FulfillmentMetrics struct {
	transitions      *prometheus.CounterVec
	rejected         *prometheus.CounterVec
	stockAdjustments *prometheus.CounterVec
	payouts          *prometheus.CounterVec
}

func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodops_order_transitions_total",
		Help: "Committed order status transitions.",
	}, []string{"from", "to"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodops_order_transitions_rejected_total",
		Help: "Order transitions refused, labelled by error code.",
	}, []string{"code"})
	stock := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodops_stock_adjustments_total",
		Help: "Stock adjustments written, labelled by adjustment type.",
	}, []string{"type"})
	payouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodops_payouts_total",
		Help: "Payout lifecycle changes, labelled by resulting status.",
	}, []string{"status"})
	reg.MustRegister(transitions, rejected, stock, payouts)
	return &FulfillmentMetrics{
		transitions:      transitions,
		rejected:         rejected,
		stockAdjustments: stock,
		payouts:          payouts,
	}
}

func (m *FulfillmentMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *FulfillmentMetrics) IncTransitionRejected(code string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *FulfillmentMetrics) IncStockAdjustment(adjustmentType string) {
	if m == nil || m.stockAdjustments == nil {
		return
	}
	m.stockAdjustments.WithLabelValues(normalizeLabel(adjustmentType)).Inc()
}

func (m *FulfillmentMetrics) IncPayout(status string) {
	if m == nil || m.payouts == nil {
		return
	}
	m.payouts.WithLabelValues(normalizeLabel(status)).Inc()
}
