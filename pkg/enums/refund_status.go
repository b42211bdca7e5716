package enums

import "slices"

// RefundStatus tracks whether a rejected or cancelled order still owes money back.
type RefundStatus string

const (
	RefundStatusNone     RefundStatus = "none"
	RefundStatusPending  RefundStatus = "pending"
	RefundStatusRefunded RefundStatus = "refunded"
)

var validRefundStatuses = []RefundStatus{
	RefundStatusNone,
	RefundStatusPending,
	RefundStatusRefunded,
}

func (r RefundStatus) String() string {
	return string(r)
}

func (r RefundStatus) IsValid() bool {
	return slices.Contains(validRefundStatuses, r)
}

func ParseRefundStatus(value string) (RefundStatus, error) {
	return parseEnum("refund status", validRefundStatuses, value)
}
