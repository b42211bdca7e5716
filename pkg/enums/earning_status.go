package enums

import "slices"

// EarningStatus tracks a driver earning from delivery to payout. It is a
// separate lifecycle from OrderStatus even though both start at "pending".
type EarningStatus string

const (
	EarningStatusPending   EarningStatus = "pending"
	EarningStatusAvailable EarningStatus = "available"
	EarningStatusRequested EarningStatus = "requested"
	EarningStatusPaid      EarningStatus = "paid"
)

var validEarningStatuses = []EarningStatus{
	EarningStatusPending,
	EarningStatusAvailable,
	EarningStatusRequested,
	EarningStatusPaid,
}

func (s EarningStatus) String() string {
	return string(s)
}

func (s EarningStatus) IsValid() bool {
	return slices.Contains(validEarningStatuses, s)
}

func ParseEarningStatus(value string) (EarningStatus, error) {
	return parseEnum("earning status", validEarningStatuses, value)
}
