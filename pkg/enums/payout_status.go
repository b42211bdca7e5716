package enums

import (
	"fmt"
	"slices"
)

// PayoutStatus maps to the payout_status enum in Postgres.
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusCompleted PayoutStatus = "completed"
	PayoutStatusRejected  PayoutStatus = "rejected"
)

var validPayoutStatuses = []PayoutStatus{
	PayoutStatusPending,
	PayoutStatusCompleted,
	PayoutStatusRejected,
}

func (s PayoutStatus) String() string {
	return string(s)
}

func (s PayoutStatus) IsValid() bool {
	return slices.Contains(validPayoutStatuses, s)
}

func ParsePayoutStatus(value string) (PayoutStatus, error) {
	return parseEnum("payout status", validPayoutStatuses, value)
}

// PayoutDecision represents the admin decision that resolves a pending payout.
type PayoutDecision string

const (
	// PayoutDecisionComplete marks the payout as paid and settles its earnings.
	PayoutDecisionComplete PayoutDecision = "complete"
	// PayoutDecisionReject returns the payout's earnings to available.
	PayoutDecisionReject PayoutDecision = "reject"
)

func ParsePayoutDecision(value string) (PayoutDecision, error) {
	switch PayoutDecision(value) {
	case PayoutDecisionComplete, PayoutDecisionReject:
		return PayoutDecision(value), nil
	default:
		return "", fmt.Errorf("invalid payout decision %q", value)
	}
}
