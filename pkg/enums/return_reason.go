package enums

import "slices"

// ReturnReason records why a rider brought an in-transit order back.
type ReturnReason string

const (
	ReturnReasonCustomerUnavailable ReturnReason = "customer_unavailable"
	ReturnReasonCustomerRefused     ReturnReason = "customer_refused"
	ReturnReasonWrongAddress        ReturnReason = "wrong_address"
	ReturnReasonDamaged             ReturnReason = "damaged"
	ReturnReasonOther               ReturnReason = "other"
)

var validReturnReasons = []ReturnReason{
	ReturnReasonCustomerUnavailable,
	ReturnReasonCustomerRefused,
	ReturnReasonWrongAddress,
	ReturnReasonDamaged,
	ReturnReasonOther,
}

func (r ReturnReason) IsValid() bool {
	return slices.Contains(validReturnReasons, r)
}

func ParseReturnReason(value string) (ReturnReason, error) {
	return parseEnum("return reason", validReturnReasons, value)
}
