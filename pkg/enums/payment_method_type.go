package enums

import "slices"

// PaymentMethodType lists the payout destinations a driver can register.
type PaymentMethodType string

const (
	PaymentMethodTypeGCash        PaymentMethodType = "gcash"
	PaymentMethodTypeMaya         PaymentMethodType = "maya"
	PaymentMethodTypeBankTransfer PaymentMethodType = "bank_transfer"
)

var validPaymentMethodTypes = []PaymentMethodType{
	PaymentMethodTypeGCash,
	PaymentMethodTypeMaya,
	PaymentMethodTypeBankTransfer,
}

func (p PaymentMethodType) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PaymentMethodType) IsValid() bool {
	return slices.Contains(validPaymentMethodTypes, p)
}

// RequiresBankName reports whether the destination needs a bank name.
func (p PaymentMethodType) RequiresBankName() bool {
	return p == PaymentMethodTypeBankTransfer
}

func ParsePaymentMethodType(value string) (PaymentMethodType, error) {
	return parseEnum("payment method type", validPaymentMethodTypes, value)
}
