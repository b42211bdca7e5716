package enums

import "slices"

// OrderType selects the fulfilment flow; it never changes after checkout.
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDelivery OrderType = "delivery"
)

var validOrderTypes = []OrderType{
	OrderTypeDineIn,
	OrderTypePickup,
	OrderTypeDelivery,
}

func (t OrderType) String() string {
	return string(t)
}

func (t OrderType) IsValid() bool {
	return slices.Contains(validOrderTypes, t)
}

// IsDelivery reports whether the order travels through the rider flow.
func (t OrderType) IsDelivery() bool {
	return t == OrderTypeDelivery
}

func ParseOrderType(value string) (OrderType, error) {
	return parseEnum("order type", validOrderTypes, value)
}
