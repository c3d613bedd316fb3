package enums

import "fmt"

// OrderState tracks the lifecycle of an ingested POS order.
type OrderState string

const (
	OrderStateDraft  OrderState = "draft"
	OrderStatePaid   OrderState = "paid"
	OrderStateDone   OrderState = "done"
	OrderStateCancel OrderState = "cancel"
)

var validOrderStates = []OrderState{
	OrderStateDraft,
	OrderStatePaid,
	OrderStateDone,
	OrderStateCancel,
}

// String implements fmt.Stringer.
func (o OrderState) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderState.
func (o OrderState) IsValid() bool {
	for _, candidate := range validOrderStates {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderState converts raw input into an OrderState.
func ParseOrderState(value string) (OrderState, error) {
	for _, candidate := range validOrderStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order state %q", value)
}
