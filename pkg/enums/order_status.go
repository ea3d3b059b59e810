package enums

import "fmt"

// OrderStatus tracks a diner order through fulfillment.
type OrderStatus string

const (
	OrderStatusPersisted            OrderStatus = "persisted"
	OrderStatusFulfillmentRequested OrderStatus = "fulfillment_requested"
	OrderStatusFulfilled            OrderStatus = "fulfilled"
	OrderStatusFulfillmentFailed    OrderStatus = "fulfillment_failed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPersisted,
	OrderStatusFulfillmentRequested,
	OrderStatusFulfilled,
	OrderStatusFulfillmentFailed,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPersisted:            {OrderStatusFulfillmentRequested},
	OrderStatusFulfillmentRequested: {OrderStatusFulfilled, OrderStatusFulfillmentFailed},
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
