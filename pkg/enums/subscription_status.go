package enums

import "fmt"

// SubscriptionStatus is the locally persisted subscription state. Only
// active rows unlock the paid tier; every other state resolves to free.
type SubscriptionStatus string

const (
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

var subscriptionStatuses = map[string]SubscriptionStatus{
	"inactive": SubscriptionStatusInactive,
	"active":   SubscriptionStatusActive,
	"past_due": SubscriptionStatusPastDue,
	"canceled": SubscriptionStatusCanceled,
}

func (s SubscriptionStatus) String() string { return string(s) }

// IsValid reports whether the value may be stored.
func (s SubscriptionStatus) IsValid() bool {
	_, ok := subscriptionStatuses[string(s)]
	return ok
}

// GrantsAccess reports whether a subscription in this state unlocks its plan.
func (s SubscriptionStatus) GrantsAccess() bool {
	return s == SubscriptionStatusActive
}

// ParseSubscriptionStatus resolves a stored or submitted status.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	if s, ok := subscriptionStatuses[value]; ok {
		return s, nil
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}
