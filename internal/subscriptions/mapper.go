package subscriptions

import (
	"strings"

	"github.com/contactalia/contactalia-backend/internal/entitlements"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/stripe/stripe-go/v84"
)

const (
	MetadataUserID = "user_id"
	MetadataPlan   = "plan"
	MetadataType   = "type"
)

// PlanFromMetadata builds the persisted plan string from checkout metadata.
// A missing plan means premium; the audience suffix is kept only when known.
func PlanFromMetadata(plan, kind string) string {
	tier := enums.PlanTierFree
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case "", string(enums.PlanTierPremium):
		tier = enums.PlanTierPremium
	case string(enums.PlanTierVip):
		tier = enums.PlanTierVip
	}
	audience, err := enums.ParseAudience(strings.ToLower(strings.TrimSpace(kind)))
	if err != nil {
		audience = ""
	}
	return entitlements.FormatPlan(tier, audience)
}

// MetadataValue returns the first non-empty value for key across sources.
func MetadataValue(key string, sources ...map[string]string) string {
	for _, src := range sources {
		if v := strings.TrimSpace(src[key]); v != "" {
			return v
		}
	}
	return ""
}

// StatusFromStripe collapses Stripe's lifecycle into active/inactive.
func StatusFromStripe(status stripe.SubscriptionStatus) enums.SubscriptionStatus {
	if status == stripe.SubscriptionStatusActive {
		return enums.SubscriptionStatusActive
	}
	return enums.SubscriptionStatusInactive
}

// PeriodEndUnix reads the billing period end from the first subscription item.
func PeriodEndUnix(sub *stripe.Subscription) int64 {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0] == nil {
		return 0
	}
	return sub.Items.Data[0].CurrentPeriodEnd
}

// CustomerID extracts the Stripe customer id when present.
func CustomerID(sub *stripe.Subscription) string {
	if sub == nil || sub.Customer == nil {
		return ""
	}
	return sub.Customer.ID
}
