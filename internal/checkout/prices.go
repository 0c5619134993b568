package checkout

import (
	"fmt"
	"strings"

	"github.com/contactalia/contactalia-backend/pkg/config"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
)

// PriceTable maps a (tier, audience) pair to its configured Stripe price id.
type PriceTable struct {
	prices map[enums.PlanTier]map[enums.Audience]string
}

// NewPriceTable reads the four price ids. Missing values are reported when a
// checkout asks for them, not at startup.
func NewPriceTable(cfg config.StripeConfig) PriceTable {
	return PriceTable{prices: map[enums.PlanTier]map[enums.Audience]string{
		enums.PlanTierPremium: {
			enums.AudienceAdvertiser: strings.TrimSpace(cfg.PricePremiumAnunciante),
			enums.AudienceVisitor:    strings.TrimSpace(cfg.PricePremiumVisitante),
		},
		enums.PlanTierVip: {
			enums.AudienceAdvertiser: strings.TrimSpace(cfg.PriceVipAnunciante),
			enums.AudienceVisitor:    strings.TrimSpace(cfg.PriceVipVisitante),
		},
	}}
}

// Resolve returns the price id or a configuration error naming the variable.
func (p PriceTable) Resolve(tier enums.PlanTier, audience enums.Audience) (string, error) {
	envName := fmt.Sprintf("CONTACTALIA_STRIPE_PRICE_%s_%s", strings.ToUpper(string(tier)), strings.ToUpper(string(audience)))
	price := p.prices[tier][audience]
	if price == "" {
		return "", pkgerrors.New(pkgerrors.CodeConfig, fmt.Sprintf("missing Stripe price id: set %s", envName)).
			WithDetails(map[string]any{"env": envName})
	}
	if !strings.HasPrefix(price, "price_") {
		return "", pkgerrors.New(pkgerrors.CodeConfig, fmt.Sprintf("invalid Stripe price id in %s: expected a price_ id", envName)).
			WithDetails(map[string]any{"env": envName})
	}
	return price, nil
}
