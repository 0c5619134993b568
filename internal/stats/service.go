package stats

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/internal/entitlements"
	"github.com/contactalia/contactalia-backend/pkg/config"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
)

const (
	topCities         = 10
	topAccompaniments = 12
	currency          = "EUR"
)

type statsRepository interface {
	TopCities(ctx context.Context, limit int) ([]Bucket, error)
	TopAccompaniments(ctx context.Context, limit int) ([]Bucket, error)
	StatusTotals(ctx context.Context) ([]Bucket, error)
	ProfileOwners(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]struct{}, error)
}

type activeSubscriptions interface {
	ListActive(ctx context.Context) ([]models.Subscription, error)
}

// Overview is the moderation dashboard.
type Overview struct {
	ByCity          []Bucket `json:"by_city"`
	ByAccompaniment []Bucket `json:"by_accompaniment"`
	ByStatus        []Bucket `json:"by_status"`
}

// AccountingLine is the revenue of one (audience, tier) pair.
type AccountingLine struct {
	Audience    enums.Audience  `json:"audience"`
	Tier        enums.PlanTier  `json:"tier"`
	Subscribers int             `json:"subscribers"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// Accounting is the monthly recurring revenue of active subscriptions.
type Accounting struct {
	Currency         string           `json:"currency"`
	Lines            []AccountingLine `json:"lines"`
	TotalSubscribers int              `json:"total_subscribers"`
	TotalRevenue     decimal.Decimal  `json:"total_revenue"`
}

// PriceTable maps audience and tier to the monthly list price.
type PriceTable map[enums.Audience]map[enums.PlanTier]decimal.Decimal

// PricesFromConfig parses the configured list prices.
func PricesFromConfig(cfg config.AccountingConfig) (PriceTable, error) {
	raw := []struct {
		audience enums.Audience
		tier     enums.PlanTier
		value    string
	}{
		{enums.AudienceVisitor, enums.PlanTierPremium, cfg.VisitorPremium},
		{enums.AudienceVisitor, enums.PlanTierVip, cfg.VisitorVip},
		{enums.AudienceAdvertiser, enums.PlanTierPremium, cfg.AdvertiserPremium},
		{enums.AudienceAdvertiser, enums.PlanTierVip, cfg.AdvertiserVip},
	}
	table := PriceTable{}
	for _, p := range raw {
		price, err := decimal.NewFromString(p.value)
		if err != nil {
			return nil, fmt.Errorf("price %s %s: %w", p.audience, p.tier, err)
		}
		if table[p.audience] == nil {
			table[p.audience] = map[enums.PlanTier]decimal.Decimal{}
		}
		table[p.audience][p.tier] = price
	}
	return table, nil
}

// Service builds the admin dashboards.
type Service interface {
	Overview(ctx context.Context, session auth.Session) (*Overview, error)
	Accounting(ctx context.Context, session auth.Session) (*Accounting, error)
}

type service struct {
	repo   statsRepository
	subs   activeSubscriptions
	prices PriceTable
}

func NewService(repo statsRepository, subs activeSubscriptions, prices PriceTable) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stats repository required")
	}
	if subs == nil {
		return nil, fmt.Errorf("subscription lister required")
	}
	if prices == nil {
		return nil, fmt.Errorf("price table required")
	}
	return &service{repo: repo, subs: subs, prices: prices}, nil
}

func (s *service) Overview(ctx context.Context, session auth.Session) (*Overview, error) {
	if !session.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	cities, err := s.repo.TopCities(ctx, topCities)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count cities")
	}
	kinds, err := s.repo.TopAccompaniments(ctx, topAccompaniments)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count accompaniment types")
	}
	statuses, err := s.repo.StatusTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count statuses")
	}
	return &Overview{
		ByCity:          nonNil(cities),
		ByAccompaniment: nonNil(kinds),
		ByStatus:        nonNil(statuses),
	}, nil
}

// Accounting classifies each active subscriber as an advertiser when they
// own a profile and as a visitor otherwise, whatever the plan suffix says.
func (s *service) Accounting(ctx context.Context, session auth.Session) (*Accounting, error) {
	if !session.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	subs, err := s.subs.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active subscriptions")
	}
	userIDs := make([]uuid.UUID, 0, len(subs))
	for _, sub := range subs {
		userIDs = append(userIDs, sub.UserID)
	}
	owners, err := s.repo.ProfileOwners(ctx, userIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile owners")
	}

	counts := map[enums.Audience]map[enums.PlanTier]int{}
	for _, sub := range subs {
		tier := entitlements.ParseTier(sub.Plan)
		if tier == enums.PlanTierFree {
			continue
		}
		audience := enums.AudienceVisitor
		if _, ok := owners[sub.UserID]; ok {
			audience = enums.AudienceAdvertiser
		}
		if counts[audience] == nil {
			counts[audience] = map[enums.PlanTier]int{}
		}
		counts[audience][tier]++
	}

	out := &Accounting{Currency: currency, TotalRevenue: decimal.Zero}
	for _, audience := range []enums.Audience{enums.AudienceVisitor, enums.AudienceAdvertiser} {
		for _, tier := range []enums.PlanTier{enums.PlanTierPremium, enums.PlanTierVip} {
			n := counts[audience][tier]
			price := s.prices[audience][tier]
			revenue := price.Mul(decimal.NewFromInt(int64(n)))
			out.Lines = append(out.Lines, AccountingLine{
				Audience:    audience,
				Tier:        tier,
				Subscribers: n,
				UnitPrice:   price,
				Revenue:     revenue,
			})
			out.TotalSubscribers += n
			out.TotalRevenue = out.TotalRevenue.Add(revenue)
		}
	}
	return out, nil
}

func nonNil(rows []Bucket) []Bucket {
	if rows == nil {
		return []Bucket{}
	}
	return rows
}
