package entitlements

import "github.com/contactalia/contactalia-backend/pkg/enums"

// Bucket is the quota bucket a media visibility counts against.
type Bucket string

const (
	BucketPublic     Bucket = "public"
	BucketRegistered Bucket = "registered"
	// BucketPrivate is shared by paid and vip visibility.
	BucketPrivate Bucket = "private"
)

// UnboundedFavorites is the sentinel limit for tiers without a practical cap.
const UnboundedFavorites = 9999

// BucketFor maps a visibility onto its quota bucket.
func BucketFor(v enums.MediaVisibility) Bucket {
	switch v {
	case enums.MediaVisibilityRegistered:
		return BucketRegistered
	case enums.MediaVisibilityPaid, enums.MediaVisibilityVip:
		return BucketPrivate
	default:
		return BucketPublic
	}
}

// MediaCaps holds upload caps per media type and bucket.
type MediaCaps map[enums.MediaType]map[Bucket]int

// Plan is one row of the catalog.
type Plan struct {
	Audience            enums.Audience
	Tier                enums.PlanTier
	FavoritesLimit      int
	Media               MediaCaps
	CanAssignRegistered bool
	CanAssignPaid       bool
	CanAssignVip        bool
}

// Limit returns the cap for a type/bucket pair; missing cells are zero.
func (p Plan) Limit(mediaType enums.MediaType, bucket Bucket) int {
	if p.Media == nil {
		return 0
	}
	return p.Media[mediaType][bucket]
}

// CanAssign reports the capability flag guarding a visibility.
func (p Plan) CanAssign(v enums.MediaVisibility) bool {
	switch v {
	case enums.MediaVisibilityPublic:
		return true
	case enums.MediaVisibilityRegistered:
		return p.CanAssignRegistered
	case enums.MediaVisibilityPaid:
		return p.CanAssignPaid
	case enums.MediaVisibilityVip:
		return p.CanAssignVip
	default:
		return false
	}
}

type catalogKey struct {
	audience enums.Audience
	tier     enums.PlanTier
}

func caps(imagePublic, imageRegistered, imagePrivate, videoPublic, videoRegistered, videoPrivate int) MediaCaps {
	return MediaCaps{
		enums.MediaTypeImage: {BucketPublic: imagePublic, BucketRegistered: imageRegistered, BucketPrivate: imagePrivate},
		enums.MediaTypeVideo: {BucketPublic: videoPublic, BucketRegistered: videoRegistered, BucketPrivate: videoPrivate},
	}
}

var catalog = map[catalogKey]Plan{
	{enums.AudienceAdvertiser, enums.PlanTierFree}: {
		FavoritesLimit: 0,
		Media:          caps(1, 0, 0, 0, 0, 0),
	},
	{enums.AudienceAdvertiser, enums.PlanTierPremium}: {
		FavoritesLimit:      50,
		Media:               caps(10, 10, 10, 5, 5, 5),
		CanAssignRegistered: true, CanAssignPaid: true, CanAssignVip: true,
	},
	{enums.AudienceAdvertiser, enums.PlanTierVip}: {
		FavoritesLimit:      UnboundedFavorites,
		Media:               caps(15, 25, 25, 15, 15, 15),
		CanAssignRegistered: true, CanAssignPaid: true, CanAssignVip: true,
	},
	{enums.AudienceVisitor, enums.PlanTierFree}: {
		FavoritesLimit: 0,
		Media:          caps(0, 0, 0, 0, 0, 0),
	},
	{enums.AudienceVisitor, enums.PlanTierPremium}: {
		FavoritesLimit:      50,
		Media:               caps(0, 0, 0, 0, 0, 0),
		CanAssignRegistered: true, CanAssignPaid: true, CanAssignVip: true,
	},
	{enums.AudienceVisitor, enums.PlanTierVip}: {
		FavoritesLimit:      UnboundedFavorites,
		Media:               caps(0, 0, 0, 0, 0, 0),
		CanAssignRegistered: true, CanAssignPaid: true, CanAssignVip: true,
	},
}

// Lookup returns the catalog row for the pair. Unknown tiers fall back to the
// free row and unknown audiences to the visitor rows, which carry no media caps.
func Lookup(audience enums.Audience, tier enums.PlanTier) Plan {
	if !audience.IsValid() {
		audience = enums.AudienceVisitor
	}
	if !tier.IsValid() {
		tier = enums.PlanTierFree
	}
	row := catalog[catalogKey{audience, tier}]
	row.Audience = audience
	row.Tier = tier
	return row
}

// MediaPlan returns the row used for upload quotas. Media caps follow the tier
// alone: owning a profile makes the account an advertiser whatever audience
// suffix its plan string carries.
func MediaPlan(tier enums.PlanTier) Plan {
	return Lookup(enums.AudienceAdvertiser, tier)
}
