package entitlements

import (
	"testing"

	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
)

func TestCanSetVisibilityFreeSecondPublicPhotoRejected(t *testing.T) {
	counts := Counts{}
	counts.Add(enums.MediaTypeImage, enums.MediaVisibilityPublic, 1)

	d := CanSetVisibility(enums.PlanTierFree, enums.MediaTypeImage, enums.MediaVisibilityPublic, counts)
	if d.Allowed {
		t.Fatal("second public photo on free should be rejected")
	}
	if d.Reason != ReasonQuotaExceeded || d.Limit != 1 {
		t.Fatalf("expected quota exceeded with limit 1, got %+v", d)
	}
}

func TestCanSetVisibilityUpgradeRequired(t *testing.T) {
	cases := []struct {
		target   enums.MediaVisibility
		required enums.PlanTier
	}{
		{enums.MediaVisibilityRegistered, enums.PlanTierPremium},
		{enums.MediaVisibilityPaid, enums.PlanTierPremium},
		{enums.MediaVisibilityVip, enums.PlanTierVip},
	}
	for _, tc := range cases {
		d := CanSetVisibility(enums.PlanTierFree, enums.MediaTypeImage, tc.target, Counts{})
		if d.Allowed || d.Reason != ReasonUpgradeRequired || d.RequiredTier != tc.required {
			t.Fatalf("%s on free: expected upgrade to %s, got %+v", tc.target, tc.required, d)
		}
	}
}

func TestCanSetVisibilitySharedPrivateBucket(t *testing.T) {
	counts := Counts{}
	counts.Add(enums.MediaTypeVideo, enums.MediaVisibilityPaid, 3)
	counts.Add(enums.MediaTypeVideo, enums.MediaVisibilityVip, 2)

	d := CanSetVisibility(enums.PlanTierPremium, enums.MediaTypeVideo, enums.MediaVisibilityVip, counts)
	if d.Allowed || d.Reason != ReasonQuotaExceeded || d.Limit != 5 {
		t.Fatalf("paid+vip should exhaust the shared bucket, got %+v", d)
	}

	d = CanSetVisibility(enums.PlanTierPremium, enums.MediaTypeVideo, enums.MediaVisibilityRegistered, counts)
	if !d.Allowed {
		t.Fatalf("registered bucket is independent, got %+v", d)
	}
}

func TestCanSetVisibilityFlagCheckedBeforeSharedCounter(t *testing.T) {
	plan := Lookup(enums.AudienceAdvertiser, enums.PlanTierPremium)
	plan.CanAssignVip = false

	d := plan.CanSetVisibility(enums.MediaTypeImage, enums.MediaVisibilityVip, Counts{})
	if d.Allowed || d.Reason != ReasonUpgradeRequired || d.RequiredTier != enums.PlanTierVip {
		t.Fatalf("vip flag must gate even with room in the shared bucket, got %+v", d)
	}
	if d := plan.CanSetVisibility(enums.MediaTypeImage, enums.MediaVisibilityPaid, Counts{}); !d.Allowed {
		t.Fatalf("paid still allowed, got %+v", d)
	}
}

func TestCanSetVisibilityPublicIsCappedButUngated(t *testing.T) {
	d := CanSetVisibility(enums.PlanTierFree, enums.MediaTypeVideo, enums.MediaVisibilityPublic, Counts{})
	if d.Allowed || d.Reason != ReasonQuotaExceeded || d.Limit != 0 {
		t.Fatalf("free video public cap is zero, got %+v", d)
	}
}

func TestCanSetVisibilityRejectsUnknownValues(t *testing.T) {
	d := CanSetVisibility(enums.PlanTierVip, enums.MediaTypeImage, enums.MediaVisibility("secret"), Counts{})
	if d.Allowed || d.Reason != ReasonInvalidVisibility {
		t.Fatalf("unknown visibility should be rejected, got %+v", d)
	}
}

func TestDecisionErr(t *testing.T) {
	if Allow().Err() != nil {
		t.Fatal("allowed decision must not produce an error")
	}
	err := Decision{Reason: ReasonUpgradeRequired, RequiredTier: enums.PlanTierVip}.Err()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeEntitlement {
		t.Fatalf("expected entitlement error, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["required_tier"] != "vip" || details["reason"] != "upgrade_required" {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
}

func TestCanView(t *testing.T) {
	anon := Viewer{}
	free := Viewer{Authenticated: true, EffectiveTier: enums.PlanTierFree}
	premium := Viewer{Authenticated: true, EffectiveTier: enums.PlanTierPremium}
	vip := Viewer{Authenticated: true, EffectiveTier: enums.PlanTierVip}
	forged := Viewer{Authenticated: false, EffectiveTier: enums.PlanTierVip}

	cases := []struct {
		viewer Viewer
		v      enums.MediaVisibility
		want   bool
	}{
		{anon, enums.MediaVisibilityPublic, true},
		{anon, enums.MediaVisibilityRegistered, false},
		{free, enums.MediaVisibilityRegistered, true},
		{free, enums.MediaVisibilityPaid, false},
		{premium, enums.MediaVisibilityPaid, true},
		{premium, enums.MediaVisibilityVip, false},
		{vip, enums.MediaVisibilityVip, true},
		{forged, enums.MediaVisibilityPaid, false},
		{vip, enums.MediaVisibility("unknown"), false},
	}
	for _, tc := range cases {
		if got := CanView(tc.viewer, tc.v); got != tc.want {
			t.Errorf("CanView(%+v, %s) = %v, want %v", tc.viewer, tc.v, got, tc.want)
		}
	}
}

type galleryItem struct {
	url string
	vis enums.MediaVisibility
}

func TestFilterGalleryFreeVisitor(t *testing.T) {
	items := []galleryItem{
		{"https://cdn/public.webp", enums.MediaVisibilityPublic},
		{"https://cdn/reg.webp", enums.MediaVisibilityRegistered},
		{"https://cdn/paid.webp", enums.MediaVisibilityPaid},
		{"https://cdn/vip.webp", enums.MediaVisibilityVip},
	}

	visible, hidden := FilterGallery(Viewer{}, items, func(i galleryItem) enums.MediaVisibility { return i.vis })
	if len(visible) != 1 || visible[0].vis != enums.MediaVisibilityPublic {
		t.Fatalf("anonymous viewer should see only the public image, got %+v", visible)
	}
	if hidden.Total != 3 {
		t.Fatalf("expected 3 hidden items, got %d", hidden.Total)
	}
	if hidden.ByVisibility[enums.MediaVisibilityVip] != 1 {
		t.Fatalf("expected vip counted once, got %v", hidden.ByVisibility)
	}
	for _, item := range visible {
		if item.url == "https://cdn/vip.webp" {
			t.Fatal("vip url leaked")
		}
	}
}

func TestFilterGalleryVipSeesAll(t *testing.T) {
	items := []enums.MediaVisibility{
		enums.MediaVisibilityPublic, enums.MediaVisibilityRegistered, enums.MediaVisibilityPaid, enums.MediaVisibilityVip,
	}
	visible, hidden := FilterGallery(Viewer{Authenticated: true, EffectiveTier: enums.PlanTierVip}, items,
		func(v enums.MediaVisibility) enums.MediaVisibility { return v })
	if len(visible) != 4 || hidden.Total != 0 {
		t.Fatalf("vip should see everything, visible=%d hidden=%d", len(visible), hidden.Total)
	}
}
