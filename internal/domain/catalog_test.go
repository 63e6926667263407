package domain

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestApplyReplacesPresentFieldsOnly(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entity := CatalogEntity{
		ID:        "999",
		ShopID:    "shop-1",
		Type:      EntityTypeProduct,
		Title:     "Fake Product",
		IsVisible: true,
		Metafields: []Metafield{
			{Key: "color", Value: "red"},
		},
		SocialMetadata: []SocialMetadataEntry{
			{Service: SocialServiceTwitter, Message: "old tweet"},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	patch := ProductPatch{Title: strPtr("Updated product title")}
	updated := entity.Apply(patch, nil, now)

	if updated.Title != "Updated product title" {
		t.Fatalf("title = %q", updated.Title)
	}
	if len(updated.Metafields) != 1 || updated.Metafields[0].Key != "color" {
		t.Fatalf("metafields should be untouched, got %#v", updated.Metafields)
	}
	if len(updated.SocialMetadata) != 1 || updated.SocialMetadata[0].Message != "old tweet" {
		t.Fatalf("social metadata should be untouched, got %#v", updated.SocialMetadata)
	}
	if !updated.IsVisible {
		t.Fatalf("visibility should be untouched")
	}
	if !updated.UpdatedAt.Equal(now) {
		t.Fatalf("updatedAt = %s", updated.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Fatalf("createdAt must not move, got %s", updated.CreatedAt)
	}
}

func TestApplyFullyReplacesMetafields(t *testing.T) {
	entity := CatalogEntity{
		ID:     "999",
		ShopID: "shop-1",
		Type:   EntityTypeProduct,
		Metafields: []Metafield{
			{Key: "color", Value: "red"},
		},
	}

	replacement := []Metafield{
		{Key: "size", Value: "small"},
		{Key: "pattern", Value: "striped"},
	}
	updated := entity.Apply(ProductPatch{Metafields: &replacement}, nil, time.Now())

	if len(updated.Metafields) != 2 {
		t.Fatalf("expected exactly 2 metafields, got %d", len(updated.Metafields))
	}
	if updated.Metafields[0].Key != "size" || updated.Metafields[1].Key != "pattern" {
		t.Fatalf("metafield order not preserved: %#v", updated.Metafields)
	}

	// The applied copy must not alias the caller's slice.
	replacement[0].Key = "mutated"
	if updated.Metafields[0].Key != "size" {
		t.Fatalf("metafields aliased the patch slice")
	}
}

func TestApplyVisibilityRoundTrip(t *testing.T) {
	entity := CatalogEntity{ID: "999", ShopID: "shop-1", Type: EntityTypeProduct, IsVisible: true}

	hidden := entity.Apply(ProductPatch{IsVisible: boolPtr(false)}, nil, time.Now())
	if hidden.IsVisible {
		t.Fatalf("expected isVisible false")
	}
	shown := hidden.Apply(ProductPatch{IsVisible: boolPtr(true)}, nil, time.Now())
	if !shown.IsVisible {
		t.Fatalf("expected isVisible true")
	}
}

func TestApplyVariantNeverTouchesSocialMetadata(t *testing.T) {
	entity := CatalogEntity{
		ID:        "875",
		ShopID:    "shop-1",
		Type:      EntityTypeVariant,
		Ancestors: []string{"999"},
		Title:     "Fake Product Variant",
	}

	metafields := []Metafield{
		{Key: "size", Value: "small"},
		{Key: "pattern", Value: "striped"},
	}
	updated := entity.ApplyVariant(VariantPatch{
		Title:          strPtr("Updated variant title"),
		AttributeLabel: strPtr("color"),
		Metafields:     &metafields,
	}, time.Now())

	if updated.Title != "Updated variant title" || updated.AttributeLabel != "color" {
		t.Fatalf("unexpected fields: %#v", updated)
	}
	if len(updated.Metafields) != 2 {
		t.Fatalf("expected 2 metafields, got %d", len(updated.Metafields))
	}
	if updated.SocialMetadata != nil {
		t.Fatalf("variant must not carry social metadata")
	}
}

func TestEntityHierarchyHelpers(t *testing.T) {
	product := CatalogEntity{ID: "999", Type: EntityTypeProduct}
	if !product.IsProduct() {
		t.Fatalf("expected product")
	}
	if product.ProductID() != "999" || product.ParentID() != "" {
		t.Fatalf("unexpected product hierarchy helpers")
	}

	variant := CatalogEntity{ID: "875", Type: EntityTypeVariant, Ancestors: []string{"999"}}
	if variant.IsProduct() {
		t.Fatalf("variant is not a product")
	}
	if variant.ProductID() != "999" || variant.ParentID() != "999" {
		t.Fatalf("unexpected variant hierarchy helpers")
	}

	option := CatalogEntity{ID: "874", Type: EntityTypeVariant, Ancestors: []string{"999", "875"}}
	if option.ProductID() != "999" || option.ParentID() != "875" {
		t.Fatalf("unexpected option hierarchy helpers")
	}
}

func TestPatchIsZero(t *testing.T) {
	if !(ProductPatch{}).IsZero() {
		t.Fatalf("empty product patch should be zero")
	}
	if (ProductPatch{Title: strPtr("x")}).IsZero() {
		t.Fatalf("product patch with title is not zero")
	}
	if (ProductPatch{SocialOverrides: map[SocialService]string{SocialServiceTwitter: ""}}).IsZero() {
		t.Fatalf("product patch with social override is not zero")
	}
	if !(VariantPatch{}).IsZero() {
		t.Fatalf("empty variant patch should be zero")
	}
	if (VariantPatch{AttributeLabel: strPtr("color")}).IsZero() {
		t.Fatalf("variant patch with label is not zero")
	}
}

func TestNormalizeEntityType(t *testing.T) {
	cases := []struct {
		in   string
		want EntityType
		ok   bool
	}{
		{"simple", EntityTypeProduct, true},
		{" variant ", EntityTypeVariant, true},
		{"bundle", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeEntityType(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("NormalizeEntityType(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestOperatorHasCapability(t *testing.T) {
	operator := Operator{
		ID: "op-1",
		Roles: map[string][]string{
			"shop-1": {CapabilityCreateProduct, "manageOrders"},
			"shop-2": {"manageOrders"},
		},
	}

	if !operator.HasCapability("shop-1", CapabilityCreateProduct) {
		t.Fatalf("expected capability on shop-1")
	}
	if operator.HasCapability("shop-2", CapabilityCreateProduct) {
		t.Fatalf("unexpected capability on shop-2")
	}
	if operator.HasCapability("shop-3", CapabilityCreateProduct) {
		t.Fatalf("unexpected capability on unknown shop")
	}
}
