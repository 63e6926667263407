package domain

import (
	"strings"
	"time"
)

// EntityType discriminates catalog documents sharing the products collection.
type EntityType string

const (
	// EntityTypeProduct marks a top-level product document.
	EntityTypeProduct EntityType = "simple"
	// EntityTypeVariant marks a variant or option document; the two are told
	// apart only by ancestor depth.
	EntityTypeVariant EntityType = "variant"
)

// SocialService identifies a share-message target service.
type SocialService string

const (
	SocialServiceFacebook   SocialService = "facebook"
	SocialServiceGooglePlus SocialService = "googleplus"
	SocialServicePinterest  SocialService = "pinterest"
	SocialServiceTwitter    SocialService = "twitter"
)

// SocialServiceOrder is the canonical ordering of derived social metadata
// entries. The deriver always emits exactly one entry per service in this
// order, never the order overrides arrived in.
var SocialServiceOrder = []SocialService{
	SocialServiceFacebook,
	SocialServiceGooglePlus,
	SocialServicePinterest,
	SocialServiceTwitter,
}

// Metafield is a single key/value annotation on a catalog entity. Keys need
// not be unique and ordering is caller-significant.
type Metafield struct {
	Key   string `firestore:"key" json:"key"`
	Value string `firestore:"value" json:"value"`
}

// SocialMetadataEntry carries the share message derived for one service.
type SocialMetadataEntry struct {
	Service SocialService `firestore:"service" json:"service"`
	Message string        `firestore:"message" json:"message"`
}

// CatalogEntity is the document shape shared by products, variants and
// options. Variants and options use the same representation; an option is a
// variant whose ancestor chain has depth two.
type CatalogEntity struct {
	ID        string     `firestore:"-"`
	ShopID    string     `firestore:"shopId"`
	Type      EntityType `firestore:"type"`
	Ancestors []string   `firestore:"ancestors"`

	Title          string `firestore:"title"`
	AttributeLabel string `firestore:"attributeLabel,omitempty"`

	IsVisible bool `firestore:"isVisible"`
	IsDeleted bool `firestore:"isDeleted"`

	Metafields []Metafield `firestore:"metafields,omitempty"`

	// SocialMetadata is derived state and only present on products.
	SocialMetadata []SocialMetadataEntry `firestore:"socialMetadata,omitempty"`

	SupportedFulfillmentTypes []string `firestore:"supportedFulfillmentTypes,omitempty"`

	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// IsProduct reports whether the entity is a top-level product.
func (e CatalogEntity) IsProduct() bool {
	return e.Type == EntityTypeProduct && len(e.Ancestors) == 0
}

// ProductID returns the internal id of the owning product. For a product this
// is the entity's own id.
func (e CatalogEntity) ProductID() string {
	if len(e.Ancestors) == 0 {
		return e.ID
	}
	return e.Ancestors[0]
}

// ParentID returns the internal id of the immediate parent, or empty for a
// top-level product.
func (e CatalogEntity) ParentID() string {
	if len(e.Ancestors) == 0 {
		return ""
	}
	return e.Ancestors[len(e.Ancestors)-1]
}

// SocialMessage returns the stored share message for the given service, if
// one exists.
func (e CatalogEntity) SocialMessage(service SocialService) (string, bool) {
	for _, entry := range e.SocialMetadata {
		if entry.Service == service {
			return entry.Message, true
		}
	}
	return "", false
}

// ProductPatch is a partial field set applied to a product. Nil pointers mean
// "leave untouched"; present fields fully replace prior values, including the
// metafields sequence.
type ProductPatch struct {
	Title                     *string
	IsVisible                 *bool
	Metafields                *[]Metafield
	SupportedFulfillmentTypes *[]string

	// SocialOverrides holds per-service share-message overrides keyed by
	// service. An explicit empty string clears the message. Any present key
	// triggers re-derivation of the full socialMetadata sequence.
	SocialOverrides map[SocialService]string
}

// IsZero reports whether the patch carries no field at all.
func (p ProductPatch) IsZero() bool {
	return p.Title == nil && p.IsVisible == nil && p.Metafields == nil &&
		p.SupportedFulfillmentTypes == nil && len(p.SocialOverrides) == 0
}

// HasSocialOverrides reports whether the patch touches any social override
// field and therefore requires socialMetadata re-derivation.
func (p ProductPatch) HasSocialOverrides() bool {
	return len(p.SocialOverrides) > 0
}

// Apply returns a copy of the entity with the patch applied. Present fields
// fully replace prior values; sequences are copied, never aliased. A non-nil
// social slice replaces the stored social metadata. The updatedAt timestamp is
// bumped to now.
func (e CatalogEntity) Apply(patch ProductPatch, social []SocialMetadataEntry, now time.Time) CatalogEntity {
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.IsVisible != nil {
		e.IsVisible = *patch.IsVisible
	}
	if patch.Metafields != nil {
		e.Metafields = append([]Metafield(nil), (*patch.Metafields)...)
	}
	if patch.SupportedFulfillmentTypes != nil {
		e.SupportedFulfillmentTypes = append([]string(nil), (*patch.SupportedFulfillmentTypes)...)
	}
	if social != nil {
		e.SocialMetadata = append([]SocialMetadataEntry(nil), social...)
	}
	e.UpdatedAt = now.UTC()
	return e
}

// VariantPatch is a partial field set applied to a variant or option.
type VariantPatch struct {
	Title          *string
	AttributeLabel *string
	IsVisible      *bool
	Metafields     *[]Metafield
}

// IsZero reports whether the patch carries no field at all.
func (p VariantPatch) IsZero() bool {
	return p.Title == nil && p.AttributeLabel == nil && p.IsVisible == nil && p.Metafields == nil
}

// ApplyVariant returns a copy of the entity with the variant patch applied. Variants
// and options share the representation, so the same application works for
// both. Variants never carry social metadata.
func (e CatalogEntity) ApplyVariant(patch VariantPatch, now time.Time) CatalogEntity {
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.AttributeLabel != nil {
		e.AttributeLabel = *patch.AttributeLabel
	}
	if patch.IsVisible != nil {
		e.IsVisible = *patch.IsVisible
	}
	if patch.Metafields != nil {
		e.Metafields = append([]Metafield(nil), (*patch.Metafields)...)
	}
	e.UpdatedAt = now.UTC()
	return e
}

// Shop is the owning scope for catalog entities and operator capabilities.
type Shop struct {
	ID        string    `firestore:"-"`
	Name      string    `firestore:"name"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// NormalizeEntityType maps stored type strings onto the known entity types.
func NormalizeEntityType(value string) (EntityType, bool) {
	switch EntityType(strings.TrimSpace(value)) {
	case EntityTypeProduct:
		return EntityTypeProduct, true
	case EntityTypeVariant:
		return EntityTypeVariant, true
	default:
		return "", false
	}
}
