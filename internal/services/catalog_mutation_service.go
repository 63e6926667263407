package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	domain "github.com/commercegrid/catalog-api/internal/domain"
	"github.com/commercegrid/catalog-api/internal/platform/opaqueid"
	"github.com/commercegrid/catalog-api/internal/platform/requestctx"
	"github.com/commercegrid/catalog-api/internal/repositories"
)

var (
	// ErrMalformedIdentifier indicates an opaque identifier could not be decoded.
	ErrMalformedIdentifier = errors.New("catalog mutation service: malformed identifier")
	// ErrTypeMismatch indicates an identifier decoded to the wrong entity kind.
	ErrTypeMismatch = errors.New("catalog mutation service: identifier type mismatch")
	// ErrNotFound indicates the target entity is absent or soft-deleted.
	ErrNotFound = errors.New("catalog mutation service: entity not found")
	// ErrShopMismatch indicates the entity belongs to a different shop than requested.
	ErrShopMismatch = errors.New("catalog mutation service: shop mismatch")
	// ErrInvalidHierarchy indicates the entity's ancestor chain is broken or cross-shop.
	ErrInvalidHierarchy = errors.New("catalog mutation service: invalid hierarchy")
	// ErrEmptyPatch indicates the request carried no recognised field.
	ErrEmptyPatch = errors.New("catalog mutation service: empty patch")
)

// CatalogMutationServiceDeps bundles constructor inputs for the mutation service.
type CatalogMutationServiceDeps struct {
	Catalog repositories.CatalogRepository
	Access  AccessControlService
	Events  EventPublisher
	Clock   func() time.Time
	IDGen   func() string
}

type catalogMutationService struct {
	catalog repositories.CatalogRepository
	access  AccessControlService
	events  EventPublisher
	clock   func() time.Time
	idGen   func() string
}

// NewCatalogMutationService constructs the mutation orchestrator.
func NewCatalogMutationService(deps CatalogMutationServiceDeps) (CatalogMutationService, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog mutation service: catalog repository is required")
	}
	if deps.Access == nil {
		return nil, fmt.Errorf("catalog mutation service: access control service is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &catalogMutationService{
		catalog: deps.Catalog,
		access:  deps.Access,
		events:  deps.Events,
		clock:   func() time.Time { return clock().UTC() },
		idGen:   idGen,
	}, nil
}

// UpdateProduct applies a partial update to a top-level product.
func (s *catalogMutationService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (MutatedEntity, error) {
	shopRef, err := decodeAs(cmd.ShopID, opaqueid.KindShop)
	if err != nil {
		return MutatedEntity{}, err
	}
	productRef, err := decodeAs(cmd.ProductID, opaqueid.KindProduct)
	if err != nil {
		return MutatedEntity{}, err
	}
	if cmd.Patch.IsZero() {
		return MutatedEntity{}, ErrEmptyPatch
	}

	if err := s.access.Authorize(ctx, cmd.OperatorID, shopRef.Value(), domain.CapabilityCreateProduct); err != nil {
		return MutatedEntity{}, err
	}

	entity, err := s.catalog.FindByID(ctx, productRef.Value())
	if err != nil {
		return MutatedEntity{}, mapRepositoryError(err)
	}
	if entity.ShopID != shopRef.Value() {
		return MutatedEntity{}, fmt.Errorf("%w: product %s is not owned by shop %s", ErrShopMismatch, productRef.Value(), shopRef.Value())
	}
	if !entity.IsProduct() {
		return MutatedEntity{}, fmt.Errorf("%w: entity %s is not a product", ErrTypeMismatch, productRef.Value())
	}

	var social []domain.SocialMetadataEntry
	if cmd.Patch.HasSocialOverrides() {
		social = DeriveSocialMetadata(entity.SocialMetadata, cmd.Patch.SocialOverrides)
	}

	updated, err := s.catalog.ApplyProductPatch(ctx, shopRef.Value(), productRef.Value(), cmd.Patch, social, s.clock())
	if err != nil {
		return MutatedEntity{}, mapRepositoryError(err)
	}

	s.publishUpdated(ctx, updated, productChangedFields(cmd.Patch))

	return MutatedEntity{
		Entity:   updated,
		EntityID: opaqueid.Encode(opaqueid.KindProduct, updated.ID),
		ShopID:   shopRef.String(),
	}, nil
}

// UpdateVariant applies a partial update to a variant or option. The original
// id scheme encodes variants under the product namespace, so both kinds are
// accepted; the loaded entity decides whether the target really is a variant.
func (s *catalogMutationService) UpdateVariant(ctx context.Context, cmd UpdateVariantCommand) (MutatedEntity, error) {
	shopRef, err := decodeAs(cmd.ShopID, opaqueid.KindShop)
	if err != nil {
		return MutatedEntity{}, err
	}
	variantRef, err := decodeAs(cmd.VariantID, opaqueid.KindProduct, opaqueid.KindVariant)
	if err != nil {
		return MutatedEntity{}, err
	}
	if cmd.Patch.IsZero() {
		return MutatedEntity{}, ErrEmptyPatch
	}

	if err := s.access.Authorize(ctx, cmd.OperatorID, shopRef.Value(), domain.CapabilityCreateProduct); err != nil {
		return MutatedEntity{}, err
	}

	entity, err := s.catalog.FindByID(ctx, variantRef.Value())
	if err != nil {
		return MutatedEntity{}, mapRepositoryError(err)
	}
	if entity.ShopID != shopRef.Value() {
		return MutatedEntity{}, fmt.Errorf("%w: variant %s is not owned by shop %s", ErrShopMismatch, variantRef.Value(), shopRef.Value())
	}
	if entity.Type != domain.EntityTypeVariant {
		return MutatedEntity{}, fmt.Errorf("%w: entity %s is not a variant", ErrTypeMismatch, variantRef.Value())
	}

	updated, err := s.catalog.ApplyVariantPatch(ctx, shopRef.Value(), variantRef.Value(), cmd.Patch, s.clock())
	if err != nil {
		return MutatedEntity{}, mapRepositoryError(err)
	}

	s.publishUpdated(ctx, updated, variantChangedFields(cmd.Patch))

	return MutatedEntity{
		Entity:   updated,
		EntityID: opaqueid.Encode(opaqueid.KindVariant, updated.ID),
		ShopID:   shopRef.String(),
	}, nil
}

func (s *catalogMutationService) publishUpdated(ctx context.Context, entity domain.CatalogEntity, changed []string) {
	if s.events == nil {
		return
	}
	message := EntityUpdatedMessage{
		EventID:       s.idGen(),
		ShopID:        entity.ShopID,
		EntityID:      entity.ID,
		EntityType:    string(entity.Type),
		ChangedFields: changed,
		OccurredAt:    s.clock(),
	}
	if _, err := s.events.PublishEntityUpdated(ctx, message); err != nil {
		requestctx.Logger(ctx).Warn("entity updated event publish failed",
			zap.String("entity_id", entity.ID),
			zap.Error(err),
		)
	}
}

func decodeAs(opaque string, kinds ...opaqueid.Kind) (opaqueid.ID, error) {
	id, err := opaqueid.Decode(opaque)
	if err != nil {
		return opaqueid.ID{}, fmt.Errorf("%w: %v", ErrMalformedIdentifier, err)
	}
	for _, kind := range kinds {
		if id.Kind() == kind {
			return id, nil
		}
	}
	return opaqueid.ID{}, fmt.Errorf("%w: got %s id", ErrTypeMismatch, id.Kind())
}

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var catalogErr *repositories.CatalogError
	if errors.As(err, &catalogErr) {
		switch catalogErr.Code {
		case repositories.CatalogErrorShopMismatch:
			return fmt.Errorf("%w: %v", ErrShopMismatch, catalogErr)
		case repositories.CatalogErrorInvalidHierarchy:
			return fmt.Errorf("%w: %v", ErrInvalidHierarchy, catalogErr)
		case repositories.CatalogErrorWrongEntityType:
			return fmt.Errorf("%w: %v", ErrTypeMismatch, catalogErr)
		}
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func productChangedFields(patch domain.ProductPatch) []string {
	var fields []string
	if patch.Title != nil {
		fields = append(fields, "title")
	}
	if patch.IsVisible != nil {
		fields = append(fields, "isVisible")
	}
	if patch.Metafields != nil {
		fields = append(fields, "metafields")
	}
	if patch.SupportedFulfillmentTypes != nil {
		fields = append(fields, "supportedFulfillmentTypes")
	}
	if patch.HasSocialOverrides() {
		fields = append(fields, "socialMetadata")
	}
	return fields
}

func variantChangedFields(patch domain.VariantPatch) []string {
	var fields []string
	if patch.Title != nil {
		fields = append(fields, "title")
	}
	if patch.AttributeLabel != nil {
		fields = append(fields, "attributeLabel")
	}
	if patch.IsVisible != nil {
		fields = append(fields, "isVisible")
	}
	if patch.Metafields != nil {
		fields = append(fields, "metafields")
	}
	return fields
}
