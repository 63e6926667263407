package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/commercegrid/catalog-api/internal/domain"
	pfirestore "github.com/commercegrid/catalog-api/internal/platform/firestore"
	"github.com/commercegrid/catalog-api/internal/repositories"
)

const productsCollection = "products"

// CatalogRepository persists catalog entities in the products collection.
// Products, variants and options share the collection; the ancestor chain
// distinguishes them.
type CatalogRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[domain.CatalogEntity]
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

// NewCatalogRepository constructs a Firestore-backed catalog repository.
func NewCatalogRepository(provider *pfirestore.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires firestore provider")
	}
	return &CatalogRepository{
		provider: provider,
		base:     pfirestore.NewBaseRepository[domain.CatalogEntity](provider, productsCollection),
	}, nil
}

// FindByID loads a catalog entity. Soft-deleted entities surface as not found.
func (r *CatalogRepository) FindByID(ctx context.Context, entityID string) (domain.CatalogEntity, error) {
	doc, err := r.base.Get(ctx, entityID)
	if err != nil {
		return domain.CatalogEntity{}, err
	}

	entity := doc.Data
	entity.ID = doc.ID
	if entity.IsDeleted {
		return domain.CatalogEntity{}, pfirestore.WrapError("products.get",
			status.Errorf(codes.NotFound, "catalog entity %s is deleted", entityID))
	}
	return entity, nil
}

// ApplyProductPatch applies the patch to a top-level product inside a
// transaction, re-validating ownership against a fresh read.
func (r *CatalogRepository) ApplyProductPatch(ctx context.Context, shopID, productID string, patch domain.ProductPatch, social []domain.SocialMetadataEntry, now time.Time) (domain.CatalogEntity, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return domain.CatalogEntity{}, errors.New("catalog repository: shop id is required")
	}

	var updated domain.CatalogEntity
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docRef, err := r.base.DocumentRef(ctx, productID)
		if err != nil {
			return err
		}

		entity, err := readEntity(tx, docRef)
		if err != nil {
			return err
		}

		if entity.ShopID != shopID {
			return repositories.NewCatalogError(repositories.CatalogErrorShopMismatch,
				fmt.Sprintf("product %s belongs to shop %s, not %s", productID, entity.ShopID, shopID), nil)
		}
		if !entity.IsProduct() {
			return repositories.NewCatalogError(repositories.CatalogErrorWrongEntityType,
				fmt.Sprintf("entity %s is not a top-level product", productID), nil)
		}

		updated = entity.Apply(patch, social, now)
		return tx.Set(docRef, updated)
	})
	if err != nil {
		return domain.CatalogEntity{}, err
	}
	return updated, nil
}

// ApplyVariantPatch applies the patch to a variant or option inside a
// transaction. The ancestor chain is re-resolved against the same snapshot:
// every ancestor must exist in the same shop and the chain root must be a
// product.
func (r *CatalogRepository) ApplyVariantPatch(ctx context.Context, shopID, variantID string, patch domain.VariantPatch, now time.Time) (domain.CatalogEntity, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return domain.CatalogEntity{}, errors.New("catalog repository: shop id is required")
	}

	var updated domain.CatalogEntity
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docRef, err := r.base.DocumentRef(ctx, variantID)
		if err != nil {
			return err
		}

		entity, err := readEntity(tx, docRef)
		if err != nil {
			return err
		}

		if entity.ShopID != shopID {
			return repositories.NewCatalogError(repositories.CatalogErrorShopMismatch,
				fmt.Sprintf("variant %s belongs to shop %s, not %s", variantID, entity.ShopID, shopID), nil)
		}
		if entity.Type != domain.EntityTypeVariant || len(entity.Ancestors) == 0 {
			return repositories.NewCatalogError(repositories.CatalogErrorWrongEntityType,
				fmt.Sprintf("entity %s is not a variant", variantID), nil)
		}

		if err := r.validateAncestors(ctx, tx, shopID, entity.Ancestors); err != nil {
			return err
		}

		updated = entity.ApplyVariant(patch, now)
		return tx.Set(docRef, updated)
	})
	if err != nil {
		return domain.CatalogEntity{}, err
	}
	return updated, nil
}

// validateAncestors resolves the ancestor chain within the transaction. Every
// ancestor must exist in the same shop and the chain root must be a live
// product. The target entity's own deletion flag is patchable without
// restriction; the chain it hangs from is not.
func (r *CatalogRepository) validateAncestors(ctx context.Context, tx *firestore.Transaction, shopID string, ancestors []string) error {
	for idx, ancestorID := range ancestors {
		ref, err := r.base.DocumentRef(ctx, ancestorID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewCatalogError(repositories.CatalogErrorInvalidHierarchy,
					fmt.Sprintf("ancestor %s does not exist", ancestorID), nil)
			}
			return err
		}
		var ancestor domain.CatalogEntity
		if err := snap.DataTo(&ancestor); err != nil {
			return fmt.Errorf("catalog repository: decode ancestor %s: %w", ancestorID, err)
		}
		if ancestor.ShopID != shopID {
			return repositories.NewCatalogError(repositories.CatalogErrorInvalidHierarchy,
				fmt.Sprintf("ancestor %s belongs to a different shop", ancestorID), nil)
		}
		if idx == 0 && (ancestor.Type != domain.EntityTypeProduct || ancestor.IsDeleted) {
			return repositories.NewCatalogError(repositories.CatalogErrorInvalidHierarchy,
				fmt.Sprintf("chain root %s is not a live product", ancestorID), nil)
		}
	}
	return nil
}

func readEntity(tx *firestore.Transaction, docRef *firestore.DocumentRef) (domain.CatalogEntity, error) {
	snap, err := tx.Get(docRef)
	if err != nil {
		return domain.CatalogEntity{}, err
	}
	var entity domain.CatalogEntity
	if err := snap.DataTo(&entity); err != nil {
		return domain.CatalogEntity{}, fmt.Errorf("catalog repository: decode entity %s: %w", docRef.ID, err)
	}
	entity.ID = snap.Ref.ID
	if entity.IsDeleted {
		return domain.CatalogEntity{}, status.Errorf(codes.NotFound, "catalog entity %s is deleted", docRef.ID)
	}
	return entity, nil
}
