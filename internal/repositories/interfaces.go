package repositories

import (
	"context"
	"time"

	domain "github.com/commercegrid/catalog-api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CatalogRepository persists catalog entities (products and variants) for shops.
//
// The patch operations re-validate ownership and hierarchy inside a transaction
// so that a stale read can never produce a cross-shop or orphaned write. They
// return typed CatalogError values for domain rule violations and a
// RepositoryError with IsNotFound for missing or soft-deleted entities.
type CatalogRepository interface {
	// FindByID loads a catalog entity. Soft-deleted entities are reported as
	// not found.
	FindByID(ctx context.Context, entityID string) (domain.CatalogEntity, error)

	// ApplyProductPatch applies the patch to a top-level product owned by shopID.
	// A non-nil social slice replaces the stored social metadata in full.
	ApplyProductPatch(ctx context.Context, shopID, productID string, patch domain.ProductPatch, social []domain.SocialMetadataEntry, now time.Time) (domain.CatalogEntity, error)

	// ApplyVariantPatch applies the patch to a variant owned by shopID.
	ApplyVariantPatch(ctx context.Context, shopID, variantID string, patch domain.VariantPatch, now time.Time) (domain.CatalogEntity, error)
}

// OperatorRepository resolves acting operators and their per-shop role grants.
type OperatorRepository interface {
	FindByID(ctx context.Context, operatorID string) (domain.Operator, error)
}

// ShopRepository resolves shop records.
type ShopRepository interface {
	FindByID(ctx context.Context, shopID string) (domain.Shop, error)
}

// HealthRepository aggregates dependency probes for health endpoints.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
