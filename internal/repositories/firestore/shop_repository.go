package firestore

import (
	"context"
	"errors"

	domain "github.com/commercegrid/catalog-api/internal/domain"
	pfirestore "github.com/commercegrid/catalog-api/internal/platform/firestore"
	"github.com/commercegrid/catalog-api/internal/repositories"
)

const shopsCollection = "shops"

// ShopRepository resolves shop documents.
type ShopRepository struct {
	base *pfirestore.BaseRepository[domain.Shop]
}

var _ repositories.ShopRepository = (*ShopRepository)(nil)

// NewShopRepository constructs a Firestore-backed shop repository.
func NewShopRepository(provider *pfirestore.Provider) (*ShopRepository, error) {
	if provider == nil {
		return nil, errors.New("shop repository requires firestore provider")
	}
	return &ShopRepository{
		base: pfirestore.NewBaseRepository[domain.Shop](provider, shopsCollection),
	}, nil
}

// FindByID loads a shop by its internal id.
func (r *ShopRepository) FindByID(ctx context.Context, shopID string) (domain.Shop, error) {
	doc, err := r.base.Get(ctx, shopID)
	if err != nil {
		return domain.Shop{}, err
	}
	shop := doc.Data
	shop.ID = doc.ID
	return shop, nil
}
