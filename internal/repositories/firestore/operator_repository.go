package firestore

import (
	"context"
	"errors"

	domain "github.com/commercegrid/catalog-api/internal/domain"
	pfirestore "github.com/commercegrid/catalog-api/internal/platform/firestore"
	"github.com/commercegrid/catalog-api/internal/repositories"
)

const operatorsCollection = "operators"

// OperatorRepository resolves operator documents holding per-shop role grants.
type OperatorRepository struct {
	base *pfirestore.BaseRepository[domain.Operator]
}

var _ repositories.OperatorRepository = (*OperatorRepository)(nil)

// NewOperatorRepository constructs a Firestore-backed operator repository.
func NewOperatorRepository(provider *pfirestore.Provider) (*OperatorRepository, error) {
	if provider == nil {
		return nil, errors.New("operator repository requires firestore provider")
	}
	return &OperatorRepository{
		base: pfirestore.NewBaseRepository[domain.Operator](provider, operatorsCollection),
	}, nil
}

// FindByID loads the operator document keyed by the authenticated UID.
func (r *OperatorRepository) FindByID(ctx context.Context, operatorID string) (domain.Operator, error) {
	doc, err := r.base.Get(ctx, operatorID)
	if err != nil {
		return domain.Operator{}, err
	}
	operator := doc.Data
	operator.ID = doc.ID
	return operator, nil
}
