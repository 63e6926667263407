package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/commercegrid/catalog-api/internal/repositories"
)

// ErrUnauthorized indicates the acting operator lacks the required capability
// for the target shop.
var ErrUnauthorized = errors.New("access control service: operator not authorized")

// AccessControlServiceDeps bundles constructor inputs for the access control service.
type AccessControlServiceDeps struct {
	Operators repositories.OperatorRepository
}

type accessControlService struct {
	operators repositories.OperatorRepository
}

// NewAccessControlService constructs the capability checker backed by the
// operator repository.
func NewAccessControlService(deps AccessControlServiceDeps) (AccessControlService, error) {
	if deps.Operators == nil {
		return nil, fmt.Errorf("access control service: operator repository is required")
	}
	return &accessControlService{operators: deps.Operators}, nil
}

// Authorize checks the operator's role grants for the shop. An unknown
// operator is indistinguishable from one without the capability.
func (s *accessControlService) Authorize(ctx context.Context, operatorID, shopID, capability string) error {
	operatorID = strings.TrimSpace(operatorID)
	if operatorID == "" {
		return fmt.Errorf("%w: missing operator id", ErrUnauthorized)
	}

	operator, err := s.operators.FindByID(ctx, operatorID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return fmt.Errorf("%w: unknown operator %s", ErrUnauthorized, operatorID)
		}
		return err
	}

	if !operator.HasCapability(shopID, capability) {
		return fmt.Errorf("%w: operator %s lacks %s for shop %s", ErrUnauthorized, operatorID, capability, shopID)
	}
	return nil
}
