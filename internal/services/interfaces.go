package services

import (
	"context"
	"time"

	domain "github.com/commercegrid/catalog-api/internal/domain"
)

// AccessControlService checks shop-scoped capabilities for acting operators.
type AccessControlService interface {
	// Authorize fails with ErrUnauthorized when the operator's role grants for
	// shopID do not include the capability.
	Authorize(ctx context.Context, operatorID, shopID, capability string) error
}

// UpdateProductCommand carries one update-product request. Identifiers arrive
// in their opaque external form and are decoded by the service.
type UpdateProductCommand struct {
	OperatorID string
	ShopID     string
	ProductID  string
	Patch      domain.ProductPatch
}

// UpdateVariantCommand carries one update-variant-or-option request.
type UpdateVariantCommand struct {
	OperatorID string
	ShopID     string
	VariantID  string
	Patch      domain.VariantPatch
}

// MutatedEntity is the result of a successful catalog mutation. EntityID and
// ShopID are re-encoded to their opaque external form.
type MutatedEntity struct {
	Entity   domain.CatalogEntity
	EntityID string
	ShopID   string
}

// CatalogMutationService exposes the two catalog mutation operations.
type CatalogMutationService interface {
	UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (MutatedEntity, error)
	UpdateVariant(ctx context.Context, cmd UpdateVariantCommand) (MutatedEntity, error)
}

// EntityUpdatedMessage is the payload published after a successful mutation.
type EntityUpdatedMessage struct {
	EventID       string    `json:"eventId"`
	ShopID        string    `json:"shopId"`
	EntityID      string    `json:"entityId"`
	EntityType    string    `json:"entityType"`
	ChangedFields []string  `json:"changedFields,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// EventPublisher publishes catalog entity update events. Publishing is best
// effort; failures never roll back the mutation.
type EventPublisher interface {
	PublishEntityUpdated(ctx context.Context, message EntityUpdatedMessage) (string, error)
}

// SystemService aggregates health information for the operational endpoints.
type SystemService interface {
	Health(ctx context.Context) (domain.SystemHealthReport, error)
}
