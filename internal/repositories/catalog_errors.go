package repositories

import "fmt"

// CatalogErrorCode enumerates repository error causes for catalog mutations.
type CatalogErrorCode string

const (
	// CatalogErrorUnknown represents an unspecified failure.
	CatalogErrorUnknown CatalogErrorCode = "catalog_unknown"
	// CatalogErrorShopMismatch indicates the entity belongs to a different shop.
	CatalogErrorShopMismatch CatalogErrorCode = "catalog_shop_mismatch"
	// CatalogErrorInvalidHierarchy indicates the entity's ancestors do not resolve to a valid product.
	CatalogErrorInvalidHierarchy CatalogErrorCode = "catalog_invalid_hierarchy"
	// CatalogErrorWrongEntityType indicates the stored document is not of the expected type.
	CatalogErrorWrongEntityType CatalogErrorCode = "catalog_wrong_entity_type"
)

// CatalogError wraps catalog-specific failures with machine readable codes.
type CatalogError struct {
	Op      string
	Code    CatalogErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *CatalogError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewCatalogError constructs a typed catalog error.
func NewCatalogError(code CatalogErrorCode, message string, err error) *CatalogError {
	if message == "" {
		message = string(code)
	}
	return &CatalogError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
