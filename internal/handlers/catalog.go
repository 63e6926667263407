package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/commercegrid/catalog-api/internal/domain"
	"github.com/commercegrid/catalog-api/internal/platform/auth"
	"github.com/commercegrid/catalog-api/internal/platform/httpx"
	"github.com/commercegrid/catalog-api/internal/platform/opaqueid"
	"github.com/commercegrid/catalog-api/internal/services"
)

const maxCatalogRequestBody = 256 * 1024

// OperatorResolver extracts the acting operator id from the request context.
type OperatorResolver func(ctx context.Context) (string, bool)

// CatalogHandlers exposes the catalog mutation endpoints.
type CatalogHandlers struct {
	authn     *auth.Authenticator
	mutations services.CatalogMutationService
	operator  OperatorResolver
}

// NewCatalogHandlers constructs handlers for the public catalog mount. The
// acting operator is the authenticated Firebase identity.
func NewCatalogHandlers(authn *auth.Authenticator, mutations services.CatalogMutationService) *CatalogHandlers {
	return &CatalogHandlers{
		authn:     authn,
		mutations: mutations,
		operator:  firebaseOperator,
	}
}

// NewInternalCatalogHandlers constructs handlers for the /internal
// service-to-service mount. The acting operator is the OIDC subject; the OIDC
// middleware is applied by the router, not here.
func NewInternalCatalogHandlers(mutations services.CatalogMutationService) *CatalogHandlers {
	return &CatalogHandlers{
		mutations: mutations,
		operator:  serviceOperator,
	}
}

func firebaseOperator(ctx context.Context) (string, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		return "", false
	}
	return identity.UID, true
}

func serviceOperator(ctx context.Context) (string, bool) {
	identity, ok := auth.ServiceIdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.Subject) == "" {
		return "", false
	}
	return identity.Subject, true
}

// Routes registers the catalog mutation endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Route("/catalog", func(rt chi.Router) {
		rt.Post("/products/{productId}", h.updateProduct)
		rt.Post("/products/{productId}/variants/{variantId}", h.updateVariant)
	})
}

func (h *CatalogHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.mutations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	operatorID, ok := h.operator(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	req, err := decodeUpdateProductRequest(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.mutations.UpdateProduct(ctx, services.UpdateProductCommand{
		OperatorID: operatorID,
		ShopID:     req.ShopID,
		ProductID:  chi.URLParam(r, "productId"),
		Patch:      req.Product.toPatch(),
	})
	if err != nil {
		writeMutationError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, newCatalogEntityResponse(result))
}

func (h *CatalogHandlers) updateVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.mutations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	operatorID, ok := h.operator(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	req, err := decodeUpdateVariantRequest(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.mutations.UpdateVariant(ctx, services.UpdateVariantCommand{
		OperatorID: operatorID,
		ShopID:     req.ShopID,
		VariantID:  chi.URLParam(r, "variantId"),
		Patch:      req.Variant.toPatch(),
	})
	if err != nil {
		writeMutationError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, newCatalogEntityResponse(result))
}

func writeMutationError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrMalformedIdentifier):
		httpx.WriteError(ctx, w, httpx.NewError("malformed_identifier", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrEmptyPatch):
		httpx.WriteError(ctx, w, httpx.NewError("empty_patch", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrTypeMismatch):
		httpx.WriteError(ctx, w, httpx.NewError("type_mismatch", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "operator lacks permission for this shop", http.StatusForbidden))
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrShopMismatch):
		httpx.WriteError(ctx, w, httpx.NewError("shop_mismatch", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrInvalidHierarchy):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_hierarchy", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "catalog mutation failed", http.StatusInternalServerError))
	}
}

type updateProductRequest struct {
	ShopID  string               `json:"shopId"`
	Product *productPatchPayload `json:"product"`
}

type productPatchPayload struct {
	Title                     *string           `json:"title"`
	IsVisible                 *bool             `json:"isVisible"`
	Metafields                *[]metafieldInput `json:"metafields"`
	SupportedFulfillmentTypes *[]string         `json:"supportedFulfillmentTypes"`
	FacebookMsg               *string           `json:"facebookMsg"`
	GooglePlusMsg             *string           `json:"googleplusMsg"`
	PinterestMsg              *string           `json:"pinterestMsg"`
	TwitterMsg                *string           `json:"twitterMsg"`
}

type updateVariantRequest struct {
	ShopID  string               `json:"shopId"`
	Variant *variantPatchPayload `json:"variant"`
}

type variantPatchPayload struct {
	Title          *string           `json:"title"`
	AttributeLabel *string           `json:"attributeLabel"`
	IsVisible      *bool             `json:"isVisible"`
	Metafields     *[]metafieldInput `json:"metafields"`
}

type metafieldInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func decodeUpdateProductRequest(r *http.Request) (updateProductRequest, error) {
	var req updateProductRequest
	if err := decodeRequestBody(r, &req); err != nil {
		return updateProductRequest{}, err
	}
	if strings.TrimSpace(req.ShopID) == "" {
		return updateProductRequest{}, errors.New("shopId is required")
	}
	if req.Product == nil {
		return updateProductRequest{}, errors.New("product patch is required")
	}
	return req, nil
}

func decodeUpdateVariantRequest(r *http.Request) (updateVariantRequest, error) {
	var req updateVariantRequest
	if err := decodeRequestBody(r, &req); err != nil {
		return updateVariantRequest{}, err
	}
	if strings.TrimSpace(req.ShopID) == "" {
		return updateVariantRequest{}, errors.New("shopId is required")
	}
	if req.Variant == nil {
		return updateVariantRequest{}, errors.New("variant patch is required")
	}
	return req, nil
}

func decodeRequestBody(r *http.Request, out any) error {
	limited := io.LimitReader(r.Body, maxCatalogRequestBody)
	defer r.Body.Close()
	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body required")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (p *productPatchPayload) toPatch() domain.ProductPatch {
	patch := domain.ProductPatch{
		Title:                     p.Title,
		IsVisible:                 p.IsVisible,
		SupportedFulfillmentTypes: p.SupportedFulfillmentTypes,
	}
	if p.Metafields != nil {
		metafields := toMetafields(*p.Metafields)
		patch.Metafields = &metafields
	}
	overrides := map[domain.SocialService]string{}
	if p.FacebookMsg != nil {
		overrides[domain.SocialServiceFacebook] = *p.FacebookMsg
	}
	if p.GooglePlusMsg != nil {
		overrides[domain.SocialServiceGooglePlus] = *p.GooglePlusMsg
	}
	if p.PinterestMsg != nil {
		overrides[domain.SocialServicePinterest] = *p.PinterestMsg
	}
	if p.TwitterMsg != nil {
		overrides[domain.SocialServiceTwitter] = *p.TwitterMsg
	}
	if len(overrides) > 0 {
		patch.SocialOverrides = overrides
	}
	return patch
}

func (p *variantPatchPayload) toPatch() domain.VariantPatch {
	patch := domain.VariantPatch{
		Title:          p.Title,
		AttributeLabel: p.AttributeLabel,
		IsVisible:      p.IsVisible,
	}
	if p.Metafields != nil {
		metafields := toMetafields(*p.Metafields)
		patch.Metafields = &metafields
	}
	return patch
}

func toMetafields(inputs []metafieldInput) []domain.Metafield {
	metafields := make([]domain.Metafield, 0, len(inputs))
	for _, input := range inputs {
		metafields = append(metafields, domain.Metafield{Key: input.Key, Value: input.Value})
	}
	return metafields
}

type catalogEntityResponse struct {
	ID                        string                 `json:"_id"`
	ShopID                    string                 `json:"shopId"`
	Type                      string                 `json:"type"`
	Ancestors                 []string               `json:"ancestors,omitempty"`
	Title                     string                 `json:"title"`
	AttributeLabel            string                 `json:"attributeLabel,omitempty"`
	IsVisible                 bool                   `json:"isVisible"`
	IsDeleted                 bool                   `json:"isDeleted"`
	Metafields                []metafieldInput       `json:"metafields,omitempty"`
	SocialMetadata            []socialMetadataOutput `json:"socialMetadata,omitempty"`
	SupportedFulfillmentTypes []string               `json:"supportedFulfillmentTypes,omitempty"`
	CreatedAt                 string                 `json:"createdAt,omitempty"`
	UpdatedAt                 string                 `json:"updatedAt,omitempty"`
}

type socialMetadataOutput struct {
	Service string `json:"service"`
	Message string `json:"message"`
}

func newCatalogEntityResponse(result services.MutatedEntity) catalogEntityResponse {
	entity := result.Entity
	resp := catalogEntityResponse{
		ID:                        result.EntityID,
		ShopID:                    result.ShopID,
		Type:                      string(entity.Type),
		Title:                     entity.Title,
		AttributeLabel:            entity.AttributeLabel,
		IsVisible:                 entity.IsVisible,
		IsDeleted:                 entity.IsDeleted,
		SupportedFulfillmentTypes: entity.SupportedFulfillmentTypes,
	}
	for _, ancestorID := range entity.Ancestors {
		resp.Ancestors = append(resp.Ancestors, opaqueid.Encode(opaqueid.KindProduct, ancestorID))
	}
	for _, metafield := range entity.Metafields {
		resp.Metafields = append(resp.Metafields, metafieldInput{Key: metafield.Key, Value: metafield.Value})
	}
	for _, entry := range entity.SocialMetadata {
		resp.SocialMetadata = append(resp.SocialMetadata, socialMetadataOutput{
			Service: string(entry.Service),
			Message: entry.Message,
		})
	}
	if !entity.CreatedAt.IsZero() {
		resp.CreatedAt = formatTimestamp(entity.CreatedAt)
	}
	if !entity.UpdatedAt.IsZero() {
		resp.UpdatedAt = formatTimestamp(entity.UpdatedAt)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
