package services

import (
	domain "github.com/commercegrid/catalog-api/internal/domain"
)

// DeriveSocialMetadata recomputes the per-service share messages for a
// product. The result always holds exactly one entry per known service, in the
// canonical order, regardless of which overrides were supplied or how the
// prior sequence was ordered. An override present in the patch wins verbatim,
// an explicit empty string included; otherwise the prior message is carried
// forward, defaulting to empty.
func DeriveSocialMetadata(existing []domain.SocialMetadataEntry, overrides map[domain.SocialService]string) []domain.SocialMetadataEntry {
	derived := make([]domain.SocialMetadataEntry, 0, len(domain.SocialServiceOrder))
	for _, service := range domain.SocialServiceOrder {
		message := ""
		for _, entry := range existing {
			if entry.Service == service {
				message = entry.Message
				break
			}
		}
		if override, ok := overrides[service]; ok {
			message = override
		}
		derived = append(derived, domain.SocialMetadataEntry{Service: service, Message: message})
	}
	return derived
}
