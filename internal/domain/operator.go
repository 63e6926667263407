package domain

import "strings"

// Capability names gating catalog mutations. CapabilityCreateProduct is the
// umbrella "can edit catalog" capability; no finer-grained field permissions
// exist.
const (
	CapabilityCreateProduct = "createProduct"
)

// Operator is an acting user with per-shop capability assignments.
type Operator struct {
	ID string `firestore:"-"`

	// Roles maps an internal shop id to the capabilities granted there.
	Roles map[string][]string `firestore:"roles"`
}

// HasCapability reports whether the operator holds the capability for the
// given shop (case-sensitive capability names, matching stored role data).
func (o Operator) HasCapability(shopID, capability string) bool {
	shopID = strings.TrimSpace(shopID)
	capability = strings.TrimSpace(capability)
	if shopID == "" || capability == "" {
		return false
	}
	for _, granted := range o.Roles[shopID] {
		if granted == capability {
			return true
		}
	}
	return false
}
