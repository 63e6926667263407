// Package opaqueid implements the reversible encoding between externally
// exposed identifiers and internal (entity kind, id) pairs. The encoding is
// an encapsulation convention only; it carries no authorisation semantics.
package opaqueid

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Kind tags the entity namespace an identifier belongs to. IDs carrying a
// Kind are produced only by Decode, so downstream code can switch over kinds
// instead of re-parsing strings.
type Kind string

const (
	KindProduct Kind = "product"
	KindVariant Kind = "variant"
	KindShop    Kind = "shop"
)

const namespace = "catalog"

// ErrMalformed indicates the opaque identifier could not be decoded into a
// recognised entity kind and internal id.
var ErrMalformed = errors.New("opaqueid: malformed identifier")

// ID is the decoded form of an opaque identifier.
type ID struct {
	kind  Kind
	value string
}

// Kind returns the entity namespace tag.
func (id ID) Kind() Kind { return id.kind }

// Value returns the internal entity id.
func (id ID) Value() string { return id.value }

// String re-encodes the identifier into its opaque external form.
func (id ID) String() string { return Encode(id.kind, id.value) }

// Encode produces the opaque external identifier for the given kind and
// internal id. Decode(Encode(kind, id)) round-trips for all valid inputs.
func Encode(kind Kind, internalID string) string {
	composite := fmt.Sprintf("%s/%s:%s", namespace, kind, internalID)
	return base64.StdEncoding.EncodeToString([]byte(composite))
}

// Decode parses an opaque external identifier back into its kind and internal
// id. It fails with ErrMalformed when the input is not base64, does not carry
// the expected namespace, or names an unknown kind.
func Decode(opaque string) (ID, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(opaque))
	if err != nil {
		return ID{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	composite := string(raw)
	slash := strings.IndexByte(composite, '/')
	colon := strings.IndexByte(composite, ':')
	if slash <= 0 || colon <= slash+1 || colon == len(composite)-1 {
		return ID{}, fmt.Errorf("%w: %q", ErrMalformed, composite)
	}
	if composite[:slash] != namespace {
		return ID{}, fmt.Errorf("%w: unknown namespace %q", ErrMalformed, composite[:slash])
	}

	kind := Kind(composite[slash+1 : colon])
	switch kind {
	case KindProduct, KindVariant, KindShop:
	default:
		return ID{}, fmt.Errorf("%w: unknown kind %q", ErrMalformed, string(kind))
	}

	return ID{kind: kind, value: composite[colon+1:]}, nil
}

// MustDecode is a test helper panicking on malformed input.
func MustDecode(opaque string) ID {
	id, err := Decode(opaque)
	if err != nil {
		panic(err)
	}
	return id
}
