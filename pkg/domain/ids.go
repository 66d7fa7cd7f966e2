// Package domain holds identity types shared across modules. Typed addresses
// prevent accidentally passing a raw string where an authenticated identity is
// expected; parsing happens once at trust boundaries.
package domain

import (
	dErrors "agriproof/pkg/domain-errors"
)

// Address identifies an actor in the registry: the admin, a verifier, or a
// farmer. The registry treats it as opaque; the signing collaborator is
// responsible for proving the caller controls it. Algorand-style 58-character
// base32 addresses are the production form, but any token from the allowed
// charset is accepted so local deployments can use readable identities.
type Address string

// MaxAddressLen bounds stored identities; Algorand addresses are 58 chars.
const MaxAddressLen = 64

// ParseAddress validates a raw identity string at a trust boundary.
// Rejects empty, oversized, and non-printable input.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must not be empty")
	}
	if len(s) > MaxAddressLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address exceeds maximum length")
	}
	for _, r := range s {
		if !isAddressRune(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "address contains invalid characters")
		}
	}
	return Address(s), nil
}

// MustAddress parses s and panics on failure. Test helper only.
func MustAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

func isAddressRune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	default:
		return false
	}
}

func (a Address) String() string { return string(a) }

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool { return a == "" }

// Equal is a readability helper for identity comparisons in role checks.
func (a Address) Equal(other Address) bool { return a == other }

// Short returns a truncated form for logs so full identities don't leak into
// operational output.
func (a Address) Short() string {
	const keep = 8
	if len(a) <= keep {
		return string(a)
	}
	return string(a[:keep]) + "…"
}
