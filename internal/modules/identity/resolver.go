// Package identity derives canonical instrument identifiers.
package identity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Resolver maps ISINs to stable instrument IDs (UUID version 5 under a fixed namespace).
type Resolver struct {
	namespace uuid.UUID
}

// NewResolver creates a resolver for the given namespace UUID string.
func NewResolver(namespace string) (*Resolver, error) {
	ns, err := uuid.Parse(namespace)
	if err != nil {
		return nil, fmt.Errorf("invalid identity namespace %q: %w", namespace, err)
	}
	return &Resolver{namespace: ns}, nil
}

// DeriveID returns the instrument ID for an ISIN. The ISIN is trimmed and
// upper-cased first, so the same ISIN and namespace always yield the same ID.
func (r *Resolver) DeriveID(isin string) string {
	return uuid.NewSHA1(r.namespace, []byte(normalizeISIN(isin))).String()
}

func normalizeISIN(isin string) string {
	return strings.ToUpper(strings.TrimSpace(isin))
}

// Namespace returns the namespace the resolver derives IDs under.
func (r *Resolver) Namespace() string {
	return r.namespace.String()
}
