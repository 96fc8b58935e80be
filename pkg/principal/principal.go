package principal

import (
	"context"

	"github.com/google/uuid"
)

// Principal is an authenticated caller.
type Principal struct {
	ID    uuid.UUID
	Email string
	// HomeOrganizationID is uuid.Nil for principals without an organization.
	HomeOrganizationID uuid.UUID
}

type contextKey struct{}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the authenticated principal, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok && p != nil
}

// HomeOrganization returns the home organization of the request's principal.
// Its signature matches tenant.PrincipalFunc.
func HomeOrganization(ctx context.Context) (uuid.UUID, bool) {
	p, ok := FromContext(ctx)
	if !ok || p.HomeOrganizationID == uuid.Nil {
		return uuid.Nil, false
	}
	return p.HomeOrganizationID, true
}
