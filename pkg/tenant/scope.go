package tenant

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/helpdesk/pkg/logger"
	"github.com/dmitrymomot/helpdesk/pkg/organization"
)

type scopeKey struct{}

// Scope holds at most one organization for the lifetime of a request.
type Scope struct {
	mu      sync.RWMutex
	org     *organization.Organization
	cleared bool
}

// NewScope returns ctx carrying a fresh, empty scope.
func NewScope(ctx context.Context) (context.Context, *Scope) {
	s := &Scope{}
	return context.WithValue(ctx, scopeKey{}, s), s
}

// ScopeFromContext returns the scope attached by NewScope, if any.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok && s != nil
}

// Install sets the scope's organization. Installing the same organization
// again is a no-op; installing a different one fails.
func (s *Scope) Install(org *organization.Organization) error {
	if org == nil || org.ID == uuid.Nil {
		return ErrInvalidIdentifier
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.cleared:
		return ErrScopeClosed
	case s.org == nil:
		s.org = org.Clone()
		return nil
	case s.org.ID == org.ID:
		return nil
	default:
		return ErrTenantAlreadyInstalled
	}
}

// Current returns a copy of the installed organization.
func (s *Scope) Current() (*organization.Organization, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.org == nil {
		return nil, false
	}
	return s.org.Clone(), true
}

// Clear removes the organization and closes the scope for further installs.
func (s *Scope) Clear() {
	s.mu.Lock()
	s.org = nil
	s.cleared = true
	s.mu.Unlock()
}

// WithTenant returns ctx carrying a new scope with org installed. Use it for
// work that runs outside the HTTP gate, such as background jobs and tests.
func WithTenant(ctx context.Context, org *organization.Organization) context.Context {
	ctx, s := NewScope(ctx)
	if org != nil {
		_ = s.Install(org)
	}
	return ctx
}

// FromContext returns the organization installed in ctx's scope.
func FromContext(ctx context.Context) (*organization.Organization, bool) {
	s, ok := ScopeFromContext(ctx)
	if !ok {
		return nil, false
	}
	return s.Current()
}

// IDFromContext returns only the id of the current organization.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	s, ok := ScopeFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.org == nil {
		return uuid.Nil, false
	}
	return s.org.ID, true
}

// MustFromContext panics if no tenant is installed. Use only behind RequireTenant.
func MustFromContext(ctx context.Context) *organization.Organization {
	org, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no tenant in context")
	}
	return org
}

// LoggerExtractor adds tenant_id to log records emitted with a tenant-scoped context.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return slog.String("tenant_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
