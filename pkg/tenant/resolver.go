package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/helpdesk/pkg/organization"
)

// Source tells how a request's tenant was determined.
type Source string

const (
	SourceNone      Source = "none"
	SourceDomain    Source = "domain"
	SourceHost      Source = "host"
	SourcePrincipal Source = "principal"
	SourceSession   Source = "session"
)

// Input is everything resolution looks at.
type Input struct {
	// Host is the request host, port allowed.
	Host string
	// PrincipalOrganizationID is the authenticated principal's home
	// organization, uuid.Nil when anonymous or homeless.
	PrincipalOrganizationID uuid.UUID
	// SessionOrganizationID is the raw organization_id session value.
	SessionOrganizationID string
}

// Resolution is the outcome of a successful resolve. Organization is nil
// when no tenant could be determined.
type Resolution struct {
	Organization *organization.Organization
	Source       Source
	// StaleSession is set when the session referenced an organization that is
	// gone or inactive; the session value should be cleared.
	StaleSession bool
}

// Resolver determines the tenant for a request.
type Resolver interface {
	Resolve(ctx context.Context, in Input) (Resolution, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, in Input) (Resolution, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, in Input) (Resolution, error) {
	return f(ctx, in)
}

// RegistryResolver resolves tenants against an organization registry.
type RegistryResolver struct {
	registry   organization.Registry
	baseDomain string
	reserved   []string
}

var _ Resolver = (*RegistryResolver)(nil)

// ResolverOption configures RegistryResolver.
type ResolverOption func(*RegistryResolver)

// WithBaseDomain restricts subdomain claims to hosts under domain
// (e.g. "app.example.com"). Hosts outside it are only matched as custom domains.
func WithBaseDomain(domain string) ResolverOption {
	return func(r *RegistryResolver) {
		r.baseDomain = strings.Trim(strings.ToLower(domain), ".")
	}
}

// WithReservedLabels sets leftmost labels that never count as a tenant claim.
// The default is "www".
func WithReservedLabels(labels ...string) ResolverOption {
	return func(r *RegistryResolver) { r.reserved = labels }
}

// NewResolver returns a resolver backed by registry.
func NewResolver(registry organization.Registry, opts ...ResolverOption) *RegistryResolver {
	r := &RegistryResolver{registry: registry, reserved: []string{"www"}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve applies host, principal and session resolution in that order.
func (r *RegistryResolver) Resolve(ctx context.Context, in Input) (Resolution, error) {
	host := normalizeHost(in.Host)

	if res, ok, err := r.byDomain(ctx, host); err != nil || ok {
		return res, err
	}

	slug, err := r.subdomain(host)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %w", ErrInvalidTenantClaim, err)
	}
	if slug != "" {
		org, err := r.registry.FindBySlug(ctx, slug)
		if err != nil {
			return Resolution{}, claimError(slug, err)
		}
		if !org.Active {
			return Resolution{}, fmt.Errorf("%w: %w: %s", ErrInvalidTenantClaim, ErrInactiveTenant, slug)
		}
		return Resolution{Organization: org, Source: SourceHost}, nil
	}

	if in.PrincipalOrganizationID != uuid.Nil {
		org, err := r.registry.FindByID(ctx, in.PrincipalOrganizationID)
		switch {
		case err == nil && org.Active:
			return Resolution{Organization: org, Source: SourcePrincipal}, nil
		case err != nil && !errors.Is(err, organization.ErrNotFound):
			return Resolution{}, err
		}
	}

	if in.SessionOrganizationID != "" {
		id, err := uuid.Parse(in.SessionOrganizationID)
		if err != nil {
			return Resolution{Source: SourceNone, StaleSession: true}, nil
		}
		org, err := r.registry.FindByID(ctx, id)
		switch {
		case err == nil && org.Active:
			return Resolution{Organization: org, Source: SourceSession}, nil
		case err == nil, errors.Is(err, organization.ErrNotFound):
			return Resolution{Source: SourceNone, StaleSession: true}, nil
		default:
			return Resolution{}, err
		}
	}

	return Resolution{Source: SourceNone}, nil
}

// byDomain matches hosts outside the base domain against custom domains.
func (r *RegistryResolver) byDomain(ctx context.Context, host string) (Resolution, bool, error) {
	df, ok := r.registry.(organization.DomainFinder)
	if !ok || host == "" || r.underBase(host) || net.ParseIP(host) != nil {
		return Resolution{}, false, nil
	}

	org, err := df.FindByDomain(ctx, host)
	switch {
	case errors.Is(err, organization.ErrNotFound):
		return Resolution{}, false, nil
	case err != nil:
		return Resolution{}, false, err
	case !org.Active:
		return Resolution{}, true, fmt.Errorf("%w: %w: %s", ErrInvalidTenantClaim, ErrInactiveTenant, host)
	}
	return Resolution{Organization: org, Source: SourceDomain}, true, nil
}

func (r *RegistryResolver) underBase(host string) bool {
	return r.baseDomain != "" && (host == r.baseDomain || strings.HasSuffix(host, "."+r.baseDomain))
}

// subdomain returns the slug claimed by host, or "" when the host makes no claim.
func (r *RegistryResolver) subdomain(host string) (string, error) {
	if host == "" || net.ParseIP(host) != nil {
		return "", nil
	}

	labels := strings.Split(host, ".")
	if r.baseDomain != "" {
		// Any label directly under the base domain is a claim, so
		// "acme.localhost" works in development.
		if !r.underBase(host) || host == r.baseDomain {
			return "", nil
		}
	} else if len(labels) < 3 {
		return "", nil
	}

	label := labels[0]
	if slices.Contains(r.reserved, label) {
		return "", nil
	}
	if err := organization.ValidateSlug(label); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, label)
	}
	return label, nil
}

// SubdomainFromHost reports the slug a host claims under the default rules
// (at least three labels, "www" ignored).
func SubdomainFromHost(host string) (string, error) {
	return NewResolver(nil).subdomain(normalizeHost(host))
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

func claimError(slug string, err error) error {
	if errors.Is(err, organization.ErrNotFound) {
		return fmt.Errorf("%w: %w: %s", ErrInvalidTenantClaim, ErrTenantNotFound, slug)
	}
	return err
}
