package organization

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxSlugLength keeps slugs usable as a single DNS label.
const MaxSlugLength = 63

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Organization is a tenant.
type Organization struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	CustomDomain string         `json:"custom_domain,omitempty"`
	Active       bool           `json:"active"`
	Settings     map[string]any `json:"settings,omitempty"`
	Secrets      Secrets        `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Secrets holds sealed credentials. Values are ciphertexts produced by
// secrets.Sealer scoped to the organization id; they are never serialized.
type Secrets struct {
	APIKey       string
	MailUsername string
	MailPassword string
}

// New returns an active organization with a fresh id.
func New(name, slug string) *Organization {
	now := time.Now().UTC()
	return &Organization{
		ID:        uuid.New(),
		Name:      name,
		Slug:      NormalizeSlug(slug),
		Active:    true,
		Settings:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers can't mutate registry state.
func (o *Organization) Clone() *Organization {
	if o == nil {
		return nil
	}
	c := *o
	if o.Settings != nil {
		c.Settings = maps.Clone(o.Settings)
	}
	return &c
}

// Validate checks required fields and slug format.
func (o *Organization) Validate() error {
	if o == nil || o.ID == uuid.Nil || strings.TrimSpace(o.Name) == "" {
		return ErrInvalidOrganization
	}
	return ValidateSlug(o.Slug)
}

// NormalizeSlug lowercases and trims a slug. It does not validate it.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// ValidateSlug reports whether slug is a usable subdomain label.
func ValidateSlug(slug string) error {
	if slug == "" || len(slug) > MaxSlugLength || !slugPattern.MatchString(slug) || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	return nil
}

// Registry is the read-only lookup surface used during tenant resolution.
type Registry interface {
	// FindBySlug returns the organization owning slug or ErrNotFound.
	FindBySlug(ctx context.Context, slug string) (*Organization, error)

	// FindByID returns the organization with id or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
}

// DomainFinder is implemented by registries that support custom domains.
type DomainFinder interface {
	// FindByDomain returns the organization whose custom domain equals host.
	FindByDomain(ctx context.Context, host string) (*Organization, error)
}

// Store is the provisioning surface. Slugs are immutable: there is no way to
// rename an organization's slug once created.
type Store interface {
	Registry
	DomainFinder

	Create(ctx context.Context, org *Organization) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]Organization, error)
}
