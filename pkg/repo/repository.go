package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/helpdesk/pkg/tenant"
)

// TenantFunc returns the current tenant id.
type TenantFunc func(ctx context.Context) (uuid.UUID, bool)

// Validator is implemented by entities that check themselves before insert.
type Validator interface {
	Validate() error
}

// Repository is a tenant-scoped view over a Backend.
type Repository[E any, P Entity[E]] struct {
	backend Backend[E]
	tenant  TenantFunc
	now     func() time.Time
}

// Option configures a Repository.
type Option func(*options)

type options struct {
	tenant TenantFunc
	now    func() time.Time
}

// WithTenantFunc replaces tenant.IDFromContext as the tenant source.
func WithTenantFunc(fn TenantFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.tenant = fn
		}
	}
}

// WithClock sets the clock used to stamp CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New returns a repository over backend. The entity pointer type is inferred:
//
//	tickets := repo.New[Ticket](backend)
func New[E any, P Entity[E]](backend Backend[E], opts ...Option) *Repository[E, P] {
	o := options{tenant: tenant.IDFromContext, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository[E, P]{backend: backend, tenant: o.tenant, now: o.now}
}

// Schema returns the backend's schema.
func (r *Repository[E, P]) Schema() Schema[E] {
	return r.backend.Schema()
}

// List returns the current tenant's records matching filters.
func (r *Repository[E, P]) List(ctx context.Context, filters ...Filter) ([]*E, error) {
	return r.Find(ctx, Where(filters...))
}

// Find runs q restricted to the current tenant. Without a tenant it returns
// an empty result.
func (r *Repository[E, P]) Find(ctx context.Context, q Query) ([]*E, error) {
	if err := validate(r.backend.Schema(), q); err != nil {
		return nil, err
	}
	org, ok := r.tenant(ctx)
	if !ok {
		return []*E{}, nil
	}
	if len(q.OrderBy) == 0 {
		q = q.Sort(FieldCreatedAt, false).Sort(FieldID, false)
	}

	items, err := r.backend.Select(ctx, org, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*E{}
	}
	return items, nil
}

// Get returns the current tenant's record with id. Records of other tenants
// and calls without a tenant yield ErrNotFound.
func (r *Repository[E, P]) Get(ctx context.Context, id uuid.UUID) (*E, error) {
	org, ok := r.tenant(ctx)
	if !ok || id == uuid.Nil {
		return nil, ErrNotFound
	}

	e, err := r.backend.Get(ctx, org, id)
	if err != nil {
		return nil, err
	}
	// Backends restrict by organization; this guards a faulty one.
	if P(e).Ownership().OrganizationID != org {
		return nil, ErrNotFound
	}
	return e, nil
}

// Create stores a copy of e and returns it. Its organization defaults to the
// current tenant; an explicit organization is accepted only when it matches
// the tenant or no tenant is installed. The argument is never modified.
func (r *Repository[E, P]) Create(ctx context.Context, e *E) (*E, error) {
	if e == nil {
		return nil, ErrInvalidRecord
	}
	c := *e
	e = &c
	owned := P(e).Ownership()

	current, ok := r.tenant(ctx)
	switch {
	case owned.OrganizationID == uuid.Nil && !ok:
		return nil, ErrNoTenant
	case owned.OrganizationID == uuid.Nil:
		owned.OrganizationID = current
	case ok && owned.OrganizationID != current:
		return nil, ErrTenantMismatch
	}

	if owned.ID == uuid.Nil {
		owned.ID = uuid.New()
	}
	if owned.CreatedAt.IsZero() {
		owned.CreatedAt = r.now().UTC()
	}

	if v, ok := any(e).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, errors.Join(ErrInvalidRecord, err)
		}
	}

	if err := r.backend.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", r.backend.Schema().Table, err)
	}
	return e, nil
}
