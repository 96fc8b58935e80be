// Package organization is the registry of tenants.
//
// An Organization is identified by a UUID and by a globally unique, immutable
// slug that doubles as its subdomain. Organizations are provisioned and
// deactivated out of band (CLI seed, machine API); request handling only ever
// reads them through the narrow Registry interface:
//
//	FindBySlug(ctx, slug) (*Organization, error)
//	FindByID(ctx, id) (*Organization, error)
//
// Both return ErrNotFound for unknown organizations. Inactive organizations are
// returned as-is; deciding what "inactive" means for a request is the caller's
// job (see pkg/tenant).
//
// CachedStore layers a short-TTL lookup cache over any Store. Deactivate on the
// cached store drops every cache key of the organization immediately and, when
// a Publisher is configured, tells the other processes to do the same, so a
// suspension takes effect on the very next request instead of after the TTL.
package organization
