// Package repo is the tenant-scoped data access layer.
//
// A Repository wraps a Backend and reads the current tenant from the request
// context on every call. Backends never see a query without an organization
// id: Select and Get take the organization as a required argument, so a
// caller of Repository cannot forget the restriction and a Backend cannot be
// used to read across tenants by accident.
//
// Behaviour without a tenant is fail closed:
//
//   - List and Find return an empty slice.
//   - Get returns ErrNotFound.
//   - Create returns ErrNoTenant unless the record names its organization.
//
// A Get for a record that belongs to another tenant also returns ErrNotFound,
// so the response never reveals that the row exists.
//
// Entities embed Owned, which carries the id, organization id and creation
// time that the repository manages.
package repo
