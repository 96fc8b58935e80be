package repo

import "errors"

var (
	// ErrNotFound is returned for missing records and for records owned by
	// a different tenant.
	ErrNotFound = errors.New("repo: record not found")

	// ErrNoTenant is returned by Create when no tenant is installed and the
	// record does not name an organization.
	ErrNoTenant = errors.New("repo: no tenant for scoped operation")

	// ErrTenantMismatch is returned by Create when the record names an
	// organization other than the installed tenant.
	ErrTenantMismatch = errors.New("repo: record organization does not match current tenant")

	ErrInvalidRecord = errors.New("repo: invalid record")
	ErrUnknownField  = errors.New("repo: unknown field")
	ErrInvalidFilter = errors.New("repo: invalid filter")
	ErrDuplicate     = errors.New("repo: duplicate record")
)
