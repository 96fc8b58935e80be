package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when a claimed organization does not exist.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInactiveTenant is returned when a claimed organization is deactivated.
	ErrInactiveTenant = errors.New("tenant is inactive")

	// ErrInvalidTenantClaim marks an explicit host claim that can't be honored.
	// It always wraps ErrTenantNotFound, ErrInactiveTenant or ErrInvalidIdentifier.
	ErrInvalidTenantClaim = errors.New("invalid tenant claim")

	// ErrInvalidIdentifier is returned for host labels that can't be a slug.
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")

	// ErrNoTenantInContext is returned when a tenant is required but none was resolved.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrTenantAlreadyInstalled is returned when installing a different
	// organization into a scope that already holds one.
	ErrTenantAlreadyInstalled = errors.New("a different tenant is already installed")

	// ErrScopeClosed is returned when installing into a scope that was cleared.
	ErrScopeClosed = errors.New("tenant scope already cleared")
)
