package organization

import "errors"

var (
	// ErrNotFound is returned when no organization matches the lookup.
	ErrNotFound = errors.New("organization not found")

	// ErrSlugTaken is returned when creating an organization with a slug that is already in use.
	ErrSlugTaken = errors.New("organization slug already taken")

	// ErrDomainTaken is returned when a custom domain is already assigned to another organization.
	ErrDomainTaken = errors.New("organization custom domain already taken")

	// ErrInvalidSlug is returned for slugs that are not valid DNS labels.
	ErrInvalidSlug = errors.New("invalid organization slug")

	// ErrInvalidOrganization is returned when required fields are missing.
	ErrInvalidOrganization = errors.New("invalid organization")
)

// ErrInvalidationFailed is returned when a deactivation succeeded locally but
// could not be broadcast to other processes.
var ErrInvalidationFailed = errors.New("organization cache invalidation broadcast failed")
