package tenant

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrorHandler writes the response for a request rejected by the gate.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// SessionStore remembers the last host-resolved organization between requests.
type SessionStore interface {
	OrganizationID(r *http.Request) (string, bool)
	SetOrganizationID(w http.ResponseWriter, r *http.Request, id string) error
	ClearOrganizationID(w http.ResponseWriter, r *http.Request) error
}

// PrincipalFunc returns the home organization of the request's principal.
type PrincipalFunc func(ctx context.Context) (uuid.UUID, bool)

type config struct {
	exempt       []string
	errorHandler ErrorHandler
	sessions     SessionStore
	principal    PrincipalFunc
	logger       *slog.Logger
	metrics      *gateMetrics
}

// Option configures the gate.
type Option func(*config)

// WithExemptPaths sets path prefixes that bypass tenant resolution entirely.
// A prefix matches the path itself and anything below it ("/admin" matches
// "/admin" and "/admin/orgs" but not "/administrator").
func WithExemptPaths(prefixes ...string) Option {
	return func(c *config) { c.exempt = append(c.exempt, prefixes...) }
}

// WithErrorHandler overrides DefaultErrorHandler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *config) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithSessionStore enables session-based resolution and write-back.
func WithSessionStore(s SessionStore) Option {
	return func(c *config) { c.sessions = s }
}

// WithPrincipal enables principal-based resolution.
func WithPrincipal(fn PrincipalFunc) Option {
	return func(c *config) { c.principal = fn }
}

// WithLogger sets the gate's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics registers gate outcome counters with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) { c.metrics = newGateMetrics(reg) }
}

// DefaultErrorHandler maps resolution errors to plain-text responses.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)
	http.Error(w, http.StatusText(code), code)
}

// StatusCode maps tenant errors to HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidIdentifier), errors.Is(err, ErrNoTenantInContext):
		return http.StatusBadRequest
	case errors.Is(err, ErrTenantNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInactiveTenant):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
