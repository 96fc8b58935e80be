package tenant

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/helpdesk/pkg/logger"
)

// Middleware returns the tenant gate. For every non-exempt request it
// resolves the tenant, installs it into a fresh Scope on the request
// context, runs next and clears the scope afterwards, even if next panics.
func Middleware(resolver Resolver, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		errorHandler: DefaultErrorHandler,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.isExempt(r.URL.Path) {
				cfg.metrics.inc("exempt")
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			in := Input{Host: r.Host}
			if cfg.principal != nil {
				if id, ok := cfg.principal(ctx); ok {
					in.PrincipalOrganizationID = id
				}
			}
			if cfg.sessions != nil {
				if id, ok := cfg.sessions.OrganizationID(r); ok {
					in.SessionOrganizationID = id
				}
			}

			res, err := resolver.Resolve(ctx, in)
			if err != nil {
				if errors.Is(err, ErrInvalidTenantClaim) {
					cfg.metrics.inc("rejected")
					cfg.logger.WarnContext(ctx, "tenant claim rejected",
						logger.Host(r.Host), logger.Error(err))
				} else {
					cfg.metrics.inc("error")
					cfg.logger.ErrorContext(ctx, "tenant resolution failed",
						logger.Host(r.Host), logger.Error(err))
				}
				cfg.errorHandler(w, r, err)
				return
			}

			if res.StaleSession && cfg.sessions != nil {
				cfg.logger.InfoContext(ctx, "clearing stale session organization",
					logger.OrganizationID(in.SessionOrganizationID))
				if err := cfg.sessions.ClearOrganizationID(w, r); err != nil {
					cfg.logger.WarnContext(ctx, "failed to clear session organization", logger.Error(err))
				}
			}

			ctx, scope := NewScope(ctx)
			defer scope.Clear()

			if res.Organization == nil {
				cfg.metrics.inc("no_tenant")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if err := scope.Install(res.Organization); err != nil {
				cfg.metrics.inc("error")
				cfg.errorHandler(w, r, err)
				return
			}
			cfg.metrics.inc("resolved_" + string(res.Source))

			if res.Source == SourceHost || res.Source == SourceDomain {
				cfg.rememberHost(w, r, in.SessionOrganizationID, res.Organization.ID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rememberHost writes a host-resolved organization into the session. It is
// best-effort: failures are logged, never returned.
func (c *config) rememberHost(w http.ResponseWriter, r *http.Request, current string, id uuid.UUID) {
	if c.sessions == nil || current == id.String() {
		return
	}
	if err := c.sessions.SetOrganizationID(w, r, id.String()); err != nil {
		c.logger.WarnContext(r.Context(), "failed to remember organization in session",
			logger.OrganizationID(id.String()), logger.Error(err))
	}
}

func (c *config) isExempt(path string) bool {
	for _, p := range c.exempt {
		p = strings.TrimSuffix(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// RequireTenant rejects requests that reach it without a tenant installed.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = DefaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IDFromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
