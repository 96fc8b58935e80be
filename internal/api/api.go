package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/helpdesk/pkg/helpdesk"
	"github.com/dmitrymomot/helpdesk/pkg/httpserver"
	"github.com/dmitrymomot/helpdesk/pkg/organization"
	"github.com/dmitrymomot/helpdesk/pkg/principal"
	"github.com/dmitrymomot/helpdesk/pkg/secrets"
	"github.com/dmitrymomot/helpdesk/pkg/session"
	"github.com/dmitrymomot/helpdesk/pkg/tenant"
)

// Deps are the collaborators of the router. Organizations, Resolver and
// Repositories are required; everything else is optional.
type Deps struct {
	Logger        *slog.Logger
	Organizations organization.Store
	Resolver      tenant.Resolver
	Repositories  *helpdesk.Repositories

	Sessions *session.Manager
	Tokens   *principal.Tokens
	Sealer   *secrets.Sealer

	ExemptPaths []string
	AdminToken  string
	M2MAPIKey   string

	Static   fs.FS
	Registry *prometheus.Registry
	Probes   map[string]httpserver.Probe
	Now      func() time.Time
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	if d.Tokens != nil {
		r.Use(principal.Middleware(d.Tokens,
			principal.WithErrorHandler(principal.ErrorHandler(gateErrorHandler(log))),
			principal.WithLogger(log),
		))
	}
	gateOpts := []tenant.Option{
		tenant.WithExemptPaths(d.ExemptPaths...),
		tenant.WithErrorHandler(gateErrorHandler(log)),
		tenant.WithPrincipal(principal.HomeOrganization),
		tenant.WithLogger(log),
	}
	if d.Sessions != nil {
		r.Use(d.Sessions.Middleware)
		gateOpts = append(gateOpts, tenant.WithSessionStore(d.Sessions))
	}
	if d.Registry != nil {
		gateOpts = append(gateOpts, tenant.WithMetrics(d.Registry))
	}
	r.Use(tenant.Middleware(d.Resolver, gateOpts...))
	r.Use(requestLogger(log))

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(log, 5*time.Second, d.Probes))
	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}
	if d.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(d.Static)))
	}

	orgs := organizations{store: d.Organizations, sealer: d.Sealer, log: log}
	r.Route("/admin", func(r chi.Router) {
		r.Use(requireSecret(AdminTokenHeader, d.AdminToken, log))
		r.Get("/organizations", orgs.list)
		r.Get("/organizations/{id}", orgs.get)
	})
	r.Route("/api", func(r chi.Router) {
		r.Route("/m2m", func(r chi.Router) {
			r.Use(requireSecret(APIKeyHeader, d.M2MAPIKey, log))
			r.Post("/organizations", orgs.provision)
			r.Post("/organizations/{id}/deactivate", orgs.deactivate)
		})

		r.With(tenant.RequireTenant(gateErrorHandler(log))).Get("/tenant", currentTenant)

		r.Route("/tickets", ticketResource(d.Repositories, log).routes)
		r.Route("/work-orders", func(r chi.Router) {
			r.Get("/overdue", overdueWorkOrders(d.Repositories, log, now))
			workOrderResource(d.Repositories, log).routes(r)
		})
		r.Route("/technicians", technicianResource(d.Repositories, log).routes)
		r.Route("/kb-articles", articleResource(d.Repositories, log).routes)
	})

	return r
}

// currentTenant describes the organization the request resolved to.
func currentTenant(w http.ResponseWriter, r *http.Request) {
	org := tenant.MustFromContext(r.Context())
	writeData(w, http.StatusOK, map[string]any{
		"id":       org.ID,
		"name":     org.Name,
		"slug":     org.Slug,
		"settings": org.Settings,
	})
}
