package tenant_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/helpdesk/pkg/organization"
	"github.com/dmitrymomot/helpdesk/pkg/tenant"
)

// echoTenant writes the installed organization's slug, or "-" when none.
func echoTenant() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		org, ok := tenant.FromContext(r.Context())
		if !ok {
			_, _ = w.Write([]byte("-"))
			return
		}
		_, _ = w.Write([]byte(org.Slug))
	})
}

func serve(h http.Handler, host, path, session string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Host = host
	if session != "" {
		req.Header.Set("X-Session", session)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	acme := newOrg("acme", true)
	globex := newOrg("globex", true)
	suspended := newOrg("suspended", false)
	store := organization.NewMemoryStore(acme, globex, suspended)
	resolver := tenant.NewResolver(store)

	t.Run("host resolution installs tenant", func(t *testing.T) {
		t.Parallel()

		h := tenant.Middleware(resolver)(echoTenant())
		rec := serve(h, "acme.app.example.com", "/api/tickets", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "acme", rec.Body.String())
	})

	t.Run("exempt paths get no scope", func(t *testing.T) {
		t.Parallel()

		var scoped bool
		h := tenant.Middleware(resolver, tenant.WithExemptPaths("/admin", "/static/"))(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, scoped = tenant.ScopeFromContext(r.Context())
			}))

		for _, path := range []string{"/admin", "/admin/organizations", "/static/app.css"} {
			rec := serve(h, "acme.app.example.com", path, "")
			assert.Equal(t, http.StatusOK, rec.Code, path)
			assert.False(t, scoped, path)
		}

		// Prefix matching respects segment boundaries.
		rec := serve(h, "acme.app.example.com", "/administrator", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, scoped)
	})

	t.Run("exempt paths skip rejection", func(t *testing.T) {
		t.Parallel()

		h := tenant.Middleware(resolver, tenant.WithExemptPaths("/healthz"))(echoTenant())
		rec := serve(h, "suspended.app.example.com", "/healthz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "-", rec.Body.String())
	})

	t.Run("inactive host is forbidden", func(t *testing.T) {
		t.Parallel()

		called := false
		h := tenant.Middleware(resolver)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			called = true
		}))
		rec := serve(h, "suspended.app.example.com", "/api/tickets", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, called)
	})

	t.Run("unknown host is not found", func(t *testing.T) {
		t.Parallel()

		h := tenant.Middleware(resolver)(echoTenant())
		rec := serve(h, "ghost.app.example.com", "/", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed host is bad request", func(t *testing.T) {
		t.Parallel()

		h := tenant.Middleware(resolver)(echoTenant())
		rec := serve(h, "ac_me.app.example.com", "/", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("custom error handler receives the error", func(t *testing.T) {
		t.Parallel()

		var got error
		h := tenant.Middleware(resolver, tenant.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
			got = err
			w.WriteHeader(http.StatusTeapot)
		}))(echoTenant())

		rec := serve(h, "suspended.app.example.com", "/", "")
		assert.Equal(t, http.StatusTeapot, rec.Code)
		require.ErrorIs(t, got, tenant.ErrInactiveTenant)
	})

	t.Run("no tenant proceeds with empty scope", func(t *testing.T) {
		t.Parallel()

		var scope *tenant.Scope
		h := tenant.Middleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, _ = tenant.ScopeFromContext(r.Context())
			_, ok := tenant.FromContext(r.Context())
			assert.False(t, ok)
		}))
		rec := serve(h, "example.com", "/", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, scope)
		_, ok := scope.Current()
		assert.False(t, ok)
	})

	t.Run("scope is cleared after the request", func(t *testing.T) {
		t.Parallel()

		var scope *tenant.Scope
		h := tenant.Middleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, _ = tenant.ScopeFromContext(r.Context())
			_, ok := scope.Current()
			assert.True(t, ok)
		}))
		serve(h, "acme.app.example.com", "/", "")
		require.NotNil(t, scope)
		_, ok := scope.Current()
		assert.False(t, ok)
	})

	t.Run("scope is cleared when the handler panics", func(t *testing.T) {
		t.Parallel()

		var scope *tenant.Scope
		h := tenant.Middleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, _ = tenant.ScopeFromContext(r.Context())
			panic("boom")
		}))

		assert.Panics(t, func() { serve(h, "acme.app.example.com", "/", "") })
		require.NotNil(t, scope)
		_, ok := scope.Current()
		assert.False(t, ok)
	})

	t.Run("principal home organization", func(t *testing.T) {
		t.Parallel()

		h := tenant.Middleware(resolver, tenant.WithPrincipal(func(context.Context) (uuid.UUID, bool) {
			return globex.ID, true
		}))(echoTenant())

		rec := serve(h, "example.com", "/", "")
		assert.Equal(t, "globex", rec.Body.String())

		// The host still wins.
		rec = serve(h, "acme.app.example.com", "/", "")
		assert.Equal(t, "acme", rec.Body.String())
	})
}

func TestMiddleware_Sessions(t *testing.T) {
	t.Parallel()

	acme := newOrg("acme", true)
	globex := newOrg("globex", true)
	suspended := newOrg("suspended", false)
	resolver := tenant.NewResolver(organization.NewMemoryStore(acme, globex, suspended))

	t.Run("host resolution is remembered", func(t *testing.T) {
		t.Parallel()

		sessions := newFakeSessions()
		h := tenant.Middleware(resolver, tenant.WithSessionStore(sessions))(echoTenant())

		rec := serve(h, "acme.app.example.com", "/", "s1")
		assert.Equal(t, "acme", rec.Body.String())
		got, ok := sessions.get("s1")
		require.True(t, ok)
		assert.Equal(t, acme.ID.String(), got)

		// Later requests on the bare host fall back to the session.
		rec = serve(h, "example.com", "/", "s1")
		assert.Equal(t, "acme", rec.Body.String())

		// No redundant write when the session already holds the id.
		serve(h, "acme.app.example.com", "/", "s1")
		assert.Equal(t, 1, sessions.setCalls)
	})

	t.Run("write-back failure does not fail the request", func(t *testing.T) {
		t.Parallel()

		sessions := newFakeSessions()
		sessions.setErr = errors.New("redis down")
		h := tenant.Middleware(resolver, tenant.WithSessionStore(sessions))(echoTenant())

		rec := serve(h, "acme.app.example.com", "/", "s1")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "acme", rec.Body.String())
	})

	t.Run("principal resolution is not remembered", func(t *testing.T) {
		t.Parallel()

		sessions := newFakeSessions()
		h := tenant.Middleware(resolver,
			tenant.WithSessionStore(sessions),
			tenant.WithPrincipal(func(context.Context) (uuid.UUID, bool) { return globex.ID, true }),
		)(echoTenant())

		rec := serve(h, "example.com", "/", "s1")
		assert.Equal(t, "globex", rec.Body.String())
		assert.Zero(t, sessions.setCalls)
	})

	t.Run("stale session value is cleared", func(t *testing.T) {
		t.Parallel()

		sessions := newFakeSessions()
		sessions.values["s1"] = suspended.ID.String()
		sessions.values["s2"] = uuid.NewString()
		h := tenant.Middleware(resolver, tenant.WithSessionStore(sessions))(echoTenant())

		for _, key := range []string{"s1", "s2"} {
			rec := serve(h, "example.com", "/", key)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "-", rec.Body.String())
			_, ok := sessions.get(key)
			assert.False(t, ok, key)
		}
		assert.Equal(t, 2, sessions.cleared)
	})
}

func TestMiddleware_Metrics(t *testing.T) {
	t.Parallel()

	acme := newOrg("acme", true)
	suspended := newOrg("suspended", false)
	resolver := tenant.NewResolver(organization.NewMemoryStore(acme, suspended))

	reg := prometheus.NewRegistry()
	h := tenant.Middleware(resolver,
		tenant.WithExemptPaths("/healthz"),
		tenant.WithMetrics(reg),
	)(echoTenant())

	serve(h, "acme.app.example.com", "/", "")
	serve(h, "acme.app.example.com", "/", "")
	serve(h, "suspended.app.example.com", "/", "")
	serve(h, "example.com", "/", "")
	serve(h, "example.com", "/healthz", "")

	count, err := testutil.GatherAndCount(reg, "helpdesk_tenant_gate_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	expected := `
# HELP helpdesk_tenant_gate_requests_total Requests seen by the tenant gate by outcome.
# TYPE helpdesk_tenant_gate_requests_total counter
helpdesk_tenant_gate_requests_total{outcome="exempt"} 1
helpdesk_tenant_gate_requests_total{outcome="no_tenant"} 1
helpdesk_tenant_gate_requests_total{outcome="rejected"} 1
helpdesk_tenant_gate_requests_total{outcome="resolved_host"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "helpdesk_tenant_gate_requests_total"))
}

func TestMiddleware_ResolverError(t *testing.T) {
	t.Parallel()

	boom := errors.New("registry unavailable")
	h := tenant.Middleware(tenant.ResolverFunc(func(context.Context, tenant.Input) (tenant.Resolution, error) {
		return tenant.Resolution{}, boom
	}))(echoTenant())

	rec := serve(h, "acme.app.example.com", "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireTenant(t *testing.T) {
	t.Parallel()

	acme := newOrg("acme", true)
	resolver := tenant.NewResolver(organization.NewMemoryStore(acme))
	h := tenant.Middleware(resolver)(tenant.RequireTenant(nil)(echoTenant()))

	rec := serve(h, "example.com", "/api/tickets", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, "acme.app.example.com", "/api/tickets", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", rec.Body.String())
}

// Interleaved requests for different tenants never observe each other's
// organization.
func TestMiddleware_ConcurrentIsolation(t *testing.T) {
	t.Parallel()

	orgs := make([]*organization.Organization, 8)
	for i := range orgs {
		orgs[i] = newOrg(fmt.Sprintf("org%d", i), true)
	}
	resolver := tenant.NewResolver(organization.NewMemoryStore(orgs...))

	h := tenant.Middleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first, _ := tenant.IDFromContext(r.Context())
		runtime.Gosched()
		second, _ := tenant.IDFromContext(r.Context())
		if first != second {
			http.Error(w, "tenant changed mid-request", http.StatusConflict)
			return
		}
		org, _ := tenant.FromContext(r.Context())
		_, _ = w.Write([]byte(org.Slug))
	}))

	var wg sync.WaitGroup
	for i := range 200 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			org := orgs[i%len(orgs)]
			rec := serve(h, org.Slug+".app.example.com", "/", "")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, org.Slug, rec.Body.String())
		}(i)
	}
	wg.Wait()
}
