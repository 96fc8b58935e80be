// Package tenant resolves which organization an HTTP request belongs to and
// carries that organization through the request's context.
//
// # Resolution
//
// RegistryResolver applies a fixed precedence, first match wins:
//
//  1. Host: an exact custom-domain match, then the leftmost label of a host
//     with at least three labels ("acme" in "acme.app.example.com"). A host
//     claim that names an unknown or inactive organization fails the request
//     with ErrInvalidTenantClaim; it never falls through to another method.
//  2. Principal: the authenticated principal's home organization, if active.
//  3. Session: the organization id remembered in the session, if it still
//     exists and is active. A stale value is reported so the caller can clear it.
//  4. Otherwise no tenant.
//
// # Context carrier
//
// The resolved organization lives in a Scope stored in the request context.
// There is no goroutine-keyed global table: the context travels with the call
// chain, so concurrent requests can never observe each other's tenant. The
// gate clears the scope with a deferred call when the handler returns or
// panics, so goroutines that outlive the request (holding its context) see no
// tenant rather than a stale one.
//
//	org, ok := tenant.FromContext(ctx)
//
// # Gate
//
// Middleware ties both together. Exempt path prefixes (admin, machine API,
// static assets) bypass resolution and get no scope at all. Requests with no
// resolvable tenant proceed with an empty scope; handlers that need a tenant
// must use RequireTenant or check FromContext and fail closed.
//
//	mw := tenant.Middleware(
//		tenant.NewResolver(registry, tenant.WithBaseDomain("app.example.com")),
//		tenant.WithExemptPaths("/admin", "/api/m2m", "/static"),
//		tenant.WithSessionStore(sessions),
//		tenant.WithPrincipal(principal.HomeOrganization),
//	)
package tenant
