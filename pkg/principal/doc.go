// Package principal authenticates API callers from HS256 bearer tokens and
// carries the resulting Principal on the request context.
//
// Authentication is optional: requests without an Authorization header pass
// through anonymously, while requests with a malformed, expired or badly
// signed token are rejected with 401. The principal's home organization is
// exposed through HomeOrganization, which plugs into tenant.WithPrincipal.
package principal
