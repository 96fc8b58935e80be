// Package session keeps small per-visitor state between requests.
//
// A Manager pairs a Store (MemoryStore for a single process, RedisStore when
// several replicas share sessions) with a Transport that carries the opaque
// session token, a cookie by default. Sessions are created lazily: reading a
// missing session is not an error for callers of GetValue, and the first
// write issues a token.
//
// The Manager also implements tenant.SessionStore, persisting the last
// host-resolved organization under OrganizationKey so that later requests on
// the bare domain keep the same tenant.
package session
