// Package postgres stores organizations and tenant-owned helpdesk records in
// PostgreSQL. Every query against a tenant table carries the owning
// organization in its WHERE clause; callers cannot omit it.
package postgres
