// Package api is the HTTP surface: a chi router with the tenant gate in
// front of the tenant-owned helpdesk resources, plus the gate-exempt admin,
// machine, static, health and metrics routes.
package api
