// Package app is the composition root: it turns a config.Config into a
// running helpdesk, choosing storage and session drivers and wiring the
// organization cache, tenant gate and HTTP router.
package app
