// Package helpdesk defines the tenant-owned resources of the service desk
// (tickets, work orders, technicians and knowledge-base articles) and their
// repositories.
//
// Every repository embeds a repo.Repository, so the convenience queries here
// are plain filters layered on top of the tenant-scoped base query. None of
// them can reach another tenant's rows.
package helpdesk
