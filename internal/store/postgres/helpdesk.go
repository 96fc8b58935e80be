package postgres

import (
	"github.com/dmitrymomot/helpdesk/pkg/helpdesk"
)

// HelpdeskBackends returns Postgres backends for every helpdesk resource.
func HelpdeskBackends(db DB) helpdesk.Backends {
	return helpdesk.Backends{
		Tickets:     NewBackend[helpdesk.Ticket](db, helpdesk.TicketSchema),
		WorkOrders:  NewBackend[helpdesk.WorkOrder](db, helpdesk.WorkOrderSchema),
		Technicians: NewBackend[helpdesk.Technician](db, helpdesk.TechnicianSchema),
		Articles:    NewBackend[helpdesk.Article](db, helpdesk.ArticleSchema),
	}
}
