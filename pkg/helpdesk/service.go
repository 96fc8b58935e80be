package helpdesk

import "github.com/dmitrymomot/helpdesk/pkg/repo"

// Repositories bundles the tenant-scoped repositories.
type Repositories struct {
	Tickets     *Tickets
	WorkOrders  *WorkOrders
	Technicians *Technicians
	Articles    *Articles
}

// Backends supplies one storage backend per resource.
type Backends struct {
	Tickets     repo.Backend[Ticket]
	WorkOrders  repo.Backend[WorkOrder]
	Technicians repo.Backend[Technician]
	Articles    repo.Backend[Article]
}

// NewRepositories wires scoped repositories over b.
func NewRepositories(b Backends, opts ...repo.Option) *Repositories {
	return &Repositories{
		Tickets:     NewTickets(b.Tickets, opts...),
		WorkOrders:  NewWorkOrders(b.WorkOrders, opts...),
		Technicians: NewTechnicians(b.Technicians, opts...),
		Articles:    NewArticles(b.Articles, opts...),
	}
}

// MemoryBackends returns in-memory backends for every resource.
func MemoryBackends() Backends {
	return Backends{
		Tickets:     repo.NewMemoryBackend[Ticket](TicketSchema),
		WorkOrders:  repo.NewMemoryBackend[WorkOrder](WorkOrderSchema),
		Technicians: repo.NewMemoryBackend[Technician](TechnicianSchema),
		Articles:    repo.NewMemoryBackend[Article](ArticleSchema),
	}
}
