package helpdesk

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/helpdesk/pkg/repo"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

var ticketStatuses = []TicketStatus{TicketOpen, TicketInProgress, TicketResolved, TicketClosed}

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool { return slices.Contains(ticketStatuses, s) }

// Priority ranks how urgently a ticket needs attention.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorities = []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool { return slices.Contains(priorities, p) }

// Ticket is a customer request.
type Ticket struct {
	repo.Owned
	Subject        string       `json:"subject" db:"subject"`
	Description    string       `json:"description" db:"description"`
	Status         TicketStatus `json:"status" db:"status"`
	Priority       Priority     `json:"priority" db:"priority"`
	RequesterEmail string       `json:"requester_email" db:"requester_email"`
	AssigneeID     *uuid.UUID   `json:"assignee_id,omitempty" db:"assignee_id"`
}

// Validate fills defaults and checks required fields.
func (t *Ticket) Validate() error {
	t.Subject = strings.TrimSpace(t.Subject)
	if t.Subject == "" {
		return fmt.Errorf("%w: subject", ErrMissingField)
	}
	if t.Status == "" {
		t.Status = TicketOpen
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if t.Priority == "" {
		t.Priority = PriorityNormal
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	return nil
}

// TicketSchema maps ticket fields to their storage columns.
var TicketSchema = repo.Schema[Ticket]{
	Table: "tickets",
	Fields: map[string]func(*Ticket) any{
		"subject":         func(t *Ticket) any { return t.Subject },
		"description":     func(t *Ticket) any { return t.Description },
		"status":          func(t *Ticket) any { return string(t.Status) },
		"priority":        func(t *Ticket) any { return string(t.Priority) },
		"requester_email": func(t *Ticket) any { return t.RequesterEmail },
		"assignee_id":     func(t *Ticket) any { return t.AssigneeID },
	},
}

// TicketFilter holds the optional ticket list filters. Zero fields are ignored.
type TicketFilter struct {
	Status   TicketStatus
	Priority Priority
	Assignee uuid.UUID
}

func (f TicketFilter) filters() []repo.Filter {
	var out []repo.Filter
	if f.Status != "" {
		out = append(out, repo.Eq("status", string(f.Status)))
	}
	if f.Priority != "" {
		out = append(out, repo.Eq("priority", string(f.Priority)))
	}
	if f.Assignee != uuid.Nil {
		out = append(out, repo.Eq("assignee_id", f.Assignee))
	}
	return out
}

// Tickets is the tenant-scoped ticket repository.
type Tickets struct {
	*repo.Repository[Ticket, *Ticket]
}

// NewTickets returns a ticket repository over b.
func NewTickets(b repo.Backend[Ticket], opts ...repo.Option) *Tickets {
	return &Tickets{repo.New[Ticket](b, opts...)}
}

// Search lists tickets matching f, newest first.
func (r *Tickets) Search(ctx context.Context, f TicketFilter) ([]*Ticket, error) {
	return r.Find(ctx, repo.Where(f.filters()...).Sort(repo.FieldCreatedAt, true))
}

// ByStatus lists tickets in status s.
func (r *Tickets) ByStatus(ctx context.Context, s TicketStatus) ([]*Ticket, error) {
	return r.Search(ctx, TicketFilter{Status: s})
}

// ByAssignee lists tickets assigned to technician.
func (r *Tickets) ByAssignee(ctx context.Context, technician uuid.UUID) ([]*Ticket, error) {
	return r.Search(ctx, TicketFilter{Assignee: technician})
}

// ByPriority lists tickets with priority p.
func (r *Tickets) ByPriority(ctx context.Context, p Priority) ([]*Ticket, error) {
	return r.Search(ctx, TicketFilter{Priority: p})
}

// Unassigned lists open tickets nobody has picked up.
func (r *Tickets) Unassigned(ctx context.Context) ([]*Ticket, error) {
	return r.List(ctx, repo.IsNull("assignee_id"), repo.In("status", string(TicketOpen), string(TicketInProgress)))
}
