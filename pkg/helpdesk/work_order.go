package helpdesk

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/helpdesk/pkg/repo"
)

// WorkOrderStatus is the lifecycle state of a work order.
type WorkOrderStatus string

const (
	WorkOrderScheduled  WorkOrderStatus = "scheduled"
	WorkOrderInProgress WorkOrderStatus = "in_progress"
	WorkOrderCompleted  WorkOrderStatus = "completed"
	WorkOrderCancelled  WorkOrderStatus = "cancelled"
)

var workOrderStatuses = []WorkOrderStatus{WorkOrderScheduled, WorkOrderInProgress, WorkOrderCompleted, WorkOrderCancelled}

// Valid reports whether s is a known work order status.
func (s WorkOrderStatus) Valid() bool { return slices.Contains(workOrderStatuses, s) }

// Closed reports whether the order no longer counts toward its deadline.
func (s WorkOrderStatus) Closed() bool {
	return s == WorkOrderCompleted || s == WorkOrderCancelled
}

// WorkOrder is field work scheduled for a technician, usually for a ticket.
type WorkOrder struct {
	repo.Owned
	Title        string          `json:"title" db:"title"`
	Status       WorkOrderStatus `json:"status" db:"status"`
	TicketID     *uuid.UUID      `json:"ticket_id,omitempty" db:"ticket_id"`
	TechnicianID *uuid.UUID      `json:"technician_id,omitempty" db:"technician_id"`
	Deadline     *time.Time      `json:"deadline,omitempty" db:"deadline"`
}

// Validate trims the title, defaults the status to scheduled and checks both.
func (w *WorkOrder) Validate() error {
	w.Title = strings.TrimSpace(w.Title)
	if w.Title == "" {
		return fmt.Errorf("%w: title", ErrMissingField)
	}
	if w.Status == "" {
		w.Status = WorkOrderScheduled
	}
	if !w.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, w.Status)
	}
	return nil
}

// WorkOrderSchema maps work order fields to their storage columns.
var WorkOrderSchema = repo.Schema[WorkOrder]{
	Table: "work_orders",
	Fields: map[string]func(*WorkOrder) any{
		"title":         func(w *WorkOrder) any { return w.Title },
		"status":        func(w *WorkOrder) any { return string(w.Status) },
		"ticket_id":     func(w *WorkOrder) any { return w.TicketID },
		"technician_id": func(w *WorkOrder) any { return w.TechnicianID },
		"deadline":      func(w *WorkOrder) any { return w.Deadline },
	},
}

// WorkOrderFilter holds the optional work order list filters. Zero fields are ignored.
type WorkOrderFilter struct {
	Status     WorkOrderStatus
	Technician uuid.UUID
	Ticket     uuid.UUID
}

func (f WorkOrderFilter) filters() []repo.Filter {
	var out []repo.Filter
	if f.Status != "" {
		out = append(out, repo.Eq("status", string(f.Status)))
	}
	if f.Technician != uuid.Nil {
		out = append(out, repo.Eq("technician_id", f.Technician))
	}
	if f.Ticket != uuid.Nil {
		out = append(out, repo.Eq("ticket_id", f.Ticket))
	}
	return out
}

// WorkOrders is the tenant-scoped work order repository.
type WorkOrders struct {
	*repo.Repository[WorkOrder, *WorkOrder]
}

// NewWorkOrders returns a work order repository over b.
func NewWorkOrders(b repo.Backend[WorkOrder], opts ...repo.Option) *WorkOrders {
	return &WorkOrders{repo.New[WorkOrder](b, opts...)}
}

// Search lists work orders matching f, newest first.
func (r *WorkOrders) Search(ctx context.Context, f WorkOrderFilter) ([]*WorkOrder, error) {
	return r.Find(ctx, repo.Where(f.filters()...).Sort(repo.FieldCreatedAt, true))
}

// ByStatus lists work orders in status s.
func (r *WorkOrders) ByStatus(ctx context.Context, s WorkOrderStatus) ([]*WorkOrder, error) {
	return r.Search(ctx, WorkOrderFilter{Status: s})
}

// ByTechnician lists work orders scheduled for technician.
func (r *WorkOrders) ByTechnician(ctx context.Context, technician uuid.UUID) ([]*WorkOrder, error) {
	return r.Search(ctx, WorkOrderFilter{Technician: technician})
}

// Overdue lists orders whose deadline is before now and that are neither
// completed nor cancelled, earliest deadline first.
func (r *WorkOrders) Overdue(ctx context.Context, now time.Time) ([]*WorkOrder, error) {
	q := repo.Where(
		repo.Lt("deadline", now),
		repo.NotIn("status", string(WorkOrderCompleted), string(WorkOrderCancelled)),
	).Sort("deadline", false)
	return r.Find(ctx, q)
}
