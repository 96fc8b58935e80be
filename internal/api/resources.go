package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/helpdesk/pkg/helpdesk"
	"github.com/dmitrymomot/helpdesk/pkg/repo"
	"github.com/dmitrymomot/helpdesk/pkg/tenant"
)

// maxBodyBytes caps create payloads.
const maxBodyBytes = 1 << 20

// resource serves list, get and create for one tenant-owned entity.
type resource[E any, P repo.Entity[E]] struct {
	repo   *repo.Repository[E, P]
	search func(r *http.Request) ([]*E, error)
	log    *slog.Logger
}

func (h resource[E, P]) routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
}

func (h resource[E, P]) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.search(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeList(w, items)
}

func (h resource[E, P]) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, fmt.Errorf("%w: malformed id", errBadRequest))
		return
	}
	item, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (h resource[E, P]) create(w http.ResponseWriter, r *http.Request) {
	e := new(E)
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(e); err != nil {
		writeError(w, r, h.log, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	// Identity and timestamps are assigned by the repository. A client may
	// repeat its own tenant's organization_id but never choose one: without
	// a tenant the field is dropped so the create fails closed.
	owned := P(e).Ownership()
	owned.ID = uuid.Nil
	owned.CreatedAt = time.Time{}
	if _, ok := tenant.IDFromContext(r.Context()); !ok {
		owned.OrganizationID = uuid.Nil
	}

	created, err := h.repo.Create(r.Context(), e)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusCreated, created)
}

func ticketResource(repos *helpdesk.Repositories, log *slog.Logger) resource[helpdesk.Ticket, *helpdesk.Ticket] {
	return resource[helpdesk.Ticket, *helpdesk.Ticket]{
		repo: repos.Tickets.Repository,
		log:  log,
		search: func(r *http.Request) ([]*helpdesk.Ticket, error) {
			q := r.URL.Query()
			f := helpdesk.TicketFilter{
				Status:   helpdesk.TicketStatus(q.Get("status")),
				Priority: helpdesk.Priority(q.Get("priority")),
			}
			if f.Status != "" && !f.Status.Valid() {
				return nil, fmt.Errorf("%w: status %q", errBadRequest, f.Status)
			}
			if f.Priority != "" && !f.Priority.Valid() {
				return nil, fmt.Errorf("%w: priority %q", errBadRequest, f.Priority)
			}
			var err error
			if f.Assignee, err = uuidParam(q, "assignee"); err != nil {
				return nil, err
			}
			if q.Get("unassigned") == "true" {
				return repos.Tickets.Unassigned(r.Context())
			}
			return repos.Tickets.Search(r.Context(), f)
		},
	}
}

func workOrderResource(repos *helpdesk.Repositories, log *slog.Logger) resource[helpdesk.WorkOrder, *helpdesk.WorkOrder] {
	return resource[helpdesk.WorkOrder, *helpdesk.WorkOrder]{
		repo: repos.WorkOrders.Repository,
		log:  log,
		search: func(r *http.Request) ([]*helpdesk.WorkOrder, error) {
			q := r.URL.Query()
			f := helpdesk.WorkOrderFilter{Status: helpdesk.WorkOrderStatus(q.Get("status"))}
			if f.Status != "" && !f.Status.Valid() {
				return nil, fmt.Errorf("%w: status %q", errBadRequest, f.Status)
			}
			var err error
			if f.Technician, err = uuidParam(q, "technician"); err != nil {
				return nil, err
			}
			if f.Ticket, err = uuidParam(q, "ticket"); err != nil {
				return nil, err
			}
			return repos.WorkOrders.Search(r.Context(), f)
		},
	}
}

func technicianResource(repos *helpdesk.Repositories, log *slog.Logger) resource[helpdesk.Technician, *helpdesk.Technician] {
	return resource[helpdesk.Technician, *helpdesk.Technician]{
		repo: repos.Technicians.Repository,
		log:  log,
		search: func(r *http.Request) ([]*helpdesk.Technician, error) {
			q := r.URL.Query()
			available, err := boolParam(q, "available")
			if err != nil {
				return nil, err
			}
			return repos.Technicians.Search(r.Context(), helpdesk.TechnicianFilter{
				Available: available,
				Skill:     q.Get("skill"),
			})
		},
	}
}

func articleResource(repos *helpdesk.Repositories, log *slog.Logger) resource[helpdesk.Article, *helpdesk.Article] {
	return resource[helpdesk.Article, *helpdesk.Article]{
		repo: repos.Articles.Repository,
		log:  log,
		search: func(r *http.Request) ([]*helpdesk.Article, error) {
			q := r.URL.Query()
			published, err := boolParam(q, "published")
			if err != nil {
				return nil, err
			}
			return repos.Articles.Search(r.Context(), helpdesk.ArticleFilter{
				Published: published,
				Category:  q.Get("category"),
			})
		},
	}
}

func overdueWorkOrders(repos *helpdesk.Repositories, log *slog.Logger, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := repos.WorkOrders.Overdue(r.Context(), now())
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeList(w, items)
	}
}

func uuidParam(q url.Values, name string) (uuid.UUID, error) {
	v := q.Get(name)
	if v == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a uuid", errBadRequest, name)
	}
	return id, nil
}

func boolParam(q url.Values, name string) (*bool, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a boolean", errBadRequest, name)
	}
	return &b, nil
}
