package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/helpdesk/pkg/logger"
	"github.com/dmitrymomot/helpdesk/pkg/organization"
	"github.com/dmitrymomot/helpdesk/pkg/secrets"
)

// Credential headers for the gate-exempt surfaces.
const (
	AdminTokenHeader = "X-Admin-Token"
	APIKeyHeader     = "X-API-Key"
)

var errUnauthorized = errors.New("unauthorized")

// requireSecret rejects requests whose header does not carry secret. An
// empty secret disables the routes altogether.
func requireSecret(header, secret string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				writeError(w, r, log, errUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// organizationView is the cross-tenant representation. Sealed secrets are
// reported only by presence.
type organizationView struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	CustomDomain string         `json:"custom_domain,omitempty"`
	Active       bool           `json:"active"`
	Settings     map[string]any `json:"settings,omitempty"`
	HasAPIKey    bool           `json:"has_api_key"`
	HasMail      bool           `json:"has_mail_credentials"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func viewOf(o *organization.Organization) organizationView {
	return organizationView{
		ID:           o.ID,
		Name:         o.Name,
		Slug:         o.Slug,
		CustomDomain: o.CustomDomain,
		Active:       o.Active,
		Settings:     o.Settings,
		HasAPIKey:    o.Secrets.APIKey != "",
		HasMail:      o.Secrets.MailPassword != "",
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

type organizations struct {
	store  organization.Store
	sealer *secrets.Sealer
	log    *slog.Logger
}

func (h organizations) list(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out := make([]organizationView, 0, len(orgs))
	for i := range orgs {
		out = append(out, viewOf(&orgs[i]))
	}
	writeList(w, out)
}

func (h organizations) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, fmt.Errorf("%w: malformed id", errBadRequest))
		return
	}
	org, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusOK, viewOf(org))
}

type provisionRequest struct {
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	CustomDomain string         `json:"custom_domain"`
	Settings     map[string]any `json:"settings"`
	APIKey       string         `json:"api_key"`
	MailUsername string         `json:"mail_username"`
	MailPassword string         `json:"mail_password"`
}

func (h organizations) provision(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, h.log, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	seed := organization.Seed{
		Name:         req.Name,
		Slug:         req.Slug,
		CustomDomain: strings.ToLower(strings.TrimSpace(req.CustomDomain)),
		Settings:     req.Settings,
		APIKey:       req.APIKey,
		MailUsername: req.MailUsername,
		MailPassword: req.MailPassword,
	}
	org, err := seed.Organization(h.sealer)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.store.Create(r.Context(), org); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	h.log.InfoContext(r.Context(), "organization provisioned",
		slog.String("slug", org.Slug), logger.OrganizationID(org.ID))
	writeData(w, http.StatusCreated, viewOf(org))
}

func (h organizations) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, fmt.Errorf("%w: malformed id", errBadRequest))
		return
	}
	err = h.store.Deactivate(r.Context(), id)
	switch {
	case errors.Is(err, organization.ErrInvalidationFailed):
		// Local caches are already clean; peers catch up on TTL expiry.
		h.log.WarnContext(r.Context(), "organization deactivated without broadcast", logger.Error(err))
	case err != nil:
		writeError(w, r, h.log, err)
		return
	}
	h.log.InfoContext(r.Context(), "organization deactivated", logger.OrganizationID(id))
	w.WriteHeader(http.StatusNoContent)
}
