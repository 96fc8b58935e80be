package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/helpdesk/pkg/helpdesk"
	"github.com/dmitrymomot/helpdesk/pkg/logger"
	"github.com/dmitrymomot/helpdesk/pkg/organization"
	"github.com/dmitrymomot/helpdesk/pkg/principal"
	"github.com/dmitrymomot/helpdesk/pkg/repo"
	"github.com/dmitrymomot/helpdesk/pkg/tenant"
)

// Response is the envelope of every JSON body.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// errBadRequest marks malformed input: bad JSON, ids or query values.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Data: data})
}

func writeList[T any](w http.ResponseWriter, items []T) {
	writeJSON(w, http.StatusOK, Response{Data: items, Meta: map[string]any{"count": len(items)}})
}

// writeError classifies err and writes the error envelope. Server errors are
// logged with their cause; clients only see the status text.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed", logger.Error(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, Response{Error: &ErrorDetail{
		Code:      code,
		Message:   msg,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, tenant.ErrInactiveTenant):
		return http.StatusForbidden, "tenant_inactive"
	case errors.Is(err, tenant.ErrTenantNotFound):
		return http.StatusNotFound, "tenant_not_found"
	case errors.Is(err, tenant.ErrInvalidIdentifier):
		return http.StatusBadRequest, "invalid_host"
	case errors.Is(err, tenant.ErrNoTenantInContext), errors.Is(err, repo.ErrNoTenant):
		return http.StatusBadRequest, "no_tenant"
	case errors.Is(err, repo.ErrTenantMismatch):
		return http.StatusBadRequest, "tenant_mismatch"
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, organization.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repo.ErrDuplicate),
		errors.Is(err, organization.ErrSlugTaken),
		errors.Is(err, organization.ErrDomainTaken):
		return http.StatusConflict, "conflict"
	case errors.Is(err, repo.ErrUnknownField), errors.Is(err, repo.ErrInvalidFilter):
		return http.StatusBadRequest, "invalid_query"
	case errors.Is(err, repo.ErrInvalidRecord),
		errors.Is(err, helpdesk.ErrMissingField),
		errors.Is(err, helpdesk.ErrInvalidStatus),
		errors.Is(err, helpdesk.ErrInvalidPriority),
		errors.Is(err, organization.ErrInvalidSlug),
		errors.Is(err, organization.ErrInvalidOrganization):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, errUnauthorized), principal.IsAuthError(err):
		return http.StatusUnauthorized, "unauthorized"
	}
	return http.StatusInternalServerError, "internal_error"
}

// gateErrorHandler renders tenant gate and bearer token rejections in the
// JSON envelope.
func gateErrorHandler(log *slog.Logger) tenant.ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(w, r, log, err)
	}
}
