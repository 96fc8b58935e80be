package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrymomot/helpdesk/pkg/logger"
)

// Probe checks one dependency.
type Probe func(context.Context) error

// LivenessHandler always answers 200.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]any{"status": "alive"})
	}
}

// ReadinessHandler runs every probe with timeout and answers 200 when all
// pass, 503 otherwise. The body lists each probe's outcome by name.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, probes map[string]Probe) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	names := slices.Sorted(maps.Keys(probes))

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		checks := make(map[string]string, len(names))
		code := http.StatusOK
		for _, name := range names {
			if err := probes[name](ctx); err != nil {
				log.ErrorContext(ctx, "readiness probe failed", slog.String("probe", name), logger.Error(err))
				checks[name] = "fail"
				code = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		status := "ready"
		if code != http.StatusOK {
			status = "not_ready"
		}
		writeStatus(w, code, map[string]any{"status": status, "checks": checks})
	}
}

func writeStatus(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
