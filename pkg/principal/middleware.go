package principal

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/helpdesk/pkg/logger"
)

// ErrorHandler writes the response for a rejected bearer token. err is
// ErrMalformedHeader or ErrInvalidToken.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type middlewareConfig struct {
	errorHandler ErrorHandler
	logger       *slog.Logger
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

// WithErrorHandler overrides DefaultErrorHandler.
func WithErrorHandler(h ErrorHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithLogger sets the logger used for rejected tokens.
func WithLogger(l *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// DefaultErrorHandler answers 401 in plain text.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

// Middleware authenticates bearer tokens. Requests without an Authorization
// header continue anonymously; invalid tokens are passed to the error handler.
func Middleware(tokens *Tokens, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{errorHandler: DefaultErrorHandler, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok, err := bearerToken(r)
			if err != nil {
				reject(w, r, cfg, err)
				return
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			p, err := tokens.Verify(raw)
			if err != nil {
				cfg.logger.DebugContext(r.Context(), "rejected bearer token", logger.Error(err))
				reject(w, r, cfg, ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, cfg middlewareConfig, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer`)
	cfg.errorHandler(w, r, err)
}

// IsAuthError reports whether err is a bearer token rejection.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrMalformedHeader)
}

func bearerToken(r *http.Request) (string, bool, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false, nil
	}
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false, ErrMalformedHeader
	}
	return strings.TrimSpace(token), true, nil
}
