package session

import (
	"net/http"
	"strings"
	"time"
)

// Transport moves the session token between client and server.
type Transport interface {
	GetToken(r *http.Request) (string, error)
	SetToken(w http.ResponseWriter, token string, ttl time.Duration) error
	ClearToken(w http.ResponseWriter) error
}

// CookieTransport carries the token in an HttpOnly, SameSite=Lax cookie.
type CookieTransport struct {
	name   string
	secure bool
	domain string
}

// NewCookieTransport returns a cookie transport. Set domain to the base
// domain (e.g. "example.com") to share the session across tenant subdomains.
func NewCookieTransport(name string, secure bool, domain string) *CookieTransport {
	return &CookieTransport{name: name, secure: secure, domain: domain}
}

func (t *CookieTransport) GetToken(r *http.Request) (string, error) {
	c, err := r.Cookie(t.name)
	if err != nil || c.Value == "" {
		return "", ErrSessionNotFound
	}
	return c.Value, nil
}

func (t *CookieTransport) SetToken(w http.ResponseWriter, token string, ttl time.Duration) error {
	http.SetCookie(w, &http.Cookie{
		Name:     t.name,
		Value:    token,
		Path:     "/",
		Domain:   t.domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (t *CookieTransport) ClearToken(w http.ResponseWriter) error {
	http.SetCookie(w, &http.Cookie{
		Name:     t.name,
		Value:    "",
		Path:     "/",
		Domain:   t.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// HeaderTransport carries the token in a request/response header, for
// clients that do not keep cookies.
type HeaderTransport struct {
	name string
}

// NewHeaderTransport reads and writes the token in header name.
func NewHeaderTransport(name string) *HeaderTransport {
	return &HeaderTransport{name: name}
}

func (t *HeaderTransport) GetToken(r *http.Request) (string, error) {
	v := strings.TrimSpace(r.Header.Get(t.name))
	if v == "" {
		return "", ErrSessionNotFound
	}
	return v, nil
}

func (t *HeaderTransport) SetToken(w http.ResponseWriter, token string, _ time.Duration) error {
	w.Header().Set(t.name, token)
	return nil
}

func (t *HeaderTransport) ClearToken(w http.ResponseWriter) error {
	w.Header().Del(t.name)
	return nil
}
