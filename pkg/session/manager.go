package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"
)

// Manager loads and saves sessions for HTTP requests.
type Manager struct {
	store     Store
	transport Transport
	ttl       time.Duration
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore sets the session store.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithTransport sets how the session token travels.
func WithTransport(t Transport) Option {
	return func(m *Manager) { m.transport = t }
}

// WithTTL sets the session lifetime.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// New returns a Manager. Without options it keeps sessions in memory and
// uses a "sid" cookie.
func New(opts ...Option) *Manager {
	m := &Manager{ttl: DefaultConfig().TTL, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = NewMemoryStore(0)
	}
	if m.transport == nil {
		m.transport = NewCookieTransport(DefaultConfig().CookieName, false, "")
	}
	return m
}

// NewFromConfig builds a Manager from cfg using store.
func NewFromConfig(cfg Config, store Store) *Manager {
	return New(
		WithStore(store),
		WithTTL(cfg.TTL),
		WithTransport(NewCookieTransport(cfg.CookieName, cfg.Secure, cfg.CookieDomain)),
	)
}

// Get returns the request's session. The session attached by Middleware is
// preferred over a store round trip.
func (m *Manager) Get(ctx context.Context, r *http.Request) (*Session, error) {
	if s, ok := FromContext(r.Context()); ok {
		return s, nil
	}
	token, err := m.transport.GetToken(r)
	if err != nil {
		return nil, err
	}
	return m.store.Get(ctx, token)
}

// Ensure returns the request's session, creating one and issuing its token
// when none exists.
func (m *Manager) Ensure(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	s, err := m.Get(ctx, r)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	s = newSession(token, m.now(), m.ttl)
	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}
	if err := m.transport.SetToken(w, s.Token, m.ttl); err != nil {
		_ = m.store.Delete(ctx, s.Token)
		return nil, err
	}
	return s, nil
}

// GetValue reads key from the request's session.
func (m *Manager) GetValue(ctx context.Context, r *http.Request, key string) (string, bool) {
	s, err := m.Get(ctx, r)
	if err != nil {
		return "", false
	}
	return s.Get(key)
}

// SetValue writes key, creating the session if needed.
func (m *Manager) SetValue(ctx context.Context, w http.ResponseWriter, r *http.Request, key, value string) error {
	s, err := m.Ensure(ctx, w, r)
	if err != nil {
		return err
	}
	s.Set(key, value)
	return m.store.Update(ctx, s)
}

// DeleteValue removes key. A missing session is not an error.
func (m *Manager) DeleteValue(ctx context.Context, r *http.Request, key string) error {
	s, err := m.Get(ctx, r)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, ok := s.Get(key); !ok {
		return nil
	}
	s.Delete(key)
	return m.store.Update(ctx, s)
}

// Destroy deletes the session and clears its token.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if token, err := m.transport.GetToken(r); err == nil {
		if err := m.store.Delete(ctx, token); err != nil {
			return err
		}
	}
	return m.transport.ClearToken(w)
}

// OrganizationID implements tenant.SessionStore.
func (m *Manager) OrganizationID(r *http.Request) (string, bool) {
	v, ok := m.GetValue(r.Context(), r, OrganizationKey)
	return v, ok && v != ""
}

// SetOrganizationID implements tenant.SessionStore.
func (m *Manager) SetOrganizationID(w http.ResponseWriter, r *http.Request, id string) error {
	return m.SetValue(r.Context(), w, r, OrganizationKey, id)
}

// ClearOrganizationID implements tenant.SessionStore.
func (m *Manager) ClearOrganizationID(_ http.ResponseWriter, r *http.Request) error {
	return m.DeleteValue(r.Context(), r, OrganizationKey)
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
