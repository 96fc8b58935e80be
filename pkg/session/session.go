package session

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// OrganizationKey is the session key holding the remembered organization id.
const OrganizationKey = "organization_id"

// Session is a visitor's server-side state.
type Session struct {
	ID        uuid.UUID         `json:"id"`
	Token     string            `json:"token"`
	Data      map[string]string `json:"data,omitempty"`
	ExpiresAt time.Time         `json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
}

func newSession(token string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:        uuid.New(),
		Token:     token,
		Data:      make(map[string]string),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// IsExpired reports whether the session expired at or before now.
func (s *Session) IsExpired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.Data[key]
	return v, ok
}

// Set stores value under key.
func (s *Session) Set(key, value string) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[key] = value
}

// Delete removes key.
func (s *Session) Delete(key string) {
	delete(s.Data, key)
}

func (s *Session) clone() *Session {
	c := *s
	c.Data = maps.Clone(s.Data)
	if c.Data == nil {
		c.Data = make(map[string]string)
	}
	return &c
}
