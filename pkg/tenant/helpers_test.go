package tenant_test

import (
	"net/http"
	"sync"

	"github.com/dmitrymomot/helpdesk/pkg/organization"
)

func newOrg(slug string, active bool) *organization.Organization {
	org := organization.New(slug+" Inc", slug)
	org.Active = active
	return org
}

// fakeSessions is an in-memory tenant.SessionStore keyed by a request header.
type fakeSessions struct {
	mu       sync.Mutex
	values   map[string]string
	setErr   error
	setCalls int
	cleared  int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{values: make(map[string]string)}
}

func sessionKey(r *http.Request) string { return r.Header.Get("X-Session") }

func (f *fakeSessions) OrganizationID(r *http.Request) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[sessionKey(r)]
	return v, ok
}

func (f *fakeSessions) SetOrganizationID(_ http.ResponseWriter, r *http.Request, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.values[sessionKey(r)] = id
	return nil
}

func (f *fakeSessions) ClearOrganizationID(_ http.ResponseWriter, r *http.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	delete(f.values, sessionKey(r))
	return nil
}

func (f *fakeSessions) get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}
