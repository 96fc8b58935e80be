package organization

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store, used for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]*Organization
	bySlug   map[string]uuid.UUID
	byDomain map[string]uuid.UUID
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store pre-populated with orgs.
func NewMemoryStore(orgs ...*Organization) *MemoryStore {
	s := &MemoryStore{
		byID:     make(map[uuid.UUID]*Organization),
		bySlug:   make(map[string]uuid.UUID),
		byDomain: make(map[string]uuid.UUID),
	}
	for _, o := range orgs {
		if err := s.Create(context.Background(), o); err != nil {
			panic("organization: invalid seed: " + err.Error())
		}
	}
	return s
}

func (s *MemoryStore) FindBySlug(_ context.Context, slug string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySlug[NormalizeSlug(slug)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return org.Clone(), nil
}

func (s *MemoryStore) FindByDomain(_ context.Context, host string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byDomain[strings.ToLower(host)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *MemoryStore) Create(_ context.Context, org *Organization) error {
	if err := org.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.bySlug[org.Slug]; taken {
		return ErrSlugTaken
	}
	domain := strings.ToLower(org.CustomDomain)
	if domain != "" {
		if _, taken := s.byDomain[domain]; taken {
			return ErrDomainTaken
		}
	}

	stored := org.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.UpdatedAt = stored.CreatedAt

	s.byID[stored.ID] = stored
	s.bySlug[stored.Slug] = stored.ID
	if domain != "" {
		s.byDomain[domain] = stored.ID
	}
	return nil
}

func (s *MemoryStore) Deactivate(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	org.Active = false
	org.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Organization, 0, len(s.byID))
	for _, org := range s.byID {
		out = append(out, *org.Clone())
	}
	slices.SortFunc(out, func(a, b Organization) int { return strings.Compare(a.Slug, b.Slug) })
	return out, nil
}
