package repo_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/helpdesk/pkg/organization"
	"github.com/dmitrymomot/helpdesk/pkg/repo"
	"github.com/dmitrymomot/helpdesk/pkg/tenant"
)

type note struct {
	repo.Owned
	Title    string
	Priority int
	Tags     []string
	DueAt    *time.Time
	Owner    *uuid.UUID
}

func (n *note) Validate() error {
	if n.Title == "" {
		return errors.New("title is required")
	}
	return nil
}

var noteSchema = repo.Schema[note]{
	Table: "notes",
	Fields: map[string]func(*note) any{
		"title":    func(n *note) any { return n.Title },
		"priority": func(n *note) any { return n.Priority },
		"tags":     func(n *note) any { return n.Tags },
		"due_at":   func(n *note) any { return n.DueAt },
		"owner":    func(n *note) any { return n.Owner },
	},
}

func newNotes() *repo.Repository[note, *note] {
	return repo.New[note](repo.NewMemoryBackend[note](noteSchema))
}

func tenantCtx(t *testing.T, slug string) (context.Context, *organization.Organization) {
	t.Helper()
	org := organization.New(slug, slug)
	return tenant.WithTenant(context.Background(), org), org
}

func TestRepository_NoTenant(t *testing.T) {
	t.Parallel()

	notes := newNotes()
	ctx := context.Background()

	items, err := notes.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	_, err = notes.Create(ctx, &note{Title: "orphan"})
	require.ErrorIs(t, err, repo.ErrNoTenant)

	_, err = notes.Get(ctx, uuid.New())
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestRepository_CreateStampsTenant(t *testing.T) {
	t.Parallel()

	notes := newNotes()
	acmeCtx, acme := tenantCtx(t, "acme")
	globexCtx, _ := tenantCtx(t, "globex")

	created, err := notes.Create(acmeCtx, &note{Title: "first"})
	require.NoError(t, err)
	assert.Equal(t, acme.ID, created.OrganizationID)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	items, err := notes.List(acmeCtx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)

	items, err = notes.List(globexCtx)
	require.NoError(t, err)
	assert.Empty(t, items)

	got, err := notes.Get(acmeCtx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
}

func TestRepository_CrossTenantGetIsNotFound(t *testing.T) {
	t.Parallel()

	notes := newNotes()
	acmeCtx, _ := tenantCtx(t, "acme")
	globexCtx, _ := tenantCtx(t, "globex")

	created, err := notes.Create(acmeCtx, &note{Title: "secret"})
	require.NoError(t, err)

	_, crossErr := notes.Get(globexCtx, created.ID)
	_, missingErr := notes.Get(globexCtx, uuid.New())
	require.ErrorIs(t, crossErr, repo.ErrNotFound)
	assert.Equal(t, missingErr, crossErr)
}

func TestRepository_ExplicitOrganization(t *testing.T) {
	t.Parallel()

	notes := newNotes()
	acmeCtx, acme := tenantCtx(t, "acme")
	other := uuid.New()

	_, err := notes.Create(acmeCtx, &note{Owned: repo.Owned{OrganizationID: other}, Title: "x"})
	require.ErrorIs(t, err, repo.ErrTenantMismatch)

	created, err := notes.Create(acmeCtx, &note{Owned: repo.Owned{OrganizationID: acme.ID}, Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, acme.ID, created.OrganizationID)

	// Provisioning paths run without a tenant and name the owner explicitly.
	created, err = notes.Create(context.Background(), &note{Owned: repo.Owned{OrganizationID: acme.ID}, Title: "seeded"})
	require.NoError(t, err)
	_, err = notes.Get(acmeCtx, created.ID)
	require.NoError(t, err)
}

func TestRepository_Validation(t *testing.T) {
	t.Parallel()

	notes := newNotes()
	ctx, _ := tenantCtx(t, "acme")

	_, err := notes.Create(ctx, &note{})
	require.ErrorIs(t, err, repo.ErrInvalidRecord)

	_, err = notes.Create(ctx, nil)
	require.ErrorIs(t, err, repo.ErrInvalidRecord)

	created, err := notes.Create(ctx, &note{Title: "a"})
	require.NoError(t, err)
	_, err = notes.Create(ctx, &note{Owned: repo.Owned{ID: created.ID}, Title: "b"})
	require.ErrorIs(t, err, repo.ErrDuplicate)
}

func TestRepository_CreateLeavesArgumentUntouched(t *testing.T) {
	t.Parallel()

	notes := newNotes()
	ctx, acme := tenantCtx(t, "acme")

	invalid := &note{}
	_, err := notes.Create(ctx, invalid)
	require.ErrorIs(t, err, repo.ErrInvalidRecord)
	assert.Equal(t, note{}, *invalid)

	in := &note{Title: "a"}
	created, err := notes.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, in.ID)
	assert.Equal(t, uuid.Nil, in.OrganizationID)
	assert.True(t, in.CreatedAt.IsZero())
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, acme.ID, created.OrganizationID)
	assert.False(t, created.CreatedAt.IsZero())

	dup := &note{Owned: repo.Owned{ID: created.ID}, Title: "b"}
	_, err = notes.Create(ctx, dup)
	require.ErrorIs(t, err, repo.ErrDuplicate)
	assert.Equal(t, uuid.Nil, dup.OrganizationID)
}

func TestRepository_Filters(t *testing.T) {
	t.Parallel()

	notes := newNotes()
	acmeCtx, _ := tenantCtx(t, "acme")
	globexCtx, _ := tenantCtx(t, "globex")

	now := time.Now()
	past, future := now.Add(-time.Hour), now.Add(time.Hour)
	owner := uuid.New()

	fixtures := []*note{
		{Title: "a", Priority: 1, Tags: []string{"billing"}, DueAt: &past, Owner: &owner},
		{Title: "b", Priority: 2, Tags: []string{"billing", "urgent"}, DueAt: &future},
		{Title: "c", Priority: 3},
	}
	for _, n := range fixtures {
		_, err := notes.Create(acmeCtx, n)
		require.NoError(t, err)
	}
	// Same shapes under another tenant must never leak into acme's results.
	for _, n := range []*note{
		{Title: "a", Priority: 1, Tags: []string{"billing"}, DueAt: &past, Owner: &owner},
		{Title: "z", Priority: 9},
	} {
		_, err := notes.Create(globexCtx, n)
		require.NoError(t, err)
	}

	titles := func(items []*note) []string {
		out := make([]string, len(items))
		for i, n := range items {
			out[i] = n.Title
		}
		return out
	}

	tests := []struct {
		name  string
		query repo.Query
		want  []string
	}{
		{"eq", repo.Where(repo.Eq("title", "b")), []string{"b"}},
		{"ne", repo.Where(repo.Ne("title", "b")), []string{"a", "c"}},
		{"gte", repo.Where(repo.Gte("priority", 2)), []string{"b", "c"}},
		{"in", repo.Where(repo.In("title", "a", "c", "z")), []string{"a", "c"}},
		{"empty in", repo.Where(repo.In[string]("title")), []string{}},
		{"not in", repo.Where(repo.NotIn("title", "a")), []string{"b", "c"}},
		{"contains", repo.Where(repo.Contains("tags", "urgent")), []string{"b"}},
		{"lt time skips null", repo.Where(repo.Lt("due_at", now)), []string{"a"}},
		{"is null", repo.Where(repo.IsNull("owner")), []string{"b", "c"}},
		{"uuid eq", repo.Where(repo.Eq("owner", owner)), []string{"a"}},
		{"combined", repo.Where(repo.Contains("tags", "billing"), repo.Gt("priority", 1)), []string{"b"}},
		{"sorted desc", repo.Query{}.Sort("priority", true), []string{"c", "b", "a"}},
		{"limit", repo.Query{}.Sort("title", false).Take(2), []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := notes.Find(acmeCtx, tt.query)
			require.NoError(t, err)
			if tt.query.OrderBy == nil {
				assert.ElementsMatch(t, tt.want, titles(items))
			} else {
				assert.Equal(t, tt.want, titles(items))
			}
		})
	}
}

func TestRepository_RejectsBadQueries(t *testing.T) {
	t.Parallel()

	notes := newNotes()
	ctx, _ := tenantCtx(t, "acme")

	_, err := notes.List(ctx, repo.Eq("organization_id", uuid.New()))
	require.ErrorIs(t, err, repo.ErrInvalidFilter)

	_, err = notes.List(ctx, repo.Eq("password", "x"))
	require.ErrorIs(t, err, repo.ErrUnknownField)

	_, err = notes.List(ctx, repo.Eq("title", nil))
	require.ErrorIs(t, err, repo.ErrInvalidFilter)

	_, err = notes.Find(ctx, repo.Query{}.Sort("nope", false))
	require.ErrorIs(t, err, repo.ErrUnknownField)

	// Invalid queries are rejected even without a tenant.
	_, err = notes.List(context.Background(), repo.Eq("organization_id", uuid.New()))
	require.ErrorIs(t, err, repo.ErrInvalidFilter)
}

// leakyBackend ignores the organization argument, simulating a faulty store.
type leakyBackend struct {
	*repo.MemoryBackend[note, *note]
	all map[uuid.UUID]*note
	mu  sync.Mutex
}

func (l *leakyBackend) Insert(ctx context.Context, n *note) error {
	l.mu.Lock()
	l.all[n.ID] = n
	l.mu.Unlock()
	return l.MemoryBackend.Insert(ctx, n)
}

func (l *leakyBackend) Get(_ context.Context, _, id uuid.UUID) (*note, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n, ok := l.all[id]; ok {
		return n, nil
	}
	return nil, repo.ErrNotFound
}

func TestRepository_GetGuardsAgainstLeakyBackend(t *testing.T) {
	t.Parallel()

	backend := &leakyBackend{MemoryBackend: repo.NewMemoryBackend[note](noteSchema), all: map[uuid.UUID]*note{}}
	notes := repo.New[note](backend)
	acmeCtx, _ := tenantCtx(t, "acme")
	globexCtx, _ := tenantCtx(t, "globex")

	created, err := notes.Create(acmeCtx, &note{Title: "secret"})
	require.NoError(t, err)

	_, err = notes.Get(globexCtx, created.ID)
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestRepository_ConcurrentTenants(t *testing.T) {
	t.Parallel()

	notes := newNotes()
	const tenants, perTenant = 6, 25

	var g errgroup.Group
	for i := range tenants {
		ctx, org := tenantCtx(t, fmt.Sprintf("org%d", i))
		g.Go(func() error {
			for j := range perTenant {
				if _, err := notes.Create(ctx, &note{Title: fmt.Sprintf("%s-%d", org.Slug, j)}); err != nil {
					return err
				}
				items, err := notes.List(ctx)
				if err != nil {
					return err
				}
				for _, n := range items {
					if n.OrganizationID != org.ID {
						return fmt.Errorf("tenant %s saw a row of %s", org.ID, n.OrganizationID)
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestRepository_TenantFunc(t *testing.T) {
	t.Parallel()

	org := uuid.New()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	notes := repo.New[note](
		repo.NewMemoryBackend[note](noteSchema),
		repo.WithTenantFunc(func(context.Context) (uuid.UUID, bool) { return org, true }),
		repo.WithClock(func() time.Time { return fixed }),
	)

	created, err := notes.Create(context.Background(), &note{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, org, created.OrganizationID)
	assert.Equal(t, fixed, created.CreatedAt)
}
