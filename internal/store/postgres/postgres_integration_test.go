//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmitrymomot/helpdesk/internal/store/postgres"
	"github.com/dmitrymomot/helpdesk/pkg/helpdesk"
	"github.com/dmitrymomot/helpdesk/pkg/organization"
	"github.com/dmitrymomot/helpdesk/pkg/pg"
	"github.com/dmitrymomot/helpdesk/pkg/repo"
	"github.com/dmitrymomot/helpdesk/pkg/tenant"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "helpdesk",
				"POSTGRES_PASSWORD": "helpdesk",
				"POSTGRES_DB":       "helpdesk",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, container)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	pool, err := pg.Connect(ctx, pg.Config{
		ConnectionString: fmt.Sprintf("postgres://helpdesk:helpdesk@%s/helpdesk?sslmode=disable", endpoint),
		MaxOpenConns:     5,
		RetryAttempts:    5,
		RetryInterval:    time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, postgres.Migrations(), "schema_migrations", slog.Default()))
	return pool
}

func TestPostgres(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t)

	orgs := postgres.NewOrganizations(pool)
	acme := organization.New("Acme", "acme")
	acme.CustomDomain = "Support.Acme.test"
	globex := organization.New("Globex", "globex")
	require.NoError(t, orgs.Create(ctx, acme))
	require.NoError(t, orgs.Create(ctx, globex))

	t.Run("organizations", func(t *testing.T) {
		dup := organization.New("Other", "acme")
		require.ErrorIs(t, orgs.Create(ctx, dup), organization.ErrSlugTaken)

		dupDomain := organization.New("Other", "other")
		dupDomain.CustomDomain = "support.acme.test"
		require.ErrorIs(t, orgs.Create(ctx, dupDomain), organization.ErrDomainTaken)

		got, err := orgs.FindByDomain(ctx, "SUPPORT.acme.test")
		require.NoError(t, err)
		assert.Equal(t, acme.ID, got.ID)

		got, err = orgs.FindBySlug(ctx, "Globex")
		require.NoError(t, err)
		assert.Equal(t, globex.ID, got.ID)
		assert.True(t, got.Active)

		_, err = orgs.FindByID(ctx, uuid.New())
		require.ErrorIs(t, err, organization.ErrNotFound)

		require.ErrorIs(t, orgs.Deactivate(ctx, uuid.New()), organization.ErrNotFound)

		list, err := orgs.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "acme", list[0].Slug)
	})

	t.Run("tenant scoped tickets", func(t *testing.T) {
		repos := helpdesk.NewRepositories(postgres.HelpdeskBackends(pool))
		acmeCtx := tenant.WithTenant(ctx, acme)
		globexCtx := tenant.WithTenant(ctx, globex)

		tech := uuid.New()
		a1, err := repos.Tickets.Create(acmeCtx, &helpdesk.Ticket{Subject: "printer on fire", Priority: helpdesk.PriorityUrgent, AssigneeID: &tech})
		require.NoError(t, err)
		_, err = repos.Tickets.Create(acmeCtx, &helpdesk.Ticket{Subject: "vpn down"})
		require.NoError(t, err)
		g1, err := repos.Tickets.Create(globexCtx, &helpdesk.Ticket{Subject: "globex only"})
		require.NoError(t, err)

		acmeTickets, err := repos.Tickets.Search(acmeCtx, helpdesk.TicketFilter{})
		require.NoError(t, err)
		assert.Len(t, acmeTickets, 2)
		for _, tk := range acmeTickets {
			assert.Equal(t, acme.ID, tk.OrganizationID)
		}

		_, err = repos.Tickets.Get(acmeCtx, g1.ID)
		require.ErrorIs(t, err, repo.ErrNotFound)

		got, err := repos.Tickets.Get(acmeCtx, a1.ID)
		require.NoError(t, err)
		assert.Equal(t, helpdesk.TicketOpen, got.Status)
		require.NotNil(t, got.AssigneeID)
		assert.Equal(t, tech, *got.AssigneeID)

		unassigned, err := repos.Tickets.Unassigned(acmeCtx)
		require.NoError(t, err)
		require.Len(t, unassigned, 1)
		assert.Equal(t, "vpn down", unassigned[0].Subject)

		none, err := repos.Tickets.Search(ctx, helpdesk.TicketFilter{})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("skills and deadlines", func(t *testing.T) {
		repos := helpdesk.NewRepositories(postgres.HelpdeskBackends(pool))
		acmeCtx := tenant.WithTenant(ctx, acme)

		_, err := repos.Technicians.Create(acmeCtx, &helpdesk.Technician{Name: "Sam", Skills: []string{"HVAC", "electrical"}, Available: true})
		require.NoError(t, err)
		hvac, err := repos.Technicians.WithSkill(acmeCtx, "hvac")
		require.NoError(t, err)
		require.Len(t, hvac, 1)

		past := time.Now().Add(-time.Hour)
		_, err = repos.WorkOrders.Create(acmeCtx, &helpdesk.WorkOrder{Title: "late", Deadline: &past})
		require.NoError(t, err)
		_, err = repos.WorkOrders.Create(acmeCtx, &helpdesk.WorkOrder{Title: "done", Deadline: &past, Status: helpdesk.WorkOrderCompleted})
		require.NoError(t, err)

		overdue, err := repos.WorkOrders.Overdue(acmeCtx, time.Now())
		require.NoError(t, err)
		require.Len(t, overdue, 1)
		assert.Equal(t, "late", overdue[0].Title)
	})

	t.Run("unknown organization is rejected", func(t *testing.T) {
		repos := helpdesk.NewRepositories(postgres.HelpdeskBackends(pool))
		_, err := repos.Articles.Create(ctx, &helpdesk.Article{Owned: repo.Owned{OrganizationID: uuid.New()}, Title: "orphan"})
		require.ErrorIs(t, err, repo.ErrInvalidRecord)
	})
}
