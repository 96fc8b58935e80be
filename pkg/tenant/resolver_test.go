package tenant_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/helpdesk/pkg/organization"
	"github.com/dmitrymomot/helpdesk/pkg/tenant"
)

type failingRegistry struct{ err error }

func (f failingRegistry) FindBySlug(context.Context, string) (*organization.Organization, error) {
	return nil, f.err
}

func (f failingRegistry) FindByID(context.Context, uuid.UUID) (*organization.Organization, error) {
	return nil, f.err
}

func TestSubdomainFromHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host    string
		want    string
		wantErr bool
	}{
		{"acme.app.example.com", "acme", false},
		{"ACME.app.example.com", "acme", false},
		{"acme.app.example.com:8443", "acme", false},
		{"acme.app.example.com.", "acme", false},
		{"example.com", "", false},
		{"localhost", "", false},
		{"localhost:8080", "", false},
		{"", "", false},
		{"127.0.0.1", "", false},
		{"[::1]:8080", "", false},
		{"www.example.com", "", false},
		{"ac_me.app.example.com", "", true},
		{"-acme.app.example.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()

			got, err := tenant.SubdomainFromHost(tt.host)
			if tt.wantErr {
				require.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistryResolver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	acme := newOrg("acme", true)
	globex := newOrg("globex", true)
	initech := newOrg("initech", true)
	suspended := newOrg("suspended", false)
	branded := newOrg("branded", true)
	branded.CustomDomain = "support.branded.test"
	brandedOff := newOrg("brandedoff", false)
	brandedOff.CustomDomain = "support.off.test"

	store := organization.NewMemoryStore(acme, globex, initech, suspended, branded, brandedOff)
	resolver := tenant.NewResolver(store)

	t.Run("host wins over principal and session", func(t *testing.T) {
		t.Parallel()

		res, err := resolver.Resolve(ctx, tenant.Input{
			Host:                    "acme.app.example.com",
			PrincipalOrganizationID: globex.ID,
			SessionOrganizationID:   initech.ID.String(),
		})
		require.NoError(t, err)
		assert.Equal(t, tenant.SourceHost, res.Source)
		assert.Equal(t, acme.ID, res.Organization.ID)
	})

	t.Run("principal wins over session", func(t *testing.T) {
		t.Parallel()

		res, err := resolver.Resolve(ctx, tenant.Input{
			Host:                    "example.com",
			PrincipalOrganizationID: globex.ID,
			SessionOrganizationID:   initech.ID.String(),
		})
		require.NoError(t, err)
		assert.Equal(t, tenant.SourcePrincipal, res.Source)
		assert.Equal(t, globex.ID, res.Organization.ID)
	})

	t.Run("session used when nothing else matches", func(t *testing.T) {
		t.Parallel()

		res, err := resolver.Resolve(ctx, tenant.Input{
			Host:                  "example.com",
			SessionOrganizationID: initech.ID.String(),
		})
		require.NoError(t, err)
		assert.Equal(t, tenant.SourceSession, res.Source)
		assert.Equal(t, initech.ID, res.Organization.ID)
		assert.False(t, res.StaleSession)
	})

	t.Run("no tenant", func(t *testing.T) {
		t.Parallel()

		res, err := resolver.Resolve(ctx, tenant.Input{Host: "example.com"})
		require.NoError(t, err)
		assert.Nil(t, res.Organization)
		assert.Equal(t, tenant.SourceNone, res.Source)
	})

	t.Run("inactive host claim is rejected without fallthrough", func(t *testing.T) {
		t.Parallel()

		res, err := resolver.Resolve(ctx, tenant.Input{
			Host:                    "suspended.app.example.com",
			PrincipalOrganizationID: globex.ID,
			SessionOrganizationID:   initech.ID.String(),
		})
		require.ErrorIs(t, err, tenant.ErrInvalidTenantClaim)
		require.ErrorIs(t, err, tenant.ErrInactiveTenant)
		assert.Nil(t, res.Organization)
	})

	t.Run("unknown host claim is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := resolver.Resolve(ctx, tenant.Input{
			Host:                    "ghost.app.example.com",
			PrincipalOrganizationID: globex.ID,
		})
		require.ErrorIs(t, err, tenant.ErrInvalidTenantClaim)
		require.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("malformed host label is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := resolver.Resolve(ctx, tenant.Input{Host: "ac_me.app.example.com"})
		require.ErrorIs(t, err, tenant.ErrInvalidTenantClaim)
		require.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
	})

	t.Run("inactive principal organization falls through", func(t *testing.T) {
		t.Parallel()

		res, err := resolver.Resolve(ctx, tenant.Input{
			Host:                    "example.com",
			PrincipalOrganizationID: suspended.ID,
			SessionOrganizationID:   initech.ID.String(),
		})
		require.NoError(t, err)
		assert.Equal(t, tenant.SourceSession, res.Source)
		assert.Equal(t, initech.ID, res.Organization.ID)
	})

	t.Run("unknown principal organization falls through", func(t *testing.T) {
		t.Parallel()

		res, err := resolver.Resolve(ctx, tenant.Input{PrincipalOrganizationID: uuid.New()})
		require.NoError(t, err)
		assert.Nil(t, res.Organization)
	})

	t.Run("stale session organizations are flagged", func(t *testing.T) {
		t.Parallel()

		for name, value := range map[string]string{
			"inactive":  suspended.ID.String(),
			"deleted":   uuid.NewString(),
			"malformed": "42",
		} {
			res, err := resolver.Resolve(ctx, tenant.Input{Host: "example.com", SessionOrganizationID: value})
			require.NoError(t, err, name)
			assert.Nil(t, res.Organization, name)
			assert.True(t, res.StaleSession, name)
		}
	})

	t.Run("custom domain resolves before subdomain rule", func(t *testing.T) {
		t.Parallel()

		res, err := resolver.Resolve(ctx, tenant.Input{Host: "support.branded.test"})
		require.NoError(t, err)
		assert.Equal(t, tenant.SourceDomain, res.Source)
		assert.Equal(t, branded.ID, res.Organization.ID)
	})

	t.Run("inactive custom domain is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := resolver.Resolve(ctx, tenant.Input{
			Host:                    "support.off.test",
			PrincipalOrganizationID: globex.ID,
		})
		require.ErrorIs(t, err, tenant.ErrInvalidTenantClaim)
		require.ErrorIs(t, err, tenant.ErrInactiveTenant)
	})

	t.Run("registry failures surface", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("db down")
		r := tenant.NewResolver(failingRegistry{err: boom})

		_, err := r.Resolve(ctx, tenant.Input{Host: "acme.app.example.com"})
		require.ErrorIs(t, err, boom)
		require.NotErrorIs(t, err, tenant.ErrInvalidTenantClaim)

		_, err = r.Resolve(ctx, tenant.Input{PrincipalOrganizationID: uuid.New()})
		require.ErrorIs(t, err, boom)
	})
}

func TestRegistryResolver_BaseDomain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	acme := newOrg("acme", true)
	resolver := tenant.NewResolver(organization.NewMemoryStore(acme), tenant.WithBaseDomain("localhost"))

	res, err := resolver.Resolve(ctx, tenant.Input{Host: "acme.localhost:8080"})
	require.NoError(t, err)
	assert.Equal(t, acme.ID, res.Organization.ID)

	res, err = resolver.Resolve(ctx, tenant.Input{Host: "localhost:8080"})
	require.NoError(t, err)
	assert.Nil(t, res.Organization)

	// Hosts outside the base domain make no subdomain claim.
	res, err = resolver.Resolve(ctx, tenant.Input{Host: "acme.other.example.com"})
	require.NoError(t, err)
	assert.Nil(t, res.Organization)
}
