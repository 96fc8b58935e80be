package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/helpdesk/pkg/organization"
	"github.com/dmitrymomot/helpdesk/pkg/pg"
)

const (
	slugConstraint   = "organizations_slug_key"
	domainConstraint = "organizations_custom_domain_key"
)

var organizationColumns = []string{
	"id", "name", "slug", "custom_domain", "active", "settings",
	"api_key", "mail_username", "mail_password", "created_at", "updated_at",
}

// Organizations is an organization.Store over the organizations table.
type Organizations struct {
	db DB
}

var _ organization.Store = (*Organizations)(nil)

// NewOrganizations returns an organization store over db.
func NewOrganizations(db DB) *Organizations {
	return &Organizations{db: db}
}

type organizationRow struct {
	ID           uuid.UUID      `db:"id"`
	Name         string         `db:"name"`
	Slug         string         `db:"slug"`
	CustomDomain *string        `db:"custom_domain"`
	Active       bool           `db:"active"`
	Settings     map[string]any `db:"settings"`
	APIKey       string         `db:"api_key"`
	MailUsername string         `db:"mail_username"`
	MailPassword string         `db:"mail_password"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r organizationRow) organization() *organization.Organization {
	org := &organization.Organization{
		ID:        r.ID,
		Name:      r.Name,
		Slug:      r.Slug,
		Active:    r.Active,
		Settings:  r.Settings,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Secrets: organization.Secrets{
			APIKey:       r.APIKey,
			MailUsername: r.MailUsername,
			MailPassword: r.MailPassword,
		},
	}
	if r.CustomDomain != nil {
		org.CustomDomain = *r.CustomDomain
	}
	if org.Settings == nil {
		org.Settings = map[string]any{}
	}
	return org
}

func (s *Organizations) FindBySlug(ctx context.Context, slug string) (*organization.Organization, error) {
	return s.findOne(ctx, sq.Eq{"slug": organization.NormalizeSlug(slug)})
}

func (s *Organizations) FindByID(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	return s.findOne(ctx, sq.Eq{"id": id})
}

func (s *Organizations) FindByDomain(ctx context.Context, host string) (*organization.Organization, error) {
	if host == "" {
		return nil, organization.ErrNotFound
	}
	return s.findOne(ctx, sq.Expr("lower(custom_domain) = ?", strings.ToLower(host)))
}

func (s *Organizations) findOne(ctx context.Context, where sq.Sqlizer) (*organization.Organization, error) {
	query, args, err := psql.Select(organizationColumns...).From("organizations").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[organizationRow])
	if pg.IsNotFoundError(err) {
		return nil, organization.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.organization(), nil
}

func (s *Organizations) Create(ctx context.Context, org *organization.Organization) error {
	if err := org.Validate(); err != nil {
		return err
	}

	var domain *string
	if d := strings.ToLower(strings.TrimSpace(org.CustomDomain)); d != "" {
		domain = &d
	}
	settings := org.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	created := org.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	query, args, err := psql.Insert("organizations").Columns(organizationColumns...).Values(
		org.ID, org.Name, org.Slug, domain, org.Active, settings,
		org.Secrets.APIKey, org.Secrets.MailUsername, org.Secrets.MailPassword, created, created,
	).ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		if pg.IsDuplicateKeyError(err) {
			switch pg.ConstraintName(err) {
			case slugConstraint:
				return organization.ErrSlugTaken
			case domainConstraint:
				return organization.ErrDomainTaken
			}
		}
		if pg.IsCheckViolationError(err) {
			return errors.Join(organization.ErrInvalidSlug, err)
		}
		return err
	}
	return nil
}

func (s *Organizations) Deactivate(ctx context.Context, id uuid.UUID) error {
	query, args, err := psql.Update("organizations").
		Set("active", false).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return organization.ErrNotFound
	}
	return nil
}

func (s *Organizations) List(ctx context.Context) ([]organization.Organization, error) {
	query, args, err := psql.Select(organizationColumns...).From("organizations").OrderBy("slug").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByName[organizationRow])
	if err != nil {
		return nil, err
	}
	out := make([]organization.Organization, 0, len(list))
	for _, r := range list {
		out = append(out, *r.organization())
	}
	return out, nil
}
