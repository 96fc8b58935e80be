package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/helpdesk/pkg/pg"
	"github.com/dmitrymomot/helpdesk/pkg/repo"
)

// Backend is a repo.Backend over one table. Rows are scanned by the
// entity's db tags.
type Backend[E any, P repo.Entity[E]] struct {
	db     DB
	schema repo.Schema[E]
	cols   []string
}

// NewBackend returns a backend for schema.Table.
func NewBackend[E any, P repo.Entity[E]](db DB, schema repo.Schema[E]) *Backend[E, P] {
	cols := schema.Columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ident(c)
	}
	return &Backend[E, P]{db: db, schema: schema, cols: quoted}
}

func (b *Backend[E, P]) Schema() repo.Schema[E] { return b.schema }

func (b *Backend[E, P]) Insert(ctx context.Context, e *E) error {
	o := P(e).Ownership()
	if o.ID == uuid.Nil || o.OrganizationID == uuid.Nil {
		return repo.ErrInvalidRecord
	}

	cols := b.schema.Columns()
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i], _ = repo.Value[E, P](b.schema, e, c)
	}

	query, args, err := psql.Insert(ident(b.schema.Table)).Columns(b.cols...).Values(vals...).ToSql()
	if err != nil {
		return err
	}
	if _, err := b.db.Exec(ctx, query, args...); err != nil {
		switch {
		case pg.IsDuplicateKeyError(err):
			return errors.Join(repo.ErrDuplicate, err)
		case pg.IsForeignKeyViolationError(err), pg.IsCheckViolationError(err):
			return errors.Join(repo.ErrInvalidRecord, err)
		}
		return err
	}
	return nil
}

func (b *Backend[E, P]) Get(ctx context.Context, org, id uuid.UUID) (*E, error) {
	query, args, err := b.selectFrom(org).Where(sq.Eq{ident(repo.FieldID): id}).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := b.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	e, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[E])
	if pg.IsNotFoundError(err) {
		return nil, repo.ErrNotFound
	}
	return e, err
}

func (b *Backend[E, P]) Select(ctx context.Context, org uuid.UUID, q repo.Query) ([]*E, error) {
	stmt := b.selectFrom(org)
	for _, f := range q.Filters {
		if !b.schema.Has(f.Field) || f.Field == repo.FieldOrganizationID {
			return nil, fmt.Errorf("%w: %s", repo.ErrUnknownField, f.Field)
		}
		cond, err := condition(f)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where(cond)
	}
	for _, o := range q.OrderBy {
		if !b.schema.Has(o.Field) {
			return nil, fmt.Errorf("%w: %s", repo.ErrUnknownField, o.Field)
		}
		dir := " ASC"
		if o.Desc {
			dir = " DESC"
		}
		stmt = stmt.OrderBy(ident(o.Field) + dir)
	}
	if q.Limit > 0 {
		stmt = stmt.Limit(uint64(q.Limit))
	}

	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := b.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[E])
}

func (b *Backend[E, P]) selectFrom(org uuid.UUID) sq.SelectBuilder {
	return psql.Select(b.cols...).
		From(ident(b.schema.Table)).
		Where(sq.Eq{ident(repo.FieldOrganizationID): org})
}

// condition translates a filter. NULL handling matches repo.MemoryBackend:
// ne and not_in keep NULL rows, every other comparison drops them.
func condition(f repo.Filter) (sq.Sqlizer, error) {
	col := ident(f.Field)
	switch f.Op {
	case repo.OpEq:
		return sq.Eq{col: f.Value}, nil
	case repo.OpNe:
		return sq.Expr(col+" IS DISTINCT FROM ?", f.Value), nil
	case repo.OpLt:
		return sq.Lt{col: f.Value}, nil
	case repo.OpLte:
		return sq.LtOrEq{col: f.Value}, nil
	case repo.OpGt:
		return sq.Gt{col: f.Value}, nil
	case repo.OpGte:
		return sq.GtOrEq{col: f.Value}, nil
	case repo.OpIsNull:
		return sq.Eq{col: nil}, nil
	case repo.OpContains:
		return sq.Expr("? = ANY("+col+")", f.Value), nil
	case repo.OpIn, repo.OpNotIn:
		vs, ok := f.Value.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s %s needs a list", repo.ErrInvalidFilter, f.Field, f.Op)
		}
		if f.Op == repo.OpIn {
			if len(vs) == 0 {
				return sq.Expr("FALSE"), nil
			}
			return sq.Eq{col: vs}, nil
		}
		if len(vs) == 0 {
			return sq.Expr("TRUE"), nil
		}
		return sq.Or{sq.Eq{col: nil}, sq.NotEq{col: vs}}, nil
	}
	return nil, fmt.Errorf("%w: unknown op %q", repo.ErrInvalidFilter, f.Op)
}
