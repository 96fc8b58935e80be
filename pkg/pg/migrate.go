package pg

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// Migrate applies every pending migration found at the root of fsys.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, table string, log *slog.Logger) error {
	if fsys == nil {
		return errors.Join(ErrFailedToApplyMigrations, ErrMigrationsNotProvided)
	}
	if log == nil {
		log = slog.Default()
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration connection", slog.Any("error", err))
		}
	}()

	dialect := goose.DialectPostgres
	var opts []goose.ProviderOption
	if table != "" {
		store, err := database.NewStore(database.DialectPostgres, table)
		if err != nil {
			return errors.Join(ErrFailedToApplyMigrations, err)
		}
		// A custom store carries its own dialect.
		dialect = ""
		opts = append(opts, goose.WithStore(store))
	}

	provider, err := goose.NewProvider(dialect, db, fsys, opts...)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return up(ctx, provider, log)
}

func up(ctx context.Context, p *goose.Provider, log *slog.Logger) error {
	results, err := p.Up(ctx)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	for _, r := range results {
		log.InfoContext(ctx, "migration applied",
			slog.String("source", r.Source.Path),
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration),
		)
	}
	return nil
}
