// Package pg connects to PostgreSQL through a pgx pool, applies goose
// migrations from an embedded filesystem and classifies driver errors.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer pool.Close()
//	if err := pg.Migrate(ctx, pool, migrations.FS, log); err != nil { ... }
package pg
