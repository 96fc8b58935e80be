package app

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/helpdesk/internal/api"
	"github.com/dmitrymomot/helpdesk/internal/config"
	"github.com/dmitrymomot/helpdesk/internal/store/postgres"
	"github.com/dmitrymomot/helpdesk/pkg/helpdesk"
	"github.com/dmitrymomot/helpdesk/pkg/httpserver"
	"github.com/dmitrymomot/helpdesk/pkg/logger"
	"github.com/dmitrymomot/helpdesk/pkg/organization"
	"github.com/dmitrymomot/helpdesk/pkg/pg"
	"github.com/dmitrymomot/helpdesk/pkg/principal"
	"github.com/dmitrymomot/helpdesk/pkg/redis"
	"github.com/dmitrymomot/helpdesk/pkg/secrets"
	"github.com/dmitrymomot/helpdesk/pkg/session"
	"github.com/dmitrymomot/helpdesk/pkg/tenant"
)

//go:embed static
var staticFS embed.FS

// App holds the wired components of a running process.
type App struct {
	Config        config.Config
	Logger        *slog.Logger
	Organizations *organization.CachedStore
	Repositories  *helpdesk.Repositories
	Sealer        *secrets.Sealer
	Tokens        *principal.Tokens
	Handler       http.Handler

	pool        *pgxpool.Pool
	redis       *goredis.Client
	invalidator *organization.RedisInvalidator
	closers     []func()
}

// NewLogger builds the process logger. Records emitted with a request
// context carry tenant_id and request_id.
func NewLogger(cfg config.Config) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithOutput(os.Stderr),
		logger.WithContextExtractors(tenant.LoggerExtractor(), logger.RequestIDExtractor()),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.LogLevel))
	}
	return logger.New(opts...)
}

// New connects to the configured backends and builds the HTTP handler. The
// caller must Close the returned App.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.Auth.AppKey != "" {
		if a.Sealer, err = secrets.NewSealerFromHex(cfg.Auth.AppKey); err != nil {
			return nil, fmt.Errorf("app key: %w", err)
		}
	}
	if cfg.Auth.JWTSecret != "" {
		if a.Tokens, err = principal.NewTokens([]byte(cfg.Auth.JWTSecret), principal.WithTTL(cfg.Auth.TokenTTL)); err != nil {
			return nil, err
		}
	}

	probes := map[string]httpserver.Probe{}

	store, backends, err := a.openStorage(ctx, probes)
	if err != nil {
		return nil, err
	}
	a.Repositories = helpdesk.NewRepositories(backends)

	if cfg.UsesRedis() {
		if a.redis, err = redis.Connect(ctx, cfg.Redis); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = a.redis.Close() })
		probes["redis"] = redis.Healthcheck(a.redis)
		a.invalidator = organization.NewRedisInvalidator(a.redis, cfg.Tenant.InvalidationChannel, log)
	}

	cache, err := organization.NewRistrettoCache(cfg.Tenant.CacheMaxItems)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, cache.Close)
	cacheOpts := []organization.CacheOption{organization.WithCacheTTL(cfg.Tenant.CacheTTL)}
	if a.invalidator != nil {
		cacheOpts = append(cacheOpts, organization.WithPublisher(a.invalidator))
	}
	a.Organizations = organization.NewCachedStore(store, cache, cacheOpts...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	resolver := tenant.NewResolver(
		organization.NewRegistryMetrics(reg, a.Organizations),
		tenant.WithBaseDomain(cfg.Tenant.BaseDomain),
		tenant.WithReservedLabels(cfg.Tenant.ReservedLabels...),
	)

	sessions, err := a.openSessions()
	if err != nil {
		return nil, err
	}

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}

	a.Handler = api.NewRouter(api.Deps{
		Logger:        log,
		Organizations: a.Organizations,
		Resolver:      resolver,
		Repositories:  a.Repositories,
		Sessions:      sessions,
		Tokens:        a.Tokens,
		Sealer:        a.Sealer,
		ExemptPaths:   cfg.Tenant.ExemptPaths,
		AdminToken:    cfg.Auth.AdminToken,
		M2MAPIKey:     cfg.Auth.M2MAPIKey,
		Static:        static,
		Registry:      reg,
		Probes:        probes,
	})
	return a, nil
}

func (a *App) openStorage(ctx context.Context, probes map[string]httpserver.Probe) (organization.Store, helpdesk.Backends, error) {
	if a.Config.Storage != config.DriverPostgres {
		a.Logger.WarnContext(ctx, "using in-memory storage; data is lost on restart")
		return organization.NewMemoryStore(), helpdesk.MemoryBackends(), nil
	}

	pool, err := pg.Connect(ctx, a.Config.PG)
	if err != nil {
		return nil, helpdesk.Backends{}, err
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Close)
	probes["postgres"] = pg.Healthcheck(pool)
	return postgres.NewOrganizations(pool), postgres.HelpdeskBackends(pool), nil
}

func (a *App) openSessions() (*session.Manager, error) {
	var store session.Store
	switch a.Config.Session.Driver {
	case config.DriverRedis:
		if a.redis == nil {
			return nil, errors.New("redis session driver selected without a redis connection")
		}
		store = session.NewRedisStore(a.redis, "")
	default:
		mem := session.NewMemoryStore(session.DefaultCleanupInterval)
		a.closers = append(a.closers, func() { _ = mem.Close() })
		store = mem
	}
	return session.NewFromConfig(a.Config.Session, store), nil
}

// Migrate applies the embedded schema migrations. It is a no-op for the
// memory driver.
func (a *App) Migrate(ctx context.Context) error {
	if a.pool == nil {
		return nil
	}
	return pg.Migrate(ctx, a.pool, postgres.Migrations(), a.Config.PG.MigrationsTable, a.Logger)
}

// Prepare readies storage for serving: migrations first when migrate is set,
// then the configured seed file. Seeding needs the schema, so New never seeds.
func (a *App) Prepare(ctx context.Context, migrate bool) error {
	if migrate {
		if err := a.Migrate(ctx); err != nil {
			return err
		}
	}
	if a.Config.Tenant.SeedFile == "" {
		return nil
	}
	return a.Seed(ctx, a.Config.Tenant.SeedFile)
}

// Seed provisions the organizations listed in a YAML file.
func (a *App) Seed(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	seeds, err := organization.LoadSeeds(f)
	if err != nil {
		return err
	}
	n, err := organization.ApplySeeds(ctx, a.Organizations, a.Sealer, seeds)
	if err != nil {
		return err
	}
	a.Logger.InfoContext(ctx, "organizations seeded", logger.Count(n), slog.String("file", path))
	return nil
}

// Run serves HTTP and, with Redis configured, applies organization cache
// invalidations from peers until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpserver.New(a.Config.HTTP, a.Logger).Run(ctx, a.Handler)
	})
	if a.invalidator != nil {
		g.Go(func() error {
			return a.invalidator.Subscribe(ctx, a.Organizations.Forget)
		})
	}
	return g.Wait()
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
