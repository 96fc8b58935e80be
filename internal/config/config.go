// Package config is the application configuration, parsed from the
// environment with pkg/config.
package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/dmitrymomot/helpdesk/pkg/config"
	"github.com/dmitrymomot/helpdesk/pkg/httpserver"
	"github.com/dmitrymomot/helpdesk/pkg/pg"
	"github.com/dmitrymomot/helpdesk/pkg/redis"
	"github.com/dmitrymomot/helpdesk/pkg/session"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// ErrInvalidConfig wraps every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the process configuration read from the environment.
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Name     string `env:"APP_NAME" envDefault:"helpdesk"`
	LogLevel string `env:"LOG_LEVEL"`

	HTTP    httpserver.Config
	Tenant  Tenant
	Storage string `env:"STORAGE_DRIVER" envDefault:"memory"`
	PG      pg.Config
	Redis   redis.Config
	Session session.Config
	Auth    Auth
}

// Tenant configures resolution, the organization cache and seeding.
type Tenant struct {
	BaseDomain     string        `env:"TENANT_BASE_DOMAIN"`
	ReservedLabels []string      `env:"TENANT_RESERVED_LABELS" envSeparator:"," envDefault:"www,app,api"`
	ExemptPaths    []string      `env:"TENANT_EXEMPT_PATHS" envSeparator:"," envDefault:"/admin,/api/m2m,/static,/media,/healthz,/readyz,/metrics"`
	CacheTTL       time.Duration `env:"TENANT_CACHE_TTL" envDefault:"30s"`
	CacheMaxItems  int64         `env:"TENANT_CACHE_MAX_COST" envDefault:"10000"`
	// InvalidationChannel is the Redis pub/sub channel for organization
	// cache invalidation. Only used when Redis is configured.
	InvalidationChannel string `env:"TENANT_INVALIDATION_CHANNEL" envDefault:"helpdesk:organizations:invalidate"`
	// SeedFile is applied by serve after migrations when set, for development setups.
	SeedFile string `env:"TENANT_SEED_FILE"`
}

// Auth holds token, sealing and static API credentials.
type Auth struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"24h"`
	// AppKey is the hex encoded 32-byte key sealing organization secrets.
	AppKey     string `env:"APP_KEY"`
	M2MAPIKey  string `env:"M2M_API_KEY"`
	AdminToken string `env:"ADMIN_TOKEN"`
}

// Load reads .env (when present) and the process environment.
func Load(envFiles ...string) (Config, error) {
	if err := pkgconfig.LoadEnv(envFiles...); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := pkgconfig.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks driver names and secrets required outside development.
func (c Config) Validate() error {
	switch c.Storage {
	case DriverMemory, DriverPostgres:
	default:
		return fmt.Errorf("%w: STORAGE_DRIVER %q", ErrInvalidConfig, c.Storage)
	}
	switch c.Session.Driver {
	case DriverMemory, DriverRedis:
	default:
		return fmt.Errorf("%w: SESSION_DRIVER %q", ErrInvalidConfig, c.Session.Driver)
	}
	if c.Storage == DriverPostgres && c.PG.ConnectionString == "" {
		return fmt.Errorf("%w: PG_CONN_URL is required for the postgres driver", ErrInvalidConfig)
	}
	if !c.IsDevelopment() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required outside development", ErrInvalidConfig)
	}
	return nil
}

// IsDevelopment reports whether APP_ENV is development.
func (c Config) IsDevelopment() bool { return c.Env == "development" }

// UsesRedis reports whether any component needs a Redis connection.
func (c Config) UsesRedis() bool { return c.Session.Driver == DriverRedis }
