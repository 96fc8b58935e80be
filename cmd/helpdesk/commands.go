package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/helpdesk/internal/app"
	"github.com/dmitrymomot/helpdesk/internal/config"
	"github.com/dmitrymomot/helpdesk/pkg/logger"
	"github.com/dmitrymomot/helpdesk/pkg/principal"
)

// Globals are flags shared by every command.
type Globals struct {
	EnvFile []string `help:"Env files loaded before parsing the environment" type:"path" placeholder:"PATH"`
}

func (g *Globals) load() (config.Config, error) {
	return config.Load(g.EnvFile...)
}

// open loads config and wires the application.
func (g *Globals) open(ctx context.Context) (*app.App, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	log := app.NewLogger(cfg)
	logger.SetAsDefault(log)
	return app.New(ctx, cfg, log)
}

// ServeCmd runs the HTTP server.
type ServeCmd struct {
	Migrate bool `help:"Apply migrations before serving" default:"true" negatable:""`
}

func (c *ServeCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Prepare(ctx, c.Migrate); err != nil {
		return err
	}
	return a.Run(ctx)
}

// MigrateCmd applies database migrations.
type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Config.Storage != config.DriverPostgres {
		return errors.New("migrate needs STORAGE_DRIVER=postgres")
	}
	return a.Migrate(ctx)
}

// SeedCmd provisions organizations from a YAML file.
type SeedCmd struct {
	File string `help:"YAML file listing organizations" required:"" type:"existingfile"`
}

func (c *SeedCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Migrate(ctx); err != nil {
		return err
	}
	return a.Seed(ctx, c.File)
}

// TokenCmd prints a signed bearer token for local testing.
type TokenCmd struct {
	User  string        `help:"Principal id; random when empty"`
	Email string        `help:"Principal email"`
	Org   string        `help:"Home organization id"`
	TTL   time.Duration `help:"Token lifetime" default:"24h"`
}

func (c *TokenCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}

	p := principal.Principal{ID: uuid.New(), Email: c.Email}
	if c.User != "" {
		if p.ID, err = uuid.Parse(c.User); err != nil {
			return fmt.Errorf("--user: %w", err)
		}
	}
	if c.Org != "" {
		if p.HomeOrganizationID, err = uuid.Parse(c.Org); err != nil {
			return fmt.Errorf("--org: %w", err)
		}
	}

	tokens, err := principal.NewTokens([]byte(cfg.Auth.JWTSecret), principal.WithTTL(c.TTL))
	if err != nil {
		return err
	}
	token, err := tokens.Issue(p)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, token)
	return err
}
