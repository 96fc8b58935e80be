package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

var (
	version = "dev"
	cli     struct {
		Globals

		Serve   ServeCmd   `cmd:"" default:"1" help:"Run the HTTP server"`
		Migrate MigrateCmd `cmd:"" help:"Apply database migrations"`
		Seed    SeedCmd    `cmd:"" help:"Provision organizations from a YAML file"`
		Token   TokenCmd   `cmd:"" help:"Issue a principal bearer token for development"`
		Version kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("helpdesk"),
		kong.Description("Multi-tenant helpdesk service."),
		kong.Vars{"version": version},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := cmd.Run(&cli.Globals)
	cmd.FatalIfErrorf(err)
}
