// Package config parses environment variables, optionally seeded from .env
// files, into tagged Go structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11 and adds
// parsers for the types this module stores in configuration, such as
// uuid.UUID and slog.Level:
//
//	var cfg struct {
//		Addr  string     `env:"HTTP_ADDR" envDefault:":8080"`
//		Level slog.Level `env:"LOG_LEVEL" envDefault:"info"`
//	}
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Files passed to LoadEnv never override variables already present in the
// process environment.
package config
