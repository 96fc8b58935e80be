package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/helpdesk/pkg/config"
)

type sample struct {
	Name     string        `env:"CFGTEST_NAME" envDefault:"helpdesk"`
	Timeout  time.Duration `env:"CFGTEST_TIMEOUT" envDefault:"5s"`
	Owner    uuid.UUID     `env:"CFGTEST_OWNER"`
	Level    slog.Level    `env:"CFGTEST_LEVEL" envDefault:"info"`
	Exempt   []string      `env:"CFGTEST_EXEMPT" envSeparator:","`
	Required string        `env:"CFGTEST_REQUIRED,required"`
}

func TestLoad(t *testing.T) {
	owner := uuid.New()
	t.Setenv("CFGTEST_OWNER", owner.String())
	t.Setenv("CFGTEST_LEVEL", "debug")
	t.Setenv("CFGTEST_EXEMPT", "/healthz,/static")
	t.Setenv("CFGTEST_REQUIRED", "yes")

	var cfg sample
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "helpdesk", cfg.Name)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, owner, cfg.Owner)
	assert.Equal(t, slog.LevelDebug, cfg.Level)
	assert.Equal(t, []string{"/healthz", "/static"}, cfg.Exempt)
}

func TestLoad_Errors(t *testing.T) {
	require.ErrorIs(t, config.Load[sample](nil), config.ErrNilPointer)

	t.Setenv("CFGTEST_REQUIRED", "")
	os.Unsetenv("CFGTEST_REQUIRED")
	var cfg sample
	require.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)

	t.Setenv("CFGTEST_REQUIRED", "yes")
	t.Setenv("CFGTEST_OWNER", "not-a-uuid")
	require.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)

	assert.Panics(t, func() { config.MustLoad(&cfg) })
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CFGTEST_NAME=from-file\nCFGTEST_REQUIRED=file\n"), 0o600))

	t.Setenv("CFGTEST_REQUIRED", "process")
	os.Unsetenv("CFGTEST_NAME")
	t.Cleanup(func() { os.Unsetenv("CFGTEST_NAME") })

	require.NoError(t, config.LoadEnv(filepath.Join(dir, "missing.env"), path))

	var cfg sample
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "from-file", cfg.Name)
	assert.Equal(t, "process", cfg.Required, "process environment wins over the file")
	assert.Equal(t, "fallback", config.LookupEnv("CFGTEST_UNSET", "fallback"))
}
