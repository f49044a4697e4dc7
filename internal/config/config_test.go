package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbor/internal/config"
	arborerr "github.com/roach88/arbor/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "arbor.db", cfg.Database.DSN)
	assert.Empty(t, cfg.Schema.Dir)
	assert.Equal(t, 8, cfg.Traversal.MaxConcurrency)
	assert.Equal(t, -1, cfg.Traversal.DefaultDepth)
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: "postgres://localhost/arbor?sslmode=disable"
schema:
  dir: ./entities
traversal:
  max_concurrency: 2
  default_depth: 3
log:
  level: debug
  format: json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/arbor?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, "./entities", cfg.Schema.Dir)
	assert.Equal(t, 2, cfg.Traversal.MaxConcurrency)
	assert.Equal(t, 3, cfg.Traversal.DefaultDepth)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ARBOR_DATABASE_DSN", "/tmp/override.db")
	t.Setenv("ARBOR_TRAVERSAL_DEFAULT_DEPTH", "2")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Database.DSN)
	assert.Equal(t, 2, cfg.Traversal.DefaultDepth)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, arborerr.HasCode(err, arborerr.CodeConfigLoadReadFailure))
}

func TestLoad_ValidationCalledAtLoadTime(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: oracle
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
	assert.True(t, arborerr.HasCode(err, arborerr.CodeConfigValidateInvalidValue))
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Database:  config.DatabaseConfig{Driver: "sqlite3", DSN: "arbor.db"},
			Traversal: config.TraversalConfig{MaxConcurrency: 8, DefaultDepth: -1},
			Log:       config.LogConfig{Level: "info", Format: "text"},
		}
	}

	testCases := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{name: "valid"},
		{name: "unknown driver", mutate: func(c *config.Config) { c.Database.Driver = "mysql" }, wantErr: "database.driver"},
		{name: "empty dsn", mutate: func(c *config.Config) { c.Database.DSN = "" }, wantErr: "database.dsn"},
		{name: "depth below unlimited", mutate: func(c *config.Config) { c.Traversal.DefaultDepth = -2 }, wantErr: "traversal.default_depth"},
		{name: "unknown level", mutate: func(c *config.Config) { c.Log.Level = "trace" }, wantErr: "log.level"},
		{name: "unknown format", mutate: func(c *config.Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			if tc.mutate != nil {
				tc.mutate(cfg)
			}
			errs := cfg.Validate()
			if tc.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0].Error(), tc.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{Traversal: config.TraversalConfig{DefaultDepth: -5}}
	// driver, dsn, depth, level, format
	assert.Len(t, cfg.Validate(), 5)
}
