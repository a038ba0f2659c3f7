package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/rfm-dashboard/internal/errors"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 200, cfg.SnapshotSize)
	assert.Equal(t, "orders", cfg.Postgres.Table)
	assert.False(t, cfg.PostgresEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: "9090"
data_dir: /srv/rfm
cache_ttl: 5m
postgres:
  dsn: postgres://localhost/shop
  status: paid
security:
  max_requests_per_min: 30
  allowed_origins: ["https://dash.example.com"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/srv/rfm", cfg.DataDir)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "paid", cfg.Postgres.Status)
	assert.Equal(t, "orders", cfg.Postgres.Table, "unset keys keep defaults")
	assert.True(t, cfg.PostgresEnabled())
	assert.Equal(t, 30, cfg.Security.MaxRequestsPerMin)
	assert.Equal(t, []string{"https://dash.example.com"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, int64(32<<20), cfg.Security.MaxUploadBytes)
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o600))
	assert.Error(t, cfg.LoadFile(path))
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"PORT":               "3000",
		"DATA_DIR":           "/tmp/data",
		"DATABASE_URL":       "postgres://db/shop",
		"ORDERS_TABLE":       "sales.orders",
		"ALLOWED_ORIGINS":    "http://a.example, http://b.example,",
		"RATE_LIMIT_PER_MIN": "0",
		"MAX_UPLOAD_BYTES":   "1048576",
		"CACHE_TTL":          "1m",
		"LOG_LEVEL":          "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "/tmp/data", cfg.DataDir)
	assert.Equal(t, "postgres://db/shop", cfg.Postgres.DSN)
	assert.Equal(t, "sales.orders", cfg.Postgres.Table)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 0, cfg.Security.MaxRequestsPerMin)
	assert.Equal(t, int64(1<<20), cfg.Security.MaxUploadBytes)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, "info", cfg.LogLevel, "empty values are ignored")
}

func TestApplyEnv_InvalidNumbers(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"SNAPSHOT_SIZE":    "many",
		"CACHE_TTL":        "soon",
		"MAX_UPLOAD_BYTES": "big",
	}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SNAPSHOT_SIZE")
	assert.Contains(t, err.Error(), "CACHE_TTL")
	assert.Contains(t, err.Error(), "MAX_UPLOAD_BYTES")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Port = "http" }, "invalid port"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid port"},
		{"no data dir", func(c *Config) { c.DataDir = " " }, "data_dir"},
		{"gin mode", func(c *Config) { c.GinMode = "prod" }, "gin_mode"},
		{"snapshot", func(c *Config) { c.SnapshotSize = 0 }, "snapshot_size"},
		{"upload cap", func(c *Config) { c.Security.MaxUploadBytes = 0 }, "max_upload_bytes"},
		{"origins", func(c *Config) { c.Security.AllowedOrigins = nil }, "allowed_origins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9000\"\n"), 0o600))

	t.Setenv(EnvConfigFile, path)
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port, "environment wins over the file")
}

func TestLoad_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		message string
	}{
		{name: "missing file", env: map[string]string{EnvConfigFile: "/nonexistent/config.yaml"}, message: "Could not load config file"},
		{name: "bad env number", env: map[string]string{"SNAPSHOT_SIZE": "lots"}, message: "Invalid environment settings"},
		{name: "invalid value", env: map[string]string{"GIN_MODE": "turbo"}, message: "Invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.CategoryConfiguration, appErr.Category)
			assert.Equal(t, tt.message, appErr.Message)
			assert.NotEmpty(t, appErr.Details["config_details"])
		})
	}
}
