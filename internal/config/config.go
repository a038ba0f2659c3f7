// Package config loads server settings from defaults, an optional YAML file
// and the environment, in that order
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/rfm-dashboard/internal/dataset"
	apperrors "github.com/ZanzyTHEbar/rfm-dashboard/internal/errors"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/security"
)

// EnvConfigFile names the variable pointing at the YAML file
const EnvConfigFile = "CONFIG_FILE"

// Config is the full server configuration
type Config struct {
	Port            string        `yaml:"port"`
	DataDir         string        `yaml:"data_dir"`
	LogLevel        string        `yaml:"log_level"`
	GinMode         string        `yaml:"gin_mode"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	CacheTTL        time.Duration `yaml:"cache_ttl"`
	SnapshotSize    int           `yaml:"snapshot_size"`
	MemoryInterval  time.Duration `yaml:"memory_interval"`
	MemoryWarnBytes uint64        `yaml:"memory_warn_bytes"`

	Postgres dataset.PostgresConfig   `yaml:"postgres"`
	Security security.SecurityConfig `yaml:"security"`
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		Port:            "8080",
		DataDir:         "./data",
		LogLevel:        "info",
		GinMode:         "release",
		ShutdownTimeout: 30 * time.Second,
		CacheTTL:        15 * time.Minute,
		SnapshotSize:    dataset.DefaultSampleSize,
		MemoryInterval:  30 * time.Second,
		MemoryWarnBytes: 512 << 20,
		Postgres: dataset.PostgresConfig{
			Table:        "orders",
			QueryTimeout: 30 * time.Second,
		},
		Security: security.DefaultSecurityConfig(),
	}
}

// Load builds the configuration. A missing CONFIG_FILE is not an error;
// an unreadable or malformed one is
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, apperrors.NewConfigurationError("Could not load config file", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, apperrors.NewConfigurationError("Invalid environment settings", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, apperrors.NewConfigurationError("Invalid configuration", err)
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables using lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("PORT", &c.Port)
	str("DATA_DIR", &c.DataDir)
	str("LOG_LEVEL", &c.LogLevel)
	str("GIN_MODE", &c.GinMode)
	duration("CACHE_TTL", &c.CacheTTL)
	integer("SNAPSHOT_SIZE", &c.SnapshotSize)

	str("DATABASE_URL", &c.Postgres.DSN)
	str("ORDERS_TABLE", &c.Postgres.Table)
	str("ORDERS_STATUS", &c.Postgres.Status)

	integer("RATE_LIMIT_PER_MIN", &c.Security.MaxRequestsPerMin)
	duration("REQUEST_TIMEOUT", &c.Security.RequestTimeout)
	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err))
		} else {
			c.Security.MaxUploadBytes = n
		}
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		c.Security.AllowedOrigins = splitList(v)
	}

	return errors.Join(errs...)
}

// Validate rejects settings the server cannot start with
func (c Config) Validate() error {
	var errs []error

	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Port))
	}
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("invalid gin_mode %q", c.GinMode))
	}
	if c.SnapshotSize <= 0 {
		errs = append(errs, errors.New("snapshot_size must be positive"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("cache_ttl must be positive"))
	}
	if c.Security.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("security.max_upload_bytes must be positive"))
	}
	if c.Security.RequestTimeout <= 0 {
		errs = append(errs, errors.New("security.request_timeout must be positive"))
	}
	if len(c.Security.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("security.allowed_origins must not be empty"))
	}

	return errors.Join(errs...)
}

// PostgresEnabled reports whether orders should also be read from Postgres
func (c Config) PostgresEnabled() bool {
	return c.Postgres.DSN != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
