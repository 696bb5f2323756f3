package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

// Config holds all configuration for the assessor.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	Log LogConfig `yaml:"log"`

	// Analysis thresholds
	Analysis AnalysisOptions `yaml:"analysis"`

	// Where samples come from
	Source SourceConfig `yaml:"source"`

	// Declared container metadata. When empty, containers are discovered
	// from the source.
	Containers []models.ContainerMetadata `yaml:"containers"`

	// Optional performance metrics provider
	Metrics MetricsConfig `yaml:"metrics"`

	// Assessment store (PostgreSQL)
	Store StoreConfig `yaml:"store"`

	// Relational target used for DDL generation and dry runs
	Target TargetConfig `yaml:"target"`
}

// LogConfig selects logger level and encoding.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"` // console | json
}

// SourceConfig describes the document store to sample.
type SourceConfig struct {
	Type       string `yaml:"type" env:"SOURCE_TYPE" env-default:"file"` // mongo | file
	URI        string `yaml:"-" env:"SOURCE_URI"`                        // Secret - not in YAML
	Database   string `yaml:"database" env:"SOURCE_DATABASE" env-default:""`
	Directory  string `yaml:"directory" env:"SOURCE_DIRECTORY" env-default:"./samples"`
	SampleMode string `yaml:"sample_mode" env:"SOURCE_SAMPLE_MODE" env-default:"random"` // random | head
	TimeoutSec int    `yaml:"timeout_seconds" env:"SOURCE_TIMEOUT_SECONDS" env-default:"60"`
	MaxRetries int    `yaml:"max_retries" env:"SOURCE_MAX_RETRIES" env-default:"3"`
}

// MetricsConfig selects the performance metrics provider.
type MetricsConfig struct {
	Type          string `yaml:"type" env:"METRICS_TYPE" env-default:"none"` // none | static | datadog
	File          string `yaml:"file" env:"METRICS_FILE" env-default:""`
	DatadogSite   string `yaml:"datadog_site" env:"DD_SITE" env-default:"datadoghq.com"`
	DatadogAPIKey string `yaml:"-" env:"DD_API_KEY"` // Secret - not in YAML
	DatadogAppKey string `yaml:"-" env:"DD_APP_KEY"` // Secret - not in YAML
	Account       string `yaml:"account" env:"METRICS_ACCOUNT" env-default:""`
	LookbackHours int    `yaml:"lookback_hours" env:"METRICS_LOOKBACK_HOURS" env-default:"168"`
}

// StoreConfig holds the PostgreSQL assessment store configuration.
type StoreConfig struct {
	Enabled        bool   `yaml:"enabled" env:"STORE_ENABLED" env-default:"false"`
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"assessor"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"assessments"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

// TargetConfig describes the relational migration target.
type TargetConfig struct {
	Dialect string `yaml:"dialect" env:"TARGET_DIALECT" env-default:"sqlserver"` // sqlserver | postgres
	DSN     string `yaml:"-" env:"TARGET_DSN"`                                   // Secret - not in YAML
}

// Load reads configuration from the YAML file at path with environment
// variable overrides. A missing file is not an error: configuration then
// comes from the environment alone. The analysis options are validated
// before returning.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, statErr := os.Stat(path); statErr == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(statErr, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.Source.URI = ResolveURIForDocker(cfg.Source.URI)
	cfg.Store.Host = ResolveHostForDocker(cfg.Store.Host)

	return cfg, nil
}

// Validate checks cross-field rules and the analysis options.
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return err
	}

	switch c.Source.Type {
	case "mongo":
		if c.Source.URI == "" {
			return fmt.Errorf("source type mongo requires SOURCE_URI: %w", errInvalid("source.uri"))
		}
		if c.Source.Database == "" {
			return fmt.Errorf("source type mongo requires a database: %w", errInvalid("source.database"))
		}
	case "file":
	default:
		return fmt.Errorf("unknown source type %q: %w", c.Source.Type, errInvalid("source.type"))
	}

	switch c.Metrics.Type {
	case "", "none":
	case "static":
		if c.Metrics.File == "" {
			return fmt.Errorf("metrics type static requires a file: %w", errInvalid("metrics.file"))
		}
	case "datadog":
		if c.Metrics.DatadogAPIKey == "" || c.Metrics.DatadogAppKey == "" {
			return fmt.Errorf("metrics type datadog requires DD_API_KEY and DD_APP_KEY: %w", errInvalid("metrics.datadog"))
		}
	default:
		return fmt.Errorf("unknown metrics type %q: %w", c.Metrics.Type, errInvalid("metrics.type"))
	}

	switch strings.ToLower(c.Target.Dialect) {
	case "sqlserver", "postgres":
	default:
		return fmt.Errorf("unknown target dialect %q: %w", c.Target.Dialect, errInvalid("target.dialect"))
	}

	for i, m := range c.Containers {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("container %d has no name: %w", i, errInvalid("containers"))
		}
	}

	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *StoreConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ContainerNames returns the declared container names in order.
func (c *Config) ContainerNames() []string {
	names := make([]string, len(c.Containers))
	for i, m := range c.Containers {
		names[i] = m.Name
	}
	return names
}

func errInvalid(field string) error {
	return &apperrors.ConfigurationError{Field: field, Reason: "invalid or missing value"}
}
