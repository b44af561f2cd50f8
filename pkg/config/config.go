package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is the configuration file read by Load.
const DefaultPath = "config.yaml"

// Config holds all configuration for incident-atlas.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""`   // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                        // Set at load time, not from config
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:""` // Empty uses the environment's default

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis query cache (optional - disabled when host is empty)
	Redis RedisConfig `yaml:"redis"`

	// Neo4j graph projection (optional - disabled when uri is empty)
	Neo4j Neo4jConfig `yaml:"neo4j"`

	// Batch pipeline settings
	ETL ETLConfig `yaml:"etl"`

	// Aggregation query settings
	Analytics AnalyticsConfig `yaml:"analytics"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"atlas"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"incident_atlas"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`

	// StatementTimeout bounds each aggregation query served over HTTP.
	StatementTimeout time.Duration `yaml:"statement_timeout" env:"PGSTATEMENT_TIMEOUT" env-default:"30s"`
}

// RedisConfig holds Redis connection configuration for the query cache.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"incident-atlas:analytics"`
}

// Neo4jConfig holds connection settings for the graph projection.
type Neo4jConfig struct {
	URI      string `yaml:"uri" env:"NEO4J_URI" env-default:""`
	User     string `yaml:"user" env:"NEO4J_USER" env-default:"neo4j"`
	Password string `yaml:"-" env:"NEO4J_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"NEO4J_DATABASE" env-default:""`
}

// DefaultBatchSize is the COPY chunk size used when none is configured.
const DefaultBatchSize = 1000

// ETLConfig holds batch pipeline settings.
type ETLConfig struct {
	// CSVPath is the default input file for scripts/load-incidents.
	CSVPath string `yaml:"csv_path" env:"ETL_CSV_PATH" env-default:"data/globalterrorismdb_0718dist.csv"`
	// BatchSize is the number of rows per COPY chunk. DefaultBatchSize
	// applies only when the key and ETL_BATCH_SIZE are both absent, so an
	// explicit 0 is rejected.
	BatchSize int `yaml:"batch_size" env:"ETL_BATCH_SIZE"`
	// MaxReportedRejections caps the rejection messages kept in the load report.
	MaxReportedRejections int `yaml:"max_reported_rejections" env:"ETL_MAX_REPORTED_REJECTIONS" env-default:"20"`
}

// AnalyticsConfig holds aggregation query settings.
type AnalyticsConfig struct {
	// CacheTTL is how long cached results live. Loads invalidate earlier.
	CacheTTL time.Duration `yaml:"cache_ttl" env:"ANALYTICS_CACHE_TTL" env-default:"10m"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Secrets (PGPASSWORD, REDIS_PASSWORD, NEO4J_PASSWORD) must come from
// environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	return LoadFile(DefaultPath, version)
}

// LoadFile is Load with an explicit configuration file path.
func LoadFile(path, version string) (*Config, error) {
	cfg := newConfig(version)

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.resolveServiceHosts()

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// LoadEnv builds a configuration from environment variables and defaults only.
// Command-line tools use it when no config file is present.
func LoadEnv(version string) (*Config, error) {
	cfg := newConfig(version)

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.resolveServiceHosts()
	return cfg, nil
}

// newConfig seeds the values cleanenv must not overwrite with an
// env-default when the file sets them explicitly.
func newConfig(version string) *Config {
	return &Config{
		Version: version,
		ETL:     ETLConfig{BatchSize: DefaultBatchSize},
	}
}

// LoadOrEnv uses path when it exists and falls back to LoadEnv otherwise.
func LoadOrEnv(path, version string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return LoadEnv(version)
	}
	return LoadFile(path, version)
}

func (c *Config) validate() error {
	if c.ETL.BatchSize <= 0 {
		return fmt.Errorf("etl.batch_size must be positive, got %d", c.ETL.BatchSize)
	}
	if c.ETL.MaxReportedRejections < 0 {
		return fmt.Errorf("etl.max_reported_rejections must not be negative, got %d", c.ETL.MaxReportedRejections)
	}
	if c.Analytics.CacheTTL < 0 {
		return fmt.Errorf("analytics.cache_ttl must not be negative, got %s", c.Analytics.CacheTTL)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Enabled reports whether the Redis query cache is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// Enabled reports whether the Neo4j graph projection is configured.
func (c *Neo4jConfig) Enabled() bool {
	return c.URI != ""
}
