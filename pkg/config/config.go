package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for ekaya-catalog.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// Warehouses browsed by the catalog. Only configurable from YAML.
	Datasources []DatasourceConfig `yaml:"datasources"`

	// Connection pooling for datasource adapters
	Pool PoolConfig `yaml:"pool"`

	Usage       UsageConfig       `yaml:"usage"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Cache       CacheConfig       `yaml:"cache"`
	LLM         LLMConfig         `yaml:"llm"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
	MCP         MCPConfig         `yaml:"mcp"`
	Metrics     MetricsConfig     `yaml:"metrics"`

	// Application database (PostgreSQL + pgvector) for marketplace matching
	Database DatabaseConfig `yaml:"database"`
}

// DatasourceConfig describes one warehouse connection.
// The password is never read from YAML; it comes from the environment variable
// named by PasswordEnv (defaults to <NAME>_PASSWORD, upper-cased).
type DatasourceConfig struct {
	Name        string            `yaml:"name"`
	Type        string            `yaml:"type"` // postgres | mssql | clickhouse | duckdb
	Host        string            `yaml:"host"`
	Port        int               `yaml:"port"`
	User        string            `yaml:"user"`
	Password    string            `yaml:"-"`
	PasswordEnv string            `yaml:"password_env"`
	Database    string            `yaml:"database"`
	SSLMode     string            `yaml:"ssl_mode"`
	Path        string            `yaml:"path"` // duckdb file; empty means in-memory
	Options     map[string]string `yaml:"options"`

	// AccessLogTable names the flattened access history relation used by
	// engines without a native query log.
	AccessLogTable string `yaml:"access_log_table"`
}

// PoolConfig holds datasource connection management settings.
type PoolConfig struct {
	// ConnectionTTLMinutes is how long idle datasource connections are kept alive.
	ConnectionTTLMinutes int `yaml:"connection_ttl_minutes" env:"DATASOURCE_CONNECTION_TTL_MINUTES" env-default:"5"`
	// MaxConns is the maximum number of connections per datasource pool.
	MaxConns int32 `yaml:"max_conns" env:"DATASOURCE_POOL_MAX_CONNS" env-default:"10"`
	// MinConns is the minimum number of connections per datasource pool.
	MinConns int32 `yaml:"min_conns" env:"DATASOURCE_POOL_MIN_CONNS" env-default:"1"`
	// QueryTimeoutSeconds bounds every metadata or access-log query.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"DATASOURCE_QUERY_TIMEOUT_SECONDS" env-default:"60"`
}

// UsageConfig holds usage-statistics policy.
type UsageConfig struct {
	LookbackMonths        int     `yaml:"lookback_months" env:"USAGE_LOOKBACK_MONTHS" env-default:"3"`
	RecentWindowDays      int     `yaml:"recent_window_days" env:"USAGE_RECENT_WINDOW_DAYS" env-default:"7"`
	TrendThresholdPercent float64 `yaml:"trend_threshold_percent" env:"USAGE_TREND_THRESHOLD_PERCENT" env-default:"10"`
	RankingLimit          int     `yaml:"ranking_limit" env:"USAGE_RANKING_LIMIT" env-default:"10"`
	RecommendationLimit   int     `yaml:"recommendation_limit" env:"USAGE_RECOMMENDATION_LIMIT" env-default:"5"`
	// Timezone buckets access timestamps; empty keeps the source's zone.
	Timezone string `yaml:"timezone" env:"USAGE_TIMEZONE" env-default:""`
}

// CatalogConfig holds catalog browsing settings.
type CatalogConfig struct {
	// CategoriesFile overrides the built-in category taxonomy.
	CategoriesFile string `yaml:"categories_file" env:"CATALOG_CATEGORIES_FILE" env-default:""`
	// MaxConcurrency bounds the per-database fan-out when listing across databases.
	MaxConcurrency int `yaml:"max_concurrency" env:"CATALOG_MAX_CONCURRENCY" env-default:"4"`
}

// CacheConfig holds fetch-cache settings.
type CacheConfig struct {
	TTLMinutes int         `yaml:"ttl_minutes" env:"CACHE_TTL_MINUTES" env-default:"30"`
	Backend    string      `yaml:"backend" env:"CACHE_BACKEND" env-default:"memory"` // memory | redis
	Redis      RedisConfig `yaml:"redis"`
}

// TTL returns the cache lifetime as a duration.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// RedisConfig holds Redis connection settings for the shared cache backend.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// LLMConfig holds the table-description model endpoint.
type LLMConfig struct {
	Provider       string  `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"` // openai | anthropic
	BaseURL        string  `yaml:"base_url" env:"LLM_BASE_URL" env-default:""`
	Model          string  `yaml:"model" env:"LLM_MODEL" env-default:""`
	APIKey         string  `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature    float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0"`
	MaxTokens      int     `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"4096"`
	Locale         string  `yaml:"locale" env:"LLM_LOCALE" env-default:"ja"`
	TimeoutSeconds int     `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"120"`
}

// IsAvailable returns true if a model is configured.
func (c *LLMConfig) IsAvailable() bool {
	return c.Model != "" && (c.APIKey != "" || c.BaseURL != "")
}

// MarketplaceConfig controls marketplace matching.
type MarketplaceConfig struct {
	Enabled        bool   `yaml:"enabled" env:"MARKETPLACE_ENABLED" env-default:"false"`
	EmbeddingURL   string `yaml:"embedding_url" env:"MARKETPLACE_EMBEDDING_URL" env-default:""`
	EmbeddingModel string `yaml:"embedding_model" env:"MARKETPLACE_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	MatchLimit     int    `yaml:"match_limit" env:"MARKETPLACE_MATCH_LIMIT" env-default:"10"`
}

// MCPConfig controls the MCP endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ekaya"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_catalog"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("failed to resolve datasource secrets: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// resolveSecrets fills datasource passwords from the environment.
func (c *Config) resolveSecrets() error {
	for i := range c.Datasources {
		ds := &c.Datasources[i]
		envName := ds.PasswordEnv
		if envName == "" {
			envName = DefaultPasswordEnv(ds.Name)
		}
		ds.Password = os.Getenv(envName)
	}
	return nil
}

// DefaultPasswordEnv derives the password variable for a datasource name,
// e.g. "sales-wh" -> "SALES_WH_PASSWORD".
func DefaultPasswordEnv(name string) string {
	upper := strings.ToUpper(name)
	upper = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, upper)
	return upper + "_PASSWORD"
}

func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.Datasources))
	for i, ds := range c.Datasources {
		if ds.Name == "" {
			return fmt.Errorf("datasources[%d]: name is required", i)
		}
		if seen[ds.Name] {
			return fmt.Errorf("datasources[%d]: duplicate name %q", i, ds.Name)
		}
		seen[ds.Name] = true
		if ds.Type == "" {
			return fmt.Errorf("datasource %q: type is required", ds.Name)
		}
	}

	if c.Usage.RecentWindowDays <= 0 {
		return fmt.Errorf("usage.recent_window_days must be positive")
	}
	if c.Usage.TrendThresholdPercent < 0 {
		return fmt.Errorf("usage.trend_threshold_percent must not be negative")
	}
	if c.Usage.LookbackMonths <= 0 {
		return fmt.Errorf("usage.lookback_months must be positive")
	}
	if c.Usage.Timezone != "" {
		if _, err := time.LoadLocation(c.Usage.Timezone); err != nil {
			return fmt.Errorf("usage.timezone: %w", err)
		}
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Host == "" {
		return fmt.Errorf("cache.redis.host is required when cache.backend is redis")
	}

	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("llm.provider must be openai or anthropic, got %q", c.LLM.Provider)
	}
	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// Datasource returns the named datasource configuration.
func (c *Config) Datasource(name string) (DatasourceConfig, bool) {
	for _, ds := range c.Datasources {
		if ds.Name == name {
			return ds, true
		}
	}
	return DatasourceConfig{}, false
}

// Location returns the usage bucketing location, or nil to keep the source zone.
func (u *UsageConfig) Location() *time.Location {
	if u.Timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return nil
	}
	return loc
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
