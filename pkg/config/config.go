// Package config defines the service configuration and loads it with viper.
package config

import "time"

// Order store backends.
const (
	OrderStoreMongoDB  = "mongodb"
	OrderStorePostgres = "postgres"
)

// Catalog query modes.
const (
	QueryModeMemory = "memory"
	QueryModeStore  = "store"
)

// Rate limiter backends.
const (
	RateLimitLocal = "local"
	RateLimitRedis = "redis"
)

// Config is the root configuration of catalogd.
type Config struct {
	Service       ServiceConfig       `mapstructure:"service"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Management    ManagementConfig    `mapstructure:"management"`
	Auth          AuthConfig          `mapstructure:"auth"`
	MongoDB       MongoDBConfig       `mapstructure:"mongodb"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	Orders        OrdersConfig        `mapstructure:"orders"`
	Seed          SeedConfig          `mapstructure:"seed"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
}

// ServiceConfig configures service identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// HTTPConfig configures the public API server.
type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// ManagementConfig configures the management server.
type ManagementConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig configures bearer token verification for the order API.
type AuthConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Issuer       string        `mapstructure:"issuer"`
	JWKSUrl      string        `mapstructure:"jwks_url"`
	JWKSCacheTTL time.Duration `mapstructure:"jwks_cache_ttl"`
	Audience     string        `mapstructure:"audience"`
	// AdminEmails replaces the built-in admin address when set.
	AdminEmails []string `mapstructure:"admin_emails"`
}

// MongoDBConfig configures the document store holding products and orders.
type MongoDBConfig struct {
	URL              string        `mapstructure:"url"`
	Database         string        `mapstructure:"database"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// PostgresConfig configures the optional SQL order store.
type PostgresConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

// RedisConfig configures the connection used by the distributed rate limiter.
type RedisConfig struct {
	URL              string        `mapstructure:"url"`
	MaxConns         int           `mapstructure:"max_conns"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// CatalogConfig configures the product query engine.
type CatalogConfig struct {
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	QueryMode string        `mapstructure:"query_mode"` // memory, store
}

// OrdersConfig selects the order store backend.
type OrdersConfig struct {
	Store string `mapstructure:"store"` // mongodb, postgres
}

// SeedConfig configures the catalog importer.
type SeedConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	PerCategoryLimit int           `mapstructure:"per_category_limit"`
	BatchSize        int           `mapstructure:"batch_size"`
	Concurrency      int           `mapstructure:"concurrency"`
	Timeout          time.Duration `mapstructure:"timeout"`
	// OnStartup runs the import inside serve before the catalog warms up.
	OnStartup bool `mapstructure:"on_startup"`
}

// ObservabilityConfig configures logging and tracing.
type ObservabilityConfig struct {
	LogLevel          string  `mapstructure:"log_level"`
	LogFormat         string  `mapstructure:"log_format"` // json, text
	TracingEnabled    bool    `mapstructure:"tracing_enabled"`
	TracingEndpoint   string  `mapstructure:"tracing_endpoint"`
	TracingSampleRate float64 `mapstructure:"tracing_sample_rate"`
}

// RateLimitConfig configures the public API rate limiter.
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Type              string        `mapstructure:"type"` // local, redis
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Window            time.Duration `mapstructure:"window"`
	Prefix            string        `mapstructure:"prefix"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "catalogd",
			Environment: "development",
		},
		HTTP: HTTPConfig{
			Port:         5000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Management: ManagementConfig{
			Enabled:      true,
			Port:         9090,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			JWKSCacheTTL: time.Hour,
		},
		MongoDB: MongoDBConfig{
			URL:              "mongodb://localhost:27017",
			Database:         "tic",
			ConnectTimeout:   10 * time.Second,
			OperationTimeout: 5 * time.Second,
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			QueryTimeout:    10 * time.Second,
		},
		Redis: RedisConfig{
			MaxConns:         10,
			OperationTimeout: 2 * time.Second,
		},
		Catalog: CatalogConfig{
			CacheTTL:  5 * time.Minute,
			QueryMode: QueryModeMemory,
		},
		Orders: OrdersConfig{
			Store: OrderStoreMongoDB,
		},
		Seed: SeedConfig{
			BaseURL:          "https://raw.githubusercontent.com/docyx/pc-part-dataset/main/data/json",
			PerCategoryLimit: 500,
			BatchSize:        400,
			Concurrency:      3,
			Timeout:          30 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			TracingSampleRate: 0.1,
		},
		RateLimit: RateLimitConfig{
			Type:              RateLimitLocal,
			RequestsPerSecond: 50,
			Burst:             100,
			Window:            time.Second,
			Prefix:            "catalogd:ratelimit",
		},
	}
}
