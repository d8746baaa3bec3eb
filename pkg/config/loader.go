package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes every environment override, e.g. CATALOG_HTTP_PORT.
const DefaultEnvPrefix = "CATALOG"

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"http-port":       "http.port",
	"management-port": "management.port",
	"log-level":       "observability.log_level",
	"log-format":      "observability.log_format",
	"query-mode":      "catalog.query_mode",
	"cache-ttl":       "catalog.cache_ttl",
	"orders-store":    "orders.store",
	"mongodb-url":     "mongodb.url",
	"postgres-url":    "postgres.url",
}

// secretKeys are always redacted by Settings, in addition to every key read
// from the secrets file.
var secretKeys = []string{"mongodb.url", "postgres.url", "redis.url"}

// Loader loads and validates configuration.
type Loader interface {
	Load() (*Config, error)
}

// ViperLoader resolves configuration with precedence
// flags > env > secrets file > config file > defaults.
type ViperLoader struct {
	configFile string
	envPrefix  string
	flags      *pflag.FlagSet

	v       *viper.Viper
	secrets map[string]interface{}
}

// NewViperLoader creates a loader. configFile may be empty.
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	if strings.TrimSpace(envPrefix) == "" {
		envPrefix = DefaultEnvPrefix
	}
	return &ViperLoader{configFile: configFile, envPrefix: envPrefix}
}

// WithFlags binds the flags registered by RegisterFlags.
func (l *ViperLoader) WithFlags(flags *pflag.FlagSet) *ViperLoader {
	l.flags = flags
	return l
}

// RegisterFlags adds the configuration override flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig()
	flags.Int("http-port", defaults.HTTP.Port, "public API port")
	flags.Int("management-port", defaults.Management.Port, "management server port")
	flags.String("log-level", defaults.Observability.LogLevel, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Observability.LogFormat, "log format (json, text)")
	flags.String("query-mode", defaults.Catalog.QueryMode, "catalog query mode (memory, store)")
	flags.Duration("cache-ttl", defaults.Catalog.CacheTTL, "catalog snapshot time to live")
	flags.String("orders-store", defaults.Orders.Store, "order store backend (mongodb, postgres)")
	flags.String("mongodb-url", defaults.MongoDB.URL, "MongoDB connection URL")
	flags.String("postgres-url", defaults.Postgres.URL, "PostgreSQL connection URL")
}

// Load resolves, unmarshals and validates the configuration.
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()
	l.v = v

	defaults := defaultSettings(DefaultConfig())
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	secretsFile, err := l.discoverSecretsFile()
	if err != nil {
		return nil, err
	}
	if secretsFile != "" {
		sv := viper.New()
		sv.SetConfigFile(secretsFile)
		if err := sv.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read secrets file %s: %w", secretsFile, err)
		}
		l.secrets = sv.AllSettings()
		if err := v.MergeConfigMap(l.secrets); err != nil {
			return nil, fmt.Errorf("failed to merge secrets: %w", err)
		}
	}

	for key := range defaults {
		_ = v.BindEnv(key, l.envName(key))
	}

	if l.flags != nil {
		for name, key := range flagKeys {
			if flag := l.flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Settings returns the merged settings of the last Load as a nested map.
// Secret values are replaced by "***" unless reveal is set.
func (l *ViperLoader) Settings(reveal bool) map[string]interface{} {
	if l.v == nil {
		return map[string]interface{}{}
	}
	settings := l.v.AllSettings()
	if reveal {
		return settings
	}
	for _, key := range secretKeys {
		redactKey(settings, strings.Split(key, "."))
	}
	redactMask(settings, l.secrets)
	return settings
}

// envName returns the environment variable that overrides key.
func (l *ViperLoader) envName(key string) string {
	return strings.ToUpper(l.envPrefix) + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func redactKey(settings map[string]interface{}, path []string) {
	if len(path) == 0 {
		return
	}
	value, ok := settings[path[0]]
	if !ok {
		return
	}
	if len(path) == 1 {
		if s, isString := value.(string); !isString || s != "" {
			settings[path[0]] = "***"
		}
		return
	}
	if nested, isMap := value.(map[string]interface{}); isMap {
		redactKey(nested, path[1:])
	}
}

func redactMask(settings, mask map[string]interface{}) {
	for key, m := range mask {
		value, ok := settings[key]
		if !ok {
			continue
		}
		nestedMask, maskIsMap := m.(map[string]interface{})
		nestedValue, valueIsMap := value.(map[string]interface{})
		if maskIsMap && valueIsMap {
			redactMask(nestedValue, nestedMask)
			continue
		}
		settings[key] = "***"
	}
}

func (c *Config) normalize() {
	c.Catalog.QueryMode = strings.ToLower(strings.TrimSpace(c.Catalog.QueryMode))
	c.Orders.Store = strings.ToLower(strings.TrimSpace(c.Orders.Store))
	c.RateLimit.Type = strings.ToLower(strings.TrimSpace(c.RateLimit.Type))
	emails := c.Auth.AdminEmails[:0]
	for _, email := range c.Auth.AdminEmails {
		if trimmed := strings.TrimSpace(email); trimmed != "" {
			emails = append(emails, trimmed)
		}
	}
	c.Auth.AdminEmails = emails
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if c.Management.Enabled {
		if c.Management.Port <= 0 || c.Management.Port > 65535 {
			errs = append(errs, fmt.Errorf("management.port must be between 1 and 65535, got %d", c.Management.Port))
		}
		if c.Management.Port == c.HTTP.Port {
			errs = append(errs, errors.New("management.port must differ from http.port"))
		}
	}

	if c.Auth.Enabled {
		if c.Auth.Issuer == "" {
			errs = append(errs, errors.New("auth.issuer is required when auth is enabled"))
		}
		if c.Auth.JWKSUrl == "" {
			errs = append(errs, errors.New("auth.jwks_url is required when auth is enabled"))
		}
		if c.Auth.Audience == "" {
			errs = append(errs, errors.New("auth.audience is required when auth is enabled"))
		}
	}

	if c.MongoDB.URL == "" {
		errs = append(errs, errors.New("mongodb.url is required"))
	}
	if c.MongoDB.Database == "" {
		errs = append(errs, errors.New("mongodb.database is required"))
	}

	if c.Catalog.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("catalog.cache_ttl must be positive, got %s", c.Catalog.CacheTTL))
	}
	switch c.Catalog.QueryMode {
	case QueryModeMemory, QueryModeStore:
	default:
		errs = append(errs, fmt.Errorf("catalog.query_mode must be %q or %q, got %q", QueryModeMemory, QueryModeStore, c.Catalog.QueryMode))
	}

	switch c.Orders.Store {
	case OrderStoreMongoDB:
	case OrderStorePostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("postgres.url is required when orders.store is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("orders.store must be %q or %q, got %q", OrderStoreMongoDB, OrderStorePostgres, c.Orders.Store))
	}

	if c.Seed.PerCategoryLimit <= 0 || c.Seed.BatchSize <= 0 || c.Seed.Concurrency <= 0 {
		errs = append(errs, errors.New("seed.per_category_limit, seed.batch_size and seed.concurrency must be positive"))
	}

	switch strings.ToLower(c.Observability.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("observability.log_format must be json or text, got %q", c.Observability.LogFormat))
	}
	if c.Observability.TracingEnabled && c.Observability.TracingEndpoint == "" {
		errs = append(errs, errors.New("observability.tracing_endpoint is required when tracing is enabled"))
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, errors.New("rate_limit.requests_per_second must be positive"))
		}
		switch c.RateLimit.Type {
		case RateLimitLocal:
			if c.RateLimit.Burst <= 0 {
				errs = append(errs, errors.New("rate_limit.burst must be positive"))
			}
		case RateLimitRedis:
			if c.Redis.URL == "" {
				errs = append(errs, errors.New("redis.url is required when rate_limit.type is redis"))
			}
			if c.RateLimit.Window <= 0 {
				errs = append(errs, errors.New("rate_limit.window must be positive"))
			}
		default:
			errs = append(errs, fmt.Errorf("rate_limit.type must be %q or %q, got %q", RateLimitLocal, RateLimitRedis, c.RateLimit.Type))
		}
	}

	return errors.Join(errs...)
}

func defaultSettings(cfg *Config) map[string]interface{} {
	return map[string]interface{}{
		"service.name":        cfg.Service.Name,
		"service.environment": cfg.Service.Environment,

		"http.port":          cfg.HTTP.Port,
		"http.read_timeout":  cfg.HTTP.ReadTimeout,
		"http.write_timeout": cfg.HTTP.WriteTimeout,
		"http.idle_timeout":  cfg.HTTP.IdleTimeout,

		"management.enabled":       cfg.Management.Enabled,
		"management.port":          cfg.Management.Port,
		"management.read_timeout":  cfg.Management.ReadTimeout,
		"management.write_timeout": cfg.Management.WriteTimeout,

		"auth.enabled":        cfg.Auth.Enabled,
		"auth.issuer":         cfg.Auth.Issuer,
		"auth.jwks_url":       cfg.Auth.JWKSUrl,
		"auth.jwks_cache_ttl": cfg.Auth.JWKSCacheTTL,
		"auth.audience":       cfg.Auth.Audience,
		"auth.admin_emails":   cfg.Auth.AdminEmails,

		"mongodb.url":               cfg.MongoDB.URL,
		"mongodb.database":          cfg.MongoDB.Database,
		"mongodb.connect_timeout":   cfg.MongoDB.ConnectTimeout,
		"mongodb.operation_timeout": cfg.MongoDB.OperationTimeout,

		"postgres.url":                cfg.Postgres.URL,
		"postgres.max_open_conns":     cfg.Postgres.MaxOpenConns,
		"postgres.max_idle_conns":     cfg.Postgres.MaxIdleConns,
		"postgres.conn_max_lifetime":  cfg.Postgres.ConnMaxLifetime,
		"postgres.conn_max_idle_time": cfg.Postgres.ConnMaxIdleTime,
		"postgres.query_timeout":      cfg.Postgres.QueryTimeout,

		"redis.url":               cfg.Redis.URL,
		"redis.max_conns":         cfg.Redis.MaxConns,
		"redis.operation_timeout": cfg.Redis.OperationTimeout,

		"catalog.cache_ttl":  cfg.Catalog.CacheTTL,
		"catalog.query_mode": cfg.Catalog.QueryMode,

		"orders.store": cfg.Orders.Store,

		"seed.base_url":           cfg.Seed.BaseURL,
		"seed.per_category_limit": cfg.Seed.PerCategoryLimit,
		"seed.batch_size":         cfg.Seed.BatchSize,
		"seed.concurrency":        cfg.Seed.Concurrency,
		"seed.timeout":            cfg.Seed.Timeout,
		"seed.on_startup":         cfg.Seed.OnStartup,

		"observability.log_level":           cfg.Observability.LogLevel,
		"observability.log_format":          cfg.Observability.LogFormat,
		"observability.tracing_enabled":     cfg.Observability.TracingEnabled,
		"observability.tracing_endpoint":    cfg.Observability.TracingEndpoint,
		"observability.tracing_sample_rate": cfg.Observability.TracingSampleRate,

		"rate_limit.enabled":             cfg.RateLimit.Enabled,
		"rate_limit.type":                cfg.RateLimit.Type,
		"rate_limit.requests_per_second": cfg.RateLimit.RequestsPerSecond,
		"rate_limit.burst":               cfg.RateLimit.Burst,
		"rate_limit.window":              cfg.RateLimit.Window,
		"rate_limit.prefix":              cfg.RateLimit.Prefix,
	}
}
