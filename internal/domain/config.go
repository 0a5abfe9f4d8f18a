package domain

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete Warden configuration.
type Config struct {
	// Tier determines which backends are used
	Tier Tier `yaml:"tier"`

	// Component configurations
	Repository RepositoryConfig `yaml:"repository"`
	Cache      CacheConfig      `yaml:"cache"`
	EventBus   EventBusConfig   `yaml:"event_bus"`
	Engine     EngineConfig     `yaml:"engine"`
	Ops        OpsConfig        `yaml:"ops"`

	// Observability
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// EngineConfig tunes the authorization engine.
type EngineConfig struct {
	// LookupTimeout bounds every repository or reference lookup made during evaluation.
	LookupTimeout time.Duration `yaml:"lookup_timeout"`

	// AuditTimeout bounds the audit append, independent of caller cancellation.
	AuditTimeout time.Duration `yaml:"audit_timeout"`

	// DefaultDeny denies transactions for which no rule is configured.
	DefaultDeny bool `yaml:"default_deny"`

	// MCCRefreshInterval is how often MCC descriptors are reloaded. Zero disables refresh.
	MCCRefreshInterval time.Duration `yaml:"mcc_refresh_interval"`

	// PolicyFile is an optional YAML file overriding program policy parameters.
	PolicyFile string `yaml:"policy_file"`
}

// OpsConfig holds the health and metrics listener settings.
type OpsConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + in-memory cache + channels
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./warden.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Engine: EngineConfig{
			LookupTimeout:      250 * time.Millisecond,
			AuditTimeout:       2 * time.Second,
			MCCRefreshInterval: time.Hour,
		},
		Ops: OpsConfig{
			Addr: ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "warden",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "warden",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       5 * time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}

// FromEnv builds a configuration from WARDEN_* environment variables.
// WARDEN_TIER selects the base configuration; other variables override it.
func FromEnv() *Config {
	return FromLookup(os.LookupEnv)
}

// FromLookup is FromEnv with an injectable variable lookup.
func FromLookup(lookup func(string) (string, bool)) *Config {
	cfg := DefaultConfig()
	if v, ok := lookup("WARDEN_TIER"); ok && Tier(v) == TierPro {
		cfg = ProConfig()
	}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("WARDEN_DB_DRIVER", &cfg.Repository.Driver)
	str("WARDEN_SQLITE_PATH", &cfg.Repository.SQLitePath)
	str("WARDEN_PG_HOST", &cfg.Repository.PostgresHost)
	num("WARDEN_PG_PORT", &cfg.Repository.PostgresPort)
	str("WARDEN_PG_USER", &cfg.Repository.PostgresUser)
	str("WARDEN_PG_PASSWORD", &cfg.Repository.PostgresPassword)
	str("WARDEN_PG_DB", &cfg.Repository.PostgresDB)
	str("WARDEN_PG_SSLMODE", &cfg.Repository.PostgresSSLMode)

	str("WARDEN_CACHE_TYPE", &cfg.Cache.Type)
	dur("WARDEN_CACHE_TTL", &cfg.Cache.LocalTTL)
	str("WARDEN_REDIS_ADDR", &cfg.Cache.RedisAddr)
	str("WARDEN_REDIS_PASSWORD", &cfg.Cache.RedisPassword)

	str("WARDEN_BUS_TYPE", &cfg.EventBus.Type)
	str("WARDEN_NATS_URL", &cfg.EventBus.NATSUrl)
	str("WARDEN_NATS_TOKEN", &cfg.EventBus.NATSToken)

	dur("WARDEN_LOOKUP_TIMEOUT", &cfg.Engine.LookupTimeout)
	dur("WARDEN_MCC_REFRESH", &cfg.Engine.MCCRefreshInterval)
	str("WARDEN_POLICY_FILE", &cfg.Engine.PolicyFile)
	flag("WARDEN_DEFAULT_DENY", &cfg.Engine.DefaultDeny)

	str("WARDEN_OPS_ADDR", &cfg.Ops.Addr)

	str("WARDEN_LOG_LEVEL", &cfg.Logging.Level)
	str("WARDEN_LOG_FORMAT", &cfg.Logging.Format)
	if v, ok := lookup("WARDEN_DEBUG"); ok && strings.EqualFold(v, "true") {
		cfg.Logging.Level = "debug"
	}
	flag("WARDEN_TRACING", &cfg.Tracing.Enabled)

	return cfg
}
