// Package config loads the daemon configuration from flags, environment
// (prefix CODEVER) and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "CODEVER"

	GatewayREST = "rest"
	GatewayPG   = "pg"

	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"

	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// AppConfig captures runtime configuration for codeverd.
type AppConfig struct {
	HTTPAddress string
	ServiceName string

	GatewayMode    string
	APIBaseURL     string
	GatewayTimeout time.Duration

	DatabaseURL     string
	DBMaxConns      int32
	DBMinConns      int32
	DBConnLifetime  time.Duration
	DBQueryTimeout  time.Duration
	CacheBackend    string
	CacheSQLitePath string
	RedisURL        string

	SessionStore string
	SessionTTL   time.Duration

	PageSize  int
	SearchCap int
}

func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.address", "127.0.0.1:7070")
	v.SetDefault("telemetry.service_name", "codeverd")
	v.SetDefault("gateway.mode", GatewayREST)
	v.SetDefault("gateway.base_url", "https://www.codever.dev/api")
	v.SetDefault("gateway.timeout", "10s")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("database.query_timeout", "3s")
	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.sqlite_path", "codever-cache.db")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("session.store", SessionMemory)
	v.SetDefault("session.ttl", "720h")
	v.SetDefault("stores.page_size", 10)
	v.SetDefault("stores.search_cap", 15)
}

func Load(v *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:     v.GetString("http.address"),
		ServiceName:     v.GetString("telemetry.service_name"),
		GatewayMode:     strings.ToLower(strings.TrimSpace(v.GetString("gateway.mode"))),
		APIBaseURL:      v.GetString("gateway.base_url"),
		GatewayTimeout:  v.GetDuration("gateway.timeout"),
		DatabaseURL:     v.GetString("database.url"),
		DBMaxConns:      v.GetInt32("database.max_conns"),
		DBMinConns:      v.GetInt32("database.min_conns"),
		DBConnLifetime:  v.GetDuration("database.max_conn_lifetime"),
		DBQueryTimeout:  v.GetDuration("database.query_timeout"),
		CacheBackend:    strings.ToLower(strings.TrimSpace(v.GetString("cache.backend"))),
		CacheSQLitePath: v.GetString("cache.sqlite_path"),
		RedisURL:        v.GetString("redis.url"),
		SessionStore:    strings.ToLower(strings.TrimSpace(v.GetString("session.store"))),
		SessionTTL:      v.GetDuration("session.ttl"),
		PageSize:        v.GetInt("stores.page_size"),
		SearchCap:       v.GetInt("stores.search_cap"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c AppConfig) NeedsRedis() bool {
	return c.CacheBackend == CacheRedis || c.SessionStore == SessionRedis
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	switch c.GatewayMode {
	case GatewayREST:
		if strings.TrimSpace(c.APIBaseURL) == "" {
			return fmt.Errorf("gateway.base_url is required in rest mode")
		}
	case GatewayPG:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("database.url is required in pg mode")
		}
	default:
		return fmt.Errorf("unknown gateway.mode %q", c.GatewayMode)
	}
	switch c.CacheBackend {
	case CacheMemory, CacheRedis:
	case CacheSQLite:
		if strings.TrimSpace(c.CacheSQLitePath) == "" {
			return fmt.Errorf("cache.sqlite_path is required for the sqlite cache")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.CacheBackend)
	}
	switch c.SessionStore {
	case SessionMemory, SessionRedis:
	default:
		return fmt.Errorf("unknown session.store %q", c.SessionStore)
	}
	if c.NeedsRedis() && strings.TrimSpace(c.RedisURL) == "" {
		return fmt.Errorf("redis.url is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("stores.page_size must be positive")
	}
	if c.SearchCap <= 0 {
		return fmt.Errorf("stores.search_cap must be positive")
	}
	return nil
}
