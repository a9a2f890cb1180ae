package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GatewayMode != GatewayREST || cfg.CacheBackend != CacheMemory || cfg.SessionStore != SessionMemory {
		t.Fatalf("unexpected modes: %+v", cfg)
	}
	if cfg.PageSize != 10 || cfg.SearchCap != 15 {
		t.Fatalf("unexpected store limits: %+v", cfg)
	}
	if cfg.GatewayTimeout != 10*time.Second || cfg.SessionTTL != 720*time.Hour {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.NeedsRedis() {
		t.Fatalf("defaults must not need redis")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CODEVER_GATEWAY_MODE", "PG")
	t.Setenv("CODEVER_DATABASE_URL", "postgres://localhost/codever")
	t.Setenv("CODEVER_CACHE_BACKEND", "sqlite")
	t.Setenv("CODEVER_STORES_PAGE_SIZE", "25")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GatewayMode != GatewayPG || cfg.DatabaseURL == "" {
		t.Fatalf("expected pg mode from env, got %+v", cfg)
	}
	if cfg.CacheBackend != CacheSQLite || cfg.PageSize != 25 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"pg without database", "gateway.mode", GatewayPG, "database.url"},
		{"unknown gateway", "gateway.mode", "grpc", "gateway.mode"},
		{"unknown cache", "cache.backend", "disk", "cache.backend"},
		{"unknown session store", "session.store", "file", "session.store"},
		{"zero page size", "stores.page_size", "0", "page_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViper()
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
