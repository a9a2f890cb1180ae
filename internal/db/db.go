package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "codeverd"

// DB owns the pgx pool backing the pg gateway.
type DB struct {
	Pool *pgxpool.Pool
}

// PoolConfig overrides pool sizing. Zero fields keep the defaults.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

func (pc PoolConfig) applyTo(cfg *pgxpool.Config) {
	cfg.MaxConns = pickInt32(pc.MaxConns, 10)
	cfg.MinConns = pickInt32(pc.MinConns, 1)
	cfg.MaxConnLifetime = 30 * time.Minute
	if pc.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = pc.MaxConnLifetime
	}
	cfg.HealthCheckPeriod = 30 * time.Second
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
}

func pickInt32(v, def int32) int32 {
	if v > 0 {
		return v
	}
	return def
}

// New connects and pings once; the pool is closed again if the ping fails.
func New(ctx context.Context, databaseURL string, pc PoolConfig) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pc.applyTo(cfg)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	d := &DB{Pool: pool}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := d.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return d, nil
}

// Ping lets the health endpoint probe the pool.
func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

// Base returns the query helper used by the gateway.
func (d *DB) Base(timeout time.Duration) *Base {
	return NewBase(d.Pool, timeout)
}

func (d *DB) Close() {
	d.Pool.Close()
}
