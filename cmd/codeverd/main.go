package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	_ "github.com/LamboYu/codever/docs"
	"github.com/LamboYu/codever/internal/config"
	"github.com/LamboYu/codever/internal/db"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/gateway/pg"
	"github.com/LamboYu/codever/internal/httpapi"
	"github.com/LamboYu/codever/internal/localcache"
	"github.com/LamboYu/codever/internal/session"
	"github.com/LamboYu/codever/internal/telemetry"
)

var (
	cfgFile string

	// set with -ldflags "-X main.version=..."
	version = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "codeverd",
		Short: "Local codever daemon keeping bookmark and snippet views in sync",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("gateway-mode", defaults.GetString("gateway.mode"), "Backend gateway (rest, pg)")
	cmd.PersistentFlags().String("api-base-url", defaults.GetString("gateway.base_url"), "codever API base URL (rest mode)")
	cmd.PersistentFlags().String("database-url", defaults.GetString("database.url"), "Postgres URL (pg mode)")
	cmd.PersistentFlags().String("cache-backend", defaults.GetString("cache.backend"), "Local cache backend (memory, sqlite, redis)")
	cmd.PersistentFlags().String("cache-sqlite-path", defaults.GetString("cache.sqlite_path"), "SQLite file of the local cache")
	cmd.PersistentFlags().String("redis-url", defaults.GetString("redis.url"), "Redis URL")
	cmd.PersistentFlags().String("session-store", defaults.GetString("session.store"), "Where the session record is kept (memory, redis)")
	cmd.PersistentFlags().Int("page-size", defaults.GetInt("stores.page_size"), "Items per page of the paginated views")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "gateway.mode", "gateway-mode")
	bindFlag(cmd, "gateway.base_url", "api-base-url")
	bindFlag(cmd, "database.url", "database-url")
	bindFlag(cmd, "cache.backend", "cache-backend")
	bindFlag(cmd, "cache.sqlite_path", "cache-sqlite-path")
	bindFlag(cmd, "redis.url", "redis-url")
	bindFlag(cmd, "session.store", "session-store")
	bindFlag(cmd, "stores.page_size", "page-size")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.ServiceName, version)
	defer shutdownTelemetry(context.Background())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisOpt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		redisClient = redis.NewClient(redisOpt)
		defer redisClient.Close()
	}

	cache, closeCache, err := openCache(cfg, redisClient)
	if err != nil {
		return err
	}
	defer closeCache()

	health := &httpapi.HealthHandler{}
	var remote session.RemoteFactory
	switch cfg.GatewayMode {
	case config.GatewayPG:
		db.InitTelemetry(cfg.ServiceName)
		d, err := db.New(ctx, cfg.DatabaseURL, db.PoolConfig{
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: cfg.DBConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer d.Close()

		g := pg.New(d.Base(cfg.DBQueryTimeout))
		if err := g.Migrate(ctx); err != nil {
			return fmt.Errorf("db migrate: %w", err)
		}
		health.DB = d
		remote = func(session.Record, gateway.TokenSource) gateway.Remote { return g }
	default:
		remote = func(_ session.Record, token gateway.TokenSource) gateway.Remote {
			return gateway.NewClient(cfg.APIBaseURL, cfg.GatewayTimeout, token)
		}
	}

	var store session.Store = session.NewMemoryStore()
	if cfg.SessionStore == config.SessionRedis {
		store = session.NewRedisStore(redisClient, "codever:session:", cfg.SessionTTL)
	}

	sessions := &session.Manager{
		Store:  store,
		Cache:  cache,
		Remote: remote,
		Config: session.Config{PageSize: cfg.PageSize, SearchCap: cfg.SearchCap},
	}
	defer sessions.Close()
	health.Sessions = sessions

	if s, err := sessions.Resume(ctx); err != nil {
		telemetry.LogWarn(ctx, "resuming previous session failed", telemetry.LogErr(err))
	} else if s != nil {
		telemetry.LogInfo(ctx, "previous session resumed", telemetry.LogString("user.id", s.User.ID))
	}

	app := &httpapi.App{
		ServiceName: cfg.ServiceName,
		Sessions:    sessions,
		Health:      health,
		Session:     &httpapi.SessionHandler{Sessions: sessions},
		Snippets:    &httpapi.SnippetsHandler{},
		Views:       &httpapi.ViewsHandler{},
		UserData:    &httpapi.UserDataHandler{},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		telemetry.LogInfo(ctx, "server starting",
			telemetry.LogString("address", cfg.HTTPAddress),
			telemetry.LogString("gateway.mode", cfg.GatewayMode),
			telemetry.LogString("cache.backend", cfg.CacheBackend),
			telemetry.LogBool("session.active", sessions.Active()),
		)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func openCache(cfg config.AppConfig, redisClient *redis.Client) (*localcache.Cache, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheSQLite:
		b, err := localcache.NewSQLiteBackend(cfg.CacheSQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		return localcache.New(b), func() { _ = b.Close() }, nil
	case config.CacheRedis:
		return localcache.New(localcache.NewRedisBackend(redisClient, "codever:cache:")), func() {}, nil
	default:
		return localcache.New(localcache.NewMemoryBackend()), func() {}, nil
	}
}
