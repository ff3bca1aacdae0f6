package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"notekeeper/auth"
	"notekeeper/cache"
	"notekeeper/config"
	"notekeeper/db"
	"notekeeper/handlers"
	"notekeeper/notes"
	"notekeeper/server"
	"notekeeper/store"
	"notekeeper/store/filestore"
	"notekeeper/store/mysqlstore"
)

// app is the assembled service plus the resources it must release.
type app struct {
	handler http.Handler
	logger  *slog.Logger
	closers []closer
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	srv := server.New(a.handler, cfg.AppPort, cfg.ReadTimeout, cfg.WriteTimeout, cfg.ShutdownTimeout, logger)
	for _, c := range a.closers {
		srv.OnShutdown(c.name, c.fn)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"storage", cfg.StorageDriver,
		"env", cfg.AppEnv,
	)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newApp opens storage, builds the services and returns the router.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	accounts, noteStore, err := openStores(ctx, cfg, logger, a)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	tokens, err := auth.NewTokenIssuer([]byte(cfg.JWTSecret), auth.DefaultTokenTTL)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	routerCfg := handlers.RouterConfig{
		Identity:       auth.NewService(accounts, hasher, tokens, logger),
		Notes:          notes.NewService(noteStore, logger),
		Logger:         logger,
		AllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxBodyBytes:   cfg.MaxRequestBodySize,
	}

	if cfg.RateLimitEnabled() {
		cacheClient, err := cache.New(ctx, cfg.RedisURL)
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, closer{"redis", func(context.Context) error { return cacheClient.Close() }})
		routerCfg.AuthLimiter = cache.NewLimiter(cacheClient, cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)
		logger.Info("auth rate limiting enabled",
			"rps", cfg.AuthRateLimitRPS,
			"burst", cfg.AuthRateLimitBurst,
		)
	}

	a.handler = handlers.NewRouter(routerCfg)
	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger, a *app) (store.AccountStore, store.NoteStore, error) {
	switch cfg.StorageDriver {
	case config.DriverMySQL:
		conn, err := db.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, closer{"mysql", func(context.Context) error { return conn.Close() }})
		if err := db.Migrate(ctx, conn); err != nil {
			return nil, nil, err
		}
		logger.Info("connected to database")
		return mysqlstore.NewAccountStore(conn), mysqlstore.NewNoteStore(conn), nil

	default:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		accounts, err := filestore.OpenAccountStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		noteStore, err := filestore.OpenNoteStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using file storage", "dir", cfg.DataDir)
		return accounts, noteStore, nil
	}
}

// close releases resources newest first. Used when startup fails part way.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.Error("failed to close component", "name", c.name, "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
