// Package main is the entrypoint for the Lockbox API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/lockbox/lockbox/internal/auth"
	"github.com/lockbox/lockbox/internal/cache"
	"github.com/lockbox/lockbox/internal/config"
	"github.com/lockbox/lockbox/internal/handler"
	"github.com/lockbox/lockbox/internal/metrics"
	"github.com/lockbox/lockbox/internal/repository"
	"github.com/lockbox/lockbox/internal/seal"
	"github.com/lockbox/lockbox/internal/server"
	"github.com/lockbox/lockbox/internal/service"
)

// backendStore is what every storage backend provides.
type backendStore interface {
	service.UserStore
	service.SecretStore
	Ping(ctx context.Context) error
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	key, err := seal.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("ENCRYPTION_KEY: %w", err)
	}
	cipher, err := seal.New(key)
	if err != nil {
		return fmt.Errorf("ENCRYPTION_KEY: %w", err)
	}

	var recorder metrics.Recorder = metrics.NewNoop()
	if cfg.MetricsEnabled {
		recorder = metrics.NewPrometheus()
	}

	var shutdownHooks []namedCloser

	store, closers, err := openStore(ctx, cfg, logger)
	shutdownHooks = append(shutdownHooks, closers...)
	if err != nil {
		closeAll(shutdownHooks)
		return err
	}

	health := map[string]handler.HealthChecker{"store": store}

	// Outside the redis backend, REDIS_URL only adds a readiness check.
	if cfg.StorageBackend != config.BackendRedis && cfg.RedisURL != "" {
		redisClient, err := cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
		} else {
			health["redis"] = redisClient
			shutdownHooks = append(shutdownHooks, namedCloser{"redis", redisClient.Close})
		}
	}

	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), auth.WithIssuer(cfg.JWTIssuer))

	authService := service.NewAuthService(store, hasher, tokens, cfg.TokenTTL, recorder, logger)
	vaultService := service.NewVaultService(store, cipher, recorder, logger)

	router := server.NewRouter(server.RouterDeps{
		Auth:               authService,
		Vault:              vaultService,
		Metrics:            recorder,
		Health:             health,
		Logger:             logger,
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		EnableHSTS:         cfg.IsProduction(),
		ExposeMetrics:      cfg.MetricsEnabled,
	})

	srv := server.New(router, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	for _, c := range shutdownHooks {
		srv.OnShutdown(c.name, func(context.Context) error { return c.close() })
	}

	logger.Info("starting server",
		slog.Int("port", cfg.AppPort),
		slog.String("env", cfg.AppEnv),
		slog.String("storage", cfg.StorageBackend),
		slog.Int("bcrypt_cost", hasher.Cost()),
		slog.Duration("token_ttl", cfg.TokenTTL),
	)

	return srv.Run(ctx)
}

type namedCloser struct {
	name  string
	close func() error
}

func closeAll(closers []namedCloser) {
	for i := len(closers) - 1; i >= 0; i-- {
		_ = closers[i].close()
	}
}

// openStore connects the configured storage backend.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (backendStore, []namedCloser, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		return repository.NewMemoryStore(), nil, nil

	case config.BackendRedis:
		redisClient, err := cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			return nil, nil, errors.New("redis unavailable")
		}
		logger.Info("connected to Redis")
		return cache.NewStore(redisClient), []namedCloser{{"redis", redisClient.Close}}, nil

	default:
		if cfg.AutoMigrate {
			if err := repository.Migrate(ctx, cfg.DatabaseURL, repository.MigrateUp, logger); err != nil {
				logger.Error("failed to run migrations",
					slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				)
				return nil, nil, errors.New("migrations failed")
			}
		}

		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			return nil, nil, errors.New("database unavailable")
		}
		logger.Info("connected to database")
		return repo, []namedCloser{{"postgres", func() error { repo.Close(); return nil }}}, nil
	}
}

// initLogger initializes the slog logger based on configuration.
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

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

// redactURL drops the password from a connection URL.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		if name := parsed.User.Username(); name != "" {
			parsed.User = url.User(name)
		} else {
			parsed.User = url.User("redacted")
		}
	}
	return parsed.String()
}

// sanitizeError strips connection strings and inline passwords from err.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, s := range secrets {
		if s == "" {
			continue
		}
		redacted := redactURL(s)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, s, redacted)
	}
	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
