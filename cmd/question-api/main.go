package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examprep/question-api/internal/api"
	"github.com/examprep/question-api/internal/config"
	"github.com/examprep/question-api/internal/identity"
	"github.com/examprep/question-api/internal/questions"
	"github.com/examprep/question-api/internal/ratelimit"
	"github.com/examprep/question-api/internal/services"
	"github.com/examprep/question-api/internal/storage"
	"github.com/examprep/question-api/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting question-api",
		"env", cfg.AppEnv,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"auth_mode", cfg.Auth.Mode,
		"profile_policy", cfg.Auth.ProfilePolicy,
	)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	shutdownTracing, err := telemetry.Init(initCtx, telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Insecure:     cfg.Telemetry.Insecure,
	})
	if err != nil {
		slog.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	if cfg.Database.MigrationsDir != "" {
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:      cfg.Database.DSN,
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("database connected successfully")

	registry := services.NewRegistry(cfg.Auth.Timeout)
	registry.Register(services.NewCheckFunc("content_store", repo.Probe))

	var stats api.StatsReader
	if cfg.Database.ServiceRoleDSN != "" {
		serviceRole, err := services.NewServiceRoleStore(initCtx, cfg.Database.ServiceRoleDSN)
		if err != nil {
			slog.Error("failed to connect service-role store", "error", err)
			os.Exit(1)
		}
		defer serviceRole.Close()
		registry.Register(serviceRole)
		stats = serviceRole
	}

	var limiter ratelimit.Limiter = ratelimit.NewInMemory(time.Minute)
	if cfg.Redis.Address != "" {
		client, err := services.NewRedisClient(initCtx, services.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			slog.Error("failed to connect redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		registry.Register(services.NewRedisChecker(client))
		limiter = ratelimit.NewRedis(client, time.Minute)
	}

	resolver := identity.NewResolver(newVerifier(cfg.Auth), repo, identity.ResolverConfig{
		ProfilePolicy: identity.ProfilePolicy(cfg.Auth.ProfilePolicy),
		Timeout:       cfg.Auth.Timeout,
	})

	questionService := questions.NewService(repo, questions.Config{
		DefaultLimit:     cfg.Questions.DefaultLimit,
		MaxLimit:         cfg.Questions.MaxLimit,
		FallbackLanguage: cfg.Questions.FallbackLanguage,
		Timeout:          cfg.Auth.Timeout,
	})

	deps := api.Dependencies{
		Store:        repo,
		Resolver:     resolver,
		Questions:    questionService,
		Readiness:    registry,
		Limiter:      limiter,
		RateLimit:    cfg.RateLimit.PerMinute,
		Stats:        stats,
		AdminToken:   cfg.Admin.Token,
		ProbeTimeout: cfg.Auth.Timeout,
	}
	if deps.Stats == nil || deps.AdminToken == "" {
		slog.Info("admin stats route disabled")
	}

	server := api.NewServer(cfg.Server, deps)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      telemetry.Handler(server.Router(), "question-api"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("tracer shutdown error", "error", err)
	}

	slog.Info("question-api stopped")
}

func newVerifier(cfg config.AuthConfig) identity.Verifier {
	if cfg.Mode == config.AuthModeJWT {
		return identity.NewJWTVerifier(cfg.JWTSecret, cfg.JWTAudience)
	}
	return identity.NewGoTrueVerifier(cfg.URL, cfg.ServiceKey)
}
