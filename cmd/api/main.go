package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Marlon-Urena/userAccountService/api/controllers"
	"github.com/Marlon-Urena/userAccountService/api/routes"
	"github.com/Marlon-Urena/userAccountService/internal/accounts"
	identitysvc "github.com/Marlon-Urena/userAccountService/internal/identity"
	"github.com/Marlon-Urena/userAccountService/pkg/config"
	"github.com/Marlon-Urena/userAccountService/pkg/db"
	"github.com/Marlon-Urena/userAccountService/pkg/identity"
	"github.com/Marlon-Urena/userAccountService/pkg/logger"
	"github.com/Marlon-Urena/userAccountService/pkg/migrate"
	"github.com/Marlon-Urena/userAccountService/pkg/redis"
	"github.com/Marlon-Urena/userAccountService/pkg/storage/gcs"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	bootLog := logger.New(logger.Options{ServiceName: "user-account-service"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		bootLog.Warn(ctx, "no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(ctx, "failed to load configuration", err)
		os.Exit(1)
	}

	logg := logger.New(logger.Options{
		ServiceName: "user-account-service",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "service exited with error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer closeQuietly(ctx, logg, dbClient.Close, "closing database failed")

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeQuietly(ctx, logg, redisClient.Close, "closing redis failed")

	providerClient, err := identity.NewClient(cfg.Identity)
	if err != nil {
		return err
	}

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		return err
	}

	var cache *redis.Client
	if cfg.Identity.VerifyCacheTTL > 0 {
		cache = redisClient
	}

	verifier, err := identitysvc.NewVerifier(providerClient, cache, cfg.Identity.VerifyCacheTTL, logg)
	if err != nil {
		return err
	}

	resolver, err := identitysvc.NewResolver(providerClient)
	if err != nil {
		return err
	}

	repo := accounts.NewRepository(dbClient.DB())
	service, err := accounts.NewService(repo, providerClient, gcsClient, verifier)
	if err != nil {
		return err
	}

	health := controllers.NewHealthController(cfg.App.Env, logg)
	health.Register("database", dbClient)
	health.Register("redis", redisClient)
	health.Register("identity_provider", providerClient)
	health.Register("storage", gcsClient)

	handler := routes.New(routes.Dependencies{
		Logger:   logg,
		Verifier: verifier,
		Resolver: resolver,
		Accounts: controllers.NewAccountsController(service, logg, cfg.Media.MaxUploadMB),
		Health:   health,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		startCtx := logg.WithFields(ctx, map[string]any{
			"port": cfg.App.Port,
			"env":  cfg.App.Env,
		})
		logg.Info(startCtx, "http server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logg.Info(ctx, "http server stopped")
	return nil
}

func closeQuietly(ctx context.Context, logg *logger.Logger, closeFn func() error, msg string) {
	if err := closeFn(); err != nil {
		logg.Warn(ctx, msg)
	}
}
