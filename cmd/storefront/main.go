// Package main starts the decorhub storefront: the browser-facing layer that
// owns sessions, signs every backend request and gates role dashboards.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decorhub/storefront/internal/api"
	"github.com/decorhub/storefront/internal/api/middleware"
	"github.com/decorhub/storefront/internal/apiclient"
	"github.com/decorhub/storefront/internal/core/service"
	"github.com/decorhub/storefront/internal/infrastructure/db/mongo"
	"github.com/decorhub/storefront/internal/infrastructure/db/redis"
	"github.com/decorhub/storefront/internal/infrastructure/identity/local"
	"github.com/decorhub/storefront/internal/infrastructure/queue"
	"github.com/decorhub/storefront/internal/pkg/config"
	"github.com/decorhub/storefront/internal/pkg/metrics"
	"github.com/decorhub/storefront/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.IsProduction()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("storefront stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	// --- Storage ---
	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	accounts := mongo.NewAccountRepository(db)
	if err := accounts.EnsureIndexes(ctx); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}()

	// --- Identity and backend client ---
	provider := local.NewProvider(accounts, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger.For("identity"))

	client, err := apiclient.New(cfg.API.BaseURL,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithLogger(logger.For("apiclient")),
	)
	if err != nil {
		return err
	}
	source := apiclient.NewScopedSource(client)

	// --- Sessions ---
	snapshots := redis.NewSnapshotStore(rdb, cfg.Session.TTL)
	dispatcher := queue.NewDispatcher(cfg.Session.SnapshotWorkers, snapshots, logger.For("snapshots"))
	dispatcher.Start()
	defer dispatcher.Close()

	registry := service.NewSessionRegistry(provider, client.Public(), snapshots, cfg.Session.TTL, logger.For("session")).
		WithSnapshotQueue(dispatcher)
	defer registry.Close()
	go registry.Run(ctx, cfg.Session.SweepInterval, cfg.Session.IdleTimeout)

	// --- Roles and catalog ---
	roles := service.NewRoleResolver(source, redis.NewRoleCache(rdb), service.RoleResolverConfig{
		FreshFor:  cfg.Role.FreshTTL,
		RetainFor: cfg.Role.RetentionTTL,
		Retries:   cfg.Role.Retries,
	}, logger.For("roles")).WithObserver(metrics.ObserveRoleLookup)

	e := api.NewRouter(api.Dependencies{
		Log:      log,
		Client:   client,
		Registry: registry,
		Roles:    roles,
		Guard:    service.NewGuard(roles, cfg.Session.GuardWait),
		Catalog:  service.NewCatalogService(source, logger.For("catalog")),
		Session: middleware.SessionConfig{
			CookieName: cfg.Session.CookieName,
			Secure:     cfg.Session.CookieSecure,
			TTL:        cfg.Session.TTL,
		},
		PublicURL: cfg.PublicURL,
		Mongo:     db,
		Redis:     rdb,
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", client.BaseURL()).Msg("storefront listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}
