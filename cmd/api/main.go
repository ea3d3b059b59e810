package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/pizzeria-backend/api/controllers"
	"github.com/angelmondragon/pizzeria-backend/api/middleware"
	"github.com/angelmondragon/pizzeria-backend/api/routes"
	"github.com/angelmondragon/pizzeria-backend/internal/auth"
	"github.com/angelmondragon/pizzeria-backend/internal/franchises"
	"github.com/angelmondragon/pizzeria-backend/internal/menu"
	"github.com/angelmondragon/pizzeria-backend/internal/orders"
	"github.com/angelmondragon/pizzeria-backend/pkg/auth/session"
	"github.com/angelmondragon/pizzeria-backend/pkg/config"
	"github.com/angelmondragon/pizzeria-backend/pkg/db"
	"github.com/angelmondragon/pizzeria-backend/pkg/fulfillment"
	"github.com/angelmondragon/pizzeria-backend/pkg/instance"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/metrics"
	"github.com/angelmondragon/pizzeria-backend/pkg/migrate"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
	"github.com/angelmondragon/pizzeria-backend/pkg/redis"
	"github.com/angelmondragon/pizzeria-backend/pkg/security"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i].Close())
		}
	}()

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		return err
	}
	closers = append(closers, dbClient)

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		return err
	}

	registry, err := session.NewStoreRegistry(dbClient.DB())
	if err != nil {
		return err
	}

	readiness := map[string]controllers.Pinger{"db": dbClient}
	var (
		rateStore        middleware.RateLimitStore
		idempotencyStore redis.IdempotencyStore
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			return err
		}
		closers = append(closers, redisClient)
		rateStore = redisClient
		idempotencyStore = redisClient
		readiness["redis"] = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured; rate limiting and idempotency keys are disabled")
	}

	revocation, err := config.ParseRevocationPolicy(cfg.Auth.ProfileUpdateRevocation)
	if err != nil {
		return err
	}
	hasher, err := security.NewHasher(cfg.Password)
	if err != nil {
		return err
	}
	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		DB:         dbClient,
		Hasher:     hasher,
		Registry:   registry,
		JWTConfig:  cfg.JWT,
		Revocation: revocation,
		Outbox:     emitter,
		Logger:     logg,
	})
	if err != nil {
		return err
	}
	if cfg.Bootstrap.AdminEmail != "" && cfg.Bootstrap.AdminPassword != "" {
		if err := authService.EnsureAdmin(context.Background(), cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
			return err
		}
	}

	menuService, err := menu.NewService(menu.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return err
	}
	franchiseService, err := franchises.NewService(franchises.ServiceParams{
		DB:     dbClient,
		Outbox: emitter,
		Logger: logg,
	})
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory, err := fulfillment.NewClient(cfg.Fulfillment.BaseURL, cfg.Fulfillment.APIKey, fulfillment.WithTimeout(cfg.Fulfillment.Timeout))
	if err != nil {
		return err
	}
	orderService, err := orders.NewService(orders.ServiceParams{
		DB:          dbClient,
		Fulfillment: factory,
		Outbox:      emitter,
		Metrics:     metrics.NewFulfillmentMetrics(promRegistry),
		Logger:      logg,
	})
	if err != nil {
		return err
	}

	handler := routes.NewRouter(
		cfg,
		logg,
		readiness,
		metrics.NewHTTPMetrics(promRegistry),
		promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		rateStore,
		idempotencyStore,
		authService,
		menuService,
		franchiseService,
		orderService,
	)

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
