package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/contactalia/contactalia-backend/internal/cron"
	"github.com/contactalia/contactalia-backend/internal/media"
	"github.com/contactalia/contactalia-backend/internal/profiles"
	"github.com/contactalia/contactalia-backend/internal/subscriptions"
	"github.com/contactalia/contactalia-backend/pkg/config"
	"github.com/contactalia/contactalia-backend/pkg/db"
	"github.com/contactalia/contactalia-backend/pkg/instance"
	"github.com/contactalia/contactalia-backend/pkg/logger"
	"github.com/contactalia/contactalia-backend/pkg/metrics"
	"github.com/contactalia/contactalia-backend/pkg/migrate"
	"github.com/contactalia/contactalia-backend/pkg/redis"
	"github.com/contactalia/contactalia-backend/pkg/storage/s3"
	pkgstripe "github.com/contactalia/contactalia-backend/pkg/stripe"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address when set")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry, err := buildRegistry(context.Background(), cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, cron.DefaultLockKey, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Cron.Interval.String(),
		"once":        *once,
		"instance":    instance.GetID(),
	})

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	if *metricsAddr != "" {
		go serveMetrics(ctx, logg, *metricsAddr)
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics listener stopped", err)
	}
}

func buildRegistry(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	registry := cron.NewRegistry()

	blobs, err := s3.NewClient(ctx, cfg.Storage, logg)
	if err != nil {
		return nil, err
	}
	orphans, err := cron.NewOrphanMediaCleanupJob(cron.OrphanMediaCleanupJobParams{
		Logger: logg,
		Blobs:  blobs,
		Media:  media.NewRepository(dbClient.DB()),
		Grace:  cfg.Media.OrphanGrace,
	})
	if err != nil {
		return nil, err
	}
	if err := registry.Register(orphans); err != nil {
		return nil, err
	}

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if errors.Is(err, pkgstripe.ErrAPIKeyRequired) {
		logg.Warn(ctx, "stripe secret key not set; subscription reconcile disabled")
		return registry, nil
	}
	if err != nil {
		return nil, err
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:              subscriptions.NewRepository(dbClient.DB()),
		Profiles:          profiles.NewRepository(dbClient.DB()),
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		return nil, err
	}
	reconcile, err := cron.NewSubscriptionReconcileJob(cron.SubscriptionReconcileJobParams{
		Logger:        logg,
		Subscriptions: subscriptionService,
		Stripe:        stripeClient,
	})
	if err != nil {
		return nil, err
	}
	if err := registry.Register(reconcile); err != nil {
		return nil, err
	}
	return registry, nil
}
