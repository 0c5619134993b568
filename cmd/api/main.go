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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/contactalia/contactalia-backend/api/controllers"
	"github.com/contactalia/contactalia-backend/api/routes"
	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/internal/checkout"
	"github.com/contactalia/contactalia-backend/internal/contact"
	"github.com/contactalia/contactalia-backend/internal/favorites"
	"github.com/contactalia/contactalia-backend/internal/media"
	"github.com/contactalia/contactalia-backend/internal/moderation"
	"github.com/contactalia/contactalia-backend/internal/profiles"
	"github.com/contactalia/contactalia-backend/internal/reports"
	"github.com/contactalia/contactalia-backend/internal/roles"
	"github.com/contactalia/contactalia-backend/internal/stats"
	"github.com/contactalia/contactalia-backend/internal/subscriptions"
	stripewebhook "github.com/contactalia/contactalia-backend/internal/webhooks/stripe"
	"github.com/contactalia/contactalia-backend/pkg/config"
	"github.com/contactalia/contactalia-backend/pkg/db"
	"github.com/contactalia/contactalia-backend/pkg/logger"
	"github.com/contactalia/contactalia-backend/pkg/metrics"
	"github.com/contactalia/contactalia-backend/pkg/migrate"
	"github.com/contactalia/contactalia-backend/pkg/redis"
	"github.com/contactalia/contactalia-backend/pkg/storage/s3"
	pkgstripe "github.com/contactalia/contactalia-backend/pkg/stripe"
)

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

	blobs, err := s3.NewClient(context.Background(), cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	entitlementMetrics := metrics.NewEntitlementMetrics(registry)

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient, blobs, entitlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	deps.Gatherer = registry
	deps.Metrics = metrics.NewHTTPMetrics(registry)
	deps.Ready = map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
		"storage":  blobs,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"addr":        addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func buildDependencies(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	blobs *s3.Client,
	entitlementMetrics *metrics.EntitlementMetrics,
) (routes.Dependencies, error) {
	conn := dbClient.DB()
	profileRepo := profiles.NewRepository(conn)
	roleRepo := roles.NewRepository(conn)

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:              subscriptions.NewRepository(conn),
		Profiles:          profileRepo,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	loader, err := auth.NewLoader(roleRepo, subscriptionService)
	if err != nil {
		return routes.Dependencies{}, err
	}

	mediaService, err := media.NewService(media.ServiceParams{
		Repo:              media.NewRepository(conn),
		Profiles:          profileRepo,
		Blobs:             blobs,
		TransactionRunner: dbClient,
		Normalize: media.NormalizeOptions{
			MaxWidth:  cfg.Media.ImageMaxWidth,
			MaxHeight: cfg.Media.ImageMaxHeight,
			Quality:   cfg.Media.ImageQuality,
		},
		MaxUploadBytes: cfg.Media.MaxUploadBytes(),
		Metrics:        entitlementMetrics,
		Logger:         logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	profileService, err := profiles.NewService(profiles.ServiceParams{
		Repo:              profileRepo,
		Logs:              moderation.NewRepository(conn),
		Gallery:           mediaService,
		Views:             redisClient,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	favoriteService, err := favorites.NewService(favorites.ServiceParams{
		Repo:              favorites.NewRepository(conn),
		Profiles:          profileRepo,
		Plans:             subscriptionService,
		TransactionRunner: dbClient,
		Metrics:           entitlementMetrics,
		Logger:            logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	reportService, err := reports.NewService(reports.ServiceParams{
		Repo:     reports.NewRepository(conn),
		Profiles: profileRepo,
		Limiter:  redisClient,
		Limit:    cfg.RateLimit.ReportLimit,
		Window:   cfg.RateLimit.ReportWindow,
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	contactService, err := contact.NewService(contact.ServiceParams{
		Repo:    contact.NewRepository(conn),
		Limiter: redisClient,
		Limit:   cfg.RateLimit.ContactLimit,
		Window:  cfg.RateLimit.ContactWindow,
		Logger:  logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	roleService, err := roles.NewService(roleRepo, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	prices, err := stats.PricesFromConfig(cfg.Accounting)
	if err != nil {
		return routes.Dependencies{}, err
	}
	statsService, err := stats.NewService(stats.NewRepository(conn), subscriptionService, prices)
	if err != nil {
		return routes.Dependencies{}, err
	}

	// A missing secret key is reported per request by the checkout
	// service, so the API still boots without Stripe configured.
	checkoutParams := checkout.ServiceParams{
		Prices:        checkout.NewPriceTable(cfg.Stripe),
		SiteURL:       cfg.Stripe.SiteURL,
		Subscriptions: subscriptionService,
		Logger:        logg,
	}
	webhookParams := stripewebhook.ServiceParams{
		Subscriptions: subscriptionService,
		SigningSecret: cfg.Stripe.WebhookSecret,
		Logger:        logg,
	}
	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	switch {
	case err == nil:
		checkoutParams.Stripe = stripeClient
		webhookParams.Fetcher = stripeClient
	case errors.Is(err, pkgstripe.ErrAPIKeyRequired):
		logg.Warn(context.Background(), "stripe secret key not set; checkout disabled")
	default:
		return routes.Dependencies{}, err
	}

	checkoutService, err := checkout.NewService(checkoutParams)
	if err != nil {
		return routes.Dependencies{}, err
	}
	webhookService, err := stripewebhook.NewService(webhookParams)
	if err != nil {
		return routes.Dependencies{}, err
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(
		redisClient,
		cfg.Stripe.WebhookIdempotencyTTL,
		stripewebhook.WithEnvironment(cfg.Stripe.Environment()),
	)
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		Config:             cfg,
		Logger:             logg,
		Sessions:           loader,
		Profiles:           profileService,
		Media:              mediaService,
		Favorites:          favoriteService,
		Subscriptions:      subscriptionService,
		Reports:            reportService,
		Contact:            contactService,
		Roles:              roleService,
		Stats:              statsService,
		Checkout:           checkoutService,
		StripeWebhook:      webhookService,
		StripeWebhookGuard: webhookGuard,
	}, nil
}
