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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/techstore-checkout/api/routes"
	"github.com/angelmondragon/techstore-checkout/internal/attempts"
	"github.com/angelmondragon/techstore-checkout/internal/checkout"
	"github.com/angelmondragon/techstore-checkout/internal/commerce"
	"github.com/angelmondragon/techstore-checkout/internal/payments"
	"github.com/angelmondragon/techstore-checkout/internal/pricing"
	"github.com/angelmondragon/techstore-checkout/internal/shopper"
	"github.com/angelmondragon/techstore-checkout/pkg/config"
	"github.com/angelmondragon/techstore-checkout/pkg/db"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	"github.com/angelmondragon/techstore-checkout/pkg/metrics"
	"github.com/angelmondragon/techstore-checkout/pkg/migrate"
	"github.com/angelmondragon/techstore-checkout/pkg/pubsub"
	"github.com/angelmondragon/techstore-checkout/pkg/redis"
	"github.com/angelmondragon/techstore-checkout/pkg/stripe"
)

const (
	shutdownTimeout = 15 * time.Second
	sweepInterval   = 5 * time.Minute
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

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(runCtx, cfg.DB, logg)
	if err != nil {
		logg.Error(runCtx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(runCtx, cfg, logg, dbClient); err != nil {
		logg.Error(runCtx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	var lock checkout.Lock = checkout.NewMemoryLock()
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(runCtx, cfg.Redis, logg)
		if err != nil {
			logg.Error(runCtx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		lock = redis.NewCheckoutLock(redisClient, cfg.Checkout.LockTTL, logg)
	} else {
		logg.Warn(runCtx, "redis not configured; checkout lock is process-local and idempotency is off")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	attemptsRepo := attempts.NewRepository(dbClient.DB())
	attemptsService, err := attempts.NewService(attemptsRepo)
	if err != nil {
		logg.Error(runCtx, "failed to create attempts service", err)
		os.Exit(1)
	}
	observers := []checkout.Observer{
		attempts.NewRecorder(attemptsRepo, logg),
		checkout.NewMetricsObserver(checkoutMetrics),
	}

	var pubsubClient *pubsub.Client
	if cfg.PubSub.Enabled() {
		pubsubClient, err = pubsub.NewClient(runCtx, cfg.PubSub, logg)
		if err != nil {
			logg.Error(runCtx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		if pub := pubsubClient.CheckoutPublisher(); pub != nil {
			observers = append(observers, attempts.NewNotifier(pub, logg))
		}
	}

	stripeClient, err := stripe.NewClient(runCtx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(runCtx, "failed to bootstrap stripe", err)
		os.Exit(1)
	}
	processor, err := payments.NewStripeProcessor(payments.NewIntentConfirmer(stripeClient), stripeClient.ReturnURL(), logg)
	if err != nil {
		logg.Error(runCtx, "failed to create payment processor", err)
		os.Exit(1)
	}

	commerceClient, err := commerce.NewClient(cfg.Commerce, nil, logg)
	if err != nil {
		logg.Error(runCtx, "failed to create commerce client", err)
		os.Exit(1)
	}

	rules, err := cfg.Pricing.Parse()
	if err != nil {
		logg.Error(runCtx, "invalid pricing rules", err)
		os.Exit(1)
	}
	engine, err := pricing.NewEngine(pricing.Rules{
		TaxRate:               rules.TaxRate,
		FreeShippingThreshold: rules.FreeShippingThreshold,
		FlatShippingFee:       rules.FlatShippingFee,
	})
	if err != nil {
		logg.Error(runCtx, "failed to create pricing engine", err)
		os.Exit(1)
	}

	orchestrator, err := checkout.NewOrchestrator(checkout.Config{
		Orders:      commerce.NewOrderService(commerceClient),
		Payments:    commerce.NewPaymentService(commerceClient),
		Processor:   processor,
		Pricing:     engine,
		Lock:        lock,
		Observers:   observers,
		Logger:      logg,
		CallTimeout: cfg.Checkout.CallTimeout,
	})
	if err != nil {
		logg.Error(runCtx, "failed to create checkout orchestrator", err)
		os.Exit(1)
	}

	sessions, err := shopper.NewRegistry(commerce.NewCartService(commerceClient), checkoutMetrics, cfg.Checkout.SessionIdleTTL)
	if err != nil {
		logg.Error(runCtx, "failed to create shopper registry", err)
		os.Exit(1)
	}
	go sweepSessions(runCtx, logg, sessions)

	deps := routes.Dependencies{
		DB:           dbClient,
		Redis:        redisClient,
		Stripe:       stripeClient,
		Sessions:     sessions,
		Pricing:      engine,
		Orchestrator: orchestrator,
		Attempts:     attemptsService,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}
	if pubsubClient != nil {
		deps.PubSub = pubsubClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(runCtx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

// sweepSessions drops idle shopper sessions until ctx ends.
func sweepSessions(ctx context.Context, logg *logger.Logger, sessions *shopper.Registry) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(); n > 0 {
				logg.Debug(logg.WithField(ctx, "evicted", n), "shopper.sessions_swept")
			}
		}
	}
}
