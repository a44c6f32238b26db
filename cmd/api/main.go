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
	"go.uber.org/multierr"

	"github.com/angelmondragon/stripe-payments/api/routes"
	"github.com/angelmondragon/stripe-payments/internal/checkout"
	"github.com/angelmondragon/stripe-payments/internal/commissions"
	"github.com/angelmondragon/stripe-payments/internal/connects"
	"github.com/angelmondragon/stripe-payments/internal/customers"
	"github.com/angelmondragon/stripe-payments/internal/fees"
	"github.com/angelmondragon/stripe-payments/internal/forms"
	"github.com/angelmondragon/stripe-payments/internal/orders"
	"github.com/angelmondragon/stripe-payments/internal/reconcile"
	"github.com/angelmondragon/stripe-payments/internal/settings"
	"github.com/angelmondragon/stripe-payments/internal/subscriptions"
	"github.com/angelmondragon/stripe-payments/internal/vendors"
	stripewebhook "github.com/angelmondragon/stripe-payments/internal/webhooks/stripe"
	"github.com/angelmondragon/stripe-payments/pkg/config"
	"github.com/angelmondragon/stripe-payments/pkg/db"
	"github.com/angelmondragon/stripe-payments/pkg/instance"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
	"github.com/angelmondragon/stripe-payments/pkg/metrics"
	"github.com/angelmondragon/stripe-payments/pkg/migrate"
	"github.com/angelmondragon/stripe-payments/pkg/redis"
	"github.com/angelmondragon/stripe-payments/pkg/render"
	pkgstripe "github.com/angelmondragon/stripe-payments/pkg/stripe"
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
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return multierr.Append(err, dbClient.Close())
	}
	defer func() {
		err = multierr.Combine(err, redisClient.Close(), dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return err
	}

	handler, err := buildHandler(cfg, logg, dbClient, redisClient, stripeClient)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"instance_id": instance.GetID("api-0"),
		"stripe_env":  stripeClient.Environment(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
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

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildHandler(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, stripeClient *pkgstripe.Client) (http.Handler, error) {
	registry := metrics.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(registry)
	settingsProvider := settings.NewProvider(cfg.Settings)

	conn := dbClient.DB()
	ordersRepo := orders.NewRepository(conn)
	commissionsRepo := commissions.NewRepository(conn)
	connectsRepo := connects.NewRepository(conn)
	formsRepo := forms.NewRepository(conn)
	vendorsRepo := vendors.NewRepository(conn)
	customersRepo := customers.NewRepository(conn)

	payments := checkout.NewStripePaymentClient(stripeClient)

	connectService, err := connects.NewService(connects.ServiceParams{
		Repo:        connectsRepo,
		Commissions: commissionsRepo,
		Vendors:     vendorsRepo,
		Forms:       formsRepo,
		OAuth:       connects.NewStripeOAuthClient(stripeClient.ConnectClientID()),
		Settings:    settingsProvider,
		Tx:          dbClient,
		Logger:      logg,
	})
	if err != nil {
		return nil, err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Forms:    formsRepo,
		Connects: connectService,
		Orders:   ordersRepo,
		Payments: payments,
		Fees:     fees.NewCalculator(logg),
		Settings: settingsProvider,
		Tx:       dbClient,
		BaseURL:  cfg.App.BaseURL,
		Metrics:  paymentMetrics,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	reconciler, err := reconcile.NewService(reconcile.ServiceParams{
		Payments: payments,
		Orders:   ordersRepo,
		Settings: settingsProvider,
		Renderer: render.New(),
		Config:   cfg.Reconcile,
		Metrics:  paymentMetrics,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Stripe:   subscriptions.NewStripeClient(stripeClient),
		Orders:   ordersRepo,
		Settings: settingsProvider,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	customerService, err := customers.NewService(customersRepo, customers.NewStripeClient(stripeClient), logg)
	if err != nil {
		return nil, err
	}

	orderService, err := orders.NewService(ordersRepo, logg)
	if err != nil {
		return nil, err
	}
	commissionService, err := commissions.NewService(commissionsRepo, logg)
	if err != nil {
		return nil, err
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:            orderService,
		Commissions:       commissionService,
		Customers:         customerService,
		Resolver:          reconciler,
		TransactionRunner: dbClient,
		Metrics:           paymentMetrics,
		Logger:            logg,
	})
	if err != nil {
		return nil, err
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "stripe-webhook")
	if err != nil {
		return nil, err
	}

	return routes.NewRouter(routes.Params{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Metrics:       metrics.Handler(registry),
		HTTP:          metrics.NewHTTPMetrics(registry),
		Checkout:      checkoutService,
		Reconciler:    reconciler,
		Subscriptions: subscriptionService,
		Customers:     customerService,
		Connects:      connectService,
		Stripe:        stripeClient,
		Webhooks:      webhookService,
		WebhookGuard:  webhookGuard,
	}), nil
}
