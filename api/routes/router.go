package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/stripe-payments/api/controllers"
	billingcontrollers "github.com/angelmondragon/stripe-payments/api/controllers/billing"
	connectcontrollers "github.com/angelmondragon/stripe-payments/api/controllers/connects"
	subscriptioncontrollers "github.com/angelmondragon/stripe-payments/api/controllers/subscriptions"
	webhookcontrollers "github.com/angelmondragon/stripe-payments/api/controllers/webhooks"
	"github.com/angelmondragon/stripe-payments/api/middleware"
	checkoutsvc "github.com/angelmondragon/stripe-payments/internal/checkout"
	"github.com/angelmondragon/stripe-payments/internal/connects"
	"github.com/angelmondragon/stripe-payments/internal/customers"
	"github.com/angelmondragon/stripe-payments/internal/reconcile"
	subscriptionsvc "github.com/angelmondragon/stripe-payments/internal/subscriptions"
	pkgAuth "github.com/angelmondragon/stripe-payments/pkg/auth"
	"github.com/angelmondragon/stripe-payments/pkg/config"
	"github.com/angelmondragon/stripe-payments/pkg/db"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
	"github.com/angelmondragon/stripe-payments/pkg/metrics"
)

// RedisStore is the slice of the redis client the router needs: readiness
// and checkout throttling.
type RedisStore interface {
	Ping(context.Context) error
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

type signingClient interface {
	SigningSecret() string
}

// Params carries everything the HTTP surface is built from.
type Params struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   RedisStore
	Metrics http.Handler
	HTTP    *metrics.HTTPMetrics

	Checkout      checkoutsvc.Service
	Reconciler    reconcile.Service
	Subscriptions subscriptionsvc.Service
	Customers     customers.Service
	Connects      connects.Service

	Stripe       signingClient
	Webhooks     webhookcontrollers.StripeWebhookService
	WebhookGuard webhookcontrollers.StripeWebhookGuard
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		p.HTTP.Middleware,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics)
	}

	r.Route("/stripe", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.CORSOrigins))

		checkoutLimit := middleware.CheckoutRateLimitPolicy(cfg.RateLimit)
		r.With(middleware.RateLimit(checkoutLimit, p.Redis, logg)).Post("/save-order", controllers.SaveOrder(p.Checkout, logg))
		r.Get("/finish-order", controllers.FinishOrder(p.Reconciler, cfg.Settings.DefaultReturnURL))
		r.Post("/cancel-subscription", subscriptioncontrollers.Cancel(p.Subscriptions, logg))
		r.Post("/reactivate-subscription", subscriptioncontrollers.Reactivate(p.Subscriptions, logg))
		r.Post("/update-billing-info", billingcontrollers.UpdateBillingInfo(p.Customers, logg))
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.Webhooks, p.Stripe, p.WebhookGuard, logg))
	})

	r.Get("/connect/oauth/callback", connectcontrollers.OAuthCallback(p.Connects, logg))

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.CORSOrigins))
		r.Use(middleware.AdminAuth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(pkgAuth.RoleAdmin, logg))

		r.Route("/connects", func(r chi.Router) {
			r.Get("/", connectcontrollers.List(p.Connects, logg))
			r.Post("/", connectcontrollers.Create(p.Connects, logg))
			r.Get("/product-kinds", connectcontrollers.ProductKinds(p.Connects, logg))
			r.Get("/{connectId}", connectcontrollers.Get(p.Connects, logg))
			r.Put("/{connectId}", connectcontrollers.Update(p.Connects, logg))
			r.Delete("/{connectId}", connectcontrollers.Delete(p.Connects, logg))
		})
		r.Get("/vendors/{vendorId}/onboarding-url", connectcontrollers.VendorOnboardingURL(p.Connects, logg))
	})

	return r
}
