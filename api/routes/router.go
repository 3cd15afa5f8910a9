package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/techstore-checkout/api/controllers"
	cartcontrollers "github.com/angelmondragon/techstore-checkout/api/controllers/cart"
	checkoutcontrollers "github.com/angelmondragon/techstore-checkout/api/controllers/checkout"
	"github.com/angelmondragon/techstore-checkout/api/middleware"
	"github.com/angelmondragon/techstore-checkout/internal/attempts"
	"github.com/angelmondragon/techstore-checkout/internal/checkout"
	"github.com/angelmondragon/techstore-checkout/internal/pricing"
	"github.com/angelmondragon/techstore-checkout/pkg/config"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	"github.com/angelmondragon/techstore-checkout/pkg/redis"
	"github.com/angelmondragon/techstore-checkout/pkg/stripe"
)

// Dependencies are the wired services the API serves. Optional ones may be
// nil: Redis disables idempotency and rate limiting, Attempts disables the
// history endpoints, Metrics disables /metrics.
type Dependencies struct {
	DB           controllers.Pinger
	Redis        *redis.Client
	PubSub       controllers.Pinger
	Stripe       *stripe.Client
	Sessions     cartcontrollers.SessionProvider
	Pricing      *pricing.Engine
	Orchestrator *checkout.Orchestrator
	Attempts     *attempts.Service
	Metrics      http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessChecks(deps)))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	cartPolicy := middleware.NewRateLimitPolicy("cart", cfg.RateLimit.Window, cfg.RateLimit.CartLimit)
	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.Window, cfg.RateLimit.CheckoutLimit)

	r.Route("/api/v1", func(r chi.Router) {
		if deps.Stripe != nil {
			r.Get("/config/payment", controllers.PaymentConfig(deps.Stripe.PublishableKey(), deps.Stripe.Environment()))
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			if deps.Redis != nil {
				r.Use(middleware.Idempotency(deps.Redis, logg))
			}

			r.Route("/cart", func(r chi.Router) {
				if deps.Redis != nil {
					r.Use(middleware.RateLimit(cartPolicy, deps.Redis, logg))
				}
				r.Get("/", cartcontrollers.CartFetch(deps.Sessions, deps.Pricing, logg))
				r.Delete("/", cartcontrollers.CartClear(deps.Sessions, deps.Pricing, logg))
				r.Post("/items", cartcontrollers.CartAddItem(deps.Sessions, deps.Pricing, logg))
				r.Put("/items/{productId}", cartcontrollers.CartUpdateItem(deps.Sessions, deps.Pricing, logg))
				r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(deps.Sessions, deps.Pricing, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				if deps.Redis != nil {
					r.With(middleware.RateLimit(checkoutPolicy, deps.Redis, logg)).
						Post("/", checkoutcontrollers.CheckoutSubmit(deps.Sessions, deps.Orchestrator, logg))
				} else {
					r.Post("/", checkoutcontrollers.CheckoutSubmit(deps.Sessions, deps.Orchestrator, logg))
				}
				r.Get("/attempts", checkoutcontrollers.AttemptHistory(deps.Attempts, logg))
				r.Get("/attempts/{attemptId}", checkoutcontrollers.AttemptDetail(deps.Attempts, logg))
				r.Get("/orphaned", checkoutcontrollers.OrphanedOrders(deps.Attempts, logg))
			})
		})
	})

	return r
}

// readinessChecks drops unset dependencies so a typed nil never reaches Ping.
func readinessChecks(deps Dependencies) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{}
	if deps.DB != nil {
		checks["db"] = deps.DB
	}
	if deps.Redis != nil {
		checks["redis"] = deps.Redis
	}
	if deps.PubSub != nil {
		checks["pubsub"] = deps.PubSub
	}
	return checks
}
