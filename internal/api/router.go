/**
 * @description
 * This file sets up the HTTP router for the savings service. It defines the
 * API endpoints, associates them with their corresponding handlers, and
 * applies middleware for logging, CORS, authentication, internal API key
 * checks, and per-user rate limiting on money-moving routes.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/app"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/config"
)

// Routes creates and returns the router for the savings service.
func Routes(h *Handlers, limiter app.RateLimiter, cfg config.Config) http.Handler {
	r := chi.NewRouter()

	// Standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Authenticated user routes.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Get("/wallet", h.GetWalletHandler)
		r.Get("/wallet/transactions", h.ListTransactionsHandler)
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(limiter, "wallet", cfg.WalletRateLimitPerMinute))
			r.Post("/wallet/deposit", h.DepositHandler)
			r.Post("/wallet/withdraw", h.WithdrawHandler)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Post("/", h.CreateGoalHandler)
			r.Get("/", h.ListGoalsHandler)
			r.Get("/{goalID}", h.GetGoalHandler)
			r.Patch("/{goalID}/recurring", h.UpdateRecurringSettingsHandler)
			r.Group(func(r chi.Router) {
				r.Use(RateLimitMiddleware(limiter, "funding", cfg.FundingRateLimitPerMinute))
				r.Post("/{goalID}/fund", h.FundGoalHandler)
				r.Post("/{goalID}/withdraw", h.GoalWithdrawHandler)
				r.Post("/{goalID}/redeem", h.RedeemGoalHandler)
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/deposit/initialize", h.InitializeDepositHandler)
			r.Post("/goals/{goalID}/initialize", h.InitializeGoalFundingHandler)
			r.Get("/verify/{reference}", h.VerifyPaymentHandler)
		})

		r.Route("/merchants", func(r chi.Router) {
			r.Post("/", h.CreateMerchantProfileHandler)
			r.Get("/me", h.GetMerchantProfileHandler)
			r.Post("/payouts", h.RequestPayoutHandler)
		})

		// Admin routes require the admin role on top of authentication.
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/stats", h.SystemStatsHandler)
			r.Get("/merchants", h.ListMerchantsHandler)
			r.Patch("/merchants/{merchantID}/verify", h.VerifyMerchantHandler)
			r.Get("/transactions", h.ListAllTransactionsHandler)
			r.Get("/payouts/pending", h.ListPendingPayoutsHandler)
			r.Post("/payouts/{transactionID}/approve", h.ApprovePayoutHandler)
			r.Post("/payouts/{transactionID}/reject", h.RejectPayoutHandler)
		})
	})

	// Service-to-service endpoints guarded by the shared internal key.
	r.Route("/internal", func(r chi.Router) {
		r.Use(InternalAPIKeyMiddleware(cfg.InternalAPIKey))
		r.Post("/automation/run", h.RunAutomationHandler)
		r.Post("/payments/fulfill", h.FulfillPaymentHandler)
	})

	return r
}
