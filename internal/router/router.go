package router

import (
	"net/http"

	"orderhub-bot/internal/handler"
	"orderhub-bot/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	ChatHandler    *handler.ChatHandler
	AdminHandler   *handler.AdminHandler
	AuthMiddleware func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", "X-Login-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// AUTHENTICATED routes (use Group to apply auth middleware only to these)
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			// Health check endpoints
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			// Chat transport webhook
			if cfg.ChatHandler != nil {
				r.Post("/chat/inbound", cfg.ChatHandler.Inbound)
			}

			// Admin endpoints
			if cfg.AdminHandler != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Get("/catalog", cfg.AdminHandler.ListCatalog)
					r.Post("/catalog", cfg.AdminHandler.CreateItem)
					r.Patch("/catalog/{id}/stock", cfg.AdminHandler.AdjustStock)
					r.Get("/orders", cfg.AdminHandler.ListOrders)
					r.Get("/orders/{id}", cfg.AdminHandler.GetOrder)
					r.Patch("/orders/{id}/status", cfg.AdminHandler.UpdateOrderStatus)
					r.Post("/accounts", cfg.AdminHandler.CreateAccount)
					r.Get("/feedback", cfg.AdminHandler.ListFeedback)
					r.Get("/stats", cfg.AdminHandler.GetStats)
				})
			}
		})
	})

	return r
}
