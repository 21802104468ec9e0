/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects the staff portal
  URLs to handlers; the portal UI itself is a separate frontend.

ROUTER: chi
  Lightweight, context-based, RESTful route patterns.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind proxies
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the portal frontend

ROUTE GROUPS:
  /api/riders/*             Rider documents and field edits
  /api/admin/recompute*     Bulk eligibility recompute
  /api/health               Liveness

SECURITY NOTE:
  No authentication middleware here; the deployment fronts this service
  with the platform's auth gateway.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Rider routes
		r.Route("/riders", func(r chi.Router) {
			r.Get("/", h.ListRiders)
			r.Post("/", h.CreateRider)
			r.Get("/{riderID}", h.GetRider)
			r.Post("/{riderID}/fields", h.UpdateField)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/recompute", h.TriggerRecompute)
			r.Get("/recompute/status", h.RecomputeStatus)
		})

		r.Get("/health", h.Health)
	})

	return r
}
