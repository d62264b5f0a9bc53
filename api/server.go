/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, carried into timeoff.Session
  2. Logger:     zap request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /health               Liveness
  /api/auth/*           Register, login (public)
  /api/me/*             Account
  /api/ledger/*         Ledger mutations, import/export
  /api/calendar/*       Classification and overview
  /api/holidays/*       Regional holidays
  /api/reports/*        Attendance forms

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Bearer-token middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins are used when none are configured.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// RouterConfig tunes the router.
type RouterConfig struct {
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-Match"},
		ExposedHeaders:   []string{"ETag", "X-Report-Filename"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.Tokens.RequireSession)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", h.GetProfile)
				r.Put("/profile", h.UpdateProfile)
				r.Put("/password", h.ChangePassword)
			})

			r.Route("/ledger", func(r chi.Router) {
				r.Get("/", h.GetLedger)
				r.Put("/total", h.SetTotal)
				r.Post("/days", h.AddDays)
				r.Delete("/days", h.RemoveDays)
				r.Post("/ranges", h.AddRange)
				r.Delete("/ranges", h.RemoveRange)
				r.Post("/reset", h.Reset)
				r.Post("/holidays", h.AddHoliday)
				r.Delete("/holidays/{date}", h.RemoveHoliday)
				r.Get("/export", h.Export)
				r.Post("/import", h.Import)
			})

			r.Route("/calendar", func(r chi.Router) {
				r.Get("/{year}", h.GetYear)
				r.Get("/{year}/{month}", h.GetMonth)
			})

			r.Get("/holidays/{year}", h.ListHolidays)
			r.Get("/reports/{year}/{month}", h.GetReport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil)
	})

	return r
}
