package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mmuslimabdulj/talep-presence/internal/config"
	"github.com/mmuslimabdulj/talep-presence/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Limiters groups the per-IP rate limiters used by the router
type Limiters struct {
	API       *middleware.IPRateLimiter
	WebSocket *middleware.IPRateLimiter
}

// NewRouter wires every route of the presence service
func NewRouter(h *Handler, cfg *config.Config, limiters Limiters, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.Recoverer,
		middleware.RequestLogger(logger),
		middleware.SecurityHeaders,
	)

	// Set before Route so the /api subrouter inherits it
	r.NotFound(h.HandleNotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", h.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket route with rate limiting
	r.With(middleware.RateLimitMiddleware(limiters.WebSocket)).Get("/ws", h.HandleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(
			cors.Handler(cors.Options{
				AllowedOrigins: cfg.AllowedOrigins,
				AllowedMethods: []string{"GET", "OPTIONS"},
				AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			}),
			middleware.RateLimitMiddleware(limiters.API),
			middleware.NoCache,
		)

		r.With(
			middleware.Authenticate(h.verifier),
			middleware.RequireRoles(cfg.WatcherRoles...),
		).Get("/online-users", h.HandleOnlineUsers)
	})

	return r
}
