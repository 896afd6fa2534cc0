package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tuneforge/internal/http/handlers"
	"tuneforge/internal/infra"
	"tuneforge/internal/middleware"
)

// NewRouter wires the caller-facing surface. The rate limiter guards only
// the generate boundary; the single-shot status check is free so clients
// polling their own job are not throttled.
func NewRouter(cfg *infra.Config, logger infra.Logger, app *handlers.App, limiter *middleware.RateLimiter) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(cfg.CORSAllowedOrigins),
		middleware.Locale(cfg.DefaultLocale),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/credits", app.Credits)
	r.Get("/v1/history", app.History)

	r.Route("/v1/generate", func(r chi.Router) {
		r.With(limiter.Middleware).Post("/", app.Generate)
		r.Get("/{job_id}", app.GenerateStatus)
	})

	return r
}
