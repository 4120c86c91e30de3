package httpapi

import (
	"net/http"
	"time"

	"psdprocessor/internal/http/handlers"
	"psdprocessor/internal/infra"
	appmw "psdprocessor/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the API surface and its middleware chain. CORS and
// rate limiting are active only when configured; the limiter guards the
// process endpoint alone so artifact downloads stay unthrottled.
func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		appmw.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		appmw.Logger(logger),
	)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(appmw.CORS(cfg.AllowedOrigins))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.Health)

		process := http.Handler(http.HandlerFunc(app.ProcessPSD))
		if cfg.RateLimitPerMin > 0 {
			process = appmw.RateLimit(cfg.RateLimitPerMin, time.Minute)(process)
		}
		r.Method(http.MethodPost, "/process", process)

		r.Get("/results/{job_id}/{filename}", app.GetResult)
		r.Get("/archive/{job_id}", app.GetArchive)
	})

	return r
}
