package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/promo-engine/api/controllers"
	"github.com/angelmondragon/promo-engine/api/middleware"
	"github.com/angelmondragon/promo-engine/internal/quotes"
	"github.com/angelmondragon/promo-engine/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Quotes         quotes.Service
	Cache          controllers.CachePinger
	Logger         *logger.Logger
	Registry       *prometheus.Registry
	AllowedOrigins []string
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer(deps.Logger))
	r.Use(middleware.RequestID(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.CORS(deps.AllowedOrigins))

	r.Get("/health/live", controllers.HealthLive())
	r.Get("/health/ready", controllers.HealthReady(deps.Cache, deps.Logger))

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/public", func(r chi.Router) {
			r.Get("/ping", controllers.PublicPing())
		})
		r.Route("/v1", func(r chi.Router) {
			r.Post("/allocations", controllers.PostAllocation(deps.Quotes, deps.Logger))
		})
	})

	return r
}
