package api

import (
	"context"
	"field-route-service/internal/api/handlers"
	"field-route-service/internal/platform/metrics"
	"field-route-service/internal/ports"
	"field-route-service/internal/services"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Deps are the adapters the HTTP layer is built from.
type Deps struct {
	Planner *services.RoutePlanner
	Routes  ports.RouteQuerier
	Events  ports.EventSubscriber
	Ping    func(ctx context.Context) error
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(loggingMiddleware)
	r.Use(chimw.Recoverer)

	health := &handlers.HealthHandler{Ping: d.Ping}
	routes := &handlers.RouteHandler{Planner: d.Planner, Routes: d.Routes}
	stream := &handlers.StreamHandler{Events: d.Events}

	r.Get("/health", health.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/geocode", routes.Geocode)
		r.Route("/routes", func(r chi.Router) {
			r.Get("/", routes.List)
			r.Post("/optimize", routes.Optimize)
			r.Get("/active", routes.Active)
			r.Get("/map", routes.Map)
			r.Get("/map.geojson", routes.MapGeoJSON)
			r.Get("/export.xlsx", routes.Export)
			r.Get("/{id}", routes.Get)
		})
	})

	r.Get("/ws/routes", stream.Routes)

	return r
}
