package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/post-scheduler/internal/api/http/handlers"
	"github.com/spec-kit/post-scheduler/internal/auth"
	"github.com/spec-kit/post-scheduler/internal/realtime"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Posts          *handlers.PostsHandler
	AuthMiddleware *auth.AuthMiddleware
	Live           *realtime.Endpoint
	Transport      realtime.TransportConfig
	Gatherer       prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	if cfg.Live != nil {
		// Non-strict routing also serves /ws/posts.
		app.Get("/ws/posts/", realtime.UpgradeGuard, cfg.Live.Handler(cfg.Transport))
	}

	api := app.Group("/api", cfg.AuthMiddleware.Handle)
	api.Get("/posts", cfg.Posts.ListPosts)
	api.Post("/posts", cfg.Posts.SchedulePost)
	api.Get("/posts/:id", cfg.Posts.GetPost)
}
