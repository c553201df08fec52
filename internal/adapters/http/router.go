package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/trajprep/internal/pkg/metrics"
)

// RouterConfig tunes the middleware stack. Zero values select defaults.
type RouterConfig struct {
	RequestsPerMinute int
	RequestTimeout    time.Duration
	OpenAPIPath       string
}

func (rc RouterConfig) withDefaults() RouterConfig {
	if rc.RequestsPerMinute <= 0 {
		rc.RequestsPerMinute = 120
	}
	if rc.RequestTimeout <= 0 {
		rc.RequestTimeout = 15 * time.Second
	}
	return rc
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, rcs ...RouterConfig) {
	var rc RouterConfig
	if len(rcs) > 0 {
		rc = rcs[0]
	}
	rc = rc.withDefaults()

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID, then a request-scoped logger carrying it
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting per IP
	app.Use(limiter.New(limiter.Config{
		Max:        rc.RequestsPerMinute,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, rc.RequestTimeout)
	}

	v1 := app.Group("/v1")

	// Stateless geospatial helpers
	geo := v1.Group("/geo")
	geo.Post("/distance", withTimeout(DistanceHandler(deps)))
	geo.Post("/timedelta", withTimeout(TimeDeltaHandler(deps)))
	geo.Post("/speed", withTimeout(SpeedHandler(deps)))
	geo.Post("/speeds", withTimeout(SpeedsHandler(deps)))
	geo.Post("/centroid", withTimeout(CentroidHandler(deps)))
	geo.Post("/map", withTimeout(MapHandler(deps)))
	geo.Post("/map.png", withTimeout(MapPNGHandler(deps)))

	// Stored trajectories
	v1.Post("/trajectories", withTimeout(CreateTrajectoryHandler(deps)))
	v1.Get("/trajectories", withTimeout(ListTrajectoriesHandler(deps)))
	v1.Get("/trajectories/:id", withTimeout(GetTrajectoryHandler(deps)))
	v1.Get("/trajectories/:id/speeds", withTimeout(TrajectorySpeedsHandler(deps)))
	v1.Get("/trajectories/:id/centroid", withTimeout(TrajectoryCentroidHandler(deps)))
	v1.Get("/trajectories/:id/map", withTimeout(TrajectoryMapHandler(deps)))

	// GraphQL
	app.Post("/graphql", withTimeout(GraphQLHandler(deps)))

	// API documentation (Swagger UI)
	SetupDocs(app, rc.OpenAPIPath)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
