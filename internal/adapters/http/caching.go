package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// cacheRule maps a path to a Cache-Control value. Rules are matched in order;
// a rule with prefix set matches any path starting with path.
type cacheRule struct {
	path    string
	prefix  bool
	control string
}

var cacheRules = []cacheRule{
	{path: "/v1/health", control: "public, max-age=10"},
	{path: "/v1/ready", control: "public, max-age=10"},
	{path: "/metrics", control: "no-cache"},
	// New trajectories can appear on every ingest.
	{path: "/v1/trajectories", control: "private, max-age=0"},
	// Stored trajectories never change once written.
	{path: "/v1/trajectories/", prefix: true, control: "public, max-age=3600"},
	{path: "/docs", prefix: true, control: "public, max-age=86400"},
	{path: "/v1/", prefix: true, control: "public, max-age=300"},
}

// CachingMiddleware sets Cache-Control on GET responses that don't already
// carry one. Error responses are never cached.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || c.GetRespHeader(fiber.HeaderCacheControl) != "" {
			return err
		}
		if c.Response().StatusCode() >= fiber.StatusBadRequest {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}
		if control := cacheControlFor(c.Path()); control != "" {
			c.Set(fiber.HeaderCacheControl, control)
		}
		return err
	}
}

func cacheControlFor(path string) string {
	for _, r := range cacheRules {
		if path == r.path || (r.prefix && strings.HasPrefix(path, r.path)) {
			return r.control
		}
	}
	return ""
}
