package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/trajprep/internal/pkg/logging"
)

// RequestIDLogMiddleware stores a request-scoped logger carrying the Fiber
// request ID in the user context. Services retrieve it with
// logging.FromContext.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, _ := c.Locals("requestid").(string)
		if rid == "" {
			return c.Next()
		}

		l := logging.FromContext(c.UserContext()).With("request_id", rid)
		c.SetUserContext(logging.NewContext(c.UserContext(), l))
		return c.Next()
	}
}
