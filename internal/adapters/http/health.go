package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trajprep/internal/adapters/valkey"
)

// Version is reported by the liveness endpoint. Set at build time with
// -ldflags "-X github.com/samirrijal/trajprep/internal/adapters/http.Version=...".
var Version = "dev"

const readyTimeout = 3 * time.Second

var errNotConfigured = errors.New("not configured")

// depCheck is one dependency checked by the readiness endpoint. An optional
// check reports its state without failing readiness.
type depCheck struct {
	name     string
	optional bool
	check    func(ctx context.Context) error
}

// Readiness is the body of GET /v1/ready.
type Readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": Version,
		})
	}
}

// ReadyHandler reports whether the trajectory store is reachable. The broker
// and cache are reported but only degrade the service.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	checks := []depCheck{
		{name: "database", check: func(ctx context.Context) error {
			if deps.DB == nil {
				return errNotConfigured
			}
			return deps.DB.Ping(ctx)
		}},
		{name: "nats", optional: true, check: func(ctx context.Context) error {
			if deps.NATS == nil {
				return errNotConfigured
			}
			if !deps.NATS.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		}},
		{name: "cache", optional: true, check: func(ctx context.Context) error {
			if deps.Cache == nil {
				return errNotConfigured
			}
			if err := deps.Cache.Ping(ctx); err != nil && !valkey.IsMiss(err) {
				return err
			}
			return nil
		}},
	}

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		res := Readiness{Status: "ready", Checks: make(map[string]string, len(checks))}
		for _, p := range checks {
			err := p.check(ctx)
			switch {
			case err == nil:
				res.Checks[p.name] = "ok"
			case errors.Is(err, errNotConfigured):
				res.Checks[p.name] = err.Error()
			default:
				res.Checks[p.name] = "error: " + err.Error()
			}
			if err != nil && !p.optional {
				res.Status = "not ready"
			}
		}

		code := fiber.StatusOK
		if res.Status != "ready" {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(res)
	}
}
