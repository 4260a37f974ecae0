package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/hirebridge/hirebridge/internal/pkg/env"
)

// ServiceKeyMiddleware guards internal endpoints (send-email, billing
// status readback) with a shared service key. The SPA backend and the
// email workers carry the key; the public internet does not.
func ServiceKeyMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := strings.TrimSpace(env.GetEnv("SERVICE_API_KEY", ""))
		if expected == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service_key_not_configured"})
		}

		got := strings.TrimSpace(c.Get("X-Service-Key"))
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}

		return c.Next()
	}
}
