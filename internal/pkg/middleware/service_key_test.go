package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/hirebridge/hirebridge/internal/pkg/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuardedApp() *fiber.App {
	app := fiber.New()
	app.Get("/internal", ServiceKeyMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func requestWithKey(t *testing.T, app *fiber.App, key string) int {
	t.Helper()
	req := httptest.NewRequest("GET", "/internal", nil)
	if key != "" {
		req.Header.Set("X-Service-Key", key)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestServiceKeyMiddleware(t *testing.T) {
	env.Env = map[string]string{"SERVICE_API_KEY": "sk_test_123"}
	t.Cleanup(func() { env.Env = nil })

	app := newGuardedApp()

	assert.Equal(t, fiber.StatusOK, requestWithKey(t, app, "sk_test_123"))
	assert.Equal(t, fiber.StatusUnauthorized, requestWithKey(t, app, "sk_wrong"))
	assert.Equal(t, fiber.StatusUnauthorized, requestWithKey(t, app, ""))
}

func TestServiceKeyMiddlewareUnconfigured(t *testing.T) {
	env.Env = map[string]string{}
	t.Cleanup(func() { env.Env = nil })

	app := newGuardedApp()
	assert.Equal(t, fiber.StatusServiceUnavailable, requestWithKey(t, app, "sk_test_123"))
}
