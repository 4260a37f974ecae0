package router

import (
	apiv1 "github.com/hirebridge/hirebridge/internal/api/v1"
	"github.com/hirebridge/hirebridge/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
	deps Deps
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api/v1", limiter.New())

	apiServer := apiv1.NewAPIServer(h.deps.Repos)
	api.Get("/ping", apiServer.GetPing)
	api.Get("/webhook/event-types", apiServer.GetWebhookEventTypes)

	protected := api.Group("/users", middleware.ServiceKeyMiddleware())
	protected.Get("/:id/billing-status", apiServer.GetUserBillingStatus)
	protected.Get("/:id/payments", apiServer.GetUserPayments)
}
