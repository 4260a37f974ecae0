package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hirebridge/hirebridge/internal/pkg/env"
	"github.com/hirebridge/hirebridge/internal/pkg/middleware"
)

type HttpRouter struct {
	deps Deps
}

func NewHttpRouter(deps Deps) *HttpRouter {
	return &HttpRouter{deps: deps}
}

func (h *HttpRouter) InstallRouter(app *fiber.App) {
	// The webhook endpoint must see the raw request body; no body-mutating
	// middleware may sit in front of it.
	app.Post("/api/stripe-webhook", h.deps.Webhook.HandleStripeWebhook)
	if env.IsDev() {
		// Local-dev mirror; same controller instance, same logic.
		app.Post("/api/dev/stripe-webhook", h.deps.Webhook.HandleStripeWebhook)
	}

	app.Post("/api/send-email", middleware.ServiceKeyMiddleware(), h.deps.Email.HandleSendEmail)
}
