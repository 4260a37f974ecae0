package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hirebridge/hirebridge/app/controllers"
	"github.com/hirebridge/hirebridge/app/repository"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps carries the collaborators constructed once at process start.
// Controllers receive them explicitly instead of reaching for globals.
type Deps struct {
	Webhook *controllers.WebhookController
	Email   *controllers.EmailController
	Repos   *repository.Repositories
}

func InstallRouter(app *fiber.App, deps Deps) {
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
