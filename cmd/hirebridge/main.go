package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/hirebridge/hirebridge/app/controllers"
	"github.com/hirebridge/hirebridge/app/repository"
	"github.com/hirebridge/hirebridge/internal/pkg/billing"
	"github.com/hirebridge/hirebridge/internal/pkg/cache"
	"github.com/hirebridge/hirebridge/internal/pkg/database"
	"github.com/hirebridge/hirebridge/internal/pkg/env"
	"github.com/hirebridge/hirebridge/internal/pkg/mail"
	"github.com/hirebridge/hirebridge/internal/pkg/metrics/counter"
	"github.com/hirebridge/hirebridge/internal/pkg/router"
)

const counterFlushInterval = time.Minute

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Clients are constructed once here and injected; handlers never
	// build their own.
	provider := billing.NewStripeClientFromEnv()
	mailer := mail.NewSMTPMailer()
	svc := billing.NewServiceFromDB(
		database.GetDB(),
		provider,
		mailer,
		env.GetEnv("ADMIN_NOTIFY_EMAIL", ""),
	)
	repos := repository.NewFactory(database.GetDB()).GetRepositories()

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // webhook payloads are small
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	router.InstallRouter(app, router.Deps{
		Webhook: controllers.NewWebhookController(svc, env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		Email:   controllers.NewEmailController(mailer),
		Repos:   repos,
	})

	go flushCountersLoop()

	return app
}

// flushCountersLoop periodically drains the redis-buffered webhook
// counters into the stats table.
func flushCountersLoop() {
	ticker := time.NewTicker(counterFlushInterval)
	defer ticker.Stop()
	for range ticker.C {
		if err := counter.FlushAll(); err != nil {
			log.Printf("webhook counter flush failed: %v", err)
		}
	}
}
