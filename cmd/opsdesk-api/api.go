// Package main provides the OpsDesk administrative API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dukex/opsdesk/pkg/persistence"
	"github.com/dukex/opsdesk/pkg/registry"
	"github.com/dukex/opsdesk/pkg/web"
	"github.com/dukex/opsdesk/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	enqueuer := workflow.NewEnqueuer(a.persistence, a.logger)
	handlers := web.NewAPIHandlers(a.persistence, enqueuer, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("OpsDesk API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Get("/:id/actions", handlers.GetWorkflowActions)
	w.Post("/:id/actions", handlers.CreateWorkflowAction)
	w.Delete("/:id/actions/:actionId", handlers.DeleteWorkflowAction)

	r := app.Group("/runs")
	r.Get("/", handlers.GetRuns)
	r.Get("/:id", handlers.GetRun)

	s := app.Group("/sla-targets")
	s.Get("/", handlers.GetSlaTargets)
	s.Post("/", handlers.CreateSlaTarget)
	s.Get("/:id", handlers.GetSlaTarget)
	s.Patch("/:id", handlers.UpdateSlaTarget)

	app.Get("/incidents", handlers.GetIncidents)
	app.Get("/registry/actions", handlers.GetActionFactories)
	app.Post("/triggers", handlers.EnqueueTrigger)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	a.logger.Info("Starting API server", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
