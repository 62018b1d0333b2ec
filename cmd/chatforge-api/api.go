// Package main provides the ChatForge API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/chatforge/chatforge/pkg/eventbus"
	"github.com/chatforge/chatforge/pkg/persistence"
	"github.com/chatforge/chatforge/pkg/registry"
	"github.com/chatforge/chatforge/pkg/services"
	"github.com/chatforge/chatforge/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		persistence: persistence,
		logger:      logger,
		registry:    registry.New(),
		eventBus:    eventBus,
		validate:    web.NewValidator(),
	}
}

func (a *API) App() *fiber.App {
	flowService := services.NewFlow(a.persistence, a.eventBus)
	nodeService := services.NewNode(a.persistence, a.registry, a.eventBus)
	transitionService := services.NewTransition(a.persistence, a.eventBus)

	handlers := web.NewAPIHandlers(flowService, nodeService, transitionService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("ChatForge API")
	})

	app.Get("/node-types", handlers.GetNodeTypes)

	f := app.Group("/flows")
	f.Get("/", handlers.GetFlows)
	f.Post("/", handlers.CreateFlow)
	f.Get("/:id", handlers.GetFlow)
	f.Patch("/:id", handlers.UpdateFlow)
	f.Delete("/:id", handlers.DeleteFlow)

	// Node endpoints:
	f.Post("/:id/nodes", handlers.CreateNode)
	f.Get("/:id/nodes/:nodeId", handlers.GetNode)
	f.Patch("/:id/nodes/:nodeId", handlers.UpdateNode)
	f.Delete("/:id/nodes/:nodeId", handlers.DeleteNode)

	// Transition endpoints:
	f.Post("/:id/transitions", handlers.CreateTransition)
	f.Patch("/:id/transitions/:transitionId", handlers.UpdateTransition)
	f.Delete("/:id/transitions/:transitionId", handlers.DeleteTransition)
	f.Get("/:id/transitions/:transitionId/path", handlers.GetTransitionPath)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
