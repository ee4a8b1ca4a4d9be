package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/relay/pkg/cmd"
	"github.com/dukex/relay/pkg/eventbus"
	"github.com/dukex/relay/pkg/log"
	"github.com/dukex/relay/pkg/persistence"
	"github.com/dukex/relay/pkg/registry"
	"github.com/dukex/relay/pkg/scheduler"
	"github.com/dukex/relay/pkg/services"
	"github.com/dukex/relay/pkg/web"
)

const defaultAPIPort = 9091

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	canceller   services.Canceller
	index       *registry.TriggerIndex
	scheduler   *scheduler.Scheduler
	validate    *validator.Validate
}

// NewAPI builds the API server. canceller and index are nil when the API
// runs without an embedded engine; cancellation then reports unavailable
// and workflow transitions only touch storage.
func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	canceller services.Canceller,
	index *registry.TriggerIndex,
	sched *scheduler.Scheduler,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    reg,
		eventBus:    eventBus,
		canceller:   canceller,
		index:       index,
		scheduler:   sched,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	workflowService := services.NewWorkflow(a.logger, a.persistence, a.registry, a.index, a.scheduler)
	executionService := services.NewExecution(a.persistence, a.canceller)

	handlers := web.NewAPIHandlers(workflowService, executionService, a.eventBus, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Relay API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/toggle", handlers.ToggleWorkflow)
	w.Post("/:id/test", handlers.TestWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	e := app.Group("/executions")
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/cancel", handlers.CancelExecution)

	app.Post("/events", handlers.IngestEvent)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}

func apiCommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Start the workflow management API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultAPIPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("relay-api")

			logger.InfoContext(ctx, "Initializing Relay API")

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			api := NewAPI(logger, store, cmd.NewRegistry(logger), eventBus, nil, nil, nil)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "API server stopped", "error", err)
			}

			return nil
		},
	}
}
