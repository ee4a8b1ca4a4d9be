package main

import (
	"context"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/relay/pkg/cmd"
	"github.com/dukex/relay/pkg/log"
	"github.com/dukex/relay/pkg/otelhelper"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start the engine: dispatcher, workers, scheduler and resumer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "engine-id",
				Aliases: []string{"id"},
				Usage:   "Custom engine ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("ENGINE_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the event dedup store (in-memory if empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "execution-timeout",
				Usage:   "Wall-clock limit for a single execution",
				Value:   0,
				Sources: cli.EnvVars("EXECUTION_TIMEOUT"),
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Number of concurrent execution workers",
				Value:   0,
				Sources: cli.EnvVars("WORKERS"),
			},
			&cli.DurationFlag{
				Name:    "schedule-poll-interval",
				Usage:   "How often the scheduler checks for due schedules",
				Value:   0,
				Sources: cli.EnvVars("SCHEDULE_POLL_INTERVAL"),
			},
			&cli.IntFlag{
				Name:    "api-port",
				Usage:   "Serve the management API from this process (0 disables)",
				Value:   0,
				Sources: cli.EnvVars("API_PORT"),
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

			engineID := command.String("engine-id")
			if engineID == "" {
				engineID = "engine-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("relay-engine").With("engine_id", engineID)

			logger.InfoContext(ctx, "Initializing Relay engine")

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			dedup := cmd.NewDedupStore(command.String("redis-url"))
			defer func() {
				err := dedup.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close dedup store", "error", err)
				}
			}()

			tracer := otelhelper.TracerFromEnv(ctx, "relay")

			registry := cmd.NewRegistry(logger)

			engine := NewEngine(EngineConfig{
				ID:               engineID,
				Logger:           logger,
				Registry:         registry,
				Persistence:      persistence,
				Dedup:            dedup,
				EventBus:         eventBus,
				Tracer:           tracer,
				ExecutionTimeout: command.Duration("execution-timeout"),
				Workers:          command.Int("workers"),
				PollInterval:     command.Duration("schedule-poll-interval"),
			})

			if port := command.Int("api-port"); port > 0 {
				api := NewAPI(logger, persistence, registry, eventBus,
					engine.Coordinator(), engine.Index(), engine.Scheduler())

				go func() {
					if err := api.Start(port); err != nil {
						logger.ErrorContext(ctx, "API server stopped", "error", err)
					}
				}()
			}

			return engine.Run(ctx)
		},
	}
}
