package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/relay/pkg/eventbus"
	"github.com/dukex/relay/pkg/execution"
	"github.com/dukex/relay/pkg/persistence"
	"github.com/dukex/relay/pkg/registry"
	"github.com/dukex/relay/pkg/scheduler"
)

// EngineConfig carries the wiring for a full engine process.
type EngineConfig struct {
	ID               string
	Logger           *slog.Logger
	Registry         *registry.Registry
	Persistence      persistence.Persistence
	Dedup            persistence.DedupStore
	EventBus         eventbus.EventBus
	Tracer           trace.Tracer
	ExecutionTimeout time.Duration
	Workers          int
	PollInterval     time.Duration
}

// Engine runs the dispatcher, the execution workers, the scheduler and the
// crash resumer in one process.
type Engine struct {
	cfg EngineConfig

	index       *registry.TriggerIndex
	timers      *execution.Timers
	coordinator *execution.Coordinator
	dispatcher  *execution.Dispatcher
	resumer     *execution.Resumer
	scheduler   *scheduler.Scheduler
}

func NewEngine(cfg EngineConfig) *Engine {
	index := registry.NewTriggerIndex()
	timers := execution.NewTimers()

	coordinator := execution.NewCoordinator(
		cfg.Logger,
		cfg.Registry,
		cfg.Persistence.ExecutionRepository(),
		cfg.EventBus,
		timers,
		cfg.ExecutionTimeout,
		cfg.Tracer,
	)

	dispatcher := execution.NewDispatcher(
		cfg.Logger,
		index,
		cfg.Persistence.ExecutionRepository(),
		cfg.Dedup,
		coordinator,
		cfg.EventBus,
		cfg.Workers,
	)

	resumer := execution.NewResumer(
		cfg.Logger,
		cfg.Persistence.ExecutionRepository(),
		coordinator,
		cfg.EventBus,
	)

	sched := scheduler.NewScheduler(
		cfg.Logger,
		cfg.Persistence.ScheduleRepository(),
		cfg.EventBus,
		cfg.PollInterval,
	)

	return &Engine{
		cfg:         cfg,
		index:       index,
		timers:      timers,
		coordinator: coordinator,
		dispatcher:  dispatcher,
		resumer:     resumer,
		scheduler:   sched,
	}
}

// Coordinator exposes the execution coordinator for in-process API wiring.
func (e *Engine) Coordinator() *execution.Coordinator {
	return e.coordinator
}

// Index exposes the live trigger index for in-process API wiring.
func (e *Engine) Index() *registry.TriggerIndex {
	return e.index
}

// Scheduler exposes the scheduler for in-process API wiring.
func (e *Engine) Scheduler() *scheduler.Scheduler {
	return e.scheduler
}

// Run starts every component, blocks until SIGINT/SIGTERM or context
// cancellation, then shuts down in dependency order.
func (e *Engine) Run(ctx context.Context) error {
	logger := e.cfg.Logger

	if err := e.loadWorkflows(ctx); err != nil {
		return err
	}

	if err := e.dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	if err := e.resumer.Resume(ctx); err != nil {
		return fmt.Errorf("failed to resume executions: %w", err)
	}

	e.scheduler.Start(ctx)

	logger.InfoContext(ctx, "Engine started",
		"registered_workflows", e.index.Len(),
		"action_types", e.cfg.Registry.ActionTypes())

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signals:
		logger.InfoContext(ctx, "Received signal, shutting down", "signal", sig)
	case <-ctx.Done():
		logger.InfoContext(ctx, "Context cancelled, shutting down")
	}

	e.scheduler.Stop()
	e.coordinator.Shutdown()
	e.dispatcher.Wait()

	logger.InfoContext(ctx, "Engine stopped")

	return nil
}

// loadWorkflows seeds the trigger index and the schedule table from
// storage, so the engine resumes routing where the previous process left
// off.
func (e *Engine) loadWorkflows(ctx context.Context) error {
	workflows, err := e.cfg.Persistence.WorkflowRepository().ListRunnable(ctx)
	if err != nil {
		return fmt.Errorf("failed to load runnable workflows: %w", err)
	}

	for _, workflow := range workflows {
		e.index.Register(workflow)

		if workflow.TriggerType.Scheduled() {
			if err := e.scheduler.Sync(ctx, workflow); err != nil {
				e.cfg.Logger.ErrorContext(ctx, "Failed to sync schedule",
					"workflow_id", workflow.ID,
					"error", err)
			}
		}
	}

	return nil
}
