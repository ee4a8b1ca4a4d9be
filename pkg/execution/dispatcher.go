package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/relay/pkg/eventbus"
	"github.com/dukex/relay/pkg/events"
	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/persistence"
	"github.com/dukex/relay/pkg/registry"
)

const defaultWorkerCount = 10

// Dispatcher consumes the inbound event topic, matches events against the
// trigger index and starts executions for workflows whose conditions hold.
// Matching is fail-closed: an event that matches nothing is dropped with a
// debug log, never an error.
type Dispatcher struct {
	logger      *slog.Logger
	index       *registry.TriggerIndex
	executions  persistence.ExecutionRepository
	dedup       persistence.DedupStore
	coordinator *Coordinator
	bus         eventbus.EventBus

	sem chan struct{}
	wg  sync.WaitGroup
}

func NewDispatcher(
	logger *slog.Logger,
	index *registry.TriggerIndex,
	executions persistence.ExecutionRepository,
	dedup persistence.DedupStore,
	coordinator *Coordinator,
	bus eventbus.EventBus,
	workers int,
) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkerCount
	}

	return &Dispatcher{
		logger:      logger.With("module", "dispatcher"),
		index:       index,
		executions:  executions,
		dedup:       dedup,
		coordinator: coordinator,
		bus:         bus,
		sem:         make(chan struct{}, workers),
	}
}

// Start registers the inbound handler and begins consuming. Returns after
// the subscription is set up; events are handled on bus goroutines and
// executions run on the bounded worker pool.
func (d *Dispatcher) Start(ctx context.Context) error {
	err := d.bus.Handle(events.EventReceivedEvent, func(ctx context.Context, raw any) error {
		received, ok := raw.(*events.EventReceived)
		if !ok {
			return fmt.Errorf("unexpected event payload type %T", raw)
		}

		return d.dispatch(ctx, received.Event)
	})
	if err != nil {
		return fmt.Errorf("failed to register inbound handler: %w", err)
	}

	err = d.bus.Subscribe(ctx, events.InboundTopic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to inbound topic: %w", err)
	}

	d.logger.InfoContext(ctx, "Dispatcher started", "workers", cap(d.sem))

	return nil
}

// Wait blocks until in-flight executions drain. Call after the bus is
// closed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, event *models.Event) error {
	if event == nil {
		return nil
	}

	logger := d.logger.With(
		"event_id", event.ID,
		"tenant_id", event.TenantID,
		"trigger_type", event.TriggerType,
	)

	workflows := d.index.Match(event.TenantID, event.TriggerType)
	if len(workflows) == 0 {
		logger.DebugContext(ctx, "Event matched no workflows")

		return nil
	}

	// scheduler fires carry the target workflow; everything else fans out
	targetWorkflowID, _ := eventPayloadString(event, "workflow_id")

	for _, workflow := range workflows {
		if event.TriggerType.Scheduled() && targetWorkflowID != "" && workflow.ID != targetWorkflowID {
			continue
		}

		err := d.dispatchOne(ctx, workflow, event, logger)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to dispatch event to workflow",
				"workflow_id", workflow.ID,
				"error", err)
		}
	}

	return nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, workflow *models.Workflow, event *models.Event, logger *slog.Logger) error {
	logger = logger.With("workflow_id", workflow.ID)

	// Gates that start no execution come first; claims are consumed, so a
	// non-matching event must not burn the entity's single run.
	if workflow.Conditions != nil {
		matched, warnings := workflow.Conditions.Match(event.Payload)
		for _, warning := range warnings {
			logger.WarnContext(ctx, "Condition evaluation warning", "warning", warning)
		}

		if !matched {
			logger.DebugContext(ctx, "Event did not satisfy workflow conditions")

			return nil
		}
	}

	if workflow.MaxRuns > 0 {
		count, err := d.executions.CountByWorkflow(ctx, workflow.ID)
		if err != nil {
			return fmt.Errorf("failed to count executions: %w", err)
		}

		if count >= workflow.MaxRuns {
			logger.DebugContext(ctx, "Workflow reached its run cap, skipping", "max_runs", workflow.MaxRuns)

			return nil
		}
	}

	// redelivery dedup: the bus is at-least-once, the claim is exactly-once
	claimed, err := d.dedup.Claim(ctx, event.ID, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to claim event: %w", err)
	}

	if !claimed {
		logger.DebugContext(ctx, "Event already claimed for workflow, skipping")

		return nil
	}

	if !workflow.AllowMultipleRuns {
		if entityID := event.EntityID(); entityID != "" {
			ran, err := d.dedup.Claim(ctx, "entity:"+entityID, workflow.ID)
			if err != nil {
				return fmt.Errorf("failed to claim entity: %w", err)
			}

			if !ran {
				logger.DebugContext(ctx, "Workflow already ran for entity, skipping", "entity_id", entityID)

				return nil
			}
		}
	}

	execution, err := d.coordinator.StartExecution(ctx, workflow, event)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Execution started", "execution_id", execution.ID)

	d.wg.Add(1)
	d.sem <- struct{}{}

	go func() {
		defer d.wg.Done()
		defer func() { <-d.sem }()

		d.coordinator.Run(ctx, execution)
	}()

	return nil
}

func eventPayloadString(event *models.Event, key string) (string, bool) {
	if event.Payload == nil {
		return "", false
	}

	value, ok := event.Payload[key].(string)

	return value, ok
}
