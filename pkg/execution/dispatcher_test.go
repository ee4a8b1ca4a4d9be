package execution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/relay/pkg/eventbus"
	"github.com/dukex/relay/pkg/events"
	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/persistence"
	"github.com/dukex/relay/pkg/persistence/file"
	"github.com/dukex/relay/pkg/registry"
)

type stubBus struct {
	nullPublisher

	handlers map[events.EventType]eventbus.EventHandler
}

func newStubBus() *stubBus {
	return &stubBus{handlers: make(map[events.EventType]eventbus.EventHandler)}
}

func (b *stubBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	b.handlers[eventType] = handler

	return nil
}

func (b *stubBus) Subscribe(_ context.Context, _ string) error { return nil }
func (b *stubBus) Close() error                                { return nil }
func (b *stubBus) GenerateID() string                          { return "id" }

type dispatcherHarness struct {
	dispatcher *Dispatcher
	index      *registry.TriggerIndex
	executions persistence.ExecutionRepository
}

func newDispatcherHarness(t *testing.T) *dispatcherHarness {
	t.Helper()

	reg := registry.NewRegistry(testLogger())
	reg.RegisterAction(&scriptedFactory{id: "noop", fn: func(_ context.Context, _ models.ExecutionContext) (any, error) {
		return nil, nil
	}})

	executions := file.NewPersistence(t.TempDir()).ExecutionRepository()
	coordinator := NewCoordinator(testLogger(), reg, executions, &nullPublisher{}, NewTimers(), time.Hour, nil)
	index := registry.NewTriggerIndex()

	dispatcher := NewDispatcher(testLogger(), index, executions, persistence.NewMemoryDedupStore(), coordinator, newStubBus(), 4)

	return &dispatcherHarness{
		dispatcher: dispatcher,
		index:      index,
		executions: executions,
	}
}

func noopWorkflow(id string) *models.Workflow {
	return &models.Workflow{
		ID:          id,
		TenantID:    "tenant-1",
		Name:        "Dispatch target",
		Status:      models.WorkflowStatusActive,
		TriggerType: models.TriggerContactCreated,
		IsActive:    true,
		Actions: []*models.ActionDefinition{
			{ID: "act-1", Order: 1, Type: "noop", OnFailure: models.OnFailureHalt},
		},
	}
}

func event(id, entityID string) *models.Event {
	payload := map[string]any{}
	if entityID != "" {
		payload["entity_id"] = entityID
	}

	return &models.Event{
		ID:          id,
		TenantID:    "tenant-1",
		TriggerType: models.TriggerContactCreated,
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}
}

func executionCount(t *testing.T, repo persistence.ExecutionRepository, workflowID string) int64 {
	t.Helper()

	count, err := repo.CountByWorkflow(context.Background(), workflowID)
	require.NoError(t, err)

	return count
}

func TestDispatcher_StartsExecutionForMatch(t *testing.T) {
	h := newDispatcherHarness(t)
	ctx := context.Background()

	h.index.Register(noopWorkflow("wf-1"))

	require.NoError(t, h.dispatcher.dispatch(ctx, event("evt-1", "")))
	h.dispatcher.Wait()

	assert.Equal(t, int64(1), executionCount(t, h.executions, "wf-1"))
}

func TestDispatcher_RedeliveredEventRunsOnce(t *testing.T) {
	h := newDispatcherHarness(t)
	ctx := context.Background()

	workflow := noopWorkflow("wf-1")
	workflow.AllowMultipleRuns = true
	h.index.Register(workflow)

	require.NoError(t, h.dispatcher.dispatch(ctx, event("evt-1", "")))
	require.NoError(t, h.dispatcher.dispatch(ctx, event("evt-1", "")))
	h.dispatcher.Wait()

	assert.Equal(t, int64(1), executionCount(t, h.executions, "wf-1"))
}

func TestDispatcher_SingleRunPerEntity(t *testing.T) {
	h := newDispatcherHarness(t)
	ctx := context.Background()

	h.index.Register(noopWorkflow("wf-1"))

	// two distinct events about the same contact
	require.NoError(t, h.dispatcher.dispatch(ctx, event("evt-1", "contact-7")))
	require.NoError(t, h.dispatcher.dispatch(ctx, event("evt-2", "contact-7")))
	require.NoError(t, h.dispatcher.dispatch(ctx, event("evt-3", "contact-8")))
	h.dispatcher.Wait()

	assert.Equal(t, int64(2), executionCount(t, h.executions, "wf-1"))
}

func TestDispatcher_AllowMultipleRunsPerEntity(t *testing.T) {
	h := newDispatcherHarness(t)
	ctx := context.Background()

	workflow := noopWorkflow("wf-1")
	workflow.AllowMultipleRuns = true
	h.index.Register(workflow)

	require.NoError(t, h.dispatcher.dispatch(ctx, event("evt-1", "contact-7")))
	require.NoError(t, h.dispatcher.dispatch(ctx, event("evt-2", "contact-7")))
	h.dispatcher.Wait()

	assert.Equal(t, int64(2), executionCount(t, h.executions, "wf-1"))
}

func TestDispatcher_MaxRunsCap(t *testing.T) {
	h := newDispatcherHarness(t)
	ctx := context.Background()

	workflow := noopWorkflow("wf-1")
	workflow.AllowMultipleRuns = true
	workflow.MaxRuns = 2
	h.index.Register(workflow)

	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		require.NoError(t, h.dispatcher.dispatch(ctx, event(id, "")))
		h.dispatcher.Wait()
	}

	assert.Equal(t, int64(2), executionCount(t, h.executions, "wf-1"))
}

func TestDispatcher_ConditionGate(t *testing.T) {
	h := newDispatcherHarness(t)
	ctx := context.Background()

	workflow := noopWorkflow("wf-1")
	workflow.Conditions = &models.Condition{
		Op:    models.OpEquals,
		Field: "contact.source",
		Value: "webinar",
	}
	h.index.Register(workflow)

	miss := event("evt-1", "")
	miss.Payload["contact"] = map[string]any{"source": "import"}

	hit := event("evt-2", "")
	hit.Payload["contact"] = map[string]any{"source": "webinar"}

	require.NoError(t, h.dispatcher.dispatch(ctx, miss))
	require.NoError(t, h.dispatcher.dispatch(ctx, hit))
	h.dispatcher.Wait()

	assert.Equal(t, int64(1), executionCount(t, h.executions, "wf-1"))
}

func TestDispatcher_NonMatchingEventKeepsEntityRun(t *testing.T) {
	h := newDispatcherHarness(t)
	ctx := context.Background()

	workflow := noopWorkflow("wf-1")
	workflow.Conditions = &models.Condition{
		Op:    models.OpEquals,
		Field: "status",
		Value: "hot",
	}
	h.index.Register(workflow)

	// the cold event must not consume contact-9's single run
	cold := event("evt-1", "contact-9")
	cold.Payload["status"] = "cold"

	hot := event("evt-2", "contact-9")
	hot.Payload["status"] = "hot"

	require.NoError(t, h.dispatcher.dispatch(ctx, cold))
	require.NoError(t, h.dispatcher.dispatch(ctx, hot))
	h.dispatcher.Wait()

	assert.Equal(t, int64(1), executionCount(t, h.executions, "wf-1"))
}

func TestDispatcher_NoMatchIsNotAnError(t *testing.T) {
	h := newDispatcherHarness(t)

	err := h.dispatcher.dispatch(context.Background(), event("evt-1", ""))
	assert.NoError(t, err)
}

func TestDispatcher_ScheduledEventTargetsOneWorkflow(t *testing.T) {
	h := newDispatcherHarness(t)
	ctx := context.Background()

	first := noopWorkflow("wf-1")
	first.TriggerType = models.TriggerRecurring
	first.AllowMultipleRuns = true

	second := noopWorkflow("wf-2")
	second.TriggerType = models.TriggerRecurring
	second.AllowMultipleRuns = true

	h.index.Register(first)
	h.index.Register(second)

	fire := &models.Event{
		ID:          "evt-1",
		TenantID:    "tenant-1",
		TriggerType: models.TriggerRecurring,
		OccurredAt:  time.Now().UTC(),
		Payload:     map[string]any{"workflow_id": "wf-2"},
	}

	require.NoError(t, h.dispatcher.dispatch(ctx, fire))
	h.dispatcher.Wait()

	assert.Equal(t, int64(0), executionCount(t, h.executions, "wf-1"))
	assert.Equal(t, int64(1), executionCount(t, h.executions, "wf-2"))
}
