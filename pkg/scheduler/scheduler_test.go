package scheduler

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/relay/pkg/eventbus"
	"github.com/dukex/relay/pkg/events"
	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/persistence/file"
)

type capturingPublisher struct {
	mu        sync.Mutex
	published []eventbus.Event
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.published = append(p.published, event)

	return nil
}

func (p *capturingPublisher) events() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]eventbus.Event{}, p.published...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func scheduledWorkflow(id string, triggerType models.TriggerType, config map[string]any) *models.Workflow {
	return &models.Workflow{
		ID:            id,
		TenantID:      "tenant-1",
		Name:          "Weekly digest",
		Status:        models.WorkflowStatusActive,
		TriggerType:   triggerType,
		TriggerConfig: config,
		IsActive:      true,
	}
}

func TestScheduleFor_Recurring(t *testing.T) {
	workflow := scheduledWorkflow("wf-1", models.TriggerRecurring, map[string]any{"cron": "0 9 * * 1"})

	schedule, err := ScheduleFor(workflow)
	require.NoError(t, err)
	assert.True(t, schedule.Recurring())
	assert.Equal(t, "wf-1", schedule.WorkflowID)
}

func TestScheduleFor_OneShot(t *testing.T) {
	fireAt := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	workflow := scheduledWorkflow("wf-1", models.TriggerTimeBased, map[string]any{"fire_at": fireAt})

	schedule, err := ScheduleFor(workflow)
	require.NoError(t, err)
	assert.False(t, schedule.Recurring())
}

func TestScheduleFor_MalformedFireAt(t *testing.T) {
	workflow := scheduledWorkflow("wf-1", models.TriggerTimeBased, map[string]any{"fire_at": "tomorrow"})

	_, err := ScheduleFor(workflow)
	assert.Error(t, err)
}

func TestScheduler_Sync_RemovesWhenPaused(t *testing.T) {
	ctx := context.Background()
	repo := file.NewPersistence(t.TempDir()).ScheduleRepository()
	s := NewScheduler(testLogger(), repo, &capturingPublisher{}, time.Second)

	workflow := scheduledWorkflow("wf-1", models.TriggerRecurring, map[string]any{"cron": "0 9 * * 1"})
	require.NoError(t, s.Sync(ctx, workflow))

	_, err := repo.GetByWorkflowID(ctx, "wf-1")
	require.NoError(t, err)

	workflow.IsActive = false
	require.NoError(t, s.Sync(ctx, workflow))

	_, err = repo.GetByWorkflowID(ctx, "wf-1")
	assert.Error(t, err)
}

func TestScheduler_Sync_KeepsFiredOneShotInactive(t *testing.T) {
	ctx := context.Background()
	repo := file.NewPersistence(t.TempDir()).ScheduleRepository()
	s := NewScheduler(testLogger(), repo, &capturingPublisher{}, time.Second)

	fireAt := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	workflow := scheduledWorkflow("wf-1", models.TriggerTimeBased, map[string]any{
		"fire_at": fireAt.Format(time.RFC3339),
	})
	require.NoError(t, s.Sync(ctx, workflow))

	schedule, err := repo.GetByWorkflowID(ctx, "wf-1")
	require.NoError(t, err)
	require.NoError(t, schedule.Advance())
	require.False(t, schedule.Active)
	require.NoError(t, repo.Save(ctx, schedule))

	// a restart or toggle syncs the same workflow again
	require.NoError(t, s.Sync(ctx, workflow))

	loaded, err := repo.GetByWorkflowID(ctx, "wf-1")
	require.NoError(t, err)
	assert.False(t, loaded.Active)

	due, err := repo.Due(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, due)

	// moving fire_at to a new slot re-arms the schedule
	workflow.TriggerConfig["fire_at"] = time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	require.NoError(t, s.Sync(ctx, workflow))

	loaded, err = repo.GetByWorkflowID(ctx, "wf-1")
	require.NoError(t, err)
	assert.True(t, loaded.Active)
}

func TestScheduler_FiresDueSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := file.NewPersistence(t.TempDir()).ScheduleRepository()
	publisher := &capturingPublisher{}
	s := NewScheduler(testLogger(), repo, publisher, 20*time.Millisecond)

	past := time.Now().UTC().Add(-time.Second)
	schedule, err := models.NewSchedule("sch-1", "wf-1", "tenant-1", "", &past)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, schedule))

	s.Start(ctx)

	require.Eventually(t, func() bool {
		return len(publisher.events()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()

	received, ok := publisher.events()[0].(events.EventReceived)
	require.True(t, ok)
	assert.Equal(t, models.TriggerTimeBased, received.Event.TriggerType)
	assert.Equal(t, "tenant-1", received.Event.TenantID)
	assert.Equal(t, "wf-1", received.Event.Payload["workflow_id"])

	// one-shot schedules deactivate after firing and never fire again
	loaded, err := repo.GetByWorkflowID(ctx, "wf-1")
	require.NoError(t, err)
	assert.False(t, loaded.Active)
}

func TestScheduler_RecurringAdvancesWithoutBackfill(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := file.NewPersistence(t.TempDir()).ScheduleRepository()
	publisher := &capturingPublisher{}
	s := NewScheduler(testLogger(), repo, publisher, 20*time.Millisecond)

	// due time far in the past, as after a long outage
	schedule, err := models.NewSchedule("sch-1", "wf-1", "tenant-1", "*/5 * * * *", nil)
	require.NoError(t, err)
	schedule.NextDueAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Save(ctx, schedule))

	s.Start(ctx)

	require.Eventually(t, func() bool {
		return len(publisher.events()) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()

	// a single catch-up fire, not one per missed slot
	assert.Len(t, publisher.events(), 1)

	loaded, err := repo.GetByWorkflowID(ctx, "wf-1")
	require.NoError(t, err)
	assert.True(t, loaded.Active)
	assert.True(t, loaded.NextDueAt.After(time.Now().UTC().Add(-time.Minute)))
}
