package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/relay/pkg/models"
)

func indexedWorkflow(id, tenantID string, triggerType models.TriggerType) *models.Workflow {
	return &models.Workflow{
		ID:          id,
		TenantID:    tenantID,
		Name:        "Workflow " + id,
		Status:      models.WorkflowStatusActive,
		TriggerType: triggerType,
		IsActive:    true,
	}
}

func TestTriggerIndex_MatchIsTenantScoped(t *testing.T) {
	index := NewTriggerIndex()

	index.Register(indexedWorkflow("wf-1", "tenant-a", models.TriggerContactCreated))
	index.Register(indexedWorkflow("wf-2", "tenant-a", models.TriggerContactCreated))
	index.Register(indexedWorkflow("wf-3", "tenant-b", models.TriggerContactCreated))
	index.Register(indexedWorkflow("wf-4", "tenant-a", models.TriggerDealWon))

	matches := index.Match("tenant-a", models.TriggerContactCreated)
	require.Len(t, matches, 2)

	ids := []string{matches[0].ID, matches[1].ID}
	assert.ElementsMatch(t, []string{"wf-1", "wf-2"}, ids)

	assert.Len(t, index.Match("tenant-b", models.TriggerContactCreated), 1)
	assert.Len(t, index.Match("tenant-a", models.TriggerDealWon), 1)
}

func TestTriggerIndex_NoMatchIsEmptySlice(t *testing.T) {
	index := NewTriggerIndex()

	matches := index.Match("tenant-x", models.TriggerFormSubmitted)

	require.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestTriggerIndex_Unregister(t *testing.T) {
	index := NewTriggerIndex()

	index.Register(indexedWorkflow("wf-1", "tenant-a", models.TriggerContactCreated))
	require.Equal(t, 1, index.Len())

	index.Unregister("wf-1")
	assert.Empty(t, index.Match("tenant-a", models.TriggerContactCreated))
	assert.Equal(t, 0, index.Len())

	// Unknown IDs are a no-op.
	index.Unregister("wf-404")
}

func TestTriggerIndex_ReRegisterMovesWorkflow(t *testing.T) {
	index := NewTriggerIndex()

	index.Register(indexedWorkflow("wf-1", "tenant-a", models.TriggerContactCreated))
	index.Register(indexedWorkflow("wf-1", "tenant-a", models.TriggerDealWon))

	assert.Empty(t, index.Match("tenant-a", models.TriggerContactCreated))
	assert.Len(t, index.Match("tenant-a", models.TriggerDealWon), 1)
	assert.Equal(t, 1, index.Len())
}

func TestTriggerIndex_ConcurrentReadersAndWriters(t *testing.T) {
	index := NewTriggerIndex()

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(2)

		go func(n int) {
			defer wg.Done()

			id := fmt.Sprintf("wf-%d", n)
			index.Register(indexedWorkflow(id, "tenant-a", models.TriggerContactCreated))

			if n%2 == 0 {
				index.Unregister(id)
			}
		}(i)

		go func() {
			defer wg.Done()

			// Readers must never observe a half-updated index; the race
			// detector turns any violation into a failure.
			index.Match("tenant-a", models.TriggerContactCreated)
		}()
	}

	wg.Wait()

	assert.Len(t, index.Match("tenant-a", models.TriggerContactCreated), 25)
}
