package registry

import (
	"sync"

	"github.com/dukex/relay/pkg/models"
)

// TriggerIndex answers "which workflows care about event X" in O(1) by
// (tenant, trigger type) map key. Reads never block other reads; writes are
// serialized and visible atomically, so no lookup observes a half-updated
// index. The index holds only runnable workflows: registration is driven by
// isActive/status transitions, so Match needs no per-workflow filtering.
type TriggerIndex struct {
	mu sync.RWMutex

	// tenant -> trigger type -> workflow ID -> definition
	byTenant map[string]map[models.TriggerType]map[string]*models.Workflow

	// workflow ID -> (tenant, trigger type) for O(1) unregister
	locations map[string]indexLocation
}

type indexLocation struct {
	tenantID    string
	triggerType models.TriggerType
}

func NewTriggerIndex() *TriggerIndex {
	return &TriggerIndex{
		byTenant:  make(map[string]map[models.TriggerType]map[string]*models.Workflow),
		locations: make(map[string]indexLocation),
	}
}

// Register adds or replaces a workflow in the index. Safe to call
// concurrently from any update path; a workflow whose trigger type changed
// is moved, not duplicated.
func (ti *TriggerIndex) Register(workflow *models.Workflow) {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	ti.removeLocked(workflow.ID)

	tenant, ok := ti.byTenant[workflow.TenantID]
	if !ok {
		tenant = make(map[models.TriggerType]map[string]*models.Workflow)
		ti.byTenant[workflow.TenantID] = tenant
	}

	bucket, ok := tenant[workflow.TriggerType]
	if !ok {
		bucket = make(map[string]*models.Workflow)
		tenant[workflow.TriggerType] = bucket
	}

	bucket[workflow.ID] = workflow
	ti.locations[workflow.ID] = indexLocation{
		tenantID:    workflow.TenantID,
		triggerType: workflow.TriggerType,
	}
}

// Unregister removes a workflow; unknown IDs are a no-op.
func (ti *TriggerIndex) Unregister(workflowID string) {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	ti.removeLocked(workflowID)
}

func (ti *TriggerIndex) removeLocked(workflowID string) {
	location, ok := ti.locations[workflowID]
	if !ok {
		return
	}

	delete(ti.locations, workflowID)

	tenant, ok := ti.byTenant[location.tenantID]
	if !ok {
		return
	}

	bucket, ok := tenant[location.triggerType]
	if !ok {
		return
	}

	delete(bucket, workflowID)

	if len(bucket) == 0 {
		delete(tenant, location.triggerType)
	}

	if len(tenant) == 0 {
		delete(ti.byTenant, location.tenantID)
	}
}

// Match returns the registered workflows for (tenant, trigger type). No
// match is an ordinary outcome: the result is an empty slice, never an
// error. Callers evaluate conditions; the index only answers interest.
func (ti *TriggerIndex) Match(tenantID string, triggerType models.TriggerType) []*models.Workflow {
	ti.mu.RLock()
	defer ti.mu.RUnlock()

	matches := make([]*models.Workflow, 0)

	tenant, ok := ti.byTenant[tenantID]
	if !ok {
		return matches
	}

	for _, workflow := range tenant[triggerType] {
		matches = append(matches, workflow)
	}

	return matches
}

// Len reports the number of registered workflows.
func (ti *TriggerIndex) Len() int {
	ti.mu.RLock()
	defer ti.mu.RUnlock()

	return len(ti.locations)
}
