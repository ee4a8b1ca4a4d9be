// Package file provides the file-system persistence backend. Records are
// JSON documents under a root directory, one file per entity. Suited to
// development and single-node deployments.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/relay/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of the file system.
type Persistence struct {
	root          string
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	scheduleRepo  *ScheduleRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:          cleanRoot,
		workflowRepo:  NewWorkflowRepository(cleanRoot),
		executionRepo: NewExecutionRepository(cleanRoot),
		scheduleRepo:  NewScheduleRepository(cleanRoot),
	}
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) ScheduleRepository() persistence.ScheduleRepository {
	return fp.scheduleRepo
}

func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
