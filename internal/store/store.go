package store

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/pathflow/workflow"
)

// ErrNotFound is returned when no history exists for a run id.
var ErrNotFound = errors.New("run not found")

// RunStore persists and queries run histories. Lists are ordered by start
// time, oldest first.
type RunStore interface {
	Save(ctx context.Context, h *workflow.ExecutionHistory) error
	Get(ctx context.Context, runID string) (*workflow.ExecutionHistory, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*workflow.ExecutionHistory, error)
	ListByStatus(ctx context.Context, status workflow.ExecutionStatus) ([]*workflow.ExecutionHistory, error)
	ListByTimeRange(ctx context.Context, start, end time.Time) ([]*workflow.ExecutionHistory, error)
	Close() error
}

var _ workflow.HistorySink = RunStore(nil)
