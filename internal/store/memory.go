package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BaSui01/pathflow/internal/metrics"
	"github.com/BaSui01/pathflow/workflow"
)

// MemoryRunStore stores histories in a map.
type MemoryRunStore struct {
	histories map[string]*workflow.ExecutionHistory
	mu        sync.RWMutex
	metrics   *metrics.Collector
}

// NewMemoryRunStore creates an empty store. m may be nil.
func NewMemoryRunStore(m *metrics.Collector) *MemoryRunStore {
	return &MemoryRunStore{
		histories: make(map[string]*workflow.ExecutionHistory),
		metrics:   m,
	}
}

// Save stores h, replacing an earlier history of the same run.
func (s *MemoryRunStore) Save(_ context.Context, h *workflow.ExecutionHistory) error {
	start := time.Now()
	if h == nil || h.RunID == "" {
		err := fmt.Errorf("history needs a run id")
		s.metrics.RecordStoreOperation("memory", "save", time.Since(start), err)
		return err
	}
	s.mu.Lock()
	s.histories[h.RunID] = h
	s.mu.Unlock()
	s.metrics.RecordStoreOperation("memory", "save", time.Since(start), nil)
	return nil
}

// Get retrieves a history by run id.
func (s *MemoryRunStore) Get(_ context.Context, runID string) (*workflow.ExecutionHistory, error) {
	start := time.Now()
	s.mu.RLock()
	h, ok := s.histories[runID]
	s.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("run %q: %w", runID, ErrNotFound)
		s.metrics.RecordStoreOperation("memory", "get", time.Since(start), err)
		return nil, err
	}
	s.metrics.RecordStoreOperation("memory", "get", time.Since(start), nil)
	return h, nil
}

// ListByWorkflow returns all runs of a workflow.
func (s *MemoryRunStore) ListByWorkflow(_ context.Context, workflowID string) ([]*workflow.ExecutionHistory, error) {
	return s.list("list_workflow", func(h *workflow.ExecutionHistory) bool { return h.WorkflowID == workflowID }), nil
}

// ListByStatus returns runs with a specific status.
func (s *MemoryRunStore) ListByStatus(_ context.Context, status workflow.ExecutionStatus) ([]*workflow.ExecutionHistory, error) {
	return s.list("list_status", func(h *workflow.ExecutionHistory) bool { return h.GetStatus() == status }), nil
}

// ListByTimeRange returns runs started within [start, end].
func (s *MemoryRunStore) ListByTimeRange(_ context.Context, start, end time.Time) ([]*workflow.ExecutionHistory, error) {
	return s.list("list_time", func(h *workflow.ExecutionHistory) bool {
		return !h.StartTime.Before(start) && !h.StartTime.After(end)
	}), nil
}

// Close is a no-op.
func (s *MemoryRunStore) Close() error { return nil }

func (s *MemoryRunStore) list(op string, keep func(*workflow.ExecutionHistory) bool) []*workflow.ExecutionHistory {
	start := time.Now()
	s.mu.RLock()
	var out []*workflow.ExecutionHistory
	for _, h := range s.histories {
		if keep(h) {
			out = append(out, h)
		}
	}
	s.mu.RUnlock()
	sortByStart(out)
	s.metrics.RecordStoreOperation("memory", op, time.Since(start), nil)
	return out
}

func sortByStart(hs []*workflow.ExecutionHistory) {
	sort.SliceStable(hs, func(i, j int) bool {
		if hs[i].StartTime.Equal(hs[j].StartTime) {
			return hs[i].RunID < hs[j].RunID
		}
		return hs[i].StartTime.Before(hs[j].StartTime)
	})
}

var _ RunStore = (*MemoryRunStore)(nil)
