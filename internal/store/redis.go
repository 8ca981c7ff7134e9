package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/pathflow/internal/cache"
	"github.com/BaSui01/pathflow/internal/metrics"
	"github.com/BaSui01/pathflow/workflow"
)

var allStatuses = []workflow.ExecutionStatus{
	workflow.ExecutionStatusRunning,
	workflow.ExecutionStatusCompleted,
	workflow.ExecutionStatusFailed,
	workflow.ExecutionStatusAborted,
}

// RedisRunStore stores each history as JSON under <prefix>runs:data:<id>
// and indexes run ids in sorted sets scored by start time.
type RedisRunStore struct {
	cache   *cache.Manager
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewRedisRunStore creates a store on top of m. ttl zero keeps histories
// forever.
func NewRedisRunStore(m *cache.Manager, ttl time.Duration, logger *zap.Logger, mc *metrics.Collector) *RedisRunStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRunStore{
		cache:   m,
		ttl:     ttl,
		logger:  logger.With(zap.String("component", "run_store_redis")),
		metrics: mc,
	}
}

func (s *RedisRunStore) dataKey(runID string) string { return s.cache.Key("runs", "data", runID) }
func (s *RedisRunStore) workflowKey(id string) string { return s.cache.Key("runs", "workflow", id) }
func (s *RedisRunStore) statusKey(st workflow.ExecutionStatus) string {
	return s.cache.Key("runs", "status", string(st))
}
func (s *RedisRunStore) timeKey() string { return s.cache.Key("runs", "time") }

// Save writes h and moves its id to the index of its current status.
func (s *RedisRunStore) Save(ctx context.Context, h *workflow.ExecutionHistory) (err error) {
	start := time.Now()
	defer func() { s.metrics.RecordStoreOperation("redis", "save", time.Since(start), err) }()

	if h == nil || h.RunID == "" {
		return fmt.Errorf("history needs a run id")
	}
	if err := s.cache.SetJSON(ctx, s.dataKey(h.RunID), h, s.ttl); err != nil {
		return fmt.Errorf("failed to save run %q: %w", h.RunID, err)
	}

	score := float64(h.StartTime.UnixNano())
	pipe := s.cache.Client().TxPipeline()
	for _, st := range allStatuses {
		pipe.ZRem(ctx, s.statusKey(st), h.RunID)
	}
	pipe.ZAdd(ctx, s.statusKey(h.GetStatus()), redis.Z{Score: score, Member: h.RunID})
	pipe.ZAdd(ctx, s.workflowKey(h.WorkflowID), redis.Z{Score: score, Member: h.RunID})
	pipe.ZAdd(ctx, s.timeKey(), redis.Z{Score: score, Member: h.RunID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index run %q: %w", h.RunID, err)
	}
	return nil
}

// Get loads a history by run id.
func (s *RedisRunStore) Get(ctx context.Context, runID string) (h *workflow.ExecutionHistory, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordStoreOperation("redis", "get", time.Since(start), err) }()
	return s.load(ctx, runID)
}

func (s *RedisRunStore) load(ctx context.Context, runID string) (*workflow.ExecutionHistory, error) {
	var h workflow.ExecutionHistory
	if err := s.cache.GetJSON(ctx, s.dataKey(runID), &h); err != nil {
		if cache.IsCacheMiss(err) {
			return nil, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load run %q: %w", runID, err)
	}
	return &h, nil
}

// ListByWorkflow returns all runs of a workflow.
func (s *RedisRunStore) ListByWorkflow(ctx context.Context, workflowID string) ([]*workflow.ExecutionHistory, error) {
	return s.listRange(ctx, "list_workflow", s.workflowKey(workflowID), "-inf", "+inf")
}

// ListByStatus returns runs with a specific status.
func (s *RedisRunStore) ListByStatus(ctx context.Context, status workflow.ExecutionStatus) ([]*workflow.ExecutionHistory, error) {
	return s.listRange(ctx, "list_status", s.statusKey(status), "-inf", "+inf")
}

// ListByTimeRange returns runs started within [start, end].
func (s *RedisRunStore) ListByTimeRange(ctx context.Context, start, end time.Time) ([]*workflow.ExecutionHistory, error) {
	return s.listRange(ctx, "list_time", s.timeKey(),
		fmt.Sprintf("%d", start.UnixNano()), fmt.Sprintf("%d", end.UnixNano()))
}

func (s *RedisRunStore) listRange(ctx context.Context, op, key, lo, hi string) (out []*workflow.ExecutionHistory, err error) {
	started := time.Now()
	defer func() { s.metrics.RecordStoreOperation("redis", op, time.Since(started), err) }()

	ids, err := s.cache.Client().ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: lo, Max: hi}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	for _, id := range ids {
		h, err := s.load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Expired entries leave stale index members behind.
			s.logger.Debug("skipping expired run", zap.String("run_id", id))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	sortByStart(out)
	return out, nil
}

// Close leaves the shared connection open.
func (s *RedisRunStore) Close() error { return nil }

var _ RunStore = (*RedisRunStore)(nil)
