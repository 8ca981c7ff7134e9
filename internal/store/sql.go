package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/pathflow/internal/database"
	"github.com/BaSui01/pathflow/internal/metrics"
	"github.com/BaSui01/pathflow/workflow"
)

// runRow is one run history row. The full history is kept as JSON in
// Data; the other columns exist for querying.
type runRow struct {
	RunID      string    `gorm:"column:run_id;primaryKey;size:64"`
	WorkflowID string    `gorm:"column:workflow_id;size:128;index"`
	Status     string    `gorm:"column:status;size:16;index"`
	StartTime  time.Time `gorm:"column:start_time;index"`
	EndTime    time.Time `gorm:"column:end_time"`
	DurationMS int64     `gorm:"column:duration_ms"`
	ErrorCode  string    `gorm:"column:error_code;size:64"`
	Data       string    `gorm:"column:data;type:text"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (runRow) TableName() string { return "pathflow_runs" }

// SQLRunStore stores histories in the pathflow_runs table.
type SQLRunStore struct {
	pool    *database.PoolManager
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewSQLRunStore migrates the table and returns the store. The store owns
// pool and closes it on Close.
func NewSQLRunStore(ctx context.Context, pool *database.PoolManager, logger *zap.Logger, mc *metrics.Collector) (*SQLRunStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.DB().WithContext(ctx).AutoMigrate(&runRow{}); err != nil {
		return nil, fmt.Errorf("migrate run table: %w", err)
	}
	return &SQLRunStore{
		pool:    pool,
		logger:  logger.With(zap.String("component", "run_store_sql")),
		metrics: mc,
	}, nil
}

// Save upserts h.
func (s *SQLRunStore) Save(ctx context.Context, h *workflow.ExecutionHistory) (err error) {
	start := time.Now()
	defer func() { s.metrics.RecordStoreOperation("sql", "save", time.Since(start), err) }()

	if h == nil || h.RunID == "" {
		return fmt.Errorf("history needs a run id")
	}
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode run %q: %w", h.RunID, err)
	}
	row := runRow{
		RunID:      h.RunID,
		WorkflowID: h.WorkflowID,
		Status:     string(h.GetStatus()),
		StartTime:  h.StartTime.UTC(),
		EndTime:    h.EndTime.UTC(),
		DurationMS: h.Duration.Milliseconds(),
		ErrorCode:  string(h.ErrorCode),
		Data:       string(data),
		UpdatedAt:  time.Now().UTC(),
	}
	return s.pool.WithTransactionRetry(ctx, 3, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"workflow_id", "status", "start_time", "end_time", "duration_ms", "error_code", "data", "updated_at"}),
		}).Create(&row).Error
	})
}

// Get loads a history by run id.
func (s *SQLRunStore) Get(ctx context.Context, runID string) (h *workflow.ExecutionHistory, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordStoreOperation("sql", "get", time.Since(start), err) }()

	var row runRow
	err = s.pool.DB().WithContext(ctx).Where("run_id = ?", runID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %q: %w", runID, err)
	}
	return decodeRow(row)
}

// ListByWorkflow returns all runs of a workflow.
func (s *SQLRunStore) ListByWorkflow(ctx context.Context, workflowID string) ([]*workflow.ExecutionHistory, error) {
	return s.list(ctx, "list_workflow", "workflow_id = ?", workflowID)
}

// ListByStatus returns runs with a specific status.
func (s *SQLRunStore) ListByStatus(ctx context.Context, status workflow.ExecutionStatus) ([]*workflow.ExecutionHistory, error) {
	return s.list(ctx, "list_status", "status = ?", string(status))
}

// ListByTimeRange returns runs started within [start, end].
func (s *SQLRunStore) ListByTimeRange(ctx context.Context, start, end time.Time) ([]*workflow.ExecutionHistory, error) {
	return s.list(ctx, "list_time", "start_time >= ? AND start_time <= ?", start.UTC(), end.UTC())
}

func (s *SQLRunStore) list(ctx context.Context, op, query string, args ...any) (out []*workflow.ExecutionHistory, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordStoreOperation("sql", op, time.Since(start), err) }()

	var rows []runRow
	if err = s.pool.DB().WithContext(ctx).Where(query, args...).Order("start_time ASC, run_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out = make([]*workflow.ExecutionHistory, 0, len(rows))
	for _, row := range rows {
		h, derr := decodeRow(row)
		if derr != nil {
			s.logger.Warn("skipping undecodable run", zap.String("run_id", row.RunID), zap.Error(derr))
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// Close closes the underlying pool.
func (s *SQLRunStore) Close() error {
	return s.pool.Close()
}

func decodeRow(row runRow) (*workflow.ExecutionHistory, error) {
	var h workflow.ExecutionHistory
	if err := json.Unmarshal([]byte(row.Data), &h); err != nil {
		return nil, fmt.Errorf("decode run %q: %w", row.RunID, err)
	}
	return &h, nil
}

var _ RunStore = (*SQLRunStore)(nil)
