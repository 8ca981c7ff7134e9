package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow/execctx"
)

// ExecutionStatus represents the status of a run or step
type ExecutionStatus string

const (
	// ExecutionStatusRunning indicates the execution is in progress
	ExecutionStatusRunning ExecutionStatus = "running"
	// ExecutionStatusCompleted indicates the execution completed successfully
	ExecutionStatusCompleted ExecutionStatus = "completed"
	// ExecutionStatusFailed indicates the execution failed
	ExecutionStatusFailed ExecutionStatus = "failed"
	// ExecutionStatusAborted indicates cancellation stopped the execution
	ExecutionStatusAborted ExecutionStatus = "aborted"
)

// StepExecution records the execution of a single top-level step
type StepExecution struct {
	StepID    string          `json:"step_id"`
	Kind      types.AgentKind `json:"kind"`
	ScopeID   string          `json:"scope_id"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Duration  time.Duration   `json:"duration"`
	Status    ExecutionStatus `json:"status"`
	// Records lists the context records the step appended.
	Records   []string        `json:"records,omitempty"`
	ErrorCode types.ErrorCode `json:"error_code,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// ExecutionHistory records the complete execution of one run
type ExecutionHistory struct {
	RunID      string           `json:"run_id"`
	WorkflowID string           `json:"workflow_id"`
	Input      string           `json:"input,omitempty"`
	StartTime  time.Time        `json:"start_time"`
	EndTime    time.Time        `json:"end_time"`
	Duration   time.Duration    `json:"duration"`
	Status     ExecutionStatus  `json:"status"`
	Steps      []*StepExecution `json:"steps"`
	Records    []execctx.Record `json:"records,omitempty"`
	ErrorCode  types.ErrorCode  `json:"error_code,omitempty"`
	Error      string           `json:"error,omitempty"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
	mu         sync.RWMutex
}

// HistorySink persists finished run histories.
type HistorySink interface {
	Save(ctx context.Context, h *ExecutionHistory) error
}

// NewExecutionHistory creates a new execution history
func NewExecutionHistory(runID, workflowID, input string) *ExecutionHistory {
	return &ExecutionHistory{
		RunID:      runID,
		WorkflowID: workflowID,
		Input:      input,
		StartTime:  time.Now(),
		Status:     ExecutionStatusRunning,
		Steps:      make([]*StepExecution, 0),
		Metadata:   make(map[string]any),
	}
}

// RecordStepStart records the start of a step
func (h *ExecutionHistory) RecordStepStart(step Step) *StepExecution {
	h.mu.Lock()
	defer h.mu.Unlock()

	se := &StepExecution{
		StepID:    step.ID(),
		Kind:      step.Kind(),
		StartTime: time.Now(),
		Status:    ExecutionStatusRunning,
	}
	if scope := step.Scope(); scope != nil {
		se.ScopeID = scope.ID()
	}
	h.Steps = append(h.Steps, se)
	return se
}

// RecordStepEnd records the end of a step and the records it appended
func (h *ExecutionHistory) RecordStepEnd(se *StepExecution, records []string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	se.EndTime = time.Now()
	se.Duration = se.EndTime.Sub(se.StartTime)
	se.Records = records
	se.Status = statusFor(err)
	if err != nil {
		se.Error = err.Error()
		se.ErrorCode = types.GetErrorCode(err)
	}
}

// Complete marks the run as finished and keeps the final records
func (h *ExecutionHistory) Complete(records []execctx.Record, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.EndTime = time.Now()
	h.Duration = h.EndTime.Sub(h.StartTime)
	h.Records = records
	h.Status = statusFor(err)
	if err != nil {
		h.Error = err.Error()
		h.ErrorCode = types.GetErrorCode(err)
	}
}

// GetStatus returns the current status
func (h *ExecutionHistory) GetStatus() ExecutionStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.Status
}

// GetSteps returns a copy of the step executions
func (h *ExecutionHistory) GetSteps() []*StepExecution {
	h.mu.RLock()
	defer h.mu.RUnlock()

	steps := make([]*StepExecution, len(h.Steps))
	copy(steps, h.Steps)
	return steps
}

// GetStepByID returns the execution of a specific step
func (h *ExecutionHistory) GetStepByID(stepID string) *StepExecution {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, se := range h.Steps {
		if se.StepID == stepID {
			return se
		}
	}
	return nil
}

func statusFor(err error) ExecutionStatus {
	switch {
	case err == nil:
		return ExecutionStatusCompleted
	case types.IsCode(err, types.ErrRunAborted):
		return ExecutionStatusAborted
	default:
		return ExecutionStatusFailed
	}
}
