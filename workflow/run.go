package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/pathflow/internal/events"
	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow/execctx"
)

// RunResult is the outcome of one run. Context holds every record appended
// before the run stopped, also when Err is set.
type RunResult struct {
	RunID   string
	Status  ExecutionStatus
	Context *execctx.ExecutionContext
	History *ExecutionHistory
	Err     error
}

// Response returns the enriched response of the last record, if any.
func (r *RunResult) Response() (any, bool) {
	if r == nil || r.Context == nil {
		return nil, false
	}
	recs := r.Context.Snapshot().Enrich().Records()
	if len(recs) == 0 || recs[len(recs)-1].Incomplete {
		return nil, false
	}
	return recs[len(recs)-1].Response, true
}

// Run executes the top-level steps in order with a fresh execution context
// holding input and vars. Cancellation is checked between steps. The
// returned error equals RunResult.Err.
func (w *Workflow) Run(ctx context.Context, input string, vars map[string]any) (*RunResult, error) {
	runID := uuid.NewString()
	ctx = types.WithRunID(ctx, runID)

	initial := make(map[string]any, len(vars)+1)
	for k, v := range vars {
		initial[k] = v
	}
	initial[execctx.KeyInput] = input
	ec := execctx.New(runID, initial)
	history := NewExecutionHistory(runID, w.id, input)
	logger := w.logger.With(zap.String("run_id", runID))

	ctx, span := w.opts.Tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("workflow.id", w.id),
		attribute.String("run.id", runID),
	))
	defer span.End()

	w.publish(ctx, events.Event{Type: events.RunStarted, RunID: runID})
	logger.Info("run started", zap.Int("steps", len(w.steps)))

	var runErr error
	for _, step := range w.steps {
		if err := ctx.Err(); err != nil {
			runErr = types.NewError(types.ErrRunAborted, "run cancelled between steps").
				WithAgent(step.ID()).WithCause(err)
			break
		}
		if runErr = w.runStep(ctx, step, ec, history, logger); runErr != nil {
			break
		}
	}

	records := ec.Records()
	history.Complete(records, runErr)
	status := history.GetStatus()
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		logger.Warn("run stopped", zap.String("status", string(status)), zap.Error(runErr))
	} else {
		logger.Info("run completed", zap.Duration("duration", history.Duration))
	}
	w.opts.Metrics.RecordRun(w.id, string(status), history.Duration)

	if w.opts.History != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := w.opts.History.Save(saveCtx, history); err != nil {
			logger.Error("failed to persist run history", zap.Error(err))
		}
		cancel()
	}

	done := events.Event{Type: events.RunCompleted, RunID: runID, Status: string(status), Data: map[string]any{"records": len(records)}}
	if runErr != nil {
		done.Error = runErr.Error()
	}
	w.publish(ctx, done)

	return &RunResult{RunID: runID, Status: status, Context: ec, History: history, Err: runErr}, runErr
}

func (w *Workflow) runStep(ctx context.Context, step Step, ec *execctx.ExecutionContext, history *ExecutionHistory, logger *zap.Logger) error {
	se := history.RecordStepStart(step)
	before := ec.Len()

	ctx, span := w.opts.Tracer.Start(ctx, "workflow.step", trace.WithAttributes(
		attribute.String("step.id", step.ID()),
		attribute.String("step.kind", string(step.Kind())),
	))
	err := step.Run(ctx, ec)
	if err != nil && ctx.Err() != nil && !types.IsCode(err, types.ErrRunAborted) {
		err = types.NewError(types.ErrRunAborted, "run cancelled during step").WithAgent(step.ID()).WithCause(err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	appended := make([]string, 0, ec.Len()-before)
	for _, rec := range ec.Records()[before:] {
		appended = append(appended, rec.AgentID)
	}
	history.RecordStepEnd(se, appended, err)
	w.opts.Metrics.RecordStep(string(step.Kind()), string(se.Status))
	logger.Debug("step finished",
		zap.String("step_id", step.ID()),
		zap.String("status", string(se.Status)),
		zap.Strings("records", appended),
	)

	ev := events.Event{Type: events.StepCompleted, RunID: ec.RunID(), StepID: step.ID(), Status: string(se.Status)}
	if err != nil {
		ev.Error = err.Error()
	}
	w.publish(ctx, ev)
	return err
}

func (w *Workflow) publish(ctx context.Context, ev events.Event) {
	ev.WorkflowID = w.id
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if err := w.opts.Events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		w.logger.Warn("failed to publish event", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}
