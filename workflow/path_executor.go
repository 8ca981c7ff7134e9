package workflow

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/pathflow/agent/discovery"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/internal/metrics"
	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow/execctx"
)

// PathResult reports how far a path execution got.
type PathResult struct {
	// Executed lists the agents that completed, in order.
	Executed []string `json:"executed"`

	// FailedAt names the agent the path stopped at.
	FailedAt string `json:"failed_at,omitempty"`

	Success bool `json:"success"`

	// Aborted is set when cancellation stopped the path between agents.
	Aborted bool `json:"aborted,omitempty"`

	// Records are the records this execution appended, failed one included.
	Records []execctx.Record `json:"records"`
}

// PathExecutor runs validated paths against the top-level scope.
type PathExecutor struct {
	invoker *invoker
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// NewPathExecutor creates an executor resolving agents in reg.
func NewPathExecutor(reg *registry.Registry, opts Options) *PathExecutor {
	opts = opts.withDefaults()
	return &PathExecutor{
		invoker: newInvoker(reg, opts),
		limiter: opts.Limiter,
		logger:  opts.Logger.With(zap.String("component", "path_executor")),
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}
}

// Execute runs every agent of path in order, appending each record to ec
// as it completes. Agents are resolved in scope, which must be the
// top-level scope. The first failure stops the path with
// PATH_EXECUTION_FAILED naming the agent; records appended before it stay.
func (e *PathExecutor) Execute(ctx context.Context, path *discovery.ValidatedPath, scope *registry.Scope, ec *execctx.ExecutionContext) (*PathResult, error) {
	if path == nil {
		return nil, types.NewError(types.ErrPathNotValidated, "path executor requires a validated path")
	}
	if scope == nil || !scope.IsTop() {
		id := ""
		if scope != nil {
			id = scope.ID()
		}
		return nil, types.NewError(types.ErrInvalidScope, "paths execute against the top-level scope only").WithScope(id)
	}
	if ec == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "execution context is nil")
	}

	agents := path.Agents()
	ctx, span := e.tracer.Start(ctx, "path.execute", trace.WithAttributes(
		attribute.StringSlice("path.agents", agents),
		attribute.String("path.validated_by", path.ValidatedBy()),
	))
	defer span.End()

	result := &PathResult{Executed: make([]string, 0, len(agents))}
	fail := func(at string, err error) (*PathResult, error) {
		result.FailedAt = at
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		status := "failed"
		if result.Aborted {
			status = "aborted"
		}
		e.metrics.RecordPathExecution(status, len(agents))
		e.logger.Warn("path execution stopped",
			zap.String("at", at),
			zap.Strings("executed", result.Executed),
			zap.Bool("aborted", result.Aborted),
			zap.Error(err),
		)
		return result, err
	}

	for _, id := range agents {
		if err := ctx.Err(); err != nil {
			result.Aborted = true
			return fail(id, types.NewError(types.ErrRunAborted, "run cancelled before agent started").
				WithAgent(id).WithScope(scope.ID()).WithCause(err))
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				result.Aborted = ctx.Err() != nil
				return fail(id, types.NewError(types.ErrRunAborted, "rate limiter wait interrupted").
					WithAgent(id).WithScope(scope.ID()).WithCause(err))
			}
		}

		rec, err := e.invoker.invoke(ctx, scope, id, ec, nil)
		if err != nil {
			if rec.AgentID != "" {
				// The failed record is best effort: a duplicate id keeps the
				// original record.
				if appendErr := ec.Append(rec); appendErr == nil {
					result.Records = append(result.Records, rec)
				}
			}
			return fail(id, types.NewPathExecutionError(id, scope.ID(), err))
		}
		if err := ec.Append(rec); err != nil {
			return fail(id, types.NewPathExecutionError(id, scope.ID(), err))
		}
		result.Executed = append(result.Executed, id)
		result.Records = append(result.Records, rec)
	}

	result.Success = true
	e.metrics.RecordPathExecution("success", len(agents))
	e.logger.Info("path executed", zap.Strings("agents", result.Executed))
	return result, nil
}
