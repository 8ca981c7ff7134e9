package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/pathflow/agent"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/internal/metrics"
	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow/execctx"
)

// invoker runs one agent definition against an execution context. It never
// appends; callers decide where the record goes.
type invoker struct {
	registry *registry.Registry
	factory  *agent.Factory
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Collector
	tracer   trace.Tracer
}

func newInvoker(reg *registry.Registry, opts Options) *invoker {
	return &invoker{
		registry: reg,
		factory:  opts.Factory,
		timeout:  opts.AgentTimeout,
		logger:   opts.Logger.With(zap.String("component", "invoker")),
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
	}
}

// prepare customizes the request before the agent runs.
type prepare func(req *agent.Request)

// invoke resolves id in scope and runs it. The returned record is always
// usable: on failure it is a failed record carrying the error text. A
// resolution failure returns an empty record.
func (iv *invoker) invoke(ctx context.Context, scope *registry.Scope, id string, ec *execctx.ExecutionContext, prep prepare) (execctx.Record, error) {
	def, err := iv.registry.Resolve(scope, id)
	if err != nil {
		return execctx.Record{}, err
	}

	ctx, span := iv.tracer.Start(ctx, "agent.execute", trace.WithAttributes(
		attribute.String("agent.id", id),
		attribute.String("agent.kind", string(def.Kind())),
		attribute.String("scope.id", scope.ID()),
	))
	defer span.End()

	started := time.Now()
	res, err := iv.execute(ctx, def, scope, ec, prep)
	finished := time.Now()

	var rec execctx.Record
	if err != nil {
		rec = execctx.FailedRecord(id, def.Kind(), err, started, finished)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		iv.logger.Warn("agent failed",
			zap.String("agent_id", id),
			zap.String("scope_id", scope.ID()),
			zap.Duration("duration", finished.Sub(started)),
			zap.Error(err),
		)
	} else {
		rec = execctx.NewRecord(id, def.Kind(), res, started, finished)
		iv.logger.Debug("agent completed",
			zap.String("agent_id", id),
			zap.String("status", string(rec.Status)),
			zap.Duration("duration", rec.Duration),
		)
	}
	rec.ScopeID = scope.ID()
	rec.Capabilities = def.Capabilities()
	span.SetAttributes(attribute.String("agent.status", string(rec.Status)))
	iv.metrics.RecordAgentExecution(string(def.Kind()), string(rec.Status), rec.Duration)
	return rec, err
}

func (iv *invoker) execute(ctx context.Context, def *registry.Definition, scope *registry.Scope, ec *execctx.ExecutionContext, prep prepare) (*types.Result, error) {
	a, err := iv.factory.Build(def)
	if err != nil {
		return nil, err
	}

	snap := ec.Snapshot().Enrich()
	input, err := renderInput(def, snap)
	if err != nil {
		return nil, err
	}

	timeout, err := agent.ConfigDuration(def.Config(), "timeout")
	if err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, err.Error()).WithAgent(def.ID())
	}
	if timeout <= 0 {
		timeout = iv.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := &agent.Request{
		AgentID: def.ID(),
		ScopeID: scope.ID(),
		Config:  def.Config(),
		Input:   input,
		Context: snap,
	}
	if prep != nil {
		prep(req)
	}

	res, err := a.Execute(types.WithScopeID(ctx, scope.ID()), req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && timeout > 0 {
			return nil, fmt.Errorf("agent timed out after %s: %w", timeout, err)
		}
		return nil, err
	}
	if res == nil {
		res = &types.Result{Status: types.StatusEmpty}
	}
	return res, nil
}

// renderInput renders the definition's "input" template. Without one the
// agent sees the run input.
func renderInput(def *registry.Definition, snap execctx.Snapshot) (string, error) {
	if tmpl := def.ConfigString("input", ""); tmpl != "" {
		return snap.Render(tmpl)
	}
	if v, ok := snap.Variables()[execctx.KeyInput]; ok {
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	}
	return "", nil
}
