package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/pathflow/agent/discovery"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/internal/metrics"
	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow/execctx"
)

// ============================================================
// AgentStep
// ============================================================

// AgentStep runs a single agent and appends its record.
type AgentStep struct {
	def     *registry.Definition
	scope   *registry.Scope
	invoker *invoker
}

func (s *AgentStep) ID() string             { return s.def.ID() }
func (s *AgentStep) Kind() types.AgentKind  { return s.def.Kind() }
func (s *AgentStep) Scope() *registry.Scope { return s.scope }

func (s *AgentStep) Run(ctx context.Context, ec *execctx.ExecutionContext) error {
	rec, err := s.invoker.invoke(ctx, s.scope, s.def.ID(), ec, nil)
	if err != nil {
		if rec.AgentID != "" {
			_ = ec.Append(rec)
		}
		if types.IsCode(err, types.ErrAgentNotFound) {
			return err
		}
		return types.NewError(types.ErrAgentFailed, "agent step failed").
			WithAgent(s.def.ID()).WithScope(s.scope.ID()).WithCause(err)
	}
	return ec.Append(rec)
}

// ============================================================
// ScoutStep
// ============================================================

// ScoutStep discovers candidate paths over its own scope and appends them
// as {"candidates": [...]}. With acceptTop set, the best candidate is also
// emitted unvalidated under the scout's own id so an executor can read
// "<scout>.result.<scout>".
type ScoutStep struct {
	def       *registry.Definition
	scope     *registry.Scope
	scout     *discovery.Scout
	acceptTop bool
	logger    *zap.Logger
	metrics   *metrics.Collector
}

func (s *ScoutStep) ID() string             { return s.def.ID() }
func (s *ScoutStep) Kind() types.AgentKind  { return s.def.Kind() }
func (s *ScoutStep) Scope() *registry.Scope { return s.scope }

// AcceptsTop reports whether the step emits its best candidate directly.
func (s *ScoutStep) AcceptsTop() bool { return s.acceptTop }

func (s *ScoutStep) Run(ctx context.Context, ec *execctx.ExecutionContext) error {
	started := time.Now()
	snap := ec.Snapshot().Enrich()

	query, err := s.query(snap)
	if err != nil {
		return s.fail(ec, started, err)
	}

	candidates, err := s.scout.Discover(ctx, s.scope, query)
	s.metrics.RecordDiscovery(len(candidates), err)
	if err != nil {
		return s.fail(ec, started, err)
	}

	payload := map[string]any{
		"candidates": candidates,
		"count":      len(candidates),
		"scope":      s.scope.ID(),
	}
	status := types.StatusSuccess
	if len(candidates) == 0 {
		status = types.StatusEmpty
		payload["response"] = "no viable path"
	} else {
		payload["response"] = candidates[0].Rationale()
		if s.acceptTop {
			vp, err := discovery.AcceptUnvalidated(candidates[0])
			if err != nil {
				return s.fail(ec, started, err)
			}
			payload[s.def.ID()] = vp
		}
	}

	s.logger.Info("scout discovered candidates",
		zap.String("scout_id", s.def.ID()),
		zap.String("scope_id", s.scope.ID()),
		zap.Int("candidates", len(candidates)),
	)
	rec := execctx.NewRecord(s.def.ID(), s.def.Kind(), &types.Result{Payload: payload, Status: status}, started, time.Now())
	rec.ScopeID = s.scope.ID()
	return ec.Append(rec)
}

// query builds the discovery query from the scout's configuration. The
// "goal" entry is a template.
func (s *ScoutStep) query(snap execctx.Snapshot) (*discovery.Query, error) {
	cfg := s.def.Config()
	q := &discovery.Query{
		RequiredCapabilities: types.ParseCapabilities(stringList(cfg["capabilities"])),
		MaxCandidates:        intValue(cfg["max_candidates"]),
		MaxPathLength:        intValue(cfg["max_path_length"]),
		Exclude:              stringList(cfg["exclude"]),
	}
	if goal := s.def.ConfigString("goal", ""); goal != "" {
		rendered, err := snap.Render(goal)
		if err != nil {
			return nil, err
		}
		q.Goal = rendered
	}
	return q, nil
}

func (s *ScoutStep) fail(ec *execctx.ExecutionContext, started time.Time, err error) error {
	rec := execctx.FailedRecord(s.def.ID(), s.def.Kind(), err, started, time.Now())
	rec.ScopeID = s.scope.ID()
	_ = ec.Append(rec)
	return err
}

// ============================================================
// ExecutorStep
// ============================================================

// ExecutorStep reads a validated path from the context and runs it against
// the top-level scope. path_from names "<emitter>.result.<proposer>".
type ExecutorStep struct {
	def      *registry.Definition
	scope    *registry.Scope
	pathFrom string
	executor *PathExecutor
	onResult func(ctx context.Context, res *PathResult, err error)
}

func (s *ExecutorStep) ID() string             { return s.def.ID() }
func (s *ExecutorStep) Kind() types.AgentKind  { return s.def.Kind() }
func (s *ExecutorStep) Scope() *registry.Scope { return s.scope }

// PathFrom returns the lookup path the validated path is read from.
func (s *ExecutorStep) PathFrom() string { return s.pathFrom }

func (s *ExecutorStep) Run(ctx context.Context, ec *execctx.ExecutionContext) error {
	started := time.Now()

	path, perr := resolveValidatedPath(ec, s.pathFrom)
	if perr != nil {
		perr = perr.WithScope(s.scope.ID())
		rec := execctx.FailedRecord(s.def.ID(), s.def.Kind(), perr, started, time.Now())
		rec.ScopeID = s.scope.ID()
		_ = ec.Append(rec)
		return perr.WithAgent(s.def.ID())
	}

	res, err := s.executor.Execute(ctx, path, s.scope, ec)
	if s.onResult != nil {
		s.onResult(ctx, res, err)
	}

	payload := map[string]any{"path": path.Agents()}
	if res != nil {
		payload["executed"] = res.Executed
		payload["success"] = res.Success
		if res.FailedAt != "" {
			payload["failed_at"] = res.FailedAt
		}
		if res.Aborted {
			payload["aborted"] = true
		}
		if n := len(res.Executed); n > 0 && res.Success {
			if last, ok := ec.Snapshot().Enrich().Get(res.Executed[n-1]); ok && last.Response != nil {
				payload["response"] = last.Response
			}
		}
	}

	var rec execctx.Record
	if err != nil {
		rec = execctx.FailedRecord(s.def.ID(), s.def.Kind(), err, started, time.Now())
		rec.Payload = payload
	} else {
		rec = execctx.NewRecord(s.def.ID(), s.def.Kind(), types.NewResult(payload), started, time.Now())
	}
	rec.ScopeID = s.scope.ID()
	if appendErr := ec.Append(rec); appendErr != nil && err == nil {
		return appendErr
	}
	return err
}

// resolveValidatedPath reads "<emitter>.result.<key>" from ec. A trailing
// ".target" is accepted. Anything but a *ValidatedPath fails with
// PATH_NOT_VALIDATED.
func resolveValidatedPath(ec *execctx.ExecutionContext, pathFrom string) (*discovery.ValidatedPath, *types.Error) {
	parts := strings.Split(strings.TrimSuffix(pathFrom, ".target"), ".")
	if len(parts) != 3 || parts[1] != "result" {
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("path_from %q must look like <emitter>.result.<proposer>", pathFrom))
	}
	emitter, key := parts[0], parts[2]

	rec, ok := ec.Get(emitter)
	if !ok {
		return nil, types.NewError(types.ErrPathNotValidated,
			fmt.Sprintf("no record %q holds a validated path", emitter))
	}
	payload, _ := rec.Payload.(map[string]any)
	vp, ok := payload[key].(*discovery.ValidatedPath)
	if !ok || vp == nil {
		msg := fmt.Sprintf("%s is not a validated path", pathFrom)
		if rec.Status != types.StatusSuccess {
			msg = fmt.Sprintf("%s produced no validated path (status %s)", emitter, rec.Status)
		}
		return nil, types.NewError(types.ErrPathNotValidated, msg)
	}
	return vp, nil
}

func stringList(v any) []string {
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...)
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case string:
		if s == "" {
			return nil
		}
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return nil
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
