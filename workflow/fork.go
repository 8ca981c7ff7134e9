package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow/execctx"
)

// ForkStep runs its branches concurrently. Each branch is a step declared
// in the fork's child scope and runs in its own child context of the parent
// snapshot. After every branch finished, the run goroutine merges the
// branch records into the parent in declaration order, followed by a fork
// record mapping branch ids to their responses. A failing branch cancels
// the others and nothing but the failed fork record is merged.
type ForkStep struct {
	def        *registry.Definition
	scope      *registry.Scope
	childScope *registry.Scope
	branches   []Step
	limit      int
	logger     *zap.Logger
}

func (s *ForkStep) ID() string             { return s.def.ID() }
func (s *ForkStep) Kind() types.AgentKind  { return s.def.Kind() }
func (s *ForkStep) Scope() *registry.Scope { return s.scope }

// ChildScope returns the scope the branches are declared in.
func (s *ForkStep) ChildScope() *registry.Scope { return s.childScope }

// Branches returns the branch steps in declaration order.
func (s *ForkStep) Branches() []Step { return append([]Step(nil), s.branches...) }

func (s *ForkStep) Run(ctx context.Context, ec *execctx.ExecutionContext) error {
	started := time.Now()
	parent := ec.Snapshot()
	children := make([]*execctx.ExecutionContext, len(s.branches))

	g, gctx := errgroup.WithContext(ctx)
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}
	for i, branch := range s.branches {
		children[i] = execctx.NewChild(parent)
		g.Go(func() error {
			if err := branch.Run(gctx, children[i]); err != nil {
				return types.NewError(types.ErrBranchFailed, "fork branch failed").
					WithAgent(branch.ID()).WithScope(s.childScope.ID()).WithCause(err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("fork failed", zap.String("fork_id", s.def.ID()), zap.Error(err))
		rec := execctx.FailedRecord(s.def.ID(), s.def.Kind(), err, started, time.Now())
		rec.ScopeID = s.scope.ID()
		_ = ec.Append(rec)
		return err
	}

	responses := make(map[string]any, len(s.branches))
	ids := make([]string, 0, len(s.branches))
	for i, branch := range s.branches {
		for _, rec := range children[i].Records() {
			if err := ec.Append(rec); err != nil {
				return err
			}
		}
		ids = append(ids, branch.ID())
		if rec, ok := children[i].Snapshot().Enrich().Get(branch.ID()); ok && rec.Response != nil {
			responses[branch.ID()] = rec.Response
		}
	}

	payload := map[string]any{
		"branches": ids,
		"response": responses,
	}
	rec := execctx.NewRecord(s.def.ID(), s.def.Kind(), types.NewResult(payload), started, time.Now())
	rec.ScopeID = s.scope.ID()
	s.logger.Debug("fork merged", zap.String("fork_id", s.def.ID()), zap.Int("branches", len(ids)))
	return ec.Append(rec)
}
