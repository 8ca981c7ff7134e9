package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/pathflow/agent"
	"github.com/BaSui01/pathflow/agent/discovery"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/internal/metrics"
	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow/execctx"
)

// LoopState is a validation loop state.
type LoopState string

const (
	LoopProposing  LoopState = "proposing"
	LoopValidating LoopState = "validating"
	LoopAccepted   LoopState = "accepted"
	LoopRejected   LoopState = "rejected"
)

// LoopStep alternates a proposer and a validator in its own child scope
// until a proposal is accepted or the iteration budget is spent.
//
// Every iteration runs in a fresh child context of the parent snapshot
// taken when the loop started, holding an attempts record under the loop
// id. Only the final outcome is appended to the parent: on accept a record
// whose payload maps the proposer id to the *discovery.ValidatedPath, on
// failure a failed record carrying the attempts.
type LoopStep struct {
	def           *registry.Definition
	scope         *registry.Scope // parent scope the loop is declared in
	childScope    *registry.Scope
	proposerID    string
	validatorID   string
	maxIterations int
	invoker       *invoker
	logger        *zap.Logger
	metrics       *metrics.Collector
}

func (s *LoopStep) ID() string             { return s.def.ID() }
func (s *LoopStep) Kind() types.AgentKind  { return s.def.Kind() }
func (s *LoopStep) Scope() *registry.Scope { return s.scope }

// ChildScope returns the scope holding the proposer and validator.
func (s *LoopStep) ChildScope() *registry.Scope { return s.childScope }

// ProposerID returns the proposer's identifier.
func (s *LoopStep) ProposerID() string { return s.proposerID }

// ValidatorID returns the validator's identifier.
func (s *LoopStep) ValidatorID() string { return s.validatorID }

// MaxIterations returns the validation budget.
func (s *LoopStep) MaxIterations() int { return s.maxIterations }

func (s *LoopStep) Run(ctx context.Context, ec *execctx.ExecutionContext) error {
	started := time.Now()
	parent := ec.Snapshot()
	attempts := make([]discovery.Attempt, 0, s.maxIterations)
	lastFeedback := ""

	for iteration := 1; iteration <= s.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return s.fail(ec, started, attempts, types.NewError(types.ErrRunAborted, "validation loop cancelled").
				WithAgent(s.def.ID()).WithScope(s.childScope.ID()).WithCause(err))
		}

		child := execctx.NewChild(parent)
		if err := child.Append(s.attemptsRecord(iteration, attempts, lastFeedback)); err != nil {
			return s.fail(ec, started, attempts, err)
		}

		s.logState(LoopProposing, iteration)
		prior := append([]discovery.Attempt(nil), attempts...)
		prec, err := s.invoker.invoke(ctx, s.childScope, s.proposerID, child, func(req *agent.Request) {
			req.Attempts = prior
		})
		if err != nil {
			return s.fail(ec, started, attempts, s.agentError(s.proposerID, err))
		}
		candidate, err := s.proposal(prec)
		if err != nil {
			return s.fail(ec, started, attempts, s.agentError(s.proposerID, err))
		}
		if candidate == nil {
			s.metrics.RecordValidationLoop("no_candidate", iteration)
			return s.fail(ec, started, attempts, types.NewError(types.ErrNoViablePath, "proposer offered no candidate").
				WithAgent(s.def.ID()).WithScope(s.childScope.ID()).WithFeedback(lastFeedback))
		}
		if err := child.Append(prec); err != nil {
			return s.fail(ec, started, attempts, err)
		}

		s.logState(LoopValidating, iteration)
		vrec, err := s.invoker.invoke(ctx, s.childScope, s.validatorID, child, func(req *agent.Request) {
			req.Attempts = prior
			req.Proposal = candidate
		})
		if err != nil {
			return s.fail(ec, started, attempts, s.agentError(s.validatorID, err))
		}
		verdict, err := discovery.ParseVerdict(vrec.Payload)
		if err != nil {
			return s.fail(ec, started, attempts, s.agentError(s.validatorID, err))
		}

		attempts = append(attempts, discovery.Attempt{
			Iteration: iteration,
			Candidate: candidate,
			Accepted:  verdict.Accepted,
			Feedback:  verdict.Feedback,
		})

		if verdict.Accepted {
			return s.accept(ec, started, candidate, verdict, attempts)
		}

		lastFeedback = verdict.Feedback
		s.logger.Info("proposal rejected",
			zap.String("loop_id", s.def.ID()),
			zap.Int("iteration", iteration),
			zap.String("candidate", candidate.String()),
			zap.String("feedback", verdict.Feedback),
		)
	}

	s.logState(LoopRejected, s.maxIterations)
	s.metrics.RecordValidationLoop("rejected", s.maxIterations)
	return s.fail(ec, started, attempts, types.NewError(types.ErrValidationBudgetExhausted,
		fmt.Sprintf("no proposal accepted within %d iterations", s.maxIterations)).
		WithAgent(s.def.ID()).WithScope(s.childScope.ID()).WithFeedback(lastFeedback))
}

func (s *LoopStep) accept(ec *execctx.ExecutionContext, started time.Time, c *discovery.Candidate, v discovery.Verdict, attempts []discovery.Attempt) error {
	vp, err := discovery.Accept(c, s.validatorID, v.Feedback)
	if err != nil {
		return s.fail(ec, started, attempts, err)
	}
	payload := map[string]any{
		s.proposerID: vp,
		"attempts":   attempts,
		"iterations": len(attempts),
		"response":   v.Feedback,
	}
	rec := execctx.NewRecord(s.def.ID(), s.def.Kind(), types.NewResult(payload), started, time.Now())
	rec.ScopeID = s.scope.ID()
	if err := ec.Append(rec); err != nil {
		return err
	}

	s.logState(LoopAccepted, len(attempts))
	s.metrics.RecordValidationLoop("accepted", len(attempts))
	return nil
}

func (s *LoopStep) fail(ec *execctx.ExecutionContext, started time.Time, attempts []discovery.Attempt, err error) error {
	rec := execctx.FailedRecord(s.def.ID(), s.def.Kind(), err, started, time.Now())
	rec.ScopeID = s.scope.ID()
	rec.Payload = map[string]any{
		"attempts":   attempts,
		"iterations": len(attempts),
		"accepted":   false,
	}
	if appendErr := ec.Append(rec); appendErr != nil {
		s.logger.Warn("failed to record loop failure", zap.String("loop_id", s.def.ID()), zap.Error(appendErr))
	}
	if !types.IsCode(err, types.ErrValidationBudgetExhausted) && !types.IsCode(err, types.ErrNoViablePath) {
		s.metrics.RecordValidationLoop("failed", len(attempts))
	}
	return err
}

// attemptsRecord is the loop-scoped record a proposer reads its history
// from.
func (s *LoopStep) attemptsRecord(iteration int, attempts []discovery.Attempt, feedback string) execctx.Record {
	now := time.Now()
	payload := map[string]any{
		"iteration": iteration,
		"attempts":  append([]discovery.Attempt(nil), attempts...),
		"feedback":  feedback,
		"response":  feedback,
	}
	rec := execctx.NewRecord(s.def.ID(), s.def.Kind(), types.NewResult(payload), now, now)
	rec.ScopeID = s.childScope.ID()
	return rec
}

func (s *LoopStep) proposal(rec execctx.Record) (*discovery.Candidate, error) {
	if rec.Status == types.StatusEmpty {
		return nil, nil
	}
	return discovery.CandidateFromPayload(rec.Payload, s.scope.ID())
}

func (s *LoopStep) agentError(id string, err error) error {
	if types.IsCode(err, types.ErrAgentNotFound) {
		return err
	}
	return types.NewError(types.ErrAgentFailed, "validation loop agent failed").
		WithAgent(id).WithScope(s.childScope.ID()).WithCause(err)
}

func (s *LoopStep) logState(state LoopState, iteration int) {
	s.logger.Debug("validation loop state",
		zap.String("loop_id", s.def.ID()),
		zap.String("state", string(state)),
		zap.Int("iteration", iteration),
	)
}
