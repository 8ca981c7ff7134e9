package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/pathflow/agent/discovery"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/internal/events"
	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow/execctx"
)

// GraphDefinition is the declarative configuration graph of a workflow.
type GraphDefinition struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Steps lists top-level agent ids in run order.
	Steps []string `json:"steps" yaml:"steps"`

	// Agents are the top-level definitions.
	Agents []AgentSpec `json:"agents" yaml:"agents"`
}

// AgentSpec declares one agent. Loop and fork specs declare their child
// scope's agents in Agents.
type AgentSpec struct {
	ID           string         `json:"id" yaml:"id"`
	Kind         string         `json:"kind" yaml:"kind"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Config       map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Agents       []AgentSpec    `json:"agents,omitempty" yaml:"agents,omitempty"`
}

// Build validates def, registers every agent in a fresh registry and
// assembles the top-level steps. All structural errors surface here,
// before any agent runs. The registry is frozen on success.
func Build(def *GraphDefinition, opts Options) (*Workflow, error) {
	if def == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "graph definition is nil")
	}
	if def.ID == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "workflow id is required")
	}
	if len(def.Steps) == 0 {
		return nil, types.NewError(types.ErrInvalidConfig, "workflow has no steps")
	}
	opts = opts.withDefaults()
	logger := opts.Logger.With(zap.String("component", "workflow"), zap.String("workflow_id", def.ID))

	reg := registry.New(opts.Logger)
	b := &builder{
		reg:      reg,
		opts:     opts,
		logger:   logger,
		invoker:  newInvoker(reg, opts),
		executor: NewPathExecutor(reg, opts),
		referred: make(map[string]bool),
	}
	if err := b.register(reg.Top(), def.Agents); err != nil {
		return nil, err
	}

	scout, err := discovery.NewScout(reg, opts.Discovery, opts.Logger, scoutOptions(opts)...)
	if err != nil {
		return nil, err
	}
	b.scout = scout

	w := &Workflow{
		id:          def.ID,
		description: def.Description,
		registry:    reg,
		executor:    b.executor,
		scout:       scout,
		opts:        opts,
		logger:      logger,
	}
	b.workflow = w

	seen := make(map[string]bool, len(def.Steps))
	for _, id := range def.Steps {
		if seen[id] {
			return nil, types.NewError(types.ErrDuplicateIdentifier, "step listed twice").WithAgent(id)
		}
		seen[id] = true
		d, err := reg.Resolve(reg.Top(), id)
		if err != nil {
			return nil, err
		}
		step, err := b.step(d, reg.Top())
		if err != nil {
			return nil, err
		}
		w.steps = append(w.steps, step)
	}
	if err := b.checkMerges(w.steps); err != nil {
		return nil, err
	}

	reg.Freeze()
	scopes, defs := reg.Stats()
	logger.Info("workflow built",
		zap.Int("steps", len(w.steps)),
		zap.Int("scopes", scopes),
		zap.Int("definitions", defs),
	)
	return w, nil
}

func scoutOptions(opts Options) []discovery.ScoutOption {
	if opts.Scorer == nil {
		return nil
	}
	return []discovery.ScoutOption{discovery.WithScorer(opts.Scorer)}
}

// Result keys written next to the validated path. A proposer (or an
// accept-top scout) named like one of them would hide the path.
var (
	loopPayloadKeys  = map[string]bool{"attempts": true, "iterations": true, "response": true}
	scoutPayloadKeys = map[string]bool{"candidates": true, "count": true, "scope": true, "response": true}
)

type builder struct {
	reg      *registry.Registry
	opts     Options
	logger   *zap.Logger
	invoker  *invoker
	executor *PathExecutor
	scout    *discovery.Scout
	workflow *Workflow

	// referred holds scout ids named by some candidates_from.
	referred map[string]bool
}

// register walks specs depth first, opening a child scope for every loop
// and fork.
func (b *builder) register(scope *registry.Scope, specs []AgentSpec) error {
	for _, spec := range specs {
		if execctx.IsReserved(spec.ID) {
			return types.NewError(types.ErrInvalidConfig,
				fmt.Sprintf("%q is reserved and cannot be an agent id", spec.ID)).WithAgent(spec.ID).WithScope(scope.ID())
		}
		kind := types.AgentKind(spec.Kind)
		if kind == "" {
			return types.NewError(types.ErrInvalidConfig, "agent kind is required").WithAgent(spec.ID).WithScope(scope.ID())
		}
		if !kind.IsConstruct() && !b.opts.Factory.Supports(kind) {
			return types.NewError(types.ErrUnknownKind, fmt.Sprintf("unknown agent kind %q", kind)).
				WithAgent(spec.ID).WithScope(scope.ID())
		}

		cfg := spec.Config
		if spec.Description != "" {
			cfg = make(map[string]any, len(spec.Config)+1)
			for k, v := range spec.Config {
				cfg[k] = v
			}
			cfg["description"] = spec.Description
		}
		def, err := registry.NewDefinition(spec.ID, kind, types.ParseCapabilities(spec.Capabilities), cfg)
		if err != nil {
			return err
		}
		if err := b.reg.Register(scope, def); err != nil {
			return err
		}
		if from := def.ConfigString("candidates_from", ""); from != "" {
			b.referred[from] = true
		}

		switch kind {
		case types.KindLoop, types.KindFork:
			scopeKind := registry.ScopeLoop
			if kind == types.KindFork {
				scopeKind = registry.ScopeFork
			}
			child, err := b.reg.CreateChildScope(scope, spec.ID, scopeKind)
			if err != nil {
				return err
			}
			if err := b.register(child, spec.Agents); err != nil {
				return err
			}
		default:
			if len(spec.Agents) > 0 {
				return types.NewError(types.ErrInvalidConfig,
					fmt.Sprintf("kind %q cannot declare nested agents", kind)).WithAgent(spec.ID).WithScope(scope.ID())
			}
		}
	}
	return nil
}

// step assembles the step for a definition registered in scope.
func (b *builder) step(def *registry.Definition, scope *registry.Scope) (Step, error) {
	switch def.Kind() {
	case types.KindScout:
		accept := !b.referred[def.ID()]
		if v, ok := def.ConfigValue("accept_top"); ok {
			if flag, ok := v.(bool); ok {
				accept = flag
			}
		}
		if accept && scoutPayloadKeys[def.ID()] {
			return nil, types.NewError(types.ErrInvalidConfig,
				fmt.Sprintf("scout id %q clashes with a key of its own result", def.ID())).
				WithAgent(def.ID()).WithScope(scope.ID())
		}
		return &ScoutStep{
			def:       def,
			scope:     scope,
			scout:     b.scout,
			acceptTop: accept,
			logger:    b.logger,
			metrics:   b.opts.Metrics,
		}, nil

	case types.KindLoop:
		return b.loopStep(def, scope)

	case types.KindFork:
		return b.forkStep(def, scope)

	case types.KindPathExecutor:
		if !scope.IsTop() {
			return nil, types.NewError(types.ErrInvalidScope, "path executors run in the top-level scope only").
				WithAgent(def.ID()).WithScope(scope.ID())
		}
		pathFrom := def.ConfigString("path_from", "")
		if pathFrom == "" {
			return nil, types.NewError(types.ErrInvalidConfig, "path_executor needs path_from").WithAgent(def.ID())
		}
		stepID := def.ID()
		return &ExecutorStep{
			def:      def,
			scope:    scope,
			pathFrom: pathFrom,
			executor: b.executor,
			onResult: func(ctx context.Context, res *PathResult, err error) {
				runID, _ := types.RunID(ctx)
				ev := events.Event{Type: events.PathExecuted, RunID: runID, StepID: stepID, Status: "success"}
				if res != nil {
					ev.Data = map[string]any{"executed": res.Executed, "failed_at": res.FailedAt}
				}
				if err != nil {
					ev.Status = "failed"
					ev.Error = err.Error()
				}
				b.workflow.publish(ctx, ev)
			},
		}, nil

	default:
		return &AgentStep{def: def, scope: scope, invoker: b.invoker}, nil
	}
}

func (b *builder) loopStep(def *registry.Definition, scope *registry.Scope) (*LoopStep, error) {
	child, ok := b.childScope(scope, def.ID())
	if !ok {
		return nil, types.NewError(types.ErrInvalidScope, "loop has no child scope").WithAgent(def.ID())
	}
	members := b.reg.VisibleAgents(child)

	proposer, err := pickMember(b.reg, child, members, def.ConfigString("proposer", ""), types.KindPathProposer, 0)
	if err != nil {
		return nil, err.WithAgent(def.ID())
	}
	validator, err := pickMember(b.reg, child, members, def.ConfigString("validator", ""), types.KindPathValidator, 1)
	if err != nil {
		return nil, err.WithAgent(def.ID())
	}
	if loopPayloadKeys[proposer] {
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("proposer id %q clashes with a key of the loop result", proposer)).
			WithAgent(def.ID()).WithScope(child.ID())
	}
	if proposer == validator {
		return nil, types.NewError(types.ErrInvalidConfig, "proposer and validator must differ").
			WithAgent(def.ID()).WithScope(child.ID())
	}

	for _, m := range members {
		switch {
		case m.ID() == proposer || m.ID() == validator:
		case m.Kind() == types.KindPathExecutor:
			b.logger.Warn("validation loop scope contains an executor that will never run",
				zap.String("loop_id", def.ID()), zap.String("agent_id", m.ID()))
		default:
			b.logger.Warn("validation loop scope contains extra agents",
				zap.String("loop_id", def.ID()), zap.String("agent_id", m.ID()))
		}
	}

	maxIterations := b.opts.MaxIterations
	if n := intValue(configValue(def, "max_iterations")); n > 0 {
		maxIterations = n
	}

	return &LoopStep{
		def:           def,
		scope:         scope,
		childScope:    child,
		proposerID:    proposer,
		validatorID:   validator,
		maxIterations: maxIterations,
		invoker:       b.invoker,
		logger:        b.logger,
		metrics:       b.opts.Metrics,
	}, nil
}

func (b *builder) forkStep(def *registry.Definition, scope *registry.Scope) (*ForkStep, error) {
	child, ok := b.childScope(scope, def.ID())
	if !ok {
		return nil, types.NewError(types.ErrInvalidScope, "fork has no child scope").WithAgent(def.ID())
	}
	members := b.reg.VisibleAgents(child)
	if len(members) == 0 {
		return nil, types.NewError(types.ErrInvalidConfig, "fork declares no branches").WithAgent(def.ID())
	}

	branches := make([]Step, 0, len(members))
	for _, m := range members {
		st, err := b.step(m, child)
		if err != nil {
			return nil, err
		}
		branches = append(branches, st)
	}
	return &ForkStep{
		def:        def,
		scope:      scope,
		childScope: child,
		branches:   branches,
		limit:      intValue(configValue(def, "max_concurrency")),
		logger:     b.logger,
	}, nil
}

// checkMerges rejects fork branches whose records would land in the run
// context under an id some other writer already uses. Every top-level
// agent may write there (as a step or as a path member), and forks merge
// their branch records, nested forks included.
func (b *builder) checkMerges(steps []Step) error {
	owners := make(map[string]string)
	top := b.reg.Top()
	for _, d := range b.reg.VisibleAgents(top) {
		owners[d.ID()] = top.ID()
	}
	var walk func(f *ForkStep) error
	walk = func(f *ForkStep) error {
		for _, branch := range f.branches {
			scopeID := f.childScope.ID()
			if other, taken := owners[branch.ID()]; taken {
				return types.NewError(types.ErrDuplicateIdentifier,
					fmt.Sprintf("fork branch %q in scope %s collides with %q in scope %s once merged",
						branch.ID(), scopeID, branch.ID(), other)).
					WithAgent(branch.ID()).WithScope(scopeID)
			}
			owners[branch.ID()] = scopeID
			if nested, ok := branch.(*ForkStep); ok {
				if err := walk(nested); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, st := range steps {
		if f, ok := st.(*ForkStep); ok {
			if err := walk(f); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) childScope(parent *registry.Scope, name string) (*registry.Scope, bool) {
	for _, c := range b.reg.Children(parent) {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// pickMember finds a loop member by explicit id, then by kind, then by
// declaration position.
func pickMember(reg *registry.Registry, scope *registry.Scope, members []*registry.Definition, id string, kind types.AgentKind, position int) (string, *types.Error) {
	if id != "" {
		if _, err := reg.Resolve(scope, id); err != nil {
			return "", types.NewAgentNotFoundError(id, scope.ID())
		}
		return id, nil
	}
	for _, m := range members {
		if m.Kind() == kind {
			return m.ID(), nil
		}
	}
	if position < len(members) {
		return members[position].ID(), nil
	}
	return "", types.NewError(types.ErrInvalidConfig,
		fmt.Sprintf("validation loop needs a %s", kind)).WithScope(scope.ID())
}

func configValue(def *registry.Definition, key string) any {
	v, _ := def.ConfigValue(key)
	return v
}
