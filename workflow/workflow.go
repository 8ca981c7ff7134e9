package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/pathflow/agent/discovery"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow/execctx"
)

// Step is one unit the orchestrator drives. It reads from and appends to
// the execution context it is given.
type Step interface {
	// ID is the identifier of the definition the step was built from.
	ID() string
	Kind() types.AgentKind
	// Scope is the scope the step's definition is registered in.
	Scope() *registry.Scope
	Run(ctx context.Context, ec *execctx.ExecutionContext) error
}

// StepFunc adapts a function to a step for programmatic workflows.
type StepFunc func(ctx context.Context, ec *execctx.ExecutionContext) error

// FuncStep is a Step backed by a function.
type FuncStep struct {
	id    string
	scope *registry.Scope
	fn    StepFunc
}

// NewFuncStep creates a function step registered nowhere; it runs in scope.
func NewFuncStep(id string, scope *registry.Scope, fn StepFunc) *FuncStep {
	return &FuncStep{id: id, scope: scope, fn: fn}
}

func (s *FuncStep) ID() string             { return s.id }
func (s *FuncStep) Kind() types.AgentKind  { return types.AgentKind("func") }
func (s *FuncStep) Scope() *registry.Scope { return s.scope }

func (s *FuncStep) Run(ctx context.Context, ec *execctx.ExecutionContext) error {
	return s.fn(ctx, ec)
}

// Workflow is a built graph: a frozen registry and the top-level steps.
type Workflow struct {
	id          string
	description string
	registry    *registry.Registry
	steps       []Step
	executor    *PathExecutor
	scout       *discovery.Scout
	opts        Options
	logger      *zap.Logger
}

// ID returns the workflow identifier.
func (w *Workflow) ID() string { return w.id }

// Description returns the workflow description.
func (w *Workflow) Description() string { return w.description }

// Registry returns the frozen registry.
func (w *Workflow) Registry() *registry.Registry { return w.registry }

// Steps returns the top-level steps in run order.
func (w *Workflow) Steps() []Step {
	return append([]Step(nil), w.steps...)
}

// Executor returns the shared path executor.
func (w *Workflow) Executor() *PathExecutor { return w.executor }

// Scout returns the scout used by scout steps.
func (w *Workflow) Scout() *discovery.Scout { return w.scout }
