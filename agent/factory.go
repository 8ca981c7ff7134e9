package agent

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/pathflow/agent/memory"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
)

// Dependencies are the shared collaborators handed to constructors.
type Dependencies struct {
	Memory memory.Store
	Logger *zap.Logger
}

// Constructor builds an Agent for one definition.
type Constructor func(def *registry.Definition, deps Dependencies) (Agent, error)

// Factory maps agent kinds to constructors.
type Factory struct {
	mu    sync.RWMutex
	ctors map[types.AgentKind]Constructor
	deps  Dependencies

	logger *zap.Logger
}

// NewFactory creates a factory with the built-in kinds registered. A nil
// memory store is replaced with an in-memory one.
func NewFactory(deps Dependencies) *Factory {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Memory == nil {
		deps.Memory = memory.NewInMemoryStore(memory.InMemoryStoreConfig{}, deps.Logger)
	}

	f := &Factory{
		ctors:  make(map[types.AgentKind]Constructor),
		deps:   deps,
		logger: deps.Logger.With(zap.String("component", "agent_factory")),
	}
	f.registerBuiltinKinds()
	return f
}

// registerBuiltinKinds registers the default agent kinds
func (f *Factory) registerBuiltinKinds() {
	f.Register(types.KindStatic, newStaticAgent)
	f.Register(types.KindMemoryReader, newMemoryReader)
	f.Register(types.KindMemoryWriter, newMemoryWriter)
	f.Register(types.KindPathProposer, newPathProposer)
	f.Register(types.KindPathValidator, newPathValidator)
}

// Register adds or replaces the constructor for kind. Construct kinds
// cannot be registered.
func (f *Factory) Register(kind types.AgentKind, ctor Constructor) {
	if kind.IsConstruct() {
		f.logger.Warn("ignoring registration of a workflow construct kind", zap.String("kind", string(kind)))
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctors[kind] = ctor
	f.logger.Debug("agent kind registered", zap.String("kind", string(kind)))
}

// RegisterFunc registers fn as the behaviour of every agent of kind.
func (f *Factory) RegisterFunc(kind types.AgentKind, fn ExecuteFunc) {
	f.Register(kind, FuncConstructor(fn))
}

// Supports reports whether kind has a constructor.
func (f *Factory) Supports(kind types.AgentKind) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.ctors[kind]
	return ok
}

// Kinds lists the registered kinds, sorted.
func (f *Factory) Kinds() []types.AgentKind {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]types.AgentKind, 0, len(f.ctors))
	for k := range f.ctors {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Build creates the agent for def.
func (f *Factory) Build(def *registry.Definition) (Agent, error) {
	if def == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "definition is nil")
	}
	if def.Kind().IsConstruct() {
		return nil, types.NewError(types.ErrUnknownKind,
			fmt.Sprintf("kind %q is a workflow construct and cannot run as an agent", def.Kind())).WithAgent(def.ID())
	}

	f.mu.RLock()
	ctor, ok := f.ctors[def.Kind()]
	f.mu.RUnlock()
	if !ok {
		return nil, types.NewError(types.ErrUnknownKind, fmt.Sprintf("unknown agent kind %q", def.Kind())).WithAgent(def.ID())
	}

	a, err := ctor(def, f.deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build agent %s: %w", def.ID(), err)
	}
	return a, nil
}

// Memory returns the memory store shared with memory agents.
func (f *Factory) Memory() memory.Store {
	return f.deps.Memory
}
