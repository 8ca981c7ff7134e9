package registry

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/pathflow/types"
)

// scopeKey addresses one definition in the arena.
type scopeKey struct {
	scopeID string
	agentID string
}

// Registry stores agent definitions for a tree of scopes. Visibility is
// exactly the defining scope: lookups never walk parents or children.
type Registry struct {
	mu sync.RWMutex

	// defs is the arena of all definitions across scopes.
	defs map[scopeKey]*Definition

	// order keeps declaration order per scope.
	order map[string][]string

	scopes   map[string]*Scope
	children map[string][]*Scope
	top      *Scope
	frozen   bool

	logger *zap.Logger
}

// New creates a registry with an empty top-level scope.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	top := &Scope{id: TopScopeID, name: TopScopeID, kind: ScopeTop}
	return &Registry{
		defs:     make(map[scopeKey]*Definition),
		order:    make(map[string][]string),
		scopes:   map[string]*Scope{top.id: top},
		children: make(map[string][]*Scope),
		top:      top,
		logger:   logger.With(zap.String("component", "agent_registry")),
	}
}

// Top returns the top-level scope.
func (r *Registry) Top() *Scope {
	return r.top
}

// Register adds def to scope. Sibling collisions fail with
// DUPLICATE_IDENTIFIER; the same id in a parent or child is allowed.
func (r *Registry) Register(scope *Scope, def *Definition) error {
	if def == nil {
		return types.NewError(types.ErrInvalidConfig, "definition is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkScopeLocked(scope); err != nil {
		return err.WithAgent(def.id)
	}
	if r.frozen {
		return types.NewError(types.ErrInvalidConfig, "registry is frozen").
			WithAgent(def.id).
			WithScope(scope.id)
	}

	key := scopeKey{scopeID: scope.id, agentID: def.id}
	if _, exists := r.defs[key]; exists {
		return types.NewError(types.ErrDuplicateIdentifier, "agent already registered in scope").
			WithAgent(def.id).
			WithScope(scope.id)
	}

	r.defs[key] = def
	r.order[scope.id] = append(r.order[scope.id], def.id)

	r.logger.Debug("agent registered",
		zap.String("agent_id", def.id),
		zap.String("kind", string(def.kind)),
		zap.String("scope_id", scope.id),
	)
	return nil
}

// Resolve returns the definition registered as id directly in scope. It
// fails with AGENT_NOT_FOUND naming both the identifier and the scope.
func (r *Registry) Resolve(scope *Scope, id string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.checkScopeLocked(scope); err != nil {
		return nil, err.WithAgent(id)
	}
	def, ok := r.defs[scopeKey{scopeID: scope.id, agentID: id}]
	if !ok {
		return nil, types.NewAgentNotFoundError(id, scope.id)
	}
	return def, nil
}

// VisibleAgents returns the definitions registered directly in scope, in
// declaration order. Nothing is inherited from the parent.
func (r *Registry) VisibleAgents(scope *Scope) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.checkScopeLocked(scope) != nil {
		return nil
	}
	ids := r.order[scope.id]
	out := make([]*Definition, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.defs[scopeKey{scopeID: scope.id, agentID: id}])
	}
	return out
}

// CreateChildScope opens a new empty scope under parent. name is the
// identifier of the construct that owns the scope; it must be unique among
// the parent's children.
func (r *Registry) CreateChildScope(parent *Scope, name string, kind ScopeKind) (*Scope, error) {
	if !ValidIdentifier(name) {
		return nil, types.NewError(types.ErrInvalidConfig, fmt.Sprintf("invalid scope name %q", name))
	}
	if kind == "" || kind == ScopeTop {
		return nil, types.NewError(types.ErrInvalidConfig, fmt.Sprintf("invalid child scope kind %q", kind))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkScopeLocked(parent); err != nil {
		return nil, err
	}
	if r.frozen {
		return nil, types.NewError(types.ErrInvalidConfig, "registry is frozen").WithScope(parent.id)
	}

	id := parent.id + "/" + name
	if _, exists := r.scopes[id]; exists {
		return nil, types.NewError(types.ErrDuplicateIdentifier, "scope already exists").
			WithAgent(name).
			WithScope(parent.id)
	}

	child := &Scope{id: id, name: name, kind: kind, parent: parent, depth: parent.depth + 1}
	r.scopes[id] = child
	r.children[parent.id] = append(r.children[parent.id], child)

	r.logger.Debug("scope created",
		zap.String("scope_id", id),
		zap.String("parent_id", parent.id),
		zap.String("kind", string(kind)),
	)
	return child, nil
}

// Scope looks up a scope by id.
func (r *Registry) Scope(id string) (*Scope, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scopes[id]
	return s, ok
}

// Children returns the direct child scopes of scope in creation order.
func (r *Registry) Children(scope *Scope) []*Scope {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if scope == nil {
		return nil
	}
	kids := r.children[scope.id]
	out := make([]*Scope, len(kids))
	copy(out, kids)
	return out
}

// Freeze stops further registrations and scope creation. Concurrent runs
// rely on a frozen registry being read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.frozen {
		r.frozen = true
		r.logger.Info("registry frozen",
			zap.Int("scopes", len(r.scopes)),
			zap.Int("definitions", len(r.defs)),
		)
	}
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Stats returns the number of scopes and definitions.
func (r *Registry) Stats() (scopes, definitions int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scopes), len(r.defs)
}

// checkScopeLocked rejects nil scopes and scopes belonging to another registry.
func (r *Registry) checkScopeLocked(scope *Scope) *types.Error {
	if scope == nil {
		return types.NewError(types.ErrInvalidScope, "scope is nil")
	}
	if known, ok := r.scopes[scope.id]; !ok || known != scope {
		return types.NewError(types.ErrInvalidScope, "scope does not belong to this registry").WithScope(scope.id)
	}
	return nil
}
