package registry

// ScopeKind identifies which construct opened a scope.
type ScopeKind string

const (
	ScopeTop  ScopeKind = "top"
	ScopeLoop ScopeKind = "loop"
	ScopeFork ScopeKind = "fork"
)

// TopScopeID is the identifier of every registry's top-level scope.
const TopScopeID = "root"

// Scope is a node in the scope tree. It holds no definitions itself; they
// live in the registry arena keyed by scope id.
type Scope struct {
	id     string
	name   string
	kind   ScopeKind
	parent *Scope
	depth  int
}

// ID returns the scope identifier, unique within a registry.
func (s *Scope) ID() string { return s.id }

// Name returns the construct identifier that opened the scope.
func (s *Scope) Name() string { return s.name }

// Kind returns the construct kind.
func (s *Scope) Kind() ScopeKind { return s.kind }

// Parent returns the parent scope, nil for the top-level scope.
func (s *Scope) Parent() *Scope { return s.parent }

// IsTop reports whether s is the top-level scope.
func (s *Scope) IsTop() bool { return s.parent == nil }

// Depth is 0 for the top-level scope.
func (s *Scope) Depth() int { return s.depth }

// String implements fmt.Stringer.
func (s *Scope) String() string {
	if s == nil {
		return "<nil scope>"
	}
	return s.id
}
