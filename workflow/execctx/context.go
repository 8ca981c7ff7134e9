package execctx

import (
	"fmt"
	"sync"

	"github.com/BaSui01/pathflow/types"
)

// ExecutionContext is the per-run, append-only store of agent results. It
// is a single-writer resource: one goroutine appends, any number may read
// snapshots.
type ExecutionContext struct {
	mu sync.RWMutex

	runID  string
	parent Snapshot

	records []Record
	index   map[string]int
	vars    map[string]any
}

// New creates a top-level context for one run.
func New(runID string, vars map[string]any) *ExecutionContext {
	v := make(map[string]any, len(vars))
	for k, val := range vars {
		v[k] = val
	}
	return &ExecutionContext{
		runID: runID,
		index: make(map[string]int),
		vars:  v,
	}
}

// NewChild creates a context that reads through to parent and writes only to
// itself. Loops and fork branches run in child contexts.
func NewChild(parent Snapshot) *ExecutionContext {
	return &ExecutionContext{
		runID:  parent.runID,
		parent: parent,
		index:  make(map[string]int),
	}
}

// Child is NewChild(c.Snapshot()).
func (c *ExecutionContext) Child() *ExecutionContext {
	return NewChild(c.Snapshot())
}

// RunID returns the run identifier.
func (c *ExecutionContext) RunID() string {
	return c.runID
}

// Append adds rec. An identifier can only be written once per context. A
// child context may shadow a parent record with the same identifier; reads
// through the child then see the child's record.
func (c *ExecutionContext) Append(rec Record) error {
	if rec.AgentID == "" {
		return types.NewError(types.ErrInvalidConfig, "record agent id is required")
	}
	if IsReserved(rec.AgentID) {
		return types.NewError(types.ErrInvalidConfig, fmt.Sprintf("%q is a reserved context key", rec.AgentID)).
			WithAgent(rec.AgentID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[rec.AgentID]; exists {
		return types.NewError(types.ErrDuplicateIdentifier, "record already present in execution context").
			WithAgent(rec.AgentID)
	}

	c.index[rec.AgentID] = len(c.records)
	c.records = append(c.records, rec.clone())
	return nil
}

// Get returns the record for id, looking at this context first and then the
// parent snapshot.
func (c *ExecutionContext) Get(id string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i, ok := c.index[id]; ok {
		return c.records[i].clone(), true
	}
	return c.parent.Get(id)
}

// Has reports whether id is visible in the context.
func (c *ExecutionContext) Has(id string) bool {
	_, ok := c.Get(id)
	return ok
}

// Records returns the records written to this context, excluding the
// parent, in insertion order.
func (c *ExecutionContext) Records() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Record, len(c.records))
	for i, r := range c.records {
		out[i] = r.clone()
	}
	return out
}

// Len returns the number of records written to this context.
func (c *ExecutionContext) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Variable returns a run variable.
func (c *ExecutionContext) Variable(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.vars[name]; ok {
		return v, true
	}
	v, ok := c.parent.vars[name]
	return v, ok
}

// Snapshot returns an immutable view of the parent records followed by this
// context's records. Parent records shadowed by this context are left out.
func (c *ExecutionContext) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	parentRecs := c.parent.records
	s := Snapshot{
		runID:   c.runID,
		records: make([]Record, 0, len(parentRecs)+len(c.records)),
		index:   make(map[string]int, len(parentRecs)+len(c.records)),
		vars:    make(map[string]any, len(c.parent.vars)+len(c.vars)),
	}
	for k, v := range c.parent.vars {
		s.vars[k] = v
	}
	for k, v := range c.vars {
		s.vars[k] = v
	}
	for _, r := range parentRecs {
		if _, shadowed := c.index[r.AgentID]; shadowed {
			continue
		}
		s.index[r.AgentID] = len(s.records)
		s.records = append(s.records, r.clone())
	}
	for _, r := range c.records {
		s.index[r.AgentID] = len(s.records)
		s.records = append(s.records, r.clone())
	}
	return s
}
