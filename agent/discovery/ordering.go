package discovery

import (
	"fmt"

	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
)

// OrderingRule declares that agents providing Before run ahead of agents
// providing After.
type OrderingRule struct {
	Before types.Capability `json:"before" yaml:"before"`
	After  types.Capability `json:"after" yaml:"after"`
}

// DefaultOrderingRules returns the built-in capability ordering.
func DefaultOrderingRules() []OrderingRule {
	return []OrderingRule{
		{Before: types.CapabilityDataRetrieval, After: types.CapabilityReasoning},
		{Before: types.CapabilityMemoryRead, After: types.CapabilityReasoning},
		{Before: types.CapabilityReasoning, After: types.CapabilityMemoryWrite},
	}
}

// Ordering is the transitive closure of a set of ordering rules.
type Ordering struct {
	// graph maps a capability to the capabilities that must come after it.
	graph map[types.Capability][]types.Capability

	// closure[a][b] is true when a must precede b, directly or transitively.
	closure map[types.Capability]map[types.Capability]bool
}

// NewOrdering builds an ordering and rejects cyclic rule sets.
func NewOrdering(rules []OrderingRule) (*Ordering, error) {
	o := &Ordering{
		graph:   make(map[types.Capability][]types.Capability),
		closure: make(map[types.Capability]map[types.Capability]bool),
	}
	for _, r := range rules {
		if r.Before == "" || r.After == "" {
			return nil, types.NewError(types.ErrInvalidConfig, "ordering rule needs both before and after")
		}
		if r.Before == r.After {
			return nil, types.NewError(types.ErrInvalidConfig, fmt.Sprintf("ordering rule %s before itself", r.Before))
		}
		o.graph[r.Before] = append(o.graph[r.Before], r.After)
	}

	for c := range o.graph {
		if o.hasCycle(c, map[types.Capability]bool{}) {
			return nil, types.NewError(types.ErrInvalidConfig, fmt.Sprintf("circular capability ordering involving %s", c))
		}
	}
	for c := range o.graph {
		reach := make(map[types.Capability]bool)
		o.collect(c, reach)
		o.closure[c] = reach
	}
	return o, nil
}

func (o *Ordering) hasCycle(c types.Capability, visiting map[types.Capability]bool) bool {
	if visiting[c] {
		return true
	}
	visiting[c] = true
	for _, next := range o.graph[c] {
		if o.hasCycle(next, visiting) {
			return true
		}
	}
	delete(visiting, c)
	return false
}

func (o *Ordering) collect(c types.Capability, reach map[types.Capability]bool) {
	for _, next := range o.graph[c] {
		if !reach[next] {
			reach[next] = true
			o.collect(next, reach)
		}
	}
}

// Precedes reports whether a must come before b.
func (o *Ordering) Precedes(a, b types.Capability) bool {
	return o.closure[a][b]
}

// Allows reports whether earlier may run before later. It is violated when
// later provides only the "before" side of a rule and earlier provides only
// the "after" side. Agents providing both sides of a rule are neutral to it.
func (o *Ordering) Allows(earlier, later *registry.Definition) bool {
	for _, b := range later.Capabilities() {
		for a := range o.closure[b] {
			if earlier.HasCapability(a) && !earlier.HasCapability(b) && !later.HasCapability(a) {
				return false
			}
		}
	}
	return true
}
