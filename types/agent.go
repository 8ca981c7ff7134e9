package types

import "strings"

// =============================================================================
// Capability and kind tags
// =============================================================================

// Capability is a declared ability of an agent, used by discovery to match
// agents against a goal.
type Capability string

const (
	CapabilityDataRetrieval Capability = "data_retrieval"
	CapabilityReasoning     Capability = "reasoning"
	CapabilityMemoryRead    Capability = "memory_read"
	CapabilityMemoryWrite   Capability = "memory_write"
	CapabilityGeneration    Capability = "generation"
	CapabilityValidation    Capability = "validation"
	CapabilityRouting       Capability = "routing"
)

// KnownCapabilities lists the capability tags recognized in goal hints.
func KnownCapabilities() []Capability {
	return []Capability{
		CapabilityDataRetrieval,
		CapabilityReasoning,
		CapabilityMemoryRead,
		CapabilityMemoryWrite,
		CapabilityGeneration,
		CapabilityValidation,
		CapabilityRouting,
	}
}

// ParseCapabilities converts raw strings into capability tags, trimming
// blanks and dropping duplicates while keeping order.
func ParseCapabilities(raw []string) []Capability {
	out := make([]Capability, 0, len(raw))
	seen := make(map[Capability]struct{}, len(raw))
	for _, r := range raw {
		c := Capability(strings.TrimSpace(r))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// AgentKind selects which implementation executes an agent definition.
type AgentKind string

// Agent kinds.
const (
	KindStatic        AgentKind = "static"
	KindMemoryReader  AgentKind = "memory_reader"
	KindMemoryWriter  AgentKind = "memory_writer"
	KindPathProposer  AgentKind = "path_proposer"
	KindPathValidator AgentKind = "path_validator"
)

// Workflow construct kinds. They are registered like agents so they occupy an
// identifier in their scope, but the orchestrator runs them, not the agent
// factory.
const (
	KindScout        AgentKind = "scout"
	KindLoop         AgentKind = "loop"
	KindFork         AgentKind = "fork"
	KindPathExecutor AgentKind = "path_executor"
)

// IsConstruct reports whether k is a workflow construct.
func (k AgentKind) IsConstruct() bool {
	switch k {
	case KindScout, KindLoop, KindFork, KindPathExecutor:
		return true
	}
	return false
}

// =============================================================================
// Execution result
// =============================================================================

// Status is the outcome of one agent or step execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusEmpty   Status = "empty"
	StatusAborted Status = "aborted"
)

// Result is what an agent's execute contract resolves to.
type Result struct {
	Payload  any            `json:"payload,omitempty"`
	Status   Status         `json:"status"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewResult returns a successful result carrying payload.
func NewResult(payload any) *Result {
	return &Result{Payload: payload, Status: StatusSuccess}
}

// WithMetadata sets a metadata entry and returns the result.
func (r *Result) WithMetadata(key string, value any) *Result {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
	return r
}
