package agent

import (
	"context"

	"github.com/BaSui01/pathflow/agent/discovery"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow/execctx"
)

// Agent is the execute contract shared by every kind.
type Agent interface {
	ID() string
	Kind() types.AgentKind
	Capabilities() []types.Capability
	Execute(ctx context.Context, req *Request) (*types.Result, error)
}

// Request is everything an agent sees when it runs.
type Request struct {
	AgentID string
	ScopeID string

	// Config is a copy of the definition's configuration payload.
	Config map[string]any

	// Input is the definition's "input" template rendered against Context.
	Input string

	// Context is the enriched execution context at invocation time.
	Context execctx.Snapshot

	// Attempts holds earlier proposals when running inside a validation loop.
	Attempts []discovery.Attempt

	// Proposal is the candidate under review, set for validators.
	Proposal *discovery.Candidate
}

// base carries the definition-derived part of every built-in agent.
type base struct {
	def *registry.Definition
}

func (b base) ID() string { return b.def.ID() }
func (b base) Kind() types.AgentKind { return b.def.Kind() }
func (b base) Capabilities() []types.Capability { return b.def.Capabilities() }
func (b base) Definition() *registry.Definition { return b.def }
