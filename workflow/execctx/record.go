package execctx

import (
	"time"

	"github.com/BaSui01/pathflow/types"
)

// Reserved top-level keys of the lookup document. They cannot be used as
// record identifiers.
const (
	KeyInput = "input"
	KeyVars  = "vars"
	KeyRun   = "run"
)

// IsReserved reports whether id collides with a lookup document key.
func IsReserved(id string) bool {
	switch id {
	case KeyInput, KeyVars, KeyRun:
		return true
	}
	return false
}

// Record is one agent's result inside an execution context.
type Record struct {
	AgentID      string             `json:"agent_id"`
	Kind         types.AgentKind    `json:"kind,omitempty"`
	ScopeID      string             `json:"scope_id,omitempty"`
	Status       types.Status       `json:"status"`
	Payload      any                `json:"payload,omitempty"`
	Capabilities []types.Capability `json:"capabilities,omitempty"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
	Duration     time.Duration      `json:"duration"`
	Error        string             `json:"error,omitempty"`
	Metadata     map[string]any     `json:"metadata,omitempty"`

	// Response is the canonical accessor for the record's main output. It
	// is filled by Enrich and may be preset by the producer.
	Response any `json:"response,omitempty"`

	// Incomplete marks an enriched record with no primary output.
	Incomplete bool `json:"incomplete,omitempty"`
}

// Succeeded reports whether the record has a success status.
func (r Record) Succeeded() bool {
	return r.Status == types.StatusSuccess
}

// NewRecord builds a record from an agent result and its timing.
func NewRecord(agentID string, kind types.AgentKind, res *types.Result, started, finished time.Time) Record {
	rec := Record{
		AgentID:    agentID,
		Kind:       kind,
		Status:     types.StatusSuccess,
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
	}
	if res != nil {
		rec.Payload = res.Payload
		if res.Status != "" {
			rec.Status = res.Status
		}
		if len(res.Metadata) > 0 {
			rec.Metadata = make(map[string]any, len(res.Metadata))
			for k, v := range res.Metadata {
				rec.Metadata[k] = v
			}
		}
	}
	return rec
}

// FailedRecord builds a record for an agent that returned an error.
func FailedRecord(agentID string, kind types.AgentKind, err error, started, finished time.Time) Record {
	rec := Record{
		AgentID:    agentID,
		Kind:       kind,
		Status:     types.StatusFailed,
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

func (r Record) clone() Record {
	out := r
	if r.Capabilities != nil {
		out.Capabilities = make([]types.Capability, len(r.Capabilities))
		copy(out.Capabilities, r.Capabilities)
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
