package discovery

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/pathflow/types"
)

// Query describes what a caller wants a path for.
type Query struct {
	// Goal is a free-form description. Capability names appearing in it are
	// used when RequiredCapabilities is empty.
	Goal string `json:"goal,omitempty" yaml:"goal,omitempty"`

	// RequiredCapabilities is the set a path should cover.
	RequiredCapabilities []types.Capability `json:"required_capabilities,omitempty" yaml:"required_capabilities,omitempty"`

	// MaxCandidates overrides the scout default when positive.
	MaxCandidates int `json:"max_candidates,omitempty" yaml:"max_candidates,omitempty"`

	// MaxPathLength overrides the scout default when positive.
	MaxPathLength int `json:"max_path_length,omitempty" yaml:"max_path_length,omitempty"`

	// Exclude lists agent IDs that must not appear in any candidate.
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// Performance is supplied historical data for one agent.
type Performance struct {
	SuccessRate float64       `json:"success_rate"`
	AvgLatency  time.Duration `json:"avg_latency"`
	Runs        int           `json:"runs"`
}

// =============================================================================
// Candidate
// =============================================================================

// Candidate is an immutable proposed path: agent IDs resolvable in the scope
// the scout searched, with a score and a rationale.
type Candidate struct {
	agents       []string
	capabilities map[string][]types.Capability
	covered      []types.Capability
	missing      []types.Capability
	score        float64
	rationale    string
	scopeID      string
}

// NewCandidate builds a candidate outside the scout, for proposers that
// assemble paths themselves. capabilities may be nil.
func NewCandidate(scopeID string, agents []string, capabilities map[string][]types.Capability, score float64, rationale string) (*Candidate, error) {
	if len(agents) == 0 {
		return nil, types.NewError(types.ErrNoViablePath, "candidate path is empty").WithScope(scopeID)
	}
	seen := make(map[string]struct{}, len(agents))
	for _, id := range agents {
		if id == "" {
			return nil, types.NewError(types.ErrInvalidConfig, "candidate path contains an empty identifier").WithScope(scopeID)
		}
		if _, dup := seen[id]; dup {
			return nil, types.NewError(types.ErrInvalidConfig, "candidate path repeats an agent").
				WithAgent(id).
				WithScope(scopeID)
		}
		seen[id] = struct{}{}
	}

	c := &Candidate{
		agents:       append([]string(nil), agents...),
		capabilities: make(map[string][]types.Capability, len(capabilities)),
		score:        score,
		rationale:    rationale,
		scopeID:      scopeID,
	}
	for id, caps := range capabilities {
		c.capabilities[id] = append([]types.Capability(nil), caps...)
	}
	return c, nil
}

// Agents returns a copy of the agent IDs in execution order.
func (c *Candidate) Agents() []string { return append([]string(nil), c.agents...) }

// Len returns the path length.
func (c *Candidate) Len() int { return len(c.agents) }

// Score returns the scorer's value.
func (c *Candidate) Score() float64 { return c.score }

// Rationale explains why the path was proposed.
func (c *Candidate) Rationale() string { return c.rationale }

// ScopeID is the scope the agent IDs are resolvable in.
func (c *Candidate) ScopeID() string { return c.scopeID }

// Covered returns the required capabilities the path provides.
func (c *Candidate) Covered() []types.Capability { return append([]types.Capability(nil), c.covered...) }

// Missing returns the required capabilities the path lacks.
func (c *Candidate) Missing() []types.Capability { return append([]types.Capability(nil), c.missing...) }

// CapabilitiesOf returns the declared capabilities recorded for id.
func (c *Candidate) CapabilitiesOf(id string) []types.Capability {
	return append([]types.Capability(nil), c.capabilities[id]...)
}

// Key is a stable string form of the path, used to compare proposals.
func (c *Candidate) Key() string { return strings.Join(c.agents, "->") }

// String implements fmt.Stringer.
func (c *Candidate) String() string {
	return fmt.Sprintf("[%s] score=%.3f", c.Key(), c.score)
}

type candidateJSON struct {
	Target       []string                      `json:"target"`
	Score        float64                       `json:"score"`
	Rationale    string                        `json:"rationale,omitempty"`
	ScopeID      string                        `json:"scope_id,omitempty"`
	Covered      []types.Capability            `json:"covered,omitempty"`
	Missing      []types.Capability            `json:"missing,omitempty"`
	Capabilities map[string][]types.Capability `json:"capabilities,omitempty"`
}

func (c *Candidate) toJSON() candidateJSON {
	return candidateJSON{
		Target:       c.agents,
		Score:        c.score,
		Rationale:    c.rationale,
		ScopeID:      c.scopeID,
		Covered:      c.covered,
		Missing:      c.missing,
		Capabilities: c.capabilities,
	}
}

// MarshalJSON exposes the path under "target" so lookup paths such as
// <id>.result.<proposer>.target resolve to the agent list.
func (c *Candidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toJSON())
}

// UnmarshalJSON restores a candidate from its JSON form.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var raw candidateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewCandidate(raw.ScopeID, raw.Target, raw.Capabilities, raw.Score, raw.Rationale)
	if err != nil {
		return err
	}
	parsed.covered = raw.Covered
	parsed.missing = raw.Missing
	*c = *parsed
	return nil
}

// =============================================================================
// Validated path
// =============================================================================

// ValidatedPath is a candidate that passed validation, or was accepted
// without a validator. It wraps its own copy of the candidate.
type ValidatedPath struct {
	candidate   Candidate
	validatedBy string
	feedback    string
	acceptedAt  time.Time
}

// Accept produces a validated path from a candidate the validator approved.
func Accept(c *Candidate, validatorID, feedback string) (*ValidatedPath, error) {
	if c == nil || len(c.agents) == 0 {
		return nil, types.NewError(types.ErrNoViablePath, "cannot accept an empty candidate").WithAgent(validatorID)
	}
	return &ValidatedPath{
		candidate:   *c.clone(),
		validatedBy: validatorID,
		feedback:    feedback,
		acceptedAt:  time.Now(),
	}, nil
}

// AcceptUnvalidated accepts a candidate when no validation loop is configured.
func AcceptUnvalidated(c *Candidate) (*ValidatedPath, error) {
	return Accept(c, "", "accepted without validation")
}

// Agents returns the agent IDs in execution order.
func (v *ValidatedPath) Agents() []string { return v.candidate.Agents() }

// Len returns the path length.
func (v *ValidatedPath) Len() int { return len(v.candidate.agents) }

// Score returns the candidate score.
func (v *ValidatedPath) Score() float64 { return v.candidate.score }

// Rationale returns the candidate rationale.
func (v *ValidatedPath) Rationale() string { return v.candidate.rationale }

// ScopeID returns the scope the candidate was discovered in.
func (v *ValidatedPath) ScopeID() string { return v.candidate.scopeID }

// ValidatedBy is the validator ID, empty when accepted without validation.
func (v *ValidatedPath) ValidatedBy() string { return v.validatedBy }

// Validated reports whether a validator approved the path.
func (v *ValidatedPath) Validated() bool { return v.validatedBy != "" }

// Feedback is the validator's acceptance note.
func (v *ValidatedPath) Feedback() string { return v.feedback }

// AcceptedAt is when the path was accepted.
func (v *ValidatedPath) AcceptedAt() time.Time { return v.acceptedAt }

// Candidate returns a copy of the underlying candidate.
func (v *ValidatedPath) Candidate() *Candidate { return v.candidate.clone() }

// MarshalJSON encodes the path with the validation details.
func (v *ValidatedPath) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		candidateJSON
		ValidatedBy string    `json:"validated_by,omitempty"`
		Feedback    string    `json:"feedback,omitempty"`
		AcceptedAt  time.Time `json:"accepted_at"`
	}{
		candidateJSON: v.candidate.toJSON(),
		ValidatedBy:   v.validatedBy,
		Feedback:      v.feedback,
		AcceptedAt:    v.acceptedAt,
	})
}

func (c *Candidate) clone() *Candidate {
	out := &Candidate{
		agents:       append([]string(nil), c.agents...),
		capabilities: make(map[string][]types.Capability, len(c.capabilities)),
		covered:      append([]types.Capability(nil), c.covered...),
		missing:      append([]types.Capability(nil), c.missing...),
		score:        c.score,
		rationale:    c.rationale,
		scopeID:      c.scopeID,
	}
	for id, caps := range c.capabilities {
		out.capabilities[id] = append([]types.Capability(nil), caps...)
	}
	return out
}

// =============================================================================
// Validation verdicts
// =============================================================================

// Verdict is a validator's decision on one candidate.
type Verdict struct {
	Accepted bool   `json:"accepted"`
	Feedback string `json:"feedback,omitempty"`
}

// Attempt records one rejected or accepted proposal inside a validation loop.
type Attempt struct {
	Iteration int        `json:"iteration"`
	Candidate *Candidate `json:"candidate,omitempty"`
	Accepted  bool       `json:"accepted"`
	Feedback  string     `json:"feedback,omitempty"`
}
