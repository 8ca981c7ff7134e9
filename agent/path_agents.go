package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/pathflow/agent/discovery"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow/execctx"
)

// pathProposer offers the best candidate that has not been tried yet.
// Config:
//
//	candidates_from: id of a record whose payload holds "candidates"
//	targets:         static list of paths, each a list of agent IDs
type pathProposer struct {
	base
}

func newPathProposer(def *registry.Definition, _ Dependencies) (Agent, error) {
	cfg := def.Config()
	_, hasTargets := cfg["targets"]
	if configString(cfg, "candidates_from", "") == "" && !hasTargets {
		return nil, types.NewError(types.ErrInvalidConfig, "path_proposer needs candidates_from or targets").WithAgent(def.ID())
	}
	return &pathProposer{base: base{def: def}}, nil
}

func (a *pathProposer) Execute(_ context.Context, req *Request) (*types.Result, error) {
	candidates, err := proposerCandidates(req)
	if err != nil {
		return nil, err
	}

	tried := make(map[string]bool, len(req.Attempts))
	for _, at := range req.Attempts {
		if at.Candidate != nil {
			tried[at.Candidate.Key()] = true
		}
	}

	for i, c := range candidates {
		if tried[c.Key()] {
			continue
		}
		rationale := c.Rationale()
		if rationale == "" {
			rationale = "proposing " + c.String()
		}
		return types.NewResult(map[string]any{
			"candidate": c,
			"target":    c.Agents(),
			"score":     c.Score(),
			"rationale": rationale,
			"response":  rationale,
		}).WithMetadata("rank", i+1), nil
	}

	return &types.Result{
		Payload: map[string]any{"response": "no untried candidate left"},
		Status:  types.StatusEmpty,
	}, nil
}

func proposerCandidates(req *Request) ([]*discovery.Candidate, error) {
	if from := configString(req.Config, "candidates_from", ""); from != "" {
		rec, ok := req.Context.Get(from)
		if !ok {
			return nil, types.NewError(types.ErrMissingField,
				fmt.Sprintf("candidates_from %q has no record", from)).WithAgent(from)
		}
		return candidatesFromRecord(rec, req.ScopeID)
	}

	raw, _ := req.Config["targets"].([]any)
	out := make([]*discovery.Candidate, 0, len(raw))
	for i, item := range raw {
		c, err := discovery.CandidateFromPayload(item, req.ScopeID)
		if err != nil {
			return nil, fmt.Errorf("targets[%d]: %w", i, err)
		}
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func candidatesFromRecord(rec execctx.Record, scopeID string) ([]*discovery.Candidate, error) {
	payload, ok := rec.Payload.(map[string]any)
	if !ok {
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("record %q does not carry candidates", rec.AgentID)).WithAgent(rec.AgentID)
	}
	switch list := payload["candidates"].(type) {
	case []*discovery.Candidate:
		return list, nil
	case []any:
		out := make([]*discovery.Candidate, 0, len(list))
		for _, item := range list {
			c, err := discovery.CandidateFromPayload(item, scopeID)
			if err != nil {
				return nil, err
			}
			if c != nil {
				out = append(out, c)
			}
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("unsupported candidates type %T in record %q", list, rec.AgentID)).WithAgent(rec.AgentID)
	}
}

// pathValidator checks the proposal under review against rules. Config:
//
//	max_length:            longest acceptable path
//	min_score:             lowest acceptable score
//	required_capabilities: capabilities the path must cover
//	forbidden_agents:      agents the path must not contain
//	reject_first:          reject the first N proposals of a loop
type pathValidator struct {
	base
}

func newPathValidator(def *registry.Definition, _ Dependencies) (Agent, error) {
	return &pathValidator{base: base{def: def}}, nil
}

func (a *pathValidator) Execute(_ context.Context, req *Request) (*types.Result, error) {
	if req.Proposal == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "validator invoked without a proposal").WithAgent(req.AgentID)
	}

	verdict := validatePath(req.Proposal, req.Config, len(req.Attempts))
	return types.NewResult(map[string]any{
		"accepted": verdict.Accepted,
		"feedback": verdict.Feedback,
		"response": verdict.Feedback,
	}), nil
}

func validatePath(c *discovery.Candidate, cfg map[string]any, previous int) discovery.Verdict {
	var problems []string

	if n := configInt(cfg, "reject_first", 0); previous < n {
		problems = append(problems, fmt.Sprintf("revision %d of %d required", previous+1, n))
	}
	if limit := configInt(cfg, "max_length", 0); limit > 0 && c.Len() > limit {
		problems = append(problems, fmt.Sprintf("path has %d agents, at most %d allowed", c.Len(), limit))
	}
	if floor := configFloat(cfg, "min_score", 0); floor > 0 && c.Score() < floor {
		problems = append(problems, fmt.Sprintf("score %.2f below %.2f", c.Score(), floor))
	}

	covered := make(map[types.Capability]bool)
	for _, cp := range c.Covered() {
		covered[cp] = true
	}
	for _, cp := range types.ParseCapabilities(configStrings(cfg, "required_capabilities")) {
		if !covered[cp] {
			problems = append(problems, fmt.Sprintf("missing capability %s", cp))
		}
	}

	forbidden := make(map[string]bool)
	for _, id := range configStrings(cfg, "forbidden_agents") {
		forbidden[id] = true
	}
	for _, id := range c.Agents() {
		if forbidden[id] {
			problems = append(problems, fmt.Sprintf("agent %s is not allowed", id))
		}
	}

	if len(problems) > 0 {
		return discovery.Verdict{Accepted: false, Feedback: "REJECTED: " + strings.Join(problems, "; ")}
	}
	return discovery.Verdict{Accepted: true, Feedback: "APPROVED: " + c.String()}
}

var (
	_ Agent = (*pathProposer)(nil)
	_ Agent = (*pathValidator)(nil)
)
