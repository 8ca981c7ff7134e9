package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
)

// AgentSource lists the definitions visible in a scope.
type AgentSource interface {
	VisibleAgents(scope *registry.Scope) []*registry.Definition
}

// ScoutConfig holds configuration for the scout.
type ScoutConfig struct {
	// MaxCandidates caps the number of candidates returned.
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`

	// MaxPathLength caps the number of agents in one candidate.
	MaxPathLength int `json:"max_path_length" yaml:"max_path_length"`

	// MaxExploredPaths bounds enumeration on large scopes.
	MaxExploredPaths int `json:"max_explored_paths" yaml:"max_explored_paths"`

	// AllowPartial returns partially covering paths when no path covers
	// every required capability.
	AllowPartial bool `json:"allow_partial" yaml:"allow_partial"`

	// Ordering lists capability ordering rules.
	Ordering []OrderingRule `json:"ordering" yaml:"ordering"`
}

// DefaultScoutConfig returns a ScoutConfig with sensible defaults.
func DefaultScoutConfig() *ScoutConfig {
	return &ScoutConfig{
		MaxCandidates:    5,
		MaxPathLength:    3,
		MaxExploredPaths: 10000,
		AllowPartial:     false,
		Ordering:         DefaultOrderingRules(),
	}
}

// ScoutOption customizes a Scout.
type ScoutOption func(*Scout)

// WithScorer replaces the default scorer.
func WithScorer(s Scorer) ScoutOption {
	return func(sc *Scout) {
		if s != nil {
			sc.scorer = s
		}
	}
}

// Scout proposes ranked candidate paths over exactly one scope.
type Scout struct {
	source   AgentSource
	config   *ScoutConfig
	ordering *Ordering
	scorer   Scorer
	logger   *zap.Logger
}

// NewScout creates a scout. It fails when the ordering rules are cyclic.
func NewScout(source AgentSource, config *ScoutConfig, logger *zap.Logger, opts ...ScoutOption) (*Scout, error) {
	if source == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "scout needs an agent source")
	}
	if config == nil {
		config = DefaultScoutConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ordering, err := NewOrdering(config.Ordering)
	if err != nil {
		return nil, err
	}

	s := &Scout{
		source:   source,
		config:   config,
		ordering: ordering,
		scorer:   DefaultScorer(),
		logger:   logger.With(zap.String("component", "scout")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ordering returns the scout's capability ordering.
func (s *Scout) Ordering() *Ordering { return s.ordering }

// Discover returns ranked candidate paths for query over the agents visible
// in scope. An empty slice means no viable path and is not an error.
func (s *Scout) Discover(ctx context.Context, scope *registry.Scope, query *Query) ([]*Candidate, error) {
	start := time.Now()
	if query == nil {
		return nil, types.NewError(types.ErrInvalidQuery, "query is nil")
	}
	if scope == nil {
		return nil, types.NewError(types.ErrInvalidScope, "scope is nil")
	}

	visible := s.source.VisibleAgents(scope)
	if len(visible) == 0 {
		return nil, types.NewError(types.ErrNoAgentsVisible, "no agents visible in scope").WithScope(scope.ID())
	}

	required := s.requiredCapabilities(query, visible)
	if len(required) == 0 {
		return nil, types.NewError(types.ErrInvalidQuery, "query names no required capabilities").WithScope(scope.ID())
	}

	maxLen := s.config.MaxPathLength
	if query.MaxPathLength > 0 {
		maxLen = query.MaxPathLength
	}
	if maxLen <= 0 {
		maxLen = 1
	}
	maxCandidates := s.config.MaxCandidates
	if query.MaxCandidates > 0 {
		maxCandidates = query.MaxCandidates
	}

	filtered := filterAgents(visible, required, query.Exclude)

	e := &enumerator{
		ctx:      ctx,
		agents:   filtered,
		required: required,
		ordering: s.ordering,
		maxLen:   maxLen,
		budget:   s.config.MaxExploredPaths,
		used:     make([]bool, len(filtered)),
	}
	if err := e.run(); err != nil {
		return nil, err
	}

	sequences := e.full
	if len(sequences) == 0 && s.config.AllowPartial {
		sequences = e.partial
	}

	candidates := make([]*Candidate, 0, len(sequences))
	for _, seq := range sequences {
		candidates = append(candidates, s.buildCandidate(scope, query, seq, required, maxLen))
	}

	// Enumeration order is declaration order, so a stable sort keeps it as
	// the tie-break.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if maxCandidates > 0 && len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	s.logger.Debug("discovery completed",
		zap.String("scope_id", scope.ID()),
		zap.Int("visible", len(visible)),
		zap.Int("filtered", len(filtered)),
		zap.Int("explored", e.explored),
		zap.Int("candidates", len(candidates)),
		zap.Duration("duration", time.Since(start)),
	)
	return candidates, nil
}

func (s *Scout) requiredCapabilities(query *Query, visible []*registry.Definition) []types.Capability {
	if len(query.RequiredCapabilities) > 0 {
		out := make([]types.Capability, 0, len(query.RequiredCapabilities))
		seen := make(map[types.Capability]struct{}, len(query.RequiredCapabilities))
		for _, c := range query.RequiredCapabilities {
			if _, dup := seen[c]; dup || c == "" {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
		return out
	}

	known := types.KnownCapabilities()
	for _, d := range visible {
		known = append(known, d.Capabilities()...)
	}
	return ParseCapabilityHints(query.Goal, known)
}

func (s *Scout) buildCandidate(scope *registry.Scope, query *Query, seq []*registry.Definition, required []types.Capability, maxLen int) *Candidate {
	ids := make([]string, len(seq))
	caps := make(map[string][]types.Capability, len(seq))
	for i, d := range seq {
		ids[i] = d.ID()
		caps[d.ID()] = d.Capabilities()
	}
	covered, missing := coverage(seq, required)

	score := s.scorer.Score(ScoreInput{
		Query:         query,
		Agents:        seq,
		Required:      required,
		Covered:       covered,
		MaxPathLength: maxLen,
	})

	rationale := fmt.Sprintf("covers %d/%d required capabilities (%s) via %s",
		len(covered), len(required), joinCaps(covered), strings.Join(ids, " -> "))
	if len(missing) > 0 {
		rationale += fmt.Sprintf("; missing %s", joinCaps(missing))
	}

	return &Candidate{
		agents:       ids,
		capabilities: caps,
		covered:      covered,
		missing:      missing,
		score:        score,
		rationale:    rationale,
		scopeID:      scope.ID(),
	}
}

// =============================================================================
// Enumeration
// =============================================================================

type enumerator struct {
	ctx      context.Context
	agents   []*registry.Definition
	required []types.Capability
	ordering *Ordering
	maxLen   int
	budget   int

	used     []bool
	path     []int
	explored int

	full    [][]*registry.Definition
	partial [][]*registry.Definition
}

func (e *enumerator) run() error {
	return e.extend()
}

// extend walks sequences depth-first in declaration order.
func (e *enumerator) extend() error {
	if len(e.path) == e.maxLen {
		return nil
	}
	for i, next := range e.agents {
		if e.used[i] {
			continue
		}
		if e.budget > 0 && e.explored >= e.budget {
			return nil
		}
		if err := e.ctx.Err(); err != nil {
			return err
		}
		if !e.orderAllows(next) || !e.contributes(next) {
			continue
		}

		e.explored++
		e.used[i] = true
		e.path = append(e.path, i)

		e.record()
		if err := e.extend(); err != nil {
			return err
		}

		e.path = e.path[:len(e.path)-1]
		e.used[i] = false
	}
	return nil
}

func (e *enumerator) orderAllows(next *registry.Definition) bool {
	for _, idx := range e.path {
		if !e.ordering.Allows(e.agents[idx], next) {
			return false
		}
	}
	return true
}

// contributes reports whether next adds a required capability the current
// path lacks.
func (e *enumerator) contributes(next *registry.Definition) bool {
	for _, c := range e.required {
		if !next.HasCapability(c) {
			continue
		}
		provided := false
		for _, idx := range e.path {
			if e.agents[idx].HasCapability(c) {
				provided = true
				break
			}
		}
		if !provided {
			return true
		}
	}
	return false
}

func (e *enumerator) record() {
	seq := make([]*registry.Definition, len(e.path))
	for i, idx := range e.path {
		seq[i] = e.agents[idx]
	}
	if !irredundant(seq, e.required) {
		return
	}
	covered, _ := coverage(seq, e.required)
	if len(covered) == len(e.required) {
		e.full = append(e.full, seq)
	} else {
		e.partial = append(e.partial, seq)
	}
}

// irredundant reports whether every agent provides a required capability no
// other agent in seq provides.
func irredundant(seq []*registry.Definition, required []types.Capability) bool {
	for i, d := range seq {
		unique := false
		for _, c := range required {
			if !d.HasCapability(c) {
				continue
			}
			shared := false
			for j, other := range seq {
				if j != i && other.HasCapability(c) {
					shared = true
					break
				}
			}
			if !shared {
				unique = true
				break
			}
		}
		if !unique {
			return false
		}
	}
	return true
}

func filterAgents(visible []*registry.Definition, required []types.Capability, exclude []string) []*registry.Definition {
	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}
	out := make([]*registry.Definition, 0, len(visible))
	for _, d := range visible {
		if _, skip := excluded[d.ID()]; skip {
			continue
		}
		// Constructs orchestrate other agents and cannot run as path members.
		if d.Kind().IsConstruct() {
			continue
		}
		for _, c := range required {
			if d.HasCapability(c) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

func coverage(seq []*registry.Definition, required []types.Capability) (covered, missing []types.Capability) {
	for _, c := range required {
		found := false
		for _, d := range seq {
			if d.HasCapability(c) {
				found = true
				break
			}
		}
		if found {
			covered = append(covered, c)
		} else {
			missing = append(missing, c)
		}
	}
	return covered, missing
}

func joinCaps(caps []types.Capability) string {
	parts := make([]string, len(caps))
	for i, c := range caps {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
