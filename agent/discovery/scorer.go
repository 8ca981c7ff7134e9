package discovery

import (
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
)

// ScoreInput is what a Scorer sees for one sequence.
type ScoreInput struct {
	Query    *Query
	Agents   []*registry.Definition
	Required []types.Capability
	Covered  []types.Capability

	// MaxPathLength is the effective length cap of the discovery call.
	MaxPathLength int
}

// Coverage returns the covered fraction of the required capabilities.
func (in ScoreInput) Coverage() float64 {
	if len(in.Required) == 0 {
		return 0
	}
	return float64(len(in.Covered)) / float64(len(in.Required))
}

// Scorer ranks candidate sequences. Higher is better.
type Scorer interface {
	Score(in ScoreInput) float64
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(in ScoreInput) float64

// Score implements Scorer.
func (f ScorerFunc) Score(in ScoreInput) float64 { return f(in) }

// neutralSuccessRate is assumed for agents without history.
const neutralSuccessRate = 0.5

// WeightedScorer combines coverage, path length, declared cost and supplied
// history. Cost is read from each definition's "cost" config value.
type WeightedScorer struct {
	CoverageWeight float64 `json:"coverage_weight" yaml:"coverage_weight"`
	LengthWeight   float64 `json:"length_weight" yaml:"length_weight"`
	CostWeight     float64 `json:"cost_weight" yaml:"cost_weight"`
	HistoryWeight  float64 `json:"history_weight" yaml:"history_weight"`

	History map[string]Performance `json:"-" yaml:"-"`
}

// DefaultScorer ranks by capability coverage only; the scout's stable sort
// then breaks ties by declaration order.
func DefaultScorer() *WeightedScorer {
	return &WeightedScorer{CoverageWeight: 1.0}
}

// Score implements Scorer.
func (s *WeightedScorer) Score(in ScoreInput) float64 {
	score := s.CoverageWeight * in.Coverage()

	if s.LengthWeight != 0 && in.MaxPathLength > 0 {
		score -= s.LengthWeight * float64(len(in.Agents)) / float64(in.MaxPathLength)
	}

	if s.CostWeight != 0 {
		var cost float64
		for _, d := range in.Agents {
			if v, ok := d.ConfigValue("cost"); ok {
				if f, ok := toFloat(v); ok {
					cost += f
				}
			}
		}
		score -= s.CostWeight * cost
	}

	if s.HistoryWeight != 0 && len(in.Agents) > 0 {
		var total float64
		for _, d := range in.Agents {
			if p, ok := s.History[d.ID()]; ok && p.Runs > 0 {
				total += p.SuccessRate
			} else {
				total += neutralSuccessRate
			}
		}
		score += s.HistoryWeight * total / float64(len(in.Agents))
	}
	return score
}

var _ Scorer = (*WeightedScorer)(nil)
