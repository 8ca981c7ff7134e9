package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func register(t *testing.T, r *registry.Registry, scope *registry.Scope, id string, caps ...types.Capability) {
	t.Helper()
	require.NoError(t, r.Register(scope, registry.MustDefinition(id, types.KindStatic, caps, nil)))
}

func newScout(t *testing.T, r *registry.Registry, cfg *ScoutConfig, opts ...ScoutOption) *Scout {
	t.Helper()
	s, err := NewScout(r, cfg, nil, opts...)
	require.NoError(t, err)
	return s
}

func paths(cands []*Candidate) [][]string {
	out := make([][]string, len(cands))
	for i, c := range cands {
		out[i] = c.Agents()
	}
	return out
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestScout_RetrievalBeforeReasoning(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	register(t, r, r.Top(), "search_agent", types.CapabilityDataRetrieval)
	register(t, r, r.Top(), "analysis_agent", types.CapabilityReasoning)

	cands, err := newScout(t, r, nil).Discover(context.Background(), r.Top(), &Query{
		RequiredCapabilities: []types.Capability{types.CapabilityDataRetrieval, types.CapabilityReasoning},
	})
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, []string{"search_agent", "analysis_agent"}, cands[0].Agents())
	assert.Equal(t, 1.0, cands[0].Score())
	assert.Equal(t, registry.TopScopeID, cands[0].ScopeID())
	assert.Empty(t, cands[0].Missing())
	assert.Contains(t, cands[0].Rationale(), "2/2")
}

func TestScout_ReversedDeclarationStillOrdered(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	register(t, r, r.Top(), "analysis_agent", types.CapabilityReasoning)
	register(t, r, r.Top(), "search_agent", types.CapabilityDataRetrieval)

	cands, err := newScout(t, r, nil).Discover(context.Background(), r.Top(), &Query{
		RequiredCapabilities: []types.Capability{types.CapabilityReasoning, types.CapabilityDataRetrieval},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"search_agent", "analysis_agent"}}, paths(cands))
}

func TestScout_SkipsConstructKinds(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	require.NoError(t, r.Register(r.Top(),
		registry.MustDefinition("fan", types.KindFork, []types.Capability{types.CapabilityDataRetrieval}, nil)))
	require.NoError(t, r.Register(r.Top(),
		registry.MustDefinition("review", types.KindLoop, []types.Capability{types.CapabilityReasoning}, nil)))
	register(t, r, r.Top(), "search_agent", types.CapabilityDataRetrieval)
	register(t, r, r.Top(), "analysis_agent", types.CapabilityReasoning)

	cands, err := newScout(t, r, nil).Discover(context.Background(), r.Top(), &Query{
		RequiredCapabilities: []types.Capability{types.CapabilityDataRetrieval, types.CapabilityReasoning},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"search_agent", "analysis_agent"}}, paths(cands))
}

func TestScout_NestedAgentsInvisible(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	require.NoError(t, r.Register(r.Top(), registry.MustDefinition("path_loop", types.KindLoop, nil, nil)))
	loop, err := r.CreateChildScope(r.Top(), "path_loop", registry.ScopeLoop)
	require.NoError(t, err)
	register(t, r, loop, "path_proposer", types.CapabilityReasoning, types.CapabilityRouting)
	register(t, r, loop, "path_validator", types.CapabilityValidation, types.CapabilityReasoning)

	cands, err := newScout(t, r, nil).Discover(context.Background(), r.Top(), &Query{
		RequiredCapabilities: []types.Capability{types.CapabilityReasoning},
	})
	require.NoError(t, err, "an empty result is not an error")
	assert.Empty(t, cands)

	nested, err := newScout(t, r, nil).Discover(context.Background(), loop, &Query{
		RequiredCapabilities: []types.Capability{types.CapabilityReasoning},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"path_proposer"}, {"path_validator"}}, paths(nested))
}

func TestScout_NoAgentsVisible(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	_, err := newScout(t, r, nil).Discover(context.Background(), r.Top(), &Query{
		RequiredCapabilities: []types.Capability{types.CapabilityReasoning},
	})
	require.Error(t, err)
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrNoAgentsVisible, e.Code)
	assert.Equal(t, registry.TopScopeID, e.ScopeID)
}

func TestScout_InvalidQuery(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	register(t, r, r.Top(), "a", types.CapabilityReasoning)
	s := newScout(t, r, nil)

	_, err := s.Discover(context.Background(), r.Top(), nil)
	assert.True(t, types.IsCode(err, types.ErrInvalidQuery))

	_, err = s.Discover(context.Background(), r.Top(), &Query{Goal: "do something nice"})
	assert.True(t, types.IsCode(err, types.ErrInvalidQuery))

	_, err = s.Discover(context.Background(), nil, &Query{Goal: "reasoning"})
	assert.True(t, types.IsCode(err, types.ErrInvalidScope))
}

// ---------------------------------------------------------------------------
// Ranking
// ---------------------------------------------------------------------------

func TestScout_TieBreakByDeclarationOrder(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	register(t, r, r.Top(), "web_search", types.CapabilityDataRetrieval)
	register(t, r, r.Top(), "db_lookup", types.CapabilityDataRetrieval)
	register(t, r, r.Top(), "analyst", types.CapabilityReasoning)
	register(t, r, r.Top(), "all_in_one", types.CapabilityDataRetrieval, types.CapabilityReasoning)

	cands, err := newScout(t, r, nil).Discover(context.Background(), r.Top(), &Query{
		RequiredCapabilities: []types.Capability{types.CapabilityDataRetrieval, types.CapabilityReasoning},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"web_search", "analyst"},
		{"db_lookup", "analyst"},
		{"all_in_one"},
	}, paths(cands))

	// Deterministic across calls.
	again, err := newScout(t, r, nil).Discover(context.Background(), r.Top(), &Query{
		RequiredCapabilities: []types.Capability{types.CapabilityDataRetrieval, types.CapabilityReasoning},
	})
	require.NoError(t, err)
	assert.Equal(t, paths(cands), paths(again))
}

func TestScout_LengthWeightPrefersShorterPaths(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	register(t, r, r.Top(), "web_search", types.CapabilityDataRetrieval)
	register(t, r, r.Top(), "analyst", types.CapabilityReasoning)
	register(t, r, r.Top(), "all_in_one", types.CapabilityDataRetrieval, types.CapabilityReasoning)

	scorer := &WeightedScorer{CoverageWeight: 1, LengthWeight: 0.1}
	cands, err := newScout(t, r, nil, WithScorer(scorer)).Discover(context.Background(), r.Top(), &Query{
		RequiredCapabilities: []types.Capability{types.CapabilityDataRetrieval, types.CapabilityReasoning},
	})
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, []string{"all_in_one"}, cands[0].Agents())
}

func TestScout_HistoryAndCostWeights(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	require.NoError(t, r.Register(r.Top(), registry.MustDefinition("cheap", types.KindStatic,
		[]types.Capability{types.CapabilityReasoning}, map[string]any{"cost": 0.1})))
	require.NoError(t, r.Register(r.Top(), registry.MustDefinition("pricey", types.KindStatic,
		[]types.Capability{types.CapabilityReasoning}, map[string]any{"cost": 2.0})))
	require.NoError(t, r.Register(r.Top(), registry.MustDefinition("reliable", types.KindStatic,
		[]types.Capability{types.CapabilityReasoning}, nil)))

	q := &Query{RequiredCapabilities: []types.Capability{types.CapabilityReasoning}}

	byCost, err := newScout(t, r, nil, WithScorer(&WeightedScorer{CoverageWeight: 1, CostWeight: 1})).
		Discover(context.Background(), r.Top(), q)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"reliable"}, {"cheap"}, {"pricey"}}, paths(byCost))

	byHistory, err := newScout(t, r, nil, WithScorer(&WeightedScorer{
		CoverageWeight: 1,
		HistoryWeight:  1,
		History: map[string]Performance{
			"reliable": {SuccessRate: 0.99, Runs: 50},
			"cheap":    {SuccessRate: 0.2, Runs: 10},
		},
	})).Discover(context.Background(), r.Top(), q)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"reliable"}, {"pricey"}, {"cheap"}}, paths(byHistory))
}

func TestScout_CustomScorerFunc(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	register(t, r, r.Top(), "a", types.CapabilityReasoning)
	register(t, r, r.Top(), "b", types.CapabilityReasoning)

	preferB := ScorerFunc(func(in ScoreInput) float64 {
		if in.Agents[0].ID() == "b" {
			return 2
		}
		return 1
	})
	cands, err := newScout(t, r, nil, WithScorer(preferB)).Discover(context.Background(), r.Top(), &Query{
		RequiredCapabilities: []types.Capability{types.CapabilityReasoning},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"b"}, {"a"}}, paths(cands))
}

func TestScout_MaxCandidatesAndLength(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	register(t, r, r.Top(), "r1", types.CapabilityDataRetrieval)
	register(t, r, r.Top(), "r2", types.CapabilityDataRetrieval)
	register(t, r, r.Top(), "m1", types.CapabilityMemoryRead)
	register(t, r, r.Top(), "a1", types.CapabilityReasoning)

	q := &Query{
		RequiredCapabilities: []types.Capability{types.CapabilityDataRetrieval, types.CapabilityMemoryRead, types.CapabilityReasoning},
		MaxCandidates:        1,
	}
	cands, err := newScout(t, r, nil).Discover(context.Background(), r.Top(), q)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, []string{"r1", "m1", "a1"}, cands[0].Agents())

	q.MaxCandidates = 0
	q.MaxPathLength = 2
	cands, err = newScout(t, r, nil).Discover(context.Background(), r.Top(), q)
	require.NoError(t, err)
	assert.Empty(t, cands, "no two-agent path covers three capabilities")
}

func TestScout_AllowPartial(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	register(t, r, r.Top(), "search_agent", types.CapabilityDataRetrieval)

	cfg := DefaultScoutConfig()
	cfg.AllowPartial = true
	q := &Query{RequiredCapabilities: []types.Capability{types.CapabilityDataRetrieval, types.CapabilityReasoning}}

	cands, err := newScout(t, r, cfg).Discover(context.Background(), r.Top(), q)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, 0.5, cands[0].Score())
	assert.Equal(t, []types.Capability{types.CapabilityReasoning}, cands[0].Missing())

	strict, err := newScout(t, r, nil).Discover(context.Background(), r.Top(), q)
	require.NoError(t, err)
	assert.Empty(t, strict)
}

func TestScout_ExcludeAndHints(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	register(t, r, r.Top(), "search_agent", types.CapabilityDataRetrieval)
	register(t, r, r.Top(), "backup_search", types.CapabilityDataRetrieval)
	register(t, r, r.Top(), "analysis_agent", types.CapabilityReasoning)

	cands, err := newScout(t, r, nil).Discover(context.Background(), r.Top(), &Query{
		Goal:    "Use data_retrieval, then reasoning, to answer",
		Exclude: []string{"search_agent"},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"backup_search", "analysis_agent"}}, paths(cands))
}

func TestScout_RedundantAgentsPruned(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	register(t, r, r.Top(), "both", types.CapabilityDataRetrieval, types.CapabilityReasoning)
	register(t, r, r.Top(), "search_agent", types.CapabilityDataRetrieval)

	cands, err := newScout(t, r, nil).Discover(context.Background(), r.Top(), &Query{
		RequiredCapabilities: []types.Capability{types.CapabilityDataRetrieval, types.CapabilityReasoning},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"both"}}, paths(cands))
}

func TestScout_CancelledContext(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	register(t, r, r.Top(), "a", types.CapabilityReasoning)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newScout(t, r, nil).Discover(ctx, r.Top(), &Query{
		RequiredCapabilities: []types.Capability{types.CapabilityReasoning},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewScout_CyclicOrdering(t *testing.T) {
	t.Parallel()

	cfg := DefaultScoutConfig()
	cfg.Ordering = append(cfg.Ordering, OrderingRule{Before: types.CapabilityMemoryWrite, After: types.CapabilityDataRetrieval})

	_, err := NewScout(registry.New(nil), cfg, nil)
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}
