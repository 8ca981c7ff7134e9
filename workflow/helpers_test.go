package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/pathflow/agent"
	"github.com/BaSui01/pathflow/agent/discovery"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow/execctx"
)

const kindFunc types.AgentKind = "test_func"

func static(id string, caps []string, cfg map[string]any) AgentSpec {
	return AgentSpec{ID: id, Kind: string(types.KindStatic), Capabilities: caps, Config: cfg}
}

// researchGraph is a scout, a validation loop and an executor over two
// retrieval agents and one reasoning agent.
func researchGraph(validator map[string]any, maxIterations int) *GraphDefinition {
	return &GraphDefinition{
		ID:    "research",
		Steps: []string{"scout", "review", "exec"},
		Agents: []AgentSpec{
			static("search", []string{"data_retrieval"}, map[string]any{"response": "rows for {{ input }}"}),
			static("lookup", []string{"data_retrieval"}, map[string]any{"response": "cached rows"}),
			static("analysis", []string{"reasoning"}, map[string]any{"response": "analysis of {{ input }}"}),
			{ID: "scout", Kind: "scout", Config: map[string]any{"capabilities": []any{"data_retrieval", "reasoning"}}},
			{
				ID:     "review",
				Kind:   "loop",
				Config: map[string]any{"max_iterations": maxIterations},
				Agents: []AgentSpec{
					{ID: "proposer", Kind: "path_proposer", Config: map[string]any{"candidates_from": "scout"}},
					{ID: "validator", Kind: "path_validator", Config: validator},
				},
			},
			{ID: "exec", Kind: "path_executor", Config: map[string]any{"path_from": "review.result.proposer"}},
		},
	}
}

func mustBuild(t *testing.T, def *GraphDefinition, opts Options) *Workflow {
	t.Helper()
	w, err := Build(def, opts)
	require.NoError(t, err)
	return w
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// factoryWith returns a factory where kindFunc runs fn.
func factoryWith(fn agent.ExecuteFunc) *agent.Factory {
	f := agent.NewFactory(agent.Dependencies{})
	f.RegisterFunc(kindFunc, fn)
	return f
}

func validated(t *testing.T, ids ...string) *discovery.ValidatedPath {
	t.Helper()
	c, err := discovery.NewCandidate(registry.TopScopeID, ids, nil, 1, "")
	require.NoError(t, err)
	vp, err := discovery.Accept(c, "validator", "ok")
	require.NoError(t, err)
	return vp
}

func newTopRegistry(t *testing.T, defs ...*registry.Definition) *registry.Registry {
	t.Helper()
	reg := registry.New(nil)
	for _, d := range defs {
		require.NoError(t, reg.Register(reg.Top(), d))
	}
	return reg
}

func staticDef(id string, cfg map[string]any) *registry.Definition {
	return registry.MustDefinition(id, types.KindStatic, nil, cfg)
}

func newContext(input string) *execctx.ExecutionContext {
	return execctx.New("run-test", map[string]any{execctx.KeyInput: input})
}

func echo(_ context.Context, req *agent.Request) (*types.Result, error) {
	return types.NewResult(map[string]any{"response": req.Input}), nil
}
