package mocks_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pathflow/agent"
	"github.com/BaSui01/pathflow/testutil"
	"github.com/BaSui01/pathflow/testutil/mocks"
	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow"
)

const kindMock types.AgentKind = "mock"

func TestMockKind_ScriptedRun(t *testing.T) {
	kind := mocks.NewMockKind().
		WithResponse("a", map[string]any{"response": "from a"}).
		WithError("c", errors.New("boom"))

	factory := agent.NewFactory(agent.Dependencies{})
	factory.Register(kindMock, kind.Constructor())

	def := &workflow.GraphDefinition{
		ID:    "mocked",
		Steps: []string{"a", "b", "c"},
		Agents: []workflow.AgentSpec{
			{ID: "a", Kind: string(kindMock)},
			{ID: "b", Kind: string(kindMock)},
			{ID: "c", Kind: string(kindMock)},
		},
	}
	w, err := workflow.Build(def, workflow.Options{Factory: factory})
	require.NoError(t, err)

	res, err := w.Run(testutil.TestContext(t), "q", nil)
	testutil.AssertErrorCode(t, err, types.ErrAgentFailed)
	assert.Equal(t, []string{"a", "b", "c"}, kind.Calls())
	assert.Equal(t, 1, kind.CallCount("b"))
	assert.Equal(t, "q", kind.Requests("b")[0].Input)

	b, err := res.Context.Snapshot().Lookup("b.response")
	require.NoError(t, err)
	assert.Equal(t, "b:q", b.String())

	kind.Reset()
	assert.Empty(t, kind.Calls())
}

func TestMockStore_BacksMemoryAgents(t *testing.T) {
	store := mocks.NewMockStore().WithEntry("notes:old", "first")
	factory := agent.NewFactory(agent.Dependencies{Memory: store})

	def := &workflow.GraphDefinition{
		ID:    "notes",
		Steps: []string{"write", "read"},
		Agents: []workflow.AgentSpec{
			{ID: "write", Kind: string(types.KindMemoryWriter), Config: map[string]any{"namespace": "notes", "key": "new"}},
			{ID: "read", Kind: string(types.KindMemoryReader), Config: map[string]any{"namespace": "notes", "pattern": "*"}},
		},
	}
	w, err := workflow.Build(def, workflow.Options{Factory: factory})
	require.NoError(t, err)

	res, err := w.Run(testutil.TestContext(t), "second", nil)
	require.NoError(t, err)

	got, err := res.Context.Snapshot().Lookup("read.response")
	require.NoError(t, err)
	assert.Equal(t, "second\nfirst", got.String())
	assert.Equal(t, []string{"notes:new", "notes:old"}, store.Keys())
	assert.Equal(t, 1, store.SaveCalls())
	assert.Equal(t, 1, store.ListCalls())
}

func TestMockStore_ErrorInjection(t *testing.T) {
	store := mocks.NewMockStore().WithLoadError(errors.New("down"))
	_, err := store.Load(testutil.TestContext(t), "k")
	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, store.LoadCalls())
}
