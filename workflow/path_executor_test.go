package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/BaSui01/pathflow/agent"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
)

func TestPathExecutor_RunsInOrderWithTemplates(t *testing.T) {
	reg := newTopRegistry(t,
		staticDef("a", map[string]any{"response": "alpha"}),
		staticDef("b", map[string]any{"response": "{{ a.response }} then beta"}),
	)
	ec := newContext("q")

	res, err := NewPathExecutor(reg, Options{}).Execute(context.Background(), validated(t, "a", "b"), reg.Top(), ec)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"a", "b"}, res.Executed)
	assert.Len(t, res.Records, 2)

	got, err := ec.Snapshot().Lookup("b.response")
	require.NoError(t, err)
	assert.Equal(t, "alpha then beta", got.String())
}

func TestPathExecutor_FailureStopsAtAgent(t *testing.T) {
	reg := newTopRegistry(t,
		staticDef("a", nil),
		staticDef("b", map[string]any{"fail": "backend down"}),
		staticDef("c", nil),
	)
	ec := newContext("q")

	res, err := NewPathExecutor(reg, Options{}).Execute(context.Background(), validated(t, "a", "b", "c"), reg.Top(), ec)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrPathExecutionFailed))
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "b", e.AgentID)
	assert.Contains(t, err.Error(), "backend down")

	assert.False(t, res.Success)
	assert.Equal(t, "b", res.FailedAt)
	assert.Equal(t, []string{"a"}, res.Executed)

	a, ok := ec.Get("a")
	require.True(t, ok)
	assert.Equal(t, types.StatusSuccess, a.Status)
	b, ok := ec.Get("b")
	require.True(t, ok)
	assert.Equal(t, types.StatusFailed, b.Status)
	assert.False(t, ec.Has("c"))
}

func TestPathExecutor_TopScopeOnly(t *testing.T) {
	reg := newTopRegistry(t, staticDef("a", nil))
	child, err := reg.CreateChildScope(reg.Top(), "loop", registry.ScopeLoop)
	require.NoError(t, err)

	_, err = NewPathExecutor(reg, Options{}).Execute(context.Background(), validated(t, "a"), child, newContext(""))
	assert.True(t, types.IsCode(err, types.ErrInvalidScope))
}

func TestPathExecutor_RequiresValidatedPath(t *testing.T) {
	reg := newTopRegistry(t, staticDef("a", nil))
	_, err := NewPathExecutor(reg, Options{}).Execute(context.Background(), nil, reg.Top(), newContext(""))
	assert.True(t, types.IsCode(err, types.ErrPathNotValidated))
}

func TestPathExecutor_NestedAgentNotFound(t *testing.T) {
	reg := newTopRegistry(t)
	child, err := reg.CreateChildScope(reg.Top(), "review", registry.ScopeLoop)
	require.NoError(t, err)
	require.NoError(t, reg.Register(child, registry.MustDefinition("path_proposer", types.KindPathProposer, nil, map[string]any{"candidates_from": "scout"})))

	ec := newContext("")
	res, err := NewPathExecutor(reg, Options{}).Execute(context.Background(), validated(t, "path_proposer"), reg.Top(), ec)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrAgentNotFound))
	assert.True(t, types.IsCode(err, types.ErrPathExecutionFailed))
	assert.Contains(t, err.Error(), `scope="root"`)
	assert.Equal(t, "path_proposer", res.FailedAt)
	assert.Equal(t, 0, ec.Len())
}

func TestPathExecutor_CancelBetweenAgents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factory := factoryWith(func(_ context.Context, req *agent.Request) (*types.Result, error) {
		cancel()
		return types.NewResult("done"), nil
	})
	reg := newTopRegistry(t,
		registry.MustDefinition("first", kindFunc, nil, nil),
		staticDef("second", nil),
	)
	ec := newContext("")

	res, err := NewPathExecutor(reg, Options{Factory: factory}).Execute(ctx, validated(t, "first", "second"), reg.Top(), ec)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrRunAborted))
	assert.True(t, res.Aborted)
	assert.Equal(t, []string{"first"}, res.Executed)
	assert.True(t, ec.Has("first"))
	assert.False(t, ec.Has("second"))
}

func TestPathExecutor_PerAgentTimeout(t *testing.T) {
	reg := newTopRegistry(t, staticDef("slow", map[string]any{"delay": "2s", "timeout": "20ms"}))
	ec := newContext("")

	start := time.Now()
	_, err := NewPathExecutor(reg, Options{}).Execute(context.Background(), validated(t, "slow"), reg.Top(), ec)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")

	rec, ok := ec.Get("slow")
	require.True(t, ok)
	assert.Equal(t, types.StatusFailed, rec.Status)
}

func TestPathExecutor_TemplateMissingFieldFails(t *testing.T) {
	reg := newTopRegistry(t, staticDef("a", map[string]any{"input": "{{ ghost.response }}"}))

	_, err := NewPathExecutor(reg, Options{}).Execute(context.Background(), validated(t, "a"), reg.Top(), newContext(""))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMissingField))
}

func TestPathExecutor_DuplicateRecordFails(t *testing.T) {
	reg := newTopRegistry(t, staticDef("a", map[string]any{"response": "second"}))
	ec := newContext("")
	exec := NewPathExecutor(reg, Options{})

	_, err := exec.Execute(context.Background(), validated(t, "a"), reg.Top(), ec)
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), validated(t, "a"), reg.Top(), ec)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrDuplicateIdentifier))
	assert.Equal(t, "a", res.FailedAt)
	assert.Equal(t, 1, ec.Len())
}

func TestPathExecutor_RateLimiterHonoursDeadline(t *testing.T) {
	reg := newTopRegistry(t, staticDef("a", nil), staticDef("b", nil))
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := NewPathExecutor(reg, Options{Limiter: limiter}).Execute(ctx, validated(t, "a", "b"), reg.Top(), newContext(""))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrRunAborted))
	assert.Equal(t, []string{"a"}, res.Executed)
	assert.Equal(t, "b", res.FailedAt)
}

func TestPathExecutor_UsesRunInputByDefault(t *testing.T) {
	factory := factoryWith(echo)
	reg := newTopRegistry(t, registry.MustDefinition("e", kindFunc, nil, nil))
	ec := newContext("hello")

	_, err := NewPathExecutor(reg, Options{Factory: factory}).Execute(context.Background(), validated(t, "e"), reg.Top(), ec)
	require.NoError(t, err)
	got, err := ec.Snapshot().Lookup("e.response")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.String())
}
