package execctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pathflow/types"
)

// ---------------------------------------------------------------------------
// Enrich
// ---------------------------------------------------------------------------

func TestEnrich_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		payload    any
		want       any
		incomplete bool
	}{
		{"text payload", "plain answer", "plain answer", false},
		{"direct accessor", map[string]any{"response": "direct", "confidence": 0.9}, "direct", false},
		{"nested in result", map[string]any{"result": map[string]any{"response": "nested", "tokens": 12}}, "nested", false},
		{"text result", map[string]any{"result": "wrapped text"}, "wrapped text", false},
		{"no primary output", map[string]any{"memories": []any{}, "meta": 1}, nil, true},
		{"nil payload", nil, nil, true},
		{"deep nesting not guessed", map[string]any{"result": map[string]any{"inner": map[string]any{"response": "x"}}}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := New("run", nil)
			require.NoError(t, ec.Append(rec("agent", tt.payload)))

			got, ok := Enrich(ec.Snapshot()).Get("agent")
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Response)
			assert.Equal(t, tt.incomplete, got.Incomplete)
			assert.Equal(t, tt.payload, got.Payload, "payload must never be replaced")
		})
	}
}

func TestEnrich_PresetResponseUntouched(t *testing.T) {
	t.Parallel()

	r := rec("agent", map[string]any{"response": "from payload"})
	r.Response = "preset"
	snap := NewSnapshot("run", []Record{r}, nil)

	got, _ := snap.Enrich().Get("agent")
	assert.Equal(t, "preset", got.Response)
}

func TestEnrich_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	ec := New("run", nil)
	require.NoError(t, ec.Append(rec("a", map[string]any{"result": map[string]any{"response": "x"}})))
	snap := ec.Snapshot()
	_ = Enrich(snap)

	orig, _ := snap.Get("a")
	assert.Nil(t, orig.Response)
	assert.False(t, orig.Incomplete)
}

// ---------------------------------------------------------------------------
// Lookup / Render
// ---------------------------------------------------------------------------

func newLookupSnapshot(t *testing.T) Snapshot {
	t.Helper()
	ec := New("run-7", map[string]any{KeyInput: "what is up", "lang": "en"})
	require.NoError(t, ec.Append(rec("search_agent", map[string]any{"result": map[string]any{"response": "ten links"}})))
	require.NoError(t, ec.Append(rec("memory_reader", map[string]any{"memories": []any{"a", "b"}})))
	require.NoError(t, ec.Append(rec("path_loop", map[string]any{
		"path_proposer": map[string]any{"target": []string{"search_agent", "analysis_agent"}},
	})))
	return ec.Snapshot()
}

func TestSnapshot_Lookup(t *testing.T) {
	t.Parallel()

	snap := newLookupSnapshot(t)

	res, err := snap.Lookup("search_agent.response")
	require.NoError(t, err)
	assert.Equal(t, "ten links", res.String())

	res, err = snap.Lookup("path_loop.result.path_proposer.target")
	require.NoError(t, err)
	assert.Equal(t, `["search_agent","analysis_agent"]`, res.Raw)

	res, err = snap.Lookup("memory_reader.result.memories.1")
	require.NoError(t, err)
	assert.Equal(t, "b", res.String())

	res, err = snap.Lookup("vars.lang")
	require.NoError(t, err)
	assert.Equal(t, "en", res.String())

	res, err = snap.Lookup("run.id")
	require.NoError(t, err)
	assert.Equal(t, "run-7", res.String())
}

func TestSnapshot_LookupMissing(t *testing.T) {
	t.Parallel()

	snap := newLookupSnapshot(t)

	_, err := snap.Lookup("memory_reader.response")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMissingField))
	assert.Contains(t, err.Error(), "no primary output")

	_, err = snap.Lookup("search_agent.result.nope")
	assert.True(t, types.IsCode(err, types.ErrMissingField))

	_, err = snap.Lookup("ghost.response")
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "ghost", e.AgentID)

	_, err = snap.Lookup("  ")
	assert.True(t, types.IsCode(err, types.ErrMissingField))
}

func TestSnapshot_Render(t *testing.T) {
	t.Parallel()

	snap := newLookupSnapshot(t)

	out, err := snap.Render("Q: {{ input }} / A: {{search_agent.response}} / path={{ path_loop.result.path_proposer.target }}")
	require.NoError(t, err)
	assert.Equal(t, `Q: what is up / A: ten links / path=["search_agent","analysis_agent"]`, out)

	out, err = snap.Render("no placeholders")
	require.NoError(t, err)
	assert.Equal(t, "no placeholders", out)
}

func TestSnapshot_RenderNeverSilentlyEmpty(t *testing.T) {
	t.Parallel()

	snap := newLookupSnapshot(t)

	out, err := snap.Render("memory: {{ memory_reader.response }}")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.True(t, types.IsCode(err, types.ErrMissingField))
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a.response", "input"}, Placeholders("{{ a.response }} and {{input}}"))
	assert.Empty(t, Placeholders("none"))
}

func TestSnapshot_MarshalJSON(t *testing.T) {
	t.Parallel()

	snap := newLookupSnapshot(t)
	raw, err := snap.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"run_id":"run-7"`)
	assert.Contains(t, string(raw), `"agent_id":"search_agent"`)
}
