package discovery

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pathflow/types"
)

func TestCandidate_Immutable(t *testing.T) {
	t.Parallel()

	c, err := NewCandidate("root", []string{"a", "b"}, map[string][]types.Capability{
		"a": {types.CapabilityDataRetrieval},
	}, 0.8, "because")
	require.NoError(t, err)

	agents := c.Agents()
	agents[0] = "z"
	assert.Equal(t, []string{"a", "b"}, c.Agents())
	assert.Equal(t, "a->b", c.Key())
	assert.Equal(t, []types.Capability{types.CapabilityDataRetrieval}, c.CapabilitiesOf("a"))
}

func TestNewCandidate_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewCandidate("root", nil, nil, 0, "")
	assert.True(t, types.IsCode(err, types.ErrNoViablePath))

	_, err = NewCandidate("root", []string{"a", "a"}, nil, 0, "")
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))

	_, err = NewCandidate("root", []string{""}, nil, 0, "")
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}

func TestAccept_ProducesNewRecord(t *testing.T) {
	t.Parallel()

	c, err := NewCandidate("root", []string{"search_agent", "analysis_agent"}, nil, 1, "full coverage")
	require.NoError(t, err)

	vp, err := Accept(c, "path_validator", "looks good")
	require.NoError(t, err)
	assert.True(t, vp.Validated())
	assert.Equal(t, "path_validator", vp.ValidatedBy())
	assert.Equal(t, c.Agents(), vp.Agents())
	assert.NotSame(t, c, vp.Candidate())
	assert.False(t, vp.AcceptedAt().IsZero())

	un, err := AcceptUnvalidated(c)
	require.NoError(t, err)
	assert.False(t, un.Validated())

	_, err = Accept(nil, "v", "")
	assert.True(t, types.IsCode(err, types.ErrNoViablePath))
}

func TestValidatedPath_JSONTarget(t *testing.T) {
	t.Parallel()

	c, err := NewCandidate("root", []string{"a", "b"}, nil, 0.5, "r")
	require.NoError(t, err)
	vp, err := Accept(c, "v", "ok")
	require.NoError(t, err)

	raw, err := json.Marshal(vp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []any{"a", "b"}, decoded["target"])
	assert.Equal(t, "v", decoded["validated_by"])
}

func TestCandidate_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	c, err := NewCandidate("root", []string{"a", "b"}, map[string][]types.Capability{"b": {types.CapabilityReasoning}}, 0.5, "r")
	require.NoError(t, err)

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	var back Candidate
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, c.Agents(), back.Agents())
	assert.Equal(t, c.Score(), back.Score())
	assert.Equal(t, c.CapabilitiesOf("b"), back.CapabilitiesOf("b"))
}

func TestCandidateFromPayload(t *testing.T) {
	t.Parallel()

	direct, err := NewCandidate("root", []string{"x"}, nil, 1, "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload any
		want    []string
	}{
		{"candidate", direct, []string{"x"}},
		{"map target", map[string]any{"target": []any{"a", "b"}, "score": 0.7, "rationale": "r"}, []string{"a", "b"}},
		{"wrapped", map[string]any{"result": map[string]any{"target": []string{"a"}}}, []string{"a"}},
		{"json text", `{"target": ["a", "b"]}`, []string{"a", "b"}},
		{"list", []any{"c"}, []string{"c"}},
		{"nothing", map[string]any{"note": "none"}, nil},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CandidateFromPayload(tt.payload, "root")
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Agents())
		})
	}

	_, err = CandidateFromPayload(map[string]any{"target": "not-a-list"}, "root")
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
	_, err = CandidateFromPayload(42, "root")
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}

func TestParseVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		payload  any
		accepted bool
		feedback string
	}{
		{"struct", Verdict{Accepted: true, Feedback: "ok"}, true, "ok"},
		{"map accepted", map[string]any{"accepted": false, "feedback": "too long"}, false, "too long"},
		{"map valid reason", map[string]any{"valid": true, "reason": "fine"}, true, "fine"},
		{"wrapped", map[string]any{"result": map[string]any{"approved": true}}, true, ""},
		{"text approved", "APPROVED: covers everything", true, "APPROVED: covers everything"},
		{"text rejected", "rejected - missing retrieval", false, "rejected - missing retrieval"},
		{"json text", `{"accepted": true, "feedback": "yes"}`, true, "yes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVerdict(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.accepted, v.Accepted)
			assert.Equal(t, tt.feedback, v.Feedback)
		})
	}

	_, err := ParseVerdict(map[string]any{"accepted": "yes"})
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
	_, err = ParseVerdict("maybe")
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}
