package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
)

func TestOrdering_Transitive(t *testing.T) {
	t.Parallel()

	o, err := NewOrdering(DefaultOrderingRules())
	require.NoError(t, err)

	assert.True(t, o.Precedes(types.CapabilityDataRetrieval, types.CapabilityReasoning))
	assert.True(t, o.Precedes(types.CapabilityDataRetrieval, types.CapabilityMemoryWrite))
	assert.False(t, o.Precedes(types.CapabilityReasoning, types.CapabilityDataRetrieval))
}

func TestOrdering_Allows(t *testing.T) {
	t.Parallel()

	o, err := NewOrdering(DefaultOrderingRules())
	require.NoError(t, err)

	search := registry.MustDefinition("search", types.KindStatic, []types.Capability{types.CapabilityDataRetrieval}, nil)
	analysis := registry.MustDefinition("analysis", types.KindStatic, []types.Capability{types.CapabilityReasoning}, nil)
	both := registry.MustDefinition("both", types.KindStatic, []types.Capability{types.CapabilityDataRetrieval, types.CapabilityReasoning}, nil)
	writer := registry.MustDefinition("writer", types.KindStatic, []types.Capability{types.CapabilityMemoryWrite}, nil)

	assert.True(t, o.Allows(search, analysis))
	assert.False(t, o.Allows(analysis, search))
	assert.True(t, o.Allows(both, search), "agents covering both sides are neutral")
	assert.True(t, o.Allows(analysis, both))
	assert.False(t, o.Allows(writer, search))
}

func TestNewOrdering_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rules []OrderingRule
	}{
		{"self", []OrderingRule{{Before: types.CapabilityReasoning, After: types.CapabilityReasoning}}},
		{"missing side", []OrderingRule{{Before: types.CapabilityReasoning}}},
		{"cycle", []OrderingRule{
			{Before: types.CapabilityReasoning, After: types.CapabilityGeneration},
			{Before: types.CapabilityGeneration, After: types.CapabilityReasoning},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrdering(tt.rules)
			assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
		})
	}
}

func TestParseCapabilityHints(t *testing.T) {
	t.Parallel()

	got := ParseCapabilityHints("First memory_read, then REASONING; reasoning again", types.KnownCapabilities())
	assert.Equal(t, []types.Capability{types.CapabilityMemoryRead, types.CapabilityReasoning}, got)
	assert.Empty(t, ParseCapabilityHints("", types.KnownCapabilities()))
}
