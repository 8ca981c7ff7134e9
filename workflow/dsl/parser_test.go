package dsl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow"
)

func TestParser_ParseFile(t *testing.T) {
	def, err := NewParser().ParseFile("testdata/research.yaml")
	require.NoError(t, err)

	assert.Equal(t, "research", def.ID)
	assert.Equal(t, []string{"scout", "review", "exec"}, def.Steps, "audit is disabled outside prod")
	require.Len(t, def.Agents, 5)

	search := def.Agents[0]
	assert.Equal(t, []string{"data_retrieval"}, search.Capabilities)
	assert.Equal(t, "rows about churn", search.Config["response"])
	assert.Equal(t, "analysis of {{ search.response }}", def.Agents[1].Config["response"])

	review := def.Agents[3]
	assert.Equal(t, 3, review.Config["max_iterations"], "a whole-value reference keeps its type")
	require.Len(t, review.Agents, 2)
	assert.Equal(t, "path_validator", review.Agents[1].Kind)
}

func TestParser_VariableOverride(t *testing.T) {
	def, err := NewParser().
		WithVariable("env", "prod").
		WithVariable("topic", "pricing").
		ParseFile("testdata/research.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"scout", "review", "exec", "audit"}, def.Steps)
	assert.Equal(t, "rows about pricing", def.Agents[0].Config["response"])
}

func TestParser_BuildAndRun(t *testing.T) {
	def, err := NewParser().ParseFile("testdata/research.yaml")
	require.NoError(t, err)

	w, err := workflow.Build(def, workflow.Options{})
	require.NoError(t, err)

	res, err := w.Run(context.Background(), "q", nil)
	require.NoError(t, err)
	got, err := res.Context.Snapshot().Lookup("analysis.response")
	require.NoError(t, err)
	assert.Equal(t, "analysis of rows about churn", got.String())
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "malformed",
			yaml: "version: [",
			want: "parse YAML",
		},
		{
			name: "missing header",
			yaml: "steps: [a]\nagents:\n  - {id: a, kind: static}\n",
			want: "version is required",
		},
		{
			name: "step not top level",
			yaml: `version: "1"
name: w
steps: [inner]
agents:
  - id: fan
    kind: fork
    agents:
      - {id: inner, kind: static}
`,
			want: `step "inner" is not a top-level agent`,
		},
		{
			name: "duplicate sibling",
			yaml: `version: "1"
name: w
steps: [a]
agents:
  - {id: a, kind: static}
  - {id: a, kind: static}
`,
			want: `duplicate agent id "a"`,
		},
		{
			name: "undefined variable",
			yaml: `version: "1"
name: w
steps: [a]
agents:
  - id: a
    kind: static
    config: {response: "${missing}"}
`,
			want: `variable "missing" is not defined`,
		},
		{
			name: "nested agents on plain kind",
			yaml: `version: "1"
name: w
steps: [a]
agents:
  - id: a
    kind: static
    agents:
      - {id: b, kind: static}
`,
			want: "cannot declare nested agents",
		},
		{
			name: "executor path_from",
			yaml: `version: "1"
name: w
steps: [x]
agents:
  - {id: x, kind: path_executor, config: {path_from: scout}}
`,
			want: "path_from must look like",
		},
		{
			name: "required variable",
			yaml: `version: "1"
name: w
variables:
  tenant: {required: true}
steps: [a]
agents:
  - {id: a, kind: static}
`,
			want: `required variable "tenant"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParser_MembersDisabledByWhen(t *testing.T) {
	data := []byte(`version: "1"
name: w
variables:
  strict: {default: false}
steps: [a]
agents:
  - id: a
    kind: fork
    agents:
      - {id: b, kind: static}
      - {id: c, kind: static, when: strict}
`)
	def, err := NewParser().Parse(data)
	require.NoError(t, err)
	require.Len(t, def.Agents[0].Agents, 1)
	assert.Equal(t, "b", def.Agents[0].Agents[0].ID)
}
