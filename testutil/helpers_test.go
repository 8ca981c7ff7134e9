package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pathflow/types"
)

func TestContexts(t *testing.T) {
	ctx := TestContextWithTimeout(t, time.Minute)
	_, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.Error(t, CancelledContext().Err())
}

func TestAssertErrorCode(t *testing.T) {
	err := types.NewError(types.ErrPathExecutionFailed, "outer").
		WithCause(types.NewError(types.ErrAgentNotFound, "inner"))
	AssertErrorCode(t, err, types.ErrAgentNotFound)
	AssertErrorCode(t, err, types.ErrPathExecutionFailed)
}

func TestJSONHelpers(t *testing.T) {
	s := MustJSON(map[string]any{"a": 1})
	assert.Equal(t, `{"a":1}`, s)
	m := MustParseJSON[map[string]int](s)
	assert.Equal(t, 1, m["a"])
	AssertJSONEqual(t, map[string]any{"a": 1}, m)
}

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, "wf.yaml", "name: x")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name: x", string(data))
}
