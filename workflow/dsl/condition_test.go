package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition_Eval(t *testing.T) {
	vars := map[string]any{
		"env":    "prod",
		"budget": 3,
		"strict": true,
		"limits": map[string]any{"max": 5},
		"tags":   []any{"a"},
	}
	c, err := newCondition(vars)
	require.NoError(t, err)

	tests := []struct {
		expr string
		want bool
	}{
		{``, true},
		{`env == "prod"`, true},
		{`env != 'prod'`, false},
		{`budget > 2`, true},
		{`budget >= 3 && budget <= 3`, true},
		{`budget < -1`, false},
		{`limits.max == 5`, true},
		{`strict`, true},
		{`!strict || env == "dev"`, false},
		{`(env == "dev" || budget > 1) && strict`, true},
		{`missing`, false},
		{`missing == missing`, true},
		{`missing != "x"`, true},
		{`missing > 1`, false},
		{`tags`, true},
		{`"b" > "a"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := c.Eval(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCondition_SyntaxErrors(t *testing.T) {
	c, err := newCondition(nil)
	require.NoError(t, err)

	for _, expr := range []string{`env = "x"`, `"open`, `(a`, `a ==`, `a b`, `#`} {
		_, err := c.Eval(expr)
		assert.Error(t, err, expr)
	}
}
