package agent

import (
	"context"

	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
)

// ExecuteFunc is the behaviour of a programmatic agent.
type ExecuteFunc func(ctx context.Context, req *Request) (*types.Result, error)

// funcAgent adapts an ExecuteFunc to Agent.
type funcAgent struct {
	base
	fn ExecuteFunc
}

// NewFunc wraps fn as the agent for def.
func NewFunc(def *registry.Definition, fn ExecuteFunc) Agent {
	return &funcAgent{base: base{def: def}, fn: fn}
}

// FuncConstructor returns a Constructor that wraps fn.
func FuncConstructor(fn ExecuteFunc) Constructor {
	return func(def *registry.Definition, _ Dependencies) (Agent, error) {
		return NewFunc(def, fn), nil
	}
}

func (a *funcAgent) Execute(ctx context.Context, req *Request) (*types.Result, error) {
	return a.fn(ctx, req)
}

var _ Agent = (*funcAgent)(nil)
