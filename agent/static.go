package agent

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
)

// staticAgent returns configured output. Config:
//
//	response: template rendered against the context (default: the input)
//	payload:  returned verbatim instead of a rendered response
//	wrap:     "result" nests the response as {"result": {"response": ...}}
//	delay:    waits before answering, honouring cancellation
//	fail:     returns this error message instead of a result
type staticAgent struct {
	base
}

func newStaticAgent(def *registry.Definition, _ Dependencies) (Agent, error) {
	if _, err := ConfigDuration(def.Config(), "delay"); err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, err.Error()).WithAgent(def.ID())
	}
	return &staticAgent{base: base{def: def}}, nil
}

func (a *staticAgent) Execute(ctx context.Context, req *Request) (*types.Result, error) {
	cfg := req.Config

	delay, _ := ConfigDuration(cfg, "delay")
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if msg := configString(cfg, "fail", ""); msg != "" {
		return nil, errors.New(msg)
	}

	if payload, ok := cfg["payload"]; ok {
		return types.NewResult(payload), nil
	}

	text := req.Input
	if tmpl := configString(cfg, "response", ""); tmpl != "" {
		rendered, err := req.Context.Render(tmpl)
		if err != nil {
			return nil, err
		}
		text = rendered
	}

	if configString(cfg, "wrap", "") == "result" {
		return types.NewResult(map[string]any{
			"result": map[string]any{"response": text},
		}), nil
	}
	return types.NewResult(map[string]any{"response": text}), nil
}

var _ Agent = (*staticAgent)(nil)
