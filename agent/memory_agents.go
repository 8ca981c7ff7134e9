package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/pathflow/agent/memory"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
)

// memoryReader loads entries from the memory store. Config:
//
//	namespace: key namespace; alone it lists the whole namespace
//	key:       template of a single key to load
//	pattern:   wildcard pattern to list instead of a single key
//	limit:     maximum entries for list reads
type memoryReader struct {
	base
	store  memory.Store
	logger *zap.Logger
}

func newMemoryReader(def *registry.Definition, deps Dependencies) (Agent, error) {
	cfg := def.Config()
	if configString(cfg, "key", "") == "" && configString(cfg, "pattern", "") == "" && configString(cfg, "namespace", "") == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "memory_reader needs key, pattern or namespace").WithAgent(def.ID())
	}
	return &memoryReader{
		base:   base{def: def},
		store:  deps.Memory,
		logger: deps.Logger.With(zap.String("agent_id", def.ID())),
	}, nil
}

func (a *memoryReader) Execute(ctx context.Context, req *Request) (*types.Result, error) {
	cfg := req.Config
	namespace := configString(cfg, "namespace", "")

	pattern := configString(cfg, "pattern", "")
	if pattern == "" && configString(cfg, "key", "") == "" {
		pattern = "*"
	}
	if pattern != "" {
		items, err := a.store.List(ctx, memory.Key(namespace, pattern), configInt(cfg, "limit", 10))
		if err != nil {
			return nil, fmt.Errorf("memory list failed: %w", err)
		}
		payload := map[string]any{"memories": items}
		if len(items) == 0 {
			return &types.Result{Payload: payload, Status: types.StatusEmpty}, nil
		}
		lines := make([]string, len(items))
		for i, item := range items {
			lines[i] = fmt.Sprint(item)
		}
		payload["result"] = map[string]any{"response": strings.Join(lines, "\n"), "count": len(items)}
		return types.NewResult(payload), nil
	}

	key, err := req.Context.Render(configString(cfg, "key", ""))
	if err != nil {
		return nil, err
	}
	fullKey := memory.Key(namespace, key)
	value, err := a.store.Load(ctx, fullKey)
	if errors.Is(err, memory.ErrNotFound) {
		a.logger.Debug("memory miss", zap.String("key", fullKey))
		return &types.Result{
			Payload: map[string]any{"key": fullKey, "found": false},
			Status:  types.StatusEmpty,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory load failed: %w", err)
	}
	return types.NewResult(map[string]any{
		"key":    fullKey,
		"found":  true,
		"result": map[string]any{"response": value},
	}), nil
}

// memoryWriter stores a rendered value. Config:
//
//	namespace: key namespace
//	key:       key template
//	value:     value template (default: the input)
//	ttl:       optional expiry
type memoryWriter struct {
	base
	store memory.Store
}

func newMemoryWriter(def *registry.Definition, deps Dependencies) (Agent, error) {
	cfg := def.Config()
	if configString(cfg, "key", "") == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "memory_writer needs key").WithAgent(def.ID())
	}
	if _, err := ConfigDuration(cfg, "ttl"); err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, err.Error()).WithAgent(def.ID())
	}
	return &memoryWriter{base: base{def: def}, store: deps.Memory}, nil
}

func (a *memoryWriter) Execute(ctx context.Context, req *Request) (*types.Result, error) {
	cfg := req.Config

	key, err := req.Context.Render(configString(cfg, "key", ""))
	if err != nil {
		return nil, err
	}
	value := req.Input
	if tmpl := configString(cfg, "value", ""); tmpl != "" {
		if value, err = req.Context.Render(tmpl); err != nil {
			return nil, err
		}
	}
	ttl, _ := ConfigDuration(cfg, "ttl")

	fullKey := memory.Key(configString(cfg, "namespace", ""), key)
	if err := a.store.Save(ctx, fullKey, value, ttl); err != nil {
		return nil, fmt.Errorf("memory save failed: %w", err)
	}
	return types.NewResult(map[string]any{
		"key":    fullKey,
		"stored": true,
		"result": map[string]any{"response": value},
	}).WithMetadata("ttl", ttl.String()).WithMetadata("written_at", time.Now().UTC().Format(time.RFC3339)), nil
}

var (
	_ Agent = (*memoryReader)(nil)
	_ Agent = (*memoryWriter)(nil)
)
