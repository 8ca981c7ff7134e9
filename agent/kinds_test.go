package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pathflow/agent/discovery"
	"github.com/BaSui01/pathflow/agent/memory"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
	"github.com/BaSui01/pathflow/workflow/execctx"
)

func build(t *testing.T, f *Factory, id string, kind types.AgentKind, cfg map[string]any) Agent {
	t.Helper()
	a, err := f.Build(registry.MustDefinition(id, kind, nil, cfg))
	require.NoError(t, err)
	return a
}

func request(a Agent, cfg map[string]any, snap execctx.Snapshot) *Request {
	return &Request{AgentID: a.ID(), ScopeID: registry.TopScopeID, Config: cfg, Context: snap}
}

func snapshotWith(t *testing.T, input string, recs ...execctx.Record) execctx.Snapshot {
	t.Helper()
	ec := execctx.New("run-1", map[string]any{"input": input})
	for _, r := range recs {
		require.NoError(t, ec.Append(r))
	}
	return ec.Snapshot()
}

func okRecord(id string, payload any) execctx.Record {
	now := time.Now()
	return execctx.NewRecord(id, types.KindStatic, types.NewResult(payload), now, now)
}

// =============================================================================
// static
// =============================================================================

func TestStatic_EchoesInput(t *testing.T) {
	f := NewFactory(Dependencies{})
	a := build(t, f, "s", types.KindStatic, nil)

	req := request(a, nil, snapshotWith(t, "hello"))
	req.Input = "hello"
	res, err := a.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, res.Status)
	assert.Equal(t, map[string]any{"response": "hello"}, res.Payload)
}

func TestStatic_RendersResponseTemplate(t *testing.T) {
	f := NewFactory(Dependencies{})
	cfg := map[string]any{"response": "summary of {{ fetch.response }}", "wrap": "result"}
	a := build(t, f, "s", types.KindStatic, cfg)

	snap := snapshotWith(t, "q", okRecord("fetch", map[string]any{"response": "rows"}))
	res, err := a.Execute(context.Background(), request(a, cfg, snap))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": map[string]any{"response": "summary of rows"}}, res.Payload)
}

func TestStatic_MissingFieldFails(t *testing.T) {
	f := NewFactory(Dependencies{})
	cfg := map[string]any{"response": "{{ ghost.response }}"}
	a := build(t, f, "s", types.KindStatic, cfg)

	_, err := a.Execute(context.Background(), request(a, cfg, snapshotWith(t, "q")))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMissingField))
}

func TestStatic_PayloadAndFail(t *testing.T) {
	f := NewFactory(Dependencies{})

	cfg := map[string]any{"payload": map[string]any{"rows": 3}}
	a := build(t, f, "p", types.KindStatic, cfg)
	res, err := a.Execute(context.Background(), request(a, cfg, snapshotWith(t, "")))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"rows": 3}, res.Payload)

	cfg = map[string]any{"fail": "upstream unavailable"}
	a = build(t, f, "b", types.KindStatic, cfg)
	_, err = a.Execute(context.Background(), request(a, cfg, snapshotWith(t, "")))
	require.EqualError(t, err, "upstream unavailable")
}

func TestStatic_DelayHonoursCancellation(t *testing.T) {
	f := NewFactory(Dependencies{})
	cfg := map[string]any{"delay": "5s"}
	a := build(t, f, "slow", types.KindStatic, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := a.Execute(ctx, request(a, cfg, snapshotWith(t, "")))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatic_InvalidDelay(t *testing.T) {
	f := NewFactory(Dependencies{})
	_, err := f.Build(registry.MustDefinition("s", types.KindStatic, nil, map[string]any{"delay": "soon"}))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}

// =============================================================================
// memory
// =============================================================================

func TestMemory_WriteThenRead(t *testing.T) {
	store := memory.NewInMemoryStore(memory.InMemoryStoreConfig{}, nil)
	f := NewFactory(Dependencies{Memory: store})
	ctx := context.Background()

	wcfg := map[string]any{"namespace": "notes", "key": "{{ run.id }}", "value": "saw {{ input }}"}
	w := build(t, f, "save", types.KindMemoryWriter, wcfg)
	res, err := w.Execute(ctx, request(w, wcfg, snapshotWith(t, "rain")))
	require.NoError(t, err)
	assert.Equal(t, "notes:run-1", res.Payload.(map[string]any)["key"])

	stored, err := store.Load(ctx, "notes:run-1")
	require.NoError(t, err)
	assert.Equal(t, "saw rain", stored)

	rcfg := map[string]any{"namespace": "notes", "key": "run-1"}
	r := build(t, f, "recall", types.KindMemoryReader, rcfg)
	res, err = r.Execute(ctx, request(r, rcfg, snapshotWith(t, "")))
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, res.Status)
	assert.Equal(t, map[string]any{"response": "saw rain"}, res.Payload.(map[string]any)["result"])
}

func TestMemory_ReadMissIsEmpty(t *testing.T) {
	f := NewFactory(Dependencies{})
	cfg := map[string]any{"key": "absent"}
	r := build(t, f, "recall", types.KindMemoryReader, cfg)

	res, err := r.Execute(context.Background(), request(r, cfg, snapshotWith(t, "")))
	require.NoError(t, err)
	assert.Equal(t, types.StatusEmpty, res.Status)

	rec := okRecord("recall", res.Payload)
	rec.Status = res.Status
	snap := snapshotWith(t, "", rec)
	_, err = snap.Lookup("recall.response")
	assert.True(t, types.IsCode(err, types.ErrMissingField))
}

func TestMemory_PatternRead(t *testing.T) {
	store := memory.NewInMemoryStore(memory.InMemoryStoreConfig{}, nil)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "kb:a", "alpha", 0))
	require.NoError(t, store.Save(ctx, "kb:b", "beta", 0))
	require.NoError(t, store.Save(ctx, "other:c", "gamma", 0))

	f := NewFactory(Dependencies{Memory: store})
	cfg := map[string]any{"namespace": "kb", "pattern": "*", "limit": 5}
	r := build(t, f, "scan", types.KindMemoryReader, cfg)

	res, err := r.Execute(ctx, request(r, cfg, snapshotWith(t, "")))
	require.NoError(t, err)
	payload := res.Payload.(map[string]any)
	assert.Len(t, payload["memories"], 2)
	assert.Equal(t, 2, payload["result"].(map[string]any)["count"])
}

func TestMemory_NamespaceListing(t *testing.T) {
	store := memory.NewInMemoryStore(memory.InMemoryStoreConfig{}, nil)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "kb:a", "alpha", 0))
	require.NoError(t, store.Save(ctx, "other:c", "gamma", 0))
	require.NoError(t, store.Save(ctx, "kb:b", "beta", 0))

	f := NewFactory(Dependencies{Memory: store})
	cfg := map[string]any{"namespace": "kb"}
	r := build(t, f, "scan", types.KindMemoryReader, cfg)

	res, err := r.Execute(ctx, request(r, cfg, snapshotWith(t, "")))
	require.NoError(t, err)
	payload := res.Payload.(map[string]any)
	assert.Equal(t, []any{"beta", "alpha"}, payload["memories"])
	assert.Equal(t, "beta\nalpha", payload["result"].(map[string]any)["response"])
}

func TestMemory_ReaderNeedsKey(t *testing.T) {
	f := NewFactory(Dependencies{})
	_, err := f.Build(registry.MustDefinition("r", types.KindMemoryReader, nil, nil))
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}

// =============================================================================
// proposer / validator
// =============================================================================

func candidates(t *testing.T, paths ...[]string) []*discovery.Candidate {
	t.Helper()
	out := make([]*discovery.Candidate, len(paths))
	for i, p := range paths {
		c, err := discovery.NewCandidate(registry.TopScopeID, p, nil, float64(len(paths)-i), "")
		require.NoError(t, err)
		out[i] = c
	}
	return out
}

func TestProposer_SkipsTriedCandidates(t *testing.T) {
	f := NewFactory(Dependencies{})
	cfg := map[string]any{"candidates_from": "scout"}
	p := build(t, f, "proposer", types.KindPathProposer, cfg)

	cs := candidates(t, []string{"a", "b"}, []string{"c"})
	snap := snapshotWith(t, "", okRecord("scout", map[string]any{"candidates": cs}))

	req := request(p, cfg, snap)
	res, err := p.Execute(context.Background(), req)
	require.NoError(t, err)
	got, err := discovery.CandidateFromPayload(res.Payload, registry.TopScopeID)
	require.NoError(t, err)
	assert.Equal(t, "a->b", got.Key())

	req.Attempts = []discovery.Attempt{{Iteration: 1, Candidate: cs[0], Feedback: "too long"}}
	res, err = p.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, res.Payload.(map[string]any)["target"])

	req.Attempts = append(req.Attempts, discovery.Attempt{Iteration: 2, Candidate: cs[1]})
	res, err = p.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, types.StatusEmpty, res.Status)
}

func TestProposer_StaticTargets(t *testing.T) {
	f := NewFactory(Dependencies{})
	cfg := map[string]any{"targets": []any{[]any{"x", "y"}}}
	p := build(t, f, "proposer", types.KindPathProposer, cfg)

	res, err := p.Execute(context.Background(), request(p, cfg, snapshotWith(t, "")))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, res.Payload.(map[string]any)["target"])
}

func TestProposer_MissingSourceRecord(t *testing.T) {
	f := NewFactory(Dependencies{})
	cfg := map[string]any{"candidates_from": "scout"}
	p := build(t, f, "proposer", types.KindPathProposer, cfg)

	_, err := p.Execute(context.Background(), request(p, cfg, snapshotWith(t, "")))
	assert.True(t, types.IsCode(err, types.ErrMissingField))
}

func TestValidator_Rules(t *testing.T) {
	f := NewFactory(Dependencies{})
	long := candidates(t, []string{"a", "b", "c"})[0]
	short := candidates(t, []string{"a"})[0]

	tests := []struct {
		name     string
		cfg      map[string]any
		proposal *discovery.Candidate
		attempts int
		accepted bool
		feedback string
	}{
		{name: "no rules", cfg: nil, proposal: long, accepted: true, feedback: "APPROVED"},
		{name: "too long", cfg: map[string]any{"max_length": 2}, proposal: long, feedback: "at most 2"},
		{name: "short enough", cfg: map[string]any{"max_length": 2}, proposal: short, accepted: true},
		{name: "forbidden", cfg: map[string]any{"forbidden_agents": []any{"b"}}, proposal: long, feedback: "agent b"},
		{name: "missing capability", cfg: map[string]any{"required_capabilities": []any{"reasoning"}}, proposal: short, feedback: "missing capability reasoning"},
		{name: "reject first", cfg: map[string]any{"reject_first": 1}, proposal: short, feedback: "revision 1 of 1"},
		{name: "reject first satisfied", cfg: map[string]any{"reject_first": 1}, proposal: short, attempts: 1, accepted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := build(t, f, "validator", types.KindPathValidator, tt.cfg)
			req := request(v, tt.cfg, snapshotWith(t, ""))
			req.Proposal = tt.proposal
			req.Attempts = make([]discovery.Attempt, tt.attempts)

			res, err := v.Execute(context.Background(), req)
			require.NoError(t, err)
			verdict, err := discovery.ParseVerdict(res.Payload)
			require.NoError(t, err)
			assert.Equal(t, tt.accepted, verdict.Accepted)
			if tt.feedback != "" {
				assert.Contains(t, verdict.Feedback, tt.feedback)
			}
		})
	}
}

func TestValidator_RequiresProposal(t *testing.T) {
	f := NewFactory(Dependencies{})
	v := build(t, f, "validator", types.KindPathValidator, nil)

	_, err := v.Execute(context.Background(), request(v, nil, snapshotWith(t, "")))
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}
