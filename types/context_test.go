package types

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	ctx = WithTraceID(ctx, "t1")
	if got, ok := TraceID(ctx); !ok || got != "t1" {
		t.Fatalf("TraceID mismatch: %v %v", got, ok)
	}

	ctx = WithRunID(ctx, "run")
	if got, ok := RunID(ctx); !ok || got != "run" {
		t.Fatalf("RunID mismatch: %v %v", got, ok)
	}

	ctx = WithScopeID(ctx, "root")
	if got, ok := ScopeID(ctx); !ok || got != "root" {
		t.Fatalf("ScopeID mismatch: %v %v", got, ok)
	}

	if _, ok := RunID(context.Background()); ok {
		t.Fatalf("expected no run id on empty context")
	}
}

func TestParseCapabilities(t *testing.T) {
	t.Parallel()

	got := ParseCapabilities([]string{" reasoning", "data_retrieval", "", "reasoning"})
	if len(got) != 2 || got[0] != CapabilityReasoning || got[1] != CapabilityDataRetrieval {
		t.Fatalf("unexpected capabilities: %v", got)
	}
}

func TestAgentKind_IsConstruct(t *testing.T) {
	t.Parallel()

	for _, k := range []AgentKind{KindScout, KindLoop, KindFork, KindPathExecutor} {
		if !k.IsConstruct() {
			t.Fatalf("expected %s to be a construct", k)
		}
	}
	if KindStatic.IsConstruct() {
		t.Fatalf("static must not be a construct")
	}
}
