package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyTraceID contextKey = "trace_id"
	keyRunID   contextKey = "run_id"
	keyScopeID contextKey = "scope_id"
)

// WithTraceID adds trace ID to context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, keyTraceID, traceID)
}

// TraceID extracts trace ID from context.
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyTraceID).(string)
	return v, ok && v != ""
}

// WithRunID adds run ID to context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, keyRunID, runID)
}

// RunID extracts run ID from context.
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRunID).(string)
	return v, ok && v != ""
}

// WithScopeID records the scope an agent is being executed from.
func WithScopeID(ctx context.Context, scopeID string) context.Context {
	return context.WithValue(ctx, keyScopeID, scopeID)
}

// ScopeID extracts the active scope ID from context.
func ScopeID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyScopeID).(string)
	return v, ok && v != ""
}
