package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext identifies one top-level data access operation in logs.
type TraceContext struct {
	TraceID   string
	Operation string
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetTraceID returns trace ID from context or empty string.
func GetTraceID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.TraceID
	}
	return ""
}

// GetOperation returns the operation name from context or empty string.
func GetOperation(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.Operation
	}
	return ""
}

// EnsureTrace returns ctx unchanged when it already carries a trace,
// otherwise attaches a new one for operation.
func EnsureTrace(ctx context.Context, operation string) context.Context {
	if GetTrace(ctx) != nil {
		return ctx
	}
	return WithTrace(ctx, NewTraceContext(operation))
}

// NewTraceContext creates a new TraceContext with a generated ID.
func NewTraceContext(operation string) *TraceContext {
	return &TraceContext{
		TraceID:   uuid.New().String(),
		Operation: operation,
	}
}
