package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds compilation/dispatch-scoped logging context that gets
// auto-injected by the *Ctx logging functions below.
type LogContext struct {
	TraceID       string    // OpenTelemetry trace ID
	SpanID        string    // OpenTelemetry span ID
	CompilationID string    // uuid of the optimize() run this log line belongs to
	MethodName    string    // method symbol name being compiled
	ThreadRole    string    // reporter | orchestrator | protected-call
	StartTime     time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a compilation.
func NewLogContext(compilationID string) *LogContext {
	return &LogContext{
		CompilationID: compilationID,
		StartTime:     time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:       lc.TraceID,
		SpanID:        lc.SpanID,
		CompilationID: lc.CompilationID,
		MethodName:    lc.MethodName,
		ThreadRole:    lc.ThreadRole,
		StartTime:     lc.StartTime,
	}
}

// WithMethodName returns a copy with the method name set.
func (lc *LogContext) WithMethodName(name string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.MethodName = name
	}
	return clone
}

// WithThreadRole returns a copy with the thread role set.
func (lc *LogContext) WithThreadRole(role string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ThreadRole = role
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
