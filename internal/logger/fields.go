package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// These keys are shared by the optimizer orchestrator and the signal
// dispatcher so log aggregation/querying stays consistent across both
// engines. Use these keys consistently across all log statements.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Compilation / Optimizer Identity
	// ========================================================================
	KeyCompilationID = "compilation_id" // uuid identifying one optimize() run
	KeyMethodName    = "method_name"    // human-readable method symbol name
	KeyOptName       = "opt_name"       // optimization name
	KeyOptIndex      = "opt_index"      // global optimization index (monotonic)
	KeyGroupName     = "group_name"     // enclosing group name, if any
	KeyGuard         = "guard"          // guard predicate name
	KeyOutcome       = "outcome"        // ran | skipped | guard_false | disabled | range_gated
	KeyCost          = "cost"           // cost estimate returned by performOptimization
	KeyIteration     = "iteration"      // group re-entry iteration number

	// ========================================================================
	// Analysis Cache
	// ========================================================================
	KeyAnalysis    = "analysis"     // alias_sets | use_defs | value_numbers | structure
	KeyNodeDelta   = "node_delta"   // node count delta observed after a pass
	KeySymrefDelta = "symref_delta" // symref count delta observed after a pass

	// ========================================================================
	// Signal Dispatcher
	// ========================================================================
	KeyThreadRole  = "thread_role"  // reporter | orchestrator | protected-call
	KeySignal      = "signal"       // OS signal name (SIGSEGV, SIGTERM, ...)
	KeyCategory    = "category"     // logical signal category
	KeyFrameDepth  = "frame_depth"  // protection frame stack depth on this goroutine
	KeyHandlerKind = "handler_kind" // sync | async
	KeyInFlight    = "in_flight"    // in-flight async dispatch counter snapshot

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric error code
	KeyAttempt    = "attempt"     // Retry attempt number
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Compilation / Optimizer
// ----------------------------------------------------------------------------

// CompilationID returns a slog.Attr for the compilation identifier.
func CompilationID(id string) slog.Attr {
	return slog.String(KeyCompilationID, id)
}

// MethodName returns a slog.Attr for the method symbol name.
func MethodName(name string) slog.Attr {
	return slog.String(KeyMethodName, name)
}

// OptName returns a slog.Attr for an optimization's name.
func OptName(name string) slog.Attr {
	return slog.String(KeyOptName, name)
}

// OptIndex returns a slog.Attr for the global optimization index.
func OptIndex(idx int) slog.Attr {
	return slog.Int(KeyOptIndex, idx)
}

// GroupName returns a slog.Attr for the enclosing group name.
func GroupName(name string) slog.Attr {
	return slog.String(KeyGroupName, name)
}

// Guard returns a slog.Attr for a guard predicate name.
func Guard(name string) slog.Attr {
	return slog.String(KeyGuard, name)
}

// Outcome returns a slog.Attr for a pass's dispatch outcome.
func Outcome(outcome string) slog.Attr {
	return slog.String(KeyOutcome, outcome)
}

// Cost returns a slog.Attr for a pass's returned cost estimate.
func Cost(cost int) slog.Attr {
	return slog.Int(KeyCost, cost)
}

// Iteration returns a slog.Attr for a group's re-entry iteration number.
func Iteration(n int) slog.Attr {
	return slog.Int(KeyIteration, n)
}

// ----------------------------------------------------------------------------
// Analysis Cache
// ----------------------------------------------------------------------------

// Analysis returns a slog.Attr naming the analysis kind invalidated/rebuilt.
func Analysis(kind string) slog.Attr {
	return slog.String(KeyAnalysis, kind)
}

// NodeDelta returns a slog.Attr for the node-count delta after a pass.
func NodeDelta(delta int) slog.Attr {
	return slog.Int(KeyNodeDelta, delta)
}

// SymrefDelta returns a slog.Attr for the symref-count delta after a pass.
func SymrefDelta(delta int) slog.Attr {
	return slog.Int(KeySymrefDelta, delta)
}

// ----------------------------------------------------------------------------
// Signal Dispatcher
// ----------------------------------------------------------------------------

// ThreadRole returns a slog.Attr identifying the logical role of the
// goroutine emitting this log line.
func ThreadRole(role string) slog.Attr {
	return slog.String(KeyThreadRole, role)
}

// Signal returns a slog.Attr for an OS signal name.
func Signal(name string) slog.Attr {
	return slog.String(KeySignal, name)
}

// Category returns a slog.Attr for a logical signal category.
func Category(name string) slog.Attr {
	return slog.String(KeyCategory, name)
}

// FrameDepth returns a slog.Attr for the protection frame stack depth.
func FrameDepth(depth int) slog.Attr {
	return slog.Int(KeyFrameDepth, depth)
}

// HandlerKind returns a slog.Attr distinguishing sync vs. async handlers.
func HandlerKind(kind string) slog.Attr {
	return slog.String(KeyHandlerKind, kind)
}

// InFlight returns a slog.Attr for the async in-flight dispatch counter.
func InFlight(n int) slog.Attr {
	return slog.Int(KeyInFlight, n)
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for numeric error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Attempt returns a slog.Attr for retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}
