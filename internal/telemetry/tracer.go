package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for optimizer and dispatcher spans.
const (
	// ========================================================================
	// Compilation / optimizer attributes
	// ========================================================================
	AttrCompilationID = "compilation.id"
	AttrMethodName    = "compilation.method_name"
	AttrOptName       = "optimizer.opt_name"
	AttrOptIndex      = "optimizer.opt_index"
	AttrGroupName     = "optimizer.group_name"
	AttrOutcome       = "optimizer.outcome"
	AttrIteration     = "optimizer.iteration"
	AttrAnalysis      = "optimizer.analysis"

	// ========================================================================
	// Signal dispatcher attributes
	// ========================================================================
	AttrSignal      = "dispatcher.signal"
	AttrCategory    = "dispatcher.category"
	AttrThreadRole  = "dispatcher.thread_role"
	AttrHandlerKind = "dispatcher.handler_kind"
	AttrFrameDepth  = "dispatcher.frame_depth"
)

// Span names.
const (
	// SpanOptimize is the root span for a full optimize() run.
	SpanOptimize = "optimizer.optimize"

	// SpanPerformOptimization wraps a single pass's performOptimization call.
	SpanPerformOptimization = "optimizer.performOptimization"

	// SpanGroupIteration wraps one re-entry iteration of an optimization group.
	SpanGroupIteration = "optimizer.group_iteration"

	// SpanAnalysisRebuild wraps an analysis cache rebuild.
	SpanAnalysisRebuild = "optimizer.analysis_rebuild"

	// SpanProtectedCall wraps a synchronous protected-call region.
	SpanProtectedCall = "dispatcher.protected_call"

	// SpanAsyncDispatch wraps delivery of an asynchronous signal to its handlers.
	SpanAsyncDispatch = "dispatcher.async_dispatch"

	// SpanReporterCycle wraps one wakeup cycle of the reporter thread.
	SpanReporterCycle = "dispatcher.reporter_cycle"
)

// CompilationID returns an attribute for the compilation identifier.
func CompilationID(id string) attribute.KeyValue {
	return attribute.String(AttrCompilationID, id)
}

// MethodName returns an attribute for the method symbol name being compiled.
func MethodName(name string) attribute.KeyValue {
	return attribute.String(AttrMethodName, name)
}

// OptName returns an attribute for an optimization's name.
func OptName(name string) attribute.KeyValue {
	return attribute.String(AttrOptName, name)
}

// OptIndex returns an attribute for the global optimization index.
func OptIndex(idx int) attribute.KeyValue {
	return attribute.Int(AttrOptIndex, idx)
}

// GroupName returns an attribute for the enclosing group name.
func GroupName(name string) attribute.KeyValue {
	return attribute.String(AttrGroupName, name)
}

// Outcome returns an attribute for a pass's dispatch outcome.
func Outcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

// Iteration returns an attribute for a group's re-entry iteration number.
func Iteration(n int) attribute.KeyValue {
	return attribute.Int(AttrIteration, n)
}

// Analysis returns an attribute naming the analysis kind rebuilt.
func Analysis(kind string) attribute.KeyValue {
	return attribute.String(AttrAnalysis, kind)
}

// Signal returns an attribute for an OS signal name.
func Signal(name string) attribute.KeyValue {
	return attribute.String(AttrSignal, name)
}

// Category returns an attribute for a logical signal category.
func Category(name string) attribute.KeyValue {
	return attribute.String(AttrCategory, name)
}

// ThreadRole returns an attribute identifying the goroutine's logical role.
func ThreadRole(role string) attribute.KeyValue {
	return attribute.String(AttrThreadRole, role)
}

// HandlerKind returns an attribute distinguishing sync vs. async handlers.
func HandlerKind(kind string) attribute.KeyValue {
	return attribute.String(AttrHandlerKind, kind)
}

// FrameDepth returns an attribute for the protection frame stack depth.
func FrameDepth(depth int) attribute.KeyValue {
	return attribute.Int(AttrFrameDepth, depth)
}

// StartOptimizeSpan starts the root span for one optimize() run.
func StartOptimizeSpan(ctx context.Context, compilationID, methodName string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanOptimize, trace.WithAttributes(
		CompilationID(compilationID),
		MethodName(methodName),
	))
}

// StartPassSpan starts a span for a single pass dispatch.
func StartPassSpan(ctx context.Context, optName string, optIndex int, groupName string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{OptName(optName), OptIndex(optIndex)}
	if groupName != "" {
		attrs = append(attrs, GroupName(groupName))
	}
	return StartSpan(ctx, SpanPerformOptimization, trace.WithAttributes(attrs...))
}

// StartProtectedCallSpan starts a span for a synchronous protected-call region.
func StartProtectedCallSpan(ctx context.Context, category string, frameDepth int) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanProtectedCall, trace.WithAttributes(
		Category(category),
		FrameDepth(frameDepth),
	))
}

// StartAsyncDispatchSpan starts a span for delivering an asynchronous signal.
func StartAsyncDispatchSpan(ctx context.Context, signal string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanAsyncDispatch, trace.WithAttributes(Signal(signal)))
}
