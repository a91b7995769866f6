package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "jitcore", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, CompilationID("comp-1"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("CompilationID", func(t *testing.T) {
		attr := CompilationID("comp-1")
		assert.Equal(t, AttrCompilationID, string(attr.Key))
		assert.Equal(t, "comp-1", attr.Value.AsString())
	})

	t.Run("MethodName", func(t *testing.T) {
		attr := MethodName("java/lang/String.hashCode")
		assert.Equal(t, AttrMethodName, string(attr.Key))
		assert.Equal(t, "java/lang/String.hashCode", attr.Value.AsString())
	})

	t.Run("OptName", func(t *testing.T) {
		attr := OptName("treeSimplification")
		assert.Equal(t, AttrOptName, string(attr.Key))
		assert.Equal(t, "treeSimplification", attr.Value.AsString())
	})

	t.Run("OptIndex", func(t *testing.T) {
		attr := OptIndex(7)
		assert.Equal(t, AttrOptIndex, string(attr.Key))
		assert.Equal(t, int64(7), attr.Value.AsInt64())
	})

	t.Run("GroupName", func(t *testing.T) {
		attr := GroupName("localOpts")
		assert.Equal(t, AttrGroupName, string(attr.Key))
		assert.Equal(t, "localOpts", attr.Value.AsString())
	})

	t.Run("Outcome", func(t *testing.T) {
		attr := Outcome("guard_false")
		assert.Equal(t, AttrOutcome, string(attr.Key))
		assert.Equal(t, "guard_false", attr.Value.AsString())
	})

	t.Run("Iteration", func(t *testing.T) {
		attr := Iteration(2)
		assert.Equal(t, AttrIteration, string(attr.Key))
		assert.Equal(t, int64(2), attr.Value.AsInt64())
	})

	t.Run("Analysis", func(t *testing.T) {
		attr := Analysis("use_defs")
		assert.Equal(t, AttrAnalysis, string(attr.Key))
		assert.Equal(t, "use_defs", attr.Value.AsString())
	})

	t.Run("Signal", func(t *testing.T) {
		attr := Signal("SIGSEGV")
		assert.Equal(t, AttrSignal, string(attr.Key))
		assert.Equal(t, "SIGSEGV", attr.Value.AsString())
	})

	t.Run("Category", func(t *testing.T) {
		attr := Category("arithmetic")
		assert.Equal(t, AttrCategory, string(attr.Key))
		assert.Equal(t, "arithmetic", attr.Value.AsString())
	})

	t.Run("ThreadRole", func(t *testing.T) {
		attr := ThreadRole("reporter")
		assert.Equal(t, AttrThreadRole, string(attr.Key))
		assert.Equal(t, "reporter", attr.Value.AsString())
	})

	t.Run("HandlerKind", func(t *testing.T) {
		attr := HandlerKind("async")
		assert.Equal(t, AttrHandlerKind, string(attr.Key))
		assert.Equal(t, "async", attr.Value.AsString())
	})

	t.Run("FrameDepth", func(t *testing.T) {
		attr := FrameDepth(3)
		assert.Equal(t, AttrFrameDepth, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})
}

func TestStartOptimizeSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartOptimizeSpan(ctx, "comp-1", "java/lang/String.hashCode")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartPassSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartPassSpan(ctx, "treeSimplification", 4, "")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With a group name
	newCtx2, span2 := StartPassSpan(ctx, "localCSE", 5, "localOpts")
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartProtectedCallSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartProtectedCallSpan(ctx, "arithmetic", 1)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartAsyncDispatchSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartAsyncDispatchSpan(ctx, "SIGTERM")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}
