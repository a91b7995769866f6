package sigdispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// E4: protect(fn, handler=H, flags=SEGV|MAY_RETURN); fn raises SIGSEGV. H is
// called exactly once; protect returns EXCEPTION_OCCURRED; currentSignal is
// zero on return; the handler stack is empty.
func TestProtect_E4_ExceptionReturnUnwindsToProtect(t *testing.T) {
	d := Startup(testConfig())
	defer d.Shutdown(context.Background())

	var calls int32
	var observedDuringFault Category
	var capturedCtx context.Context
	handler := func(cat Category, arg any) DispatchCode {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, CategorySIGSEGV, cat)
		observedDuringFault = GetCurrentSignal(capturedCtx)
		return ExceptionReturn
	}

	fn := func(ctx context.Context) error {
		capturedCtx = ctx
		_, err := d.RaiseFault(ctx, CategorySIGSEGV, "null deref")
		return err
	}

	outcome, err := d.Protect(context.Background(), fn, handler, nil, SyncFlags(CategorySIGSEGV, MayReturn))

	require.NoError(t, err)
	assert.Equal(t, ExceptionOccurred, outcome)
	assert.Equal(t, int32(1), calls, "handler must be invoked exactly once")
	assert.Equal(t, CategorySIGSEGV, observedDuringFault, "currentSignal must be set while the handler chain runs")
	assert.Zero(t, GetCurrentSignal(capturedCtx), "currentSignal must be cleared once RaiseFault returns")

	ts := threadStateFromContext(capturedCtx)
	require.NotNil(t, ts)
	assert.Nil(t, ts.top, "the handler stack must be empty after the exception unwinds")
}

// B1: flags == 0 runs fn unprotected, with no handler installed and no
// frame pushed.
func TestProtect_B1_ZeroFlagsRunsUnprotected(t *testing.T) {
	d := Startup(testConfig())
	defer d.Shutdown(context.Background())

	ran := false
	outcome, err := d.Protect(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	}, nil, nil, 0)

	require.NoError(t, err)
	assert.Equal(t, OK, outcome)
	assert.True(t, ran)

	d.registerMu.Lock()
	defer d.registerMu.Unlock()
	assert.Zero(t, d.syncMainInstalled)
}

// B4: under ReducedSignalsSynchronous, protect still succeeds but runs fn
// unprotected regardless of the requested flags.
func TestProtect_B4_ReducedSignalsRunsUnprotected(t *testing.T) {
	d := Startup(testConfig())
	defer d.Shutdown(context.Background())
	require.NoError(t, d.SetOptions(ReducedSignalsSynchronous))

	ran := false
	outcome, err := d.Protect(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	}, func(Category, any) DispatchCode { return ContinueSearch }, nil, SyncFlags(CategorySIGSEGV))

	require.NoError(t, err)
	assert.Equal(t, OK, outcome)
	assert.True(t, ran)
}

func TestProtect_AmbiguousFlagsRejected(t *testing.T) {
	d := Startup(testConfig())
	defer d.Shutdown(context.Background())

	outcome, err := d.Protect(context.Background(), func(context.Context) error { return nil }, nil, nil, Flags(CategorySIGSEGV))
	require.Error(t, err)
	assert.Equal(t, DispatchError, outcome)
}

func TestProtect_PropagatesFnError(t *testing.T) {
	d := Startup(testConfig())
	defer d.Shutdown(context.Background())

	wantErr := errors.New("boom")
	outcome, err := d.Protect(context.Background(), func(context.Context) error {
		return wantErr
	}, func(Category, any) DispatchCode { return ContinueSearch }, nil, SyncFlags(CategorySIGSEGV))

	assert.Equal(t, OK, outcome)
	assert.Equal(t, wantErr, err)
}

func TestProtect_UnrelatedPanicPropagates(t *testing.T) {
	d := Startup(testConfig())
	defer d.Shutdown(context.Background())

	assert.Panics(t, func() {
		d.Protect(context.Background(), func(context.Context) error {
			panic("not a protection fault")
		}, func(Category, any) DispatchCode { return ContinueSearch }, nil, SyncFlags(CategorySIGSEGV))
	})
}

// RaiseFault's ContinueSearch path walks to the next matching frame and
// relinks the declining one afterward.
func TestRaiseFault_ContinueSearchWalksToOlderFrame(t *testing.T) {
	d := Startup(testConfig())
	defer d.Shutdown(context.Background())

	var innerCalls, outerCalls int
	inner := func(cat Category, arg any) DispatchCode {
		innerCalls++
		return ContinueSearch
	}
	outer := func(cat Category, arg any) DispatchCode {
		outerCalls++
		return ContinueExecution
	}

	outerOutcome, outerErr := d.Protect(context.Background(), func(ctx context.Context) error {
		_, innerErr := d.Protect(ctx, func(innerCtx context.Context) error {
			code, err := d.RaiseFault(innerCtx, CategorySIGSEGV, nil)
			assert.Equal(t, ContinueExecution, code)
			return err
		}, inner, nil, SyncFlags(CategorySIGSEGV, MayReturn))
		return innerErr
	}, outer, nil, SyncFlags(CategorySIGSEGV, MayReturn))

	require.NoError(t, outerErr)
	assert.Equal(t, OK, outerOutcome)
	assert.Equal(t, 1, innerCalls)
	assert.Equal(t, 1, outerCalls)
}

func TestRaiseFault_NoFrameReturnsError(t *testing.T) {
	d := Startup(testConfig())
	defer d.Shutdown(context.Background())

	code, err := d.RaiseFault(context.Background(), CategorySIGSEGV, nil)
	assert.Equal(t, ContinueSearch, code)
	assert.Error(t, err)
}

func TestThreadState_PushPopAtAnyPosition(t *testing.T) {
	ts := &threadState{}
	a := &frame{id: 1}
	b := &frame{id: 2}
	c := &frame{id: 3}
	ts.push(a)
	ts.push(b)
	ts.push(c)
	assert.Equal(t, 3, ts.depth())

	ts.pop(b) // unlink from the middle
	assert.Equal(t, 2, ts.depth())
	assert.Equal(t, a, c.previous)

	ts.pop(b) // already unlinked, no-op
	assert.Equal(t, 2, ts.depth())

	ts.pop(c) // unlink head
	assert.Equal(t, a, ts.top)
}
