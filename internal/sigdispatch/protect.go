package sigdispatch

import (
	"context"
	"os"

	"github.com/marmos91/jitcore/internal/errors"
	"github.com/marmos91/jitcore/internal/telemetry"
)

// CurrentSignal records the signal currently being dispatched on one
// call chain (spec.md §3 "CurrentSignal"), saved/restored across nested
// RaiseFault calls.
type CurrentSignal struct {
	OSSignal int
	Category Category
}

// threadState is the Go rendition of the spec's per-thread handler stack
// and currentSignal cell. It lives for the duration of one outermost
// Protect call and every Protect/RaiseFault nested beneath it, threaded
// through context.Context rather than true thread-local storage: only one
// goroutine in the chain is ever runnable at a time (the caller blocks on
// the child's result channel), so no additional locking is required.
type threadState struct {
	top     *frame
	current *CurrentSignal
}

func (ts *threadState) push(fr *frame) {
	fr.previous = ts.top
	ts.top = fr
}

// pop unlinks fr from the chain if it is still linked. A frame already
// unlinked by RaiseFault's walk (I-S3: "unlinked before control reaches
// user code again") makes this a no-op, so Protect can call it
// unconditionally on every return path.
func (ts *threadState) pop(fr *frame) {
	if ts.top == fr {
		ts.top = fr.previous
		return
	}
	for p := ts.top; p != nil; p = p.previous {
		if p.previous == fr {
			p.previous = fr.previous
			return
		}
	}
}

func (ts *threadState) depth() int {
	n := 0
	for p := ts.top; p != nil; p = p.previous {
		n++
	}
	return n
}

type threadStateKey struct{}

func threadStateFromContext(ctx context.Context) *threadState {
	ts, _ := ctx.Value(threadStateKey{}).(*threadState)
	return ts
}

// withThreadState returns ctx carrying a threadState, reusing one already
// present (nested Protect on the same call chain) instead of starting a
// fresh stack.
func withThreadState(ctx context.Context) (context.Context, *threadState) {
	if ts := threadStateFromContext(ctx); ts != nil {
		return ctx, ts
	}
	ts := &threadState{}
	return context.WithValue(ctx, threadStateKey{}, ts), ts
}

// exceptionSentinel is the panic payload protect's recover boundary looks
// for; it is the Go rendition of a non-local return to the protection
// frame's saved jump target (spec.md §4.2 step 4's "EXCEPTION_RETURN").
type exceptionSentinel struct {
	frameID uint64
}

// Protect executes fn within a new protection frame (spec.md §4.2
// "protect()"). flags == 0 runs fn with no main-handler installation
// (B1); under ReducedSignalsSynchronous, fn runs unprotected regardless of
// flags (B4).
func (d *Dispatcher) Protect(ctx context.Context, fn func(context.Context) error, handler SyncHandler, handlerArg any, flags Flags) (ProtectOutcome, error) {
	if flags.ambiguous() {
		return DispatchError, errors.New(errors.ErrAmbiguousFlags, "Protect", nil)
	}
	if flags == 0 {
		return OK, fn(ctx)
	}
	if !flags.Has(IsSync) {
		return DispatchError, errors.Newf(errors.ErrAmbiguousFlags, "Protect", "flags must request IsSync coverage")
	}
	if d.hasOption(ReducedSignalsSynchronous) {
		return OK, fn(ctx)
	}

	cats := flags.Categories()
	if cats&syncCategories != cats {
		return DispatchError, errors.Newf(errors.ErrUnsupportedSignal, "Protect", "flags name unsupported categories %s", cats)
	}
	if err := d.ensureSyncMainHandler(cats); err != nil {
		return DispatchError, err
	}

	ctx, ts := withThreadState(ctx)
	fr := &frame{id: d.frameSeq.Add(1), flags: flags, handler: handler, handlerArg: handlerArg}
	ts.push(fr)

	ctx, span := telemetry.StartProtectedCallSpan(ctx, cats.String(), ts.depth())
	defer span.End()

	type outcome struct {
		err   error
		panic any
	}
	resultCh := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- outcome{panic: r}
			}
		}()
		resultCh <- outcome{err: fn(ctx)}
	}()

	res := <-resultCh
	ts.pop(fr)

	if res.panic != nil {
		sentinel, ok := res.panic.(*exceptionSentinel)
		if !ok || sentinel.frameID != fr.id {
			panic(res.panic)
		}
		d.recordSyncDispatch(cats.String(), "exception_occurred")
		return ExceptionOccurred, nil
	}
	d.recordSyncDispatch(cats.String(), "ok")
	return OK, res.err
}

func (d *Dispatcher) recordSyncDispatch(category, outcome string) {
	if d.metrics != nil {
		d.metrics.RecordSyncDispatch(category, outcome)
	}
}

// RaiseFault runs the main synchronous handler algorithm (spec.md §4.2)
// against the calling goroutine's current protection-frame chain. It
// stands in for a real hardware trap: Go cannot safely intercept SIGSEGV/
// SIGBUS/SIGILL/SIGFPE without corrupting its own runtime, so faults are
// triggered explicitly by whatever code detects the fault condition (a
// test harness, or a primitive that validates its own preconditions)
// instead of by the OS.
func (d *Dispatcher) RaiseFault(ctx context.Context, cat Category, arg any) (DispatchCode, error) {
	ts := threadStateFromContext(ctx)
	if ts == nil || ts.top == nil {
		return ContinueSearch, errors.Newf(errors.ErrUnsupportedSignal, "RaiseFault", "no protection frame active for category %s", cat)
	}

	prevSignal := ts.current
	sig, _ := categoryToSignal(cat)
	ts.current = &CurrentSignal{OSSignal: sig, Category: cat}
	defer func() { ts.current = prevSignal }()

	prevLink := &ts.top
	for fr := ts.top; fr != nil; {
		next := fr.previous
		if !fr.matches(cat) {
			prevLink = &fr.previous
			fr = next
			continue
		}

		// Unlink before invoking (I-S3): a callback crash must not
		// re-enter its own frame.
		*prevLink = next

		code := fr.handler(cat, arg)
		switch code {
		case ContinueSearch:
			fr.previous = next
			*prevLink = fr
			prevLink = &fr.previous
			fr = next
			continue
		case ContinueExecution:
			return ContinueExecution, nil
		case CooperativeShutdown:
			if d.hasOption(CooperativeShutdownOption) {
				d.beginCooperativeShutdown()
			}
			return CooperativeShutdown, nil
		case ExceptionReturn:
			panic(&exceptionSentinel{frameID: fr.id})
		default:
			return ContinueSearch, errors.Newf(errors.ErrUnsupportedSignal, "RaiseFault", "handler returned unknown dispatch code %d", code)
		}
	}
	return ContinueSearch, errors.Newf(errors.ErrUnsupportedSignal, "RaiseFault", "no frame handles %s", cat)
}

// beginCooperativeShutdown performs the orderly-termination path for
// platforms that support COOPERATIVE_SHUTDOWN (spec.md §4.2 step 4): shut
// the dispatcher down and exit. Kept uniform across platforms rather than
// gated to one, per the Open Question decision in DESIGN.md.
func (d *Dispatcher) beginCooperativeShutdown() {
	go func() {
		_ = d.Shutdown(context.Background())
		exitProcess(1)
	}()
}

// exitProcess is a var so tests can override process termination.
var exitProcess = os.Exit
