package jitruntime

import (
	"context"
	"fmt"

	jitcoreerrors "github.com/marmos91/jitcore/internal/errors"
	"github.com/marmos91/jitcore/internal/ir"
	"github.com/marmos91/jitcore/internal/optimizer"
	"github.com/marmos91/jitcore/internal/optimizer/invariantstore"
	"github.com/marmos91/jitcore/internal/sigdispatch"
	"github.com/marmos91/jitcore/internal/telemetry"
)

// CompileRequest describes one optimize() run. MethodID is the caller's own
// identifier for the method (internal/ir.MethodSymbol carries no name or
// identity of its own, so the host must supply one for logging, tracing,
// and the profile/invariant stores).
type CompileRequest struct {
	MethodID      string
	Compilation   ir.Compilation
	Method        ir.MethodSymbol
	IsIlGen       bool
	Strategy      optimizer.Strategy
	IlGenStrategy optimizer.Strategy
}

// CompileResult reports the outcome of one Compile call.
type CompileResult struct {
	CompilationID string
	MethodID      string
	Hotness       ir.MethodHotness
	NodeCount     int
	SymRefCount   int
}

// SuggestedHotness looks up methodID's last persisted hotness tier, for a
// host to consult before constructing the ir.Compilation it will pass to
// Compile — ir.Compilation.MethodHotness is read-only from the
// orchestrator's side, so warm-starting a method across restarts has to
// happen above this boundary, in the host's own Compilation construction.
func (r *Runtime) SuggestedHotness(ctx context.Context, methodID string) (ir.MethodHotness, bool, error) {
	if r.profiles == nil {
		return ir.HotnessCold, false, nil
	}
	snap, ok, err := r.profiles.Lookup(ctx, methodID)
	if err != nil {
		return ir.HotnessCold, false, err
	}
	if !ok {
		return ir.HotnessCold, false, nil
	}
	return snap.Hotness, true, nil
}

// Compile runs one optimize() pass over req.Method within req.Compilation,
// protected by the Runtime's signal dispatcher, and records the outcome to
// the configured profile and invariant stores.
func (r *Runtime) Compile(ctx context.Context, req CompileRequest) (CompileResult, error) {
	if req.MethodID == "" {
		return CompileResult{}, fmt.Errorf("jitruntime: Compile requires a non-empty MethodID")
	}

	compilationID := newCompilationID()
	ctx, span := telemetry.StartOptimizeSpan(ctx, compilationID, req.MethodID)
	defer span.End()

	orch, err := optimizer.CreateOptimizer(
		r.cfg.Optimizer,
		r.registry,
		req.Compilation,
		req.Method,
		req.IsIlGen,
		req.Strategy,
		req.IlGenStrategy,
	)
	if err != nil {
		return CompileResult{}, fmt.Errorf("jitruntime: create optimizer: %w", err)
	}

	protectOutcome, err := r.dispatcher.Protect(ctx, func(ctx context.Context) error {
		return orch.Optimize(ctx)
	}, func(sigdispatch.Category, any) sigdispatch.DispatchCode {
		return sigdispatch.ExceptionReturn
	}, nil, sigdispatch.SyncFlags(
		sigdispatch.CategorySIGSEGV|sigdispatch.CategorySIGBUS|sigdispatch.CategorySIGILL|sigdispatch.CategorySIGFPE,
	))

	outcome := invariantstore.OutcomeCompleted
	switch {
	case protectOutcome == sigdispatch.ExceptionOccurred:
		outcome = invariantstore.OutcomeFailed
		err = jitcoreerrors.Newf(jitcoreerrors.ErrCompilationInterrupted, "jitruntime.Compile", "optimize() raised a synchronous fault")
	case err != nil:
		outcome = invariantstore.OutcomeFailed
	}

	hotness := req.Compilation.MethodHotness()
	cfg := req.Method.FlowGraph()
	result := CompileResult{
		CompilationID: compilationID,
		MethodID:      req.MethodID,
		Hotness:       hotness,
		NodeCount:     cfg.NodeCount(),
		SymRefCount:   cfg.SymRefCount(),
	}

	if r.profiles != nil {
		if recErr := r.profiles.RecordHotness(ctx, req.MethodID, hotness); recErr != nil {
			logRecordFailure(ctx, "profile", recErr)
		}
	}
	if r.invariants != nil {
		rec := &invariantstore.InvariantRecord{
			CompilationID: compilationID,
			MethodID:      req.MethodID,
			StrategyHash:  strategyHash(req.Strategy),
			NodeCount:     result.NodeCount,
			SymRefCount:   result.SymRefCount,
			Outcome:       outcome,
		}
		if recErr := r.invariants.Record(ctx, rec); recErr != nil {
			logRecordFailure(ctx, "invariant", recErr)
		}
	}

	if err != nil {
		return result, err
	}
	return result, nil
}
