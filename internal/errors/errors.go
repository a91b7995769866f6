// Package errors provides the error types and error codes shared by the
// optimizer orchestrator and the signal dispatcher. This is a leaf package
// with no internal dependencies, so both engines can import it without
// causing an import cycle.
//
// Import graph: errors <- optimizer, errors <- sigdispatch
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents the type of error that occurred.
type ErrorCode int

const (
	// ErrExcessiveComplexity indicates a structure-requiring pass hit the
	// block/loop count threshold without an override option set.
	ErrExcessiveComplexity ErrorCode = iota + 1

	// ErrInsufficientlyAggressive indicates a hotness re-evaluation demands
	// recompilation at a higher tier.
	ErrInsufficientlyAggressive

	// ErrCompilationInterrupted indicates a pass observed a cancellation
	// request after its boundary.
	ErrCompilationInterrupted

	// ErrInvalidStrategy indicates a custom strategy array failed to decode.
	ErrInvalidStrategy

	// ErrAmbiguousFlags indicates a protect/async-registration flags value
	// had both or neither of the sync/async indicator bits set.
	ErrAmbiguousFlags

	// ErrUnsupportedSignal indicates a signal category this platform or
	// build cannot dispatch.
	ErrUnsupportedSignal

	// ErrOSInstallFailed indicates sigaction (or equivalent) failed during
	// main-handler installation.
	ErrOSInstallFailed

	// ErrHandlerRecordAlloc indicates an async or protection frame record
	// could not be allocated.
	ErrHandlerRecordAlloc

	// ErrReducedSignalsConflict indicates an attempt to enter reduced-signal
	// mode while a handler is already installed.
	ErrReducedSignalsConflict

	// ErrProfileStoreUnavailable indicates the profile store could not
	// complete a read or write against its backing database.
	ErrProfileStoreUnavailable

	// ErrInvariantStoreUnavailable indicates the invariant store could not
	// reach or query its backing database.
	ErrInvariantStoreUnavailable
)

// String returns a human-readable name for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrExcessiveComplexity:
		return "ExcessiveComplexity"
	case ErrInsufficientlyAggressive:
		return "InsufficientlyAggressiveCompilation"
	case ErrCompilationInterrupted:
		return "CompilationInterrupted"
	case ErrInvalidStrategy:
		return "InvalidStrategy"
	case ErrAmbiguousFlags:
		return "AmbiguousFlags"
	case ErrUnsupportedSignal:
		return "UnsupportedSignal"
	case ErrOSInstallFailed:
		return "OSInstallFailed"
	case ErrHandlerRecordAlloc:
		return "HandlerRecordAlloc"
	case ErrReducedSignalsConflict:
		return "ReducedSignalsConflict"
	case ErrProfileStoreUnavailable:
		return "ProfileStoreUnavailable"
	case ErrInvariantStoreUnavailable:
		return "InvariantStoreUnavailable"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// Error is a typed failure carrying the code, the operation that raised it,
// and (where applicable) the underlying cause. Both engines wrap their
// typed failures in Error so callers can use errors.Is/errors.As instead of
// string matching.
type Error struct {
	Code ErrorCode
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Code, letting
// callers write errors.Is(err, errors.ExcessiveComplexity).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel values for errors.Is comparisons against the orchestrator's
// typed failures (spec.md §7: "the orchestrator never silences a pass-level
// typed failure; they bubble to the compilation driver unchanged").
var (
	ExcessiveComplexity         = &Error{Code: ErrExcessiveComplexity, Op: "performOptimization"}
	InsufficientlyAggressive    = &Error{Code: ErrInsufficientlyAggressive, Op: "optimize"}
	CompilationInterrupted      = &Error{Code: ErrCompilationInterrupted, Op: "optimize"}
)

// New wraps code/op/err into an *Error.
func New(code ErrorCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// Newf is like New but formats a message as the wrapped error.
func Newf(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err carries the given code, unwrapping standard error
// chains with errors.As.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
