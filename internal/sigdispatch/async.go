package sigdispatch

import (
	"context"
	"fmt"

	"github.com/marmos91/jitcore/internal/errors"
	"github.com/marmos91/jitcore/internal/logger"
	"github.com/marmos91/jitcore/internal/telemetry"
)

// SetAsyncSignalHandler registers, updates, or removes an async callback
// (spec.md §4.2 "setAsyncSignalHandler"). flags == 0 removes the matching
// record; otherwise the record's mask is unioned with flags, or a fresh
// record is appended if none matches (portLibrary, handler, handlerArg) —
// here identified by handler/handlerArg pointer identity, since this
// package has no separate port-library concept.
func (d *Dispatcher) SetAsyncSignalHandler(handler AsyncHandler, handlerArg any, flags Flags) error {
	if flags.ambiguous() {
		return errors.New(errors.ErrAmbiguousFlags, "SetAsyncSignalHandler", nil)
	}
	if flags != 0 && !flags.Has(IsAsync) {
		return errors.Newf(errors.ErrAmbiguousFlags, "SetAsyncSignalHandler", "flags must request IsAsync coverage")
	}
	cats := flags.Categories()
	if d.hasOption(ReducedSignalsAsynchronous) {
		allowed := Category(0)
		if d.hasOption(SIGXFSZOption) {
			allowed = CategorySIGXFSZ
		}
		if cats&^allowed != 0 {
			return errors.Newf(errors.ErrUnsupportedSignal, "SetAsyncSignalHandler", "async registration refused under ReducedSignalsAsynchronous for %s", cats&^allowed)
		}
	}

	if err := d.ensureAsyncMainHandler(cats); err != nil {
		return err
	}

	d.quiesce()
	defer d.asyncMu.Unlock()
	d.asyncMu.Lock()

	idx := d.findAsyncRecordLocked(handler, handlerArg)
	switch {
	case idx < 0 && flags == 0:
		// nothing to remove
	case idx >= 0 && flags == 0:
		d.asyncHandlers = append(d.asyncHandlers[:idx], d.asyncHandlers[idx+1:]...)
	case idx >= 0:
		d.asyncHandlers[idx].mask |= cats
	default:
		d.asyncHandlers = append(d.asyncHandlers, &asyncRecord{handler: handler, handlerArg: handlerArg, mask: cats})
	}
	d.setHandlersRegisteredLocked()
	return nil
}

// SetSingleAsyncSignalHandler is SetAsyncSignalHandler's single-bit
// variant: singleFlag is cleared from every other record before (or
// instead of) being associated with this handler, so exactly one record
// has it set afterward (B2).
func (d *Dispatcher) SetSingleAsyncSignalHandler(handler AsyncHandler, handlerArg any, singleFlag Category) error {
	if bitCount(uint32(singleFlag)) > 1 {
		return errors.Newf(errors.ErrAmbiguousFlags, "SetSingleAsyncSignalHandler", "singleFlag must name at most one category, got %s", singleFlag)
	}

	if err := d.ensureAsyncMainHandler(singleFlag); err != nil {
		return err
	}

	d.quiesce()
	defer d.asyncMu.Unlock()
	d.asyncMu.Lock()

	for _, rec := range d.asyncHandlers {
		rec.mask &^= singleFlag
	}
	if singleFlag == 0 {
		d.setHandlersRegisteredLocked()
		return nil
	}

	idx := d.findAsyncRecordLocked(handler, handlerArg)
	if idx >= 0 {
		d.asyncHandlers[idx].mask |= singleFlag
	} else {
		d.asyncHandlers = append(d.asyncHandlers, &asyncRecord{handler: handler, handlerArg: handlerArg, mask: singleFlag})
	}
	// Drop any record left with an empty mask by the clearing step above.
	d.asyncHandlers = compactAsyncRecords(d.asyncHandlers)
	d.setHandlersRegisteredLocked()
	return nil
}

func compactAsyncRecords(recs []*asyncRecord) []*asyncRecord {
	out := recs[:0]
	for _, r := range recs {
		if r.mask != 0 {
			out = append(out, r)
		}
	}
	return out
}

func (d *Dispatcher) findAsyncRecordLocked(handler AsyncHandler, handlerArg any) int {
	for i, rec := range d.asyncHandlers {
		if sameFunc(rec.handler, handler) && rec.handlerArg == handlerArg {
			return i
		}
	}
	return -1
}

// sameFunc compares AsyncHandler values by their underlying code pointer.
// Go function values are not comparable with ==, so reflect is used only
// here, at registration time, never on the signal-delivery hot path.
func sameFunc(a, b AsyncHandler) bool {
	return fmt.Sprintf("%p", a) == fmt.Sprintf("%p", b)
}

func (d *Dispatcher) setHandlersRegisteredLocked() {
	if d.metrics != nil {
		d.metrics.SetHandlersRegistered("async", len(d.asyncHandlers))
	}
}

// quiesce blocks until no async dispatch is in flight (spec.md §4.2:
// "block until no async dispatches are in flight").
func (d *Dispatcher) quiesce() {
	d.asyncMu.Lock()
	for d.inFlight != 0 {
		d.asyncCond.Wait()
	}
	d.asyncMu.Unlock()
}

// ensureAsyncMainHandler lazily installs main async-handler coverage for
// every category in cats that lacks one yet (I-S1, I-S2).
func (d *Dispatcher) ensureAsyncMainHandler(cats Category) error {
	if cats == 0 {
		return nil
	}
	d.registerMu.Lock()
	defer d.registerMu.Unlock()
	if err := d.ensureMainHandlerLocked(&d.asyncMainInstalled, cats); err != nil {
		return err
	}
	d.watchOSSignalsLocked(cats)
	return nil
}

// runHandlers delivers one category's async signal to every covering
// handler, on the reporter goroutine (spec.md §4.2 "runHandlers").
func (d *Dispatcher) runHandlers(ctx context.Context, cat Category, osSignal int) {
	ctx, span := telemetry.StartAsyncDispatchSpan(ctx, cat.String())
	defer span.End()

	d.asyncMu.Lock()
	d.inFlight++
	handlers := make([]*asyncRecord, 0, len(d.asyncHandlers))
	for _, rec := range d.asyncHandlers {
		if rec.mask&cat != 0 {
			handlers = append(handlers, rec)
		}
	}
	d.asyncMu.Unlock()

	for _, rec := range handlers {
		rec.handler(cat, osSignal, rec.handlerArg)
	}

	d.asyncMu.Lock()
	d.inFlight--
	if d.inFlight == 0 {
		d.asyncCond.Broadcast()
	}
	d.asyncMu.Unlock()

	if d.metrics != nil {
		d.metrics.RecordAsyncSignal(cat.String())
	}
	logger.DebugCtx(ctx, "async signal delivered", logger.Signal(cat.String()), logger.InFlight(len(handlers)))
}
