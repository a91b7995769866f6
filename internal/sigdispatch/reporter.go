package sigdispatch

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/jitcore/internal/logger"
	"github.com/marmos91/jitcore/internal/telemetry"
)

// postWakeup posts the reporter-wakeup primitive: a non-blocking send on a
// size-1 buffered channel, the portable stand-in for "a counting
// semaphore on platforms that have them, otherwise a condition+mutex
// pair" (spec.md §4.2 "startup()"). Multiple posts between wakeups
// coalesce into one, which is why the reporter always drains a signal's
// full count rather than assuming one wakeup per increment.
func (d *Dispatcher) postWakeup() {
	select {
	case d.wakeup <- struct{}{}:
	default:
	}
}

// watchOSSignalsLocked starts forwarding real OS delivery for every
// not-yet-watched signal in cats into signalCounts + the wakeup
// primitive. Must be called with registerMu held.
func (d *Dispatcher) watchOSSignalsLocked(cats Category) {
	if d.watchedSignals == nil {
		d.watchedSignals = make(map[int]bool)
	}
	for bit := Category(1); cats != 0; bit <<= 1 {
		if cats&bit == 0 {
			continue
		}
		cats &^= bit
		sig, ok := categoryToSignal(bit)
		if !ok || d.watchedSignals[sig] {
			continue
		}
		d.watchedSignals[sig] = true
		ch := make(chan os.Signal, 8)
		signal.Notify(ch, syscall.Signal(sig))
		go d.forwardOSSignal(sig, ch)
	}
}

// forwardOSSignal is the Go rendition of spec.md's "main asynchronous
// handler": it does the minimum possible work per delivery (an atomic
// increment and a wakeup post) and never touches the handler list itself,
// matching the spec's "restricts itself to an atomic increment and one
// post" reentrancy rule, expressed as a dedicated goroutine instead of
// signal-context code.
func (d *Dispatcher) forwardOSSignal(sig int, ch chan os.Signal) {
	for {
		select {
		case <-d.shutdownCh:
			signal.Stop(ch)
			return
		case <-ch:
			if counter, ok := d.signalCounts[sig]; ok {
				counter.Add(1)
			}
			d.postWakeup()
		}
	}
}

// runReporter is the single dedicated reporter thread (spec.md §4.2
// "Reporter thread algorithm"). It owns all delivery to async handlers;
// user callbacks never run in signal context (I-S4).
func (d *Dispatcher) runReporter() {
	defer close(d.reporterDone)

	ctx := logger.WithContext(context.Background(), logger.NewLogContext("").WithThreadRole("reporter"))

	for {
		select {
		case <-d.shutdownCh:
			return
		case <-d.wakeup:
		}

		d.processOneWakeup(ctx)

		select {
		case <-d.shutdownCh:
			return
		default:
		}
	}
}

func (d *Dispatcher) processOneWakeup(ctx context.Context) {
	cycleCtx, span := telemetry.StartSpan(ctx, telemetry.SpanReporterCycle)
	defer span.End()

	depth := int64(0)
	for _, counter := range d.signalCounts {
		depth += counter.Load()
	}
	if d.metrics != nil {
		d.metrics.SetReporterQueueDepth(int(depth))
	}
	if d.cfg.ReporterQueueWarnThreshold > 0 && int(depth) > d.cfg.ReporterQueueWarnThreshold {
		logger.WarnCtx(cycleCtx, "signal dispatcher: reporter queue depth exceeds warn threshold", logger.InFlight(int(depth)))
	}

	for sig, counter := range d.signalCounts {
		for counter.Load() > 0 {
			if cat, ok := signalToCategory(sig); ok {
				d.runHandlers(cycleCtx, cat, sig)
			}
			counter.Add(-1)
		}
	}
}
