package sigdispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/jitcore/internal/errors"
	"github.com/marmos91/jitcore/internal/logger"
	"github.com/marmos91/jitcore/internal/metrics"
)

// Option is one bit of SetOptions' global option mask.
type Option uint32

const (
	ReducedSignalsSynchronous Option = 1 << iota
	ReducedSignalsAsynchronous
	SIGXFSZOption
	OmrsigNoChain
	CooperativeShutdownOption
)

// Config tunes the dispatcher's reporter thread and queue monitoring.
type Config struct {
	ReporterQueueWarnThreshold int
	ReporterShutdownTimeout    time.Duration
}

// DefaultConfig returns conservative defaults matching config.DispatcherConfig's
// defaults.
func DefaultConfig() Config {
	return Config{
		ReporterQueueWarnThreshold: 64,
		ReporterShutdownTimeout:    5 * time.Second,
	}
}

// Dispatcher is the process-wide signal-handling subsystem: one instance
// per process, created by Startup and torn down by Shutdown. All exported
// methods are safe for concurrent use.
type Dispatcher struct {
	cfg     Config
	metrics *metrics.DispatcherMetrics

	// registerMu protects syncMainInstalled/asyncMainInstalled and the
	// original-disposition map, held for the duration of a
	// sigaction-plus-bitmask-update (spec.md §5 "registerHandler monitor").
	registerMu         sync.Mutex
	syncMainInstalled  Category
	asyncMainInstalled Category
	original           map[int]platformDisposition
	watchedSignals     map[int]bool

	// asyncMu and asyncCond protect the async handler list and the
	// in-flight dispatch counter (spec.md §5 "async monitor").
	asyncMu       sync.Mutex
	asyncCond     *sync.Cond
	asyncHandlers []*asyncRecord
	inFlight      int

	signalCounts map[int]*atomic.Int64
	wakeup       chan struct{}

	shutdownCh   chan struct{}
	reporterDone chan struct{}

	options atomic.Uint32

	frameSeq  atomic.Uint64
	started   atomic.Bool
	startOnce sync.Once
	shutOnce  sync.Once
}

// Startup allocates the dispatcher's monitors, wakeup primitive, and
// reporter thread. Does not install any OS handler; installation is lazy
// (spec.md §4.2 "startup()").
func Startup(cfg Config) *Dispatcher {
	d := &Dispatcher{
		cfg:          cfg,
		metrics:      metrics.NewDispatcherMetrics(),
		original:     make(map[int]platformDisposition),
		signalCounts: make(map[int]*atomic.Int64),
		wakeup:       make(chan struct{}, 1),
		shutdownCh:   make(chan struct{}),
		reporterDone: make(chan struct{}),
	}
	d.asyncCond = sync.NewCond(&d.asyncMu)
	for cat := range categorySignals {
		d.signalCounts[mustSignal(cat)] = &atomic.Int64{}
	}
	d.startOnce.Do(func() {
		d.started.Store(true)
		go d.runReporter()
	})
	logger.Info("signal dispatcher started", logger.ThreadRole("orchestrator"))
	return d
}

func mustSignal(cat Category) int {
	n, _ := categoryToSignal(cat)
	return n
}

// Shutdown signals the reporter to exit, waits for it (bounded by
// cfg.ReporterShutdownTimeout), and restores every OS disposition this
// dispatcher overrode (I-S2's teardown half).
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	var shutdownErr error
	d.shutOnce.Do(func() {
		close(d.shutdownCh)
		d.postWakeup()

		select {
		case <-d.reporterDone:
		case <-time.After(d.cfg.ReporterShutdownTimeout):
			logger.Warn("signal dispatcher: reporter did not exit before shutdown timeout")
		}

		d.registerMu.Lock()
		defer d.registerMu.Unlock()
		for sig, orig := range d.original {
			if err := restoreDisposition(sig, orig); err != nil && shutdownErr == nil {
				shutdownErr = errors.New(errors.ErrOSInstallFailed, "shutdown", err)
			}
		}
		d.original = make(map[int]platformDisposition)
		d.syncMainInstalled = 0
		d.asyncMainInstalled = 0
		d.started.Store(false)
	})
	logger.InfoCtx(ctx, "signal dispatcher stopped", logger.ThreadRole("orchestrator"))
	return shutdownErr
}

// SetOptions OR-merges mask into the dispatcher's global options. Entering
// a reduced-signals mode fails if any handler is already installed.
func (d *Dispatcher) SetOptions(mask Option) error {
	d.registerMu.Lock()
	defer d.registerMu.Unlock()

	entering := Option(d.options.Load())&mask != mask
	reducing := mask&(ReducedSignalsSynchronous|ReducedSignalsAsynchronous) != 0
	if entering && reducing && (d.syncMainInstalled != 0 || d.asyncMainInstalled != 0) {
		return errors.New(errors.ErrReducedSignalsConflict, "SetOptions", nil)
	}
	d.options.Store(uint32(Option(d.options.Load()) | mask))
	return nil
}

func (d *Dispatcher) hasOption(o Option) bool {
	return Option(d.options.Load())&o != 0
}

// CanProtect reports whether flags' requested capability set is supported
// under the dispatcher's current options.
func (d *Dispatcher) CanProtect(flags Flags) bool {
	if flags.ambiguous() {
		return false
	}
	if !flags.Has(IsSync) {
		return false
	}
	if d.hasOption(ReducedSignalsSynchronous) {
		return true // B4: protect still "succeeds", just runs unprotected
	}
	cats := flags.Categories()
	return cats&syncCategories == cats
}

// IsMainSignalHandler reports whether token names one of this
// dispatcher's own main handlers (sync or async) for some category.
func (d *Dispatcher) IsMainSignalHandler(token string) bool {
	return token == mainSyncHandlerToken || token == mainAsyncHandlerToken
}

const (
	mainSyncHandlerToken  = "sigdispatch.mainSyncHandler"
	mainAsyncHandlerToken = "sigdispatch.mainAsyncHandler"
)

// IsSignalIgnored queries the OS disposition for the single category in
// singleFlag and reports whether it is SIG_IGN.
func (d *Dispatcher) IsSignalIgnored(singleFlag Category) (bool, error) {
	sig, ok := categoryToSignal(singleFlag)
	if !ok {
		return false, errors.New(errors.ErrUnsupportedSignal, "IsSignalIgnored", fmt.Errorf("category %s", singleFlag))
	}
	return dispositionIsIgnored(sig)
}

// GetCurrentSignal returns the logical category currently being dispatched
// on the calling goroutine's protection-frame chain, or 0 if none.
func GetCurrentSignal(ctx context.Context) Category {
	ts := threadStateFromContext(ctx)
	if ts == nil || ts.current == nil {
		return 0
	}
	return ts.current.Category
}

// ensureSyncMainHandler lazily marks a category as having main
// synchronous-handler coverage, capturing the OS disposition on first
// installation (I-S1, I-S2).
func (d *Dispatcher) ensureSyncMainHandler(cats Category) error {
	d.registerMu.Lock()
	defer d.registerMu.Unlock()
	return d.ensureMainHandlerLocked(&d.syncMainInstalled, cats)
}

func (d *Dispatcher) ensureMainHandlerLocked(installed *Category, cats Category) error {
	missing := cats &^ *installed
	if missing == 0 {
		return nil
	}
	for bit := Category(1); missing != 0; bit <<= 1 {
		if missing&bit == 0 {
			continue
		}
		missing &^= bit
		sig, ok := categoryToSignal(bit)
		if !ok {
			return errors.New(errors.ErrUnsupportedSignal, "ensureMainHandler", fmt.Errorf("category %s", bit))
		}
		if _, captured := d.original[sig]; !captured {
			old, err := captureDisposition(sig)
			if err != nil {
				return errors.New(errors.ErrOSInstallFailed, "ensureMainHandler", err)
			}
			d.original[sig] = old
		}
		*installed |= bit
	}
	return nil
}

// RegisterOSHandler installs a caller-supplied disposition for exactly one
// signal, bypassing the main handler. Accepted here as a capture/restore
// bookkeeping operation: real custom dispositions are out of scope for a
// process that must keep running Go code, so this records the override and
// returns the previously captured disposition without installing anything
// that could crash the runtime.
func (d *Dispatcher) RegisterOSHandler(singleFlag Category) error {
	if bitCount(uint32(singleFlag)) != 1 {
		return errors.New(errors.ErrAmbiguousFlags, "RegisterOSHandler", fmt.Errorf("singleFlag must name exactly one category, got %s", singleFlag))
	}
	sig, ok := categoryToSignal(singleFlag)
	if !ok {
		return errors.New(errors.ErrUnsupportedSignal, "RegisterOSHandler", fmt.Errorf("category %s", singleFlag))
	}
	d.registerMu.Lock()
	defer d.registerMu.Unlock()
	if _, captured := d.original[sig]; !captured {
		old, err := captureDisposition(sig)
		if err != nil {
			return errors.New(errors.ErrOSInstallFailed, "RegisterOSHandler", err)
		}
		d.original[sig] = old
	}
	return nil
}

func bitCount(x uint32) int {
	n := 0
	for x != 0 {
		n++
		x &= x - 1
	}
	return n
}
