// Package jitruntime is jitcore's public facade: it wires the optimizer
// orchestrator and the signal dispatcher together with the ambient stack
// (logging, metrics, tracing, and the optional profile/invariant stores)
// behind a single entry point, the way a host embedding both CORE engines
// is expected to use them.
//
// internal/optimizer and internal/sigdispatch know nothing of each other
// or of this package; jitruntime is the only place that composes them.
package jitruntime

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/marmos91/jitcore/internal/config"
	jitcoreerrors "github.com/marmos91/jitcore/internal/errors"
	"github.com/marmos91/jitcore/internal/logger"
	"github.com/marmos91/jitcore/internal/metrics"
	"github.com/marmos91/jitcore/internal/optimizer"
	"github.com/marmos91/jitcore/internal/optimizer/invariantstore"
	"github.com/marmos91/jitcore/internal/optimizer/profilestore"
	"github.com/marmos91/jitcore/internal/sigdispatch"
	"github.com/marmos91/jitcore/internal/telemetry"
)

// Runtime owns the process-wide state a host needs to drive repeated
// Compile calls: the registered optimization catalog, the signal
// dispatcher protecting each call, and the optional persistent stores.
// One Runtime is meant to live for the lifetime of the host process.
type Runtime struct {
	cfg        *config.Config
	registry   *optimizer.Registry
	dispatcher *sigdispatch.Dispatcher

	profiles   *profilestore.Store
	invariants *invariantstore.Store

	telemetryShutdown func(context.Context) error
}

// Options supplies the optional persistent stores and the optimization
// catalog a Runtime drives. Registry is required; Profiles and Invariants
// are both nil-able — a Runtime works fully without either, just without
// cross-restart hotness memory or cross-run invariant auditing.
type Options struct {
	Registry   *optimizer.Registry
	Profiles   *profilestore.Store
	Invariants *invariantstore.Store
}

// New builds a Runtime: it initializes logging, the Prometheus registry
// (if enabled), OpenTelemetry tracing (if enabled), and starts the signal
// dispatcher. The returned Runtime must be closed with Close.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("jitruntime: Options.Registry is required")
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, fmt.Errorf("jitruntime: failed to init logger: %w", err)
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	var telemetryShutdown func(context.Context) error
	if cfg.Telemetry.Enabled {
		tcfg := telemetry.DefaultConfig()
		tcfg.Enabled = true
		tcfg.ServiceName = cfg.Telemetry.ServiceName
		tcfg.Endpoint = cfg.Telemetry.Endpoint
		tcfg.Insecure = cfg.Telemetry.Insecure
		if cfg.Telemetry.SampleRate > 0 {
			tcfg.SampleRate = cfg.Telemetry.SampleRate
		}

		shutdown, err := telemetry.Init(ctx, tcfg)
		if err != nil {
			return nil, fmt.Errorf("jitruntime: failed to init telemetry: %w", err)
		}
		telemetryShutdown = shutdown
	}

	dispatcherOptions, err := dispatcherOptionMask(cfg.Dispatcher.Options)
	if err != nil {
		return nil, fmt.Errorf("jitruntime: %w", err)
	}

	dispatcher := sigdispatch.Startup(sigdispatch.Config{
		ReporterQueueWarnThreshold: cfg.Dispatcher.ReporterQueueWarnThreshold,
		ReporterShutdownTimeout:    cfg.Dispatcher.ReporterShutdownTimeout,
	})
	if dispatcherOptions != 0 {
		if err := dispatcher.SetOptions(dispatcherOptions); err != nil {
			return nil, jitcoreerrors.New(jitcoreerrors.ErrReducedSignalsConflict, "jitruntime.New", err)
		}
	}

	return &Runtime{
		cfg:               cfg,
		registry:          opts.Registry,
		dispatcher:        dispatcher,
		profiles:          opts.Profiles,
		invariants:        opts.Invariants,
		telemetryShutdown: telemetryShutdown,
	}, nil
}

// Close shuts down the dispatcher's reporter goroutine and any telemetry
// exporter started by New. It does not close Profiles/Invariants, since
// the Runtime did not open them — the caller owns their lifecycle.
func (r *Runtime) Close(ctx context.Context) error {
	if err := r.dispatcher.Shutdown(ctx); err != nil {
		return fmt.Errorf("jitruntime: dispatcher shutdown: %w", err)
	}
	if r.telemetryShutdown != nil {
		if err := r.telemetryShutdown(ctx); err != nil {
			return fmt.Errorf("jitruntime: telemetry shutdown: %w", err)
		}
	}
	return nil
}

// Dispatcher returns the Runtime's signal dispatcher, for hosts that need
// to Protect() calls beyond Compile itself (e.g. the code-generation step
// that follows optimization).
func (r *Runtime) Dispatcher() *sigdispatch.Dispatcher { return r.dispatcher }

// dispatcherOptionMask translates the validated option-name strings from
// config.DispatcherConfig into the sigdispatch bitmask, mirroring the
// validation already applied to cfg.Dispatcher.Options.
func dispatcherOptionMask(names []string) (sigdispatch.Option, error) {
	var mask sigdispatch.Option
	for _, name := range names {
		switch name {
		case "REDUCED_SIGNALS_SYNCHRONOUS":
			mask |= sigdispatch.ReducedSignalsSynchronous
		case "REDUCED_SIGNALS_ASYNCHRONOUS":
			mask |= sigdispatch.ReducedSignalsAsynchronous
		case "SIGXFSZ":
			mask |= sigdispatch.SIGXFSZOption
		case "OMRSIG_NO_CHAIN":
			mask |= sigdispatch.OmrsigNoChain
		case "COOPERATIVE_SHUTDOWN":
			mask |= sigdispatch.CooperativeShutdownOption
		default:
			return 0, fmt.Errorf("unknown dispatcher option %q", name)
		}
	}
	return mask, nil
}

// newCompilationID generates the identifier used to correlate a Compile
// call's trace span, log lines, and invariant record.
func newCompilationID() string {
	return uuid.NewString()
}
