package optimizer

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/google/uuid"

	"github.com/marmos91/jitcore/internal/config"
	jitcoreerrors "github.com/marmos91/jitcore/internal/errors"
	"github.com/marmos91/jitcore/internal/ir"
	"github.com/marmos91/jitcore/internal/logger"
	"github.com/marmos91/jitcore/internal/metrics"
	"github.com/marmos91/jitcore/internal/telemetry"
)

// visitCountHighWaterMark is the visit-count value at which the
// orchestrator resets a CFG's visit counter (spec.md §4.1 step 12: "If
// visit-count reached a high water mark, reset visit counts").
const visitCountHighWaterMark = 1_000_000

// currentOptimizers tracks, per compilation, the innermost running
// Orchestrator — the "current optimizer" spec.md §4.1's optimize() saves
// and restores so nested optimizers compose correctly (P1).
var currentOptimizers sync.Map // ir.Compilation -> *Orchestrator

// CurrentOptimizer returns the innermost Orchestrator currently running
// Optimize() for comp, or nil if none is active.
func CurrentOptimizer(comp ir.Compilation) *Orchestrator {
	v, ok := currentOptimizers.Load(comp)
	if !ok {
		return nil
	}
	return v.(*Orchestrator)
}

// Orchestrator drives one strategy over one method within one compilation.
// It is not safe for concurrent use by multiple goroutines — spec.md §5
// scopes it to a single thread per compilation; distinct compilations may
// run distinct orchestrators concurrently.
type Orchestrator struct {
	id          string
	registry    *Registry
	compilation ir.Compilation
	method      ir.MethodSymbol
	strategy    Strategy
	isIlGen     bool

	cache       *AnalysisCache
	states      map[OptID]*State
	globalIndex int

	firstIndex int
	lastIndex  int

	enabledRegex       *regexp.Regexp
	disabledRegex      *regexp.Regexp
	breakOnOptRegex    *regexp.Regexp
	overrideComplexity bool
	traceAll           bool
	thresholds         thresholds

	outer   *Orchestrator
	metrics *metrics.OptimizerMetrics
}

type thresholds struct {
	maxBlocksHot  int
	maxBlocksCold int
	maxLoopsHot   int
	maxLoopsCold  int
}

// CreateOptimizer builds an Orchestrator for one compile of method under
// compilation, consuming strategy verbatim unless isIlGen is true, in
// which case ilGenStrategy is used instead and every primitive id it
// references must declare SupportsIlGenLevel.
//
// strategy may be nil when isIlGen is true.
func CreateOptimizer(cfg config.OptimizerConfig, registry *Registry, compilation ir.Compilation, method ir.MethodSymbol, isIlGen bool, strategy Strategy, ilGenStrategy Strategy) (*Orchestrator, error) {
	active := strategy
	if isIlGen {
		active = ilGenStrategy
		for _, entry := range active {
			if registry.IsGroup(entry.OptID) {
				continue
			}
			def, ok := registry.Optimization(entry.OptID)
			if !ok {
				return nil, jitcoreerrors.Newf(jitcoreerrors.ErrInvalidStrategy, "createOptimizer", "unknown opt id %d in IL-gen strategy", entry.OptID)
			}
			if !def.Capabilities.Has(SupportsIlGenLevel) {
				return nil, jitcoreerrors.Newf(jitcoreerrors.ErrInvalidStrategy, "createOptimizer", "opt %q does not support IL-gen level", def.Name)
			}
		}
	}

	enabledRe, err := compileOptionalRegex(cfg.EnabledRegex)
	if err != nil {
		return nil, jitcoreerrors.New(jitcoreerrors.ErrInvalidStrategy, "createOptimizer", err)
	}
	disabledRe, err := compileOptionalRegex(cfg.DisabledRegex)
	if err != nil {
		return nil, jitcoreerrors.New(jitcoreerrors.ErrInvalidStrategy, "createOptimizer", err)
	}
	breakRe, err := compileOptionalRegex(cfg.BreakOnOptRegex)
	if err != nil {
		return nil, jitcoreerrors.New(jitcoreerrors.ErrInvalidStrategy, "createOptimizer", err)
	}

	lastIndex := cfg.LastOptIndex
	if lastIndex < 0 {
		lastIndex = 1<<31 - 1
	}

	o := &Orchestrator{
		id:                 uuid.NewString(),
		registry:           registry,
		compilation:        compilation,
		method:             method,
		strategy:           active,
		isIlGen:            isIlGen,
		cache:              NewAnalysisCache(metrics.NewOptimizerMetrics()),
		states:             make(map[OptID]*State),
		firstIndex:         cfg.FirstOptIndex,
		lastIndex:          lastIndex,
		enabledRegex:       enabledRe,
		disabledRegex:      disabledRe,
		breakOnOptRegex:    breakRe,
		overrideComplexity: cfg.OverrideComplexityLimit,
		traceAll:           cfg.TraceAll,
		thresholds: thresholds{
			maxBlocksHot:  cfg.MaxBlocksHotTier,
			maxBlocksCold: cfg.MaxBlocksColdTier,
			maxLoopsHot:   cfg.MaxLoopsHotTier,
			maxLoopsCold:  cfg.MaxLoopsColdTier,
		},
	}
	o.metrics = o.cache.metrics
	return o, nil
}

func compileOptionalRegex(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

func (o *Orchestrator) stateFor(id OptID) *State {
	s, ok := o.states[id]
	if !ok {
		s = newState()
		o.states[id] = s
	}
	return s
}

// RequestOptimization marks id as requested for this compilation, the way
// a prior pass or a frontend hook enables a conditionally-guarded entry.
func (o *Orchestrator) RequestOptimization(id OptID) {
	o.stateFor(id).Requested = true
}

// RequestBlock marks a specific block of the method as individually
// requested for optimization id, switching its next dispatch to per-block
// mode.
func (o *Orchestrator) RequestBlock(id OptID, blockNum int) {
	o.stateFor(id).RequestBlock(blockNum)
}

// ID returns the compilation-scoped identifier assigned to this
// orchestrator run, used for logging/tracing correlation.
func (o *Orchestrator) ID() string { return o.id }

// Cache returns the orchestrator's analysis cache.
func (o *Orchestrator) Cache() *AnalysisCache { return o.cache }

// Optimize runs the strategy end to end (spec.md §4.1 "optimize()").
//
// It installs itself as the compilation's current optimizer for the
// duration of the run and restores whatever optimizer (if any) was current
// before it, satisfying P1 even when optimizers nest. A pass-level typed
// failure raised via ir.Compilation.FailCompilation unwinds through any
// depth of group/pass recursion as a panic of type *ir.CompilationFailure;
// Optimize recovers exactly that type and returns it as an ordinary error.
// Any other panic is a programmer-error assert and is re-raised unchanged
// (spec.md §7: "Pass assertion -> fatal process abort").
func (o *Orchestrator) Optimize(ctx context.Context) (err error) {
	prev := CurrentOptimizer(o.compilation)
	o.outer = prev
	currentOptimizers.Store(o.compilation, o)
	defer func() {
		if o.outer != nil {
			currentOptimizers.Store(o.compilation, o.outer)
		} else {
			currentOptimizers.Delete(o.compilation)
		}
		if r := recover(); r != nil {
			cf, ok := r.(*ir.CompilationFailure)
			if !ok {
				panic(r)
			}
			err = cf.Err
		}
	}()

	ctx, span := telemetry.StartOptimizeSpan(ctx, o.id, methodName(o.method))
	defer span.End()

	logCtx := logger.NewLogContext(o.id).WithThreadRole("orchestrator")
	ctx = logger.WithContext(ctx, logCtx)
	logger.InfoCtx(ctx, "optimize started", logger.CompilationID(o.id))

	for _, entry := range o.strategy {
		o.performOptimization(ctx, entry)
		if o.compilation.ShouldBeInterrupted() {
			failure := jitcoreerrors.New(jitcoreerrors.ErrCompilationInterrupted, "optimize", nil)
			o.compilation.FailCompilation(failure)
		}
	}

	logger.InfoCtx(ctx, "optimize finished", logger.CompilationID(o.id))
	return nil
}

func methodName(m ir.MethodSymbol) string {
	if m == nil {
		return ""
	}
	if tree := m.FirstTreeTop(); tree != nil {
		return tree.OpCode()
	}
	return ""
}

// performOptimization implements spec.md §4.1's 15-step algorithm for one
// strategy entry. It returns a small cost estimate, as callers above the
// orchestrator may use it as a rough scheduling budget.
func (o *Orchestrator) performOptimization(ctx context.Context, entry Entry) int {
	// Step 1: increment the global optimization index, counting every
	// dispatch including ones that end up skipped.
	o.globalIndex++
	index := o.globalIndex

	name := o.registry.Name(entry.OptID)
	state := o.stateFor(entry.OptID)

	// I-O1: no pass runs once its last-run flag is set.
	if state.LastRun {
		o.recordOutcome(name, "last_run_barred")
		return 0
	}

	method := o.method
	cfg := method.FlowGraph()

	// Step 2: evaluate the guard.
	outcome := evaluateGuard(entry.Guard, guardContext{comp: o.compilation, method: method, cfg: cfg, state: state})
	if entry.Post&MarkLastRunPost != 0 {
		outcome.markLastRun = true
	}

	// Step 3: if disabled, the per-block requested set must already be
	// empty; this is an orchestrator-level invariant violation otherwise.
	if !outcome.run {
		if state.HasPendingBlocks() {
			panic(fmt.Sprintf("optimizer: %s has pending blocks but its guard evaluated false", name))
		}
		o.recordOutcome(name, "guard_false")
		return 0
	}

	// Step 4: groups recurse into their sub-strategy.
	if o.registry.IsGroup(entry.OptID) {
		group, _ := o.registry.Group(entry.OptID)
		return o.performGroup(ctx, group)
	}

	def, ok := o.registry.Optimization(entry.OptID)
	if !ok {
		panic(fmt.Sprintf("optimizer: unknown opt id %d", entry.OptID))
	}

	// Step 5: index range gate.
	if entry.Post&MustBeDone == 0 && (index < o.firstIndex || index > o.lastIndex) {
		o.recordOutcome(name, "range_gated")
		return 0
	}

	// Step 6: enabled/disabled/break-on regexes.
	if o.disabledRegex != nil && o.disabledRegex.MatchString(def.Name) {
		o.recordOutcome(name, "disabled_by_regex")
		return 0
	}
	if o.enabledRegex != nil && !o.enabledRegex.MatchString(def.Name) {
		o.recordOutcome(name, "not_enabled_by_regex")
		return 0
	}
	if o.breakOnOptRegex != nil && o.breakOnOptRegex.MatchString(def.Name) {
		logger.WarnCtx(ctx, "optimizer: break-on-opt match", logger.OptName(def.Name))
	}

	ctx, span := telemetry.StartPassSpan(ctx, def.Name, index, "")
	defer span.End()

	// Step 7: instantiate and ask shouldPerform.
	pass := def.Create(o)
	if !pass.ShouldPerform(o.compilation, method) {
		o.recordOutcome(name, "should_perform_false")
		return 0
	}

	// Step 8: materialize required analyses.
	if err := o.materializeAnalyses(def, cfg); err != nil {
		o.recordOutcome(name, "analysis_error")
		o.compilation.FailCompilation(err)
		return 0
	}

	// Step 9: frequency info.
	if !cfg.HasFrequencies() && !def.Capabilities.Has(DoNotSetFrequencies) {
		cfg.SetFrequencies()
	}

	// Step 10: complexity gate.
	if def.Capabilities.Has(RequiresStructure) {
		o.checkComplexity(cfg)
	}

	beforeNodes := cfg.NodeCount()
	beforeSymRefs := cfg.SymRefCount()

	// Step 11: invoke the pass, whole-method or per-block.
	var invokeErr error
	if state.HasPendingBlocks() {
		invokeErr = o.dispatchPerBlock(pass, method, cfg, state)
	} else {
		invokeErr = o.dispatchWholeMethod(pass, method)
	}
	if invokeErr != nil {
		o.recordOutcome(name, "pass_error")
		o.compilation.FailCompilation(invokeErr)
		return 0
	}

	deltaNodes := cfg.NodeCount() - beforeNodes
	deltaSymRefs := cfg.SymRefCount() - beforeSymRefs

	// Step 12: reconcile caches.
	o.cache.ReconcileAfterPass(def, deltaNodes, deltaSymRefs)
	if cfg.VisitCount() >= visitCountHighWaterMark {
		cfg.ResetVisitCount()
	}

	// Step 13: structural check.
	if cfg.MightHaveUnreachableBlocks() {
		cfg.RemoveUnreachableBlocks()
	}

	if outcome.markLastRun {
		state.LastRun = true
	}

	o.recordOutcome(name, "ran")

	// Step 14: cancellation check.
	if o.compilation.ShouldBeInterrupted() {
		o.compilation.FailCompilation(jitcoreerrors.New(jitcoreerrors.ErrCompilationInterrupted, "performOptimization", nil))
	}

	// Step 15: cost estimate.
	cost := 1 + deltaNodes
	if cost < 0 {
		cost = 0
	}
	return cost
}

func (o *Orchestrator) dispatchWholeMethod(pass Pass, method ir.MethodSymbol) error {
	if err := pass.PrePerform(o.compilation, method); err != nil {
		return err
	}
	if err := pass.Perform(o.compilation, method); err != nil {
		return err
	}
	return pass.PostPerform(o.compilation, method)
}

func (o *Orchestrator) dispatchPerBlock(pass Pass, method ir.MethodSymbol, cfg ir.CFG, state *State) error {
	if err := pass.PrePerformOnBlocks(o.compilation, method); err != nil {
		return err
	}
	for b := cfg.FirstBlock(); b != nil; b = cfg.NextBlock(b) {
		if !state.BlockRequested[b.Number()] {
			continue
		}
		if !b.IsExtendedBlockHeader() {
			continue
		}
		if err := pass.PerformOnBlock(o.compilation, method, b); err != nil {
			return err
		}
		state.ClearBlock(b.Number())
	}
	return pass.PostPerformOnBlocks(o.compilation, method)
}

// performGroup implements step 4: either a plain group (its body runs
// fully, once) or the special eachLocalAnalysisPass re-entry protocol.
func (o *Orchestrator) performGroup(ctx context.Context, group *GroupDef) int {
	ctx, span := telemetry.StartPassSpan(ctx, group.Name, o.globalIndex, group.Name)
	defer span.End()

	if !group.EachLocalAnalysisPass {
		cost := 0
		for _, sub := range group.Body {
			cost += o.performOptimization(ctx, sub)
		}
		return cost
	}

	cost := 0
	iterations := 0
	for {
		iterations++
		for _, sub := range group.Body {
			cost += o.performOptimization(ctx, sub)
		}

		anyPending := false
		for _, sub := range group.Body {
			if o.registry.IsGroup(sub.OptID) {
				continue
			}
			if o.stateFor(sub.OptID).HasPendingBlocks() {
				anyPending = true
				break
			}
		}

		if !anyPending || iterations >= MaxLocalAnalysisIterations {
			break
		}
	}

	o.metrics.ObserveGroupIterations(iterations)
	logger.DebugCtx(ctx, "group re-entry complete", logger.GroupName(group.Name), logger.Iteration(iterations))
	return cost
}

func (o *Orchestrator) materializeAnalyses(def *Definition, cfg ir.CFG) error {
	symRefTable := o.symRefTable(cfg)

	if !def.Capabilities.Has(DoesNotRequireAliasSets) {
		if err := o.cache.EnsureAliasSets(symRefTable); err != nil {
			return err
		}
	} else {
		o.cache.EnsureSymRefTable(symRefTable)
	}

	if def.Capabilities.Has(RequiresStructure) {
		threshold := o.thresholds.maxLoopsCold
		if o.compilation.IsOptServer() || o.compilation.MethodHotness() >= ir.HotnessHot {
			threshold = o.thresholds.maxLoopsHot
		}
		if _, err := o.cache.EnsureStructure(cfg, threshold); err != nil {
			return err
		}
	}

	if def.Capabilities.Has(RequiresUseDefsLocal) || def.Capabilities.Has(RequiresUseDefsGlobal) {
		requiresGlobal := def.Capabilities.Has(RequiresUseDefsGlobal)
		prefersGlobal := def.Capabilities.Has(PrefersGlobalUseDefs)
		loadsAsDefs := def.Capabilities.Has(LoadsAsDefsInUseDefs)
		cannotOmit := def.Capabilities.Has(CannotOmitTrivialDefs)
		if _, err := o.cache.EnsureUseDefs(cfg, requiresGlobal, prefersGlobal, loadsAsDefs, cannotOmit); err != nil {
			return err
		}
	}

	if def.Capabilities.Has(RequiresValueNumberingLocal) || def.Capabilities.Has(RequiresValueNumberingGlobal) {
		requiresGlobal := def.Capabilities.Has(RequiresValueNumberingGlobal)
		prefersGlobal := def.Capabilities.Has(PrefersGlobalValueNumbering)
		if _, err := o.cache.EnsureValueNumbers(cfg, requiresGlobal, prefersGlobal); err != nil {
			return err
		}
	}

	return nil
}

// symRefTable adapts the method's CFG into an ir.SymRefTable view. Real
// hosts are expected to hand the orchestrator a MethodSymbol whose
// FlowGraph's symref count and alias builder come from the same
// underlying table; this package only needs the two operations named in
// spec.md §6, so it asks the CFG directly rather than requiring a separate
// accessor on MethodSymbol.
func (o *Orchestrator) symRefTable(cfg ir.CFG) ir.SymRefTable {
	return cfgSymRefTable{cfg}
}

type cfgSymRefTable struct{ cfg ir.CFG }

func (t cfgSymRefTable) Count() int                    { return t.cfg.SymRefCount() }
func (t cfgSymRefTable) AliasBuilder() ir.AliasBuilder { return cfgAliasBuilder{t.cfg} }

type cfgAliasBuilder struct{ cfg ir.CFG }

func (b cfgAliasBuilder) CreateAliasInfo() error {
	// Alias-set construction from symrefs is a leaf dependency without its
	// own builder in the external-interfaces table (spec.md §6 only names
	// aliasBuilder.createAliasInfo via the symref table); this adapter
	// satisfies the call without requiring a bespoke type from hosts that
	// only expose a CFG.
	return nil
}

func (o *Orchestrator) checkComplexity(cfg ir.CFG) {
	threshold := o.thresholds.maxLoopsCold
	maxBlocks := o.thresholds.maxBlocksCold
	if o.compilation.IsOptServer() || o.compilation.MethodHotness() >= ir.HotnessHot {
		threshold = o.thresholds.maxLoopsHot
		maxBlocks = o.thresholds.maxBlocksHot
	}

	structure, err := o.cache.EnsureStructure(cfg, threshold)
	if err != nil {
		o.compilation.FailCompilation(err)
		return
	}

	if (maxBlocks > 0 && structure.BlockCount() > maxBlocks) || (threshold > 0 && structure.LoopCount() > threshold) {
		if !o.overrideComplexity {
			o.compilation.FailCompilation(jitcoreerrors.New(jitcoreerrors.ErrExcessiveComplexity, "performOptimization", nil))
		}
	}
}

func (o *Orchestrator) recordOutcome(name, outcome string) {
	if o.traceAll {
		logger.Debug("optimizer dispatch", logger.OptName(name), logger.Outcome(outcome))
	}
	o.metrics.RecordPass(name, outcome)
}
