// Package optimizer implements the optimization-pass sequencing engine:
// an orchestrator that drives a strategy of optimizations over a method's
// IR, materializing and invalidating analysis results as it goes.
//
// This package is written entirely against internal/ir's boundary
// interfaces; individual optimization passes, code generation, and the
// concrete node/block/CFG types are external collaborators supplied by a
// host (see internal/ir's package doc and Pass below).
package optimizer

import "github.com/marmos91/jitcore/internal/ir"

// CapabilityFlags is a bitmask of the static properties an optimization
// declares about itself, consulted by the orchestrator when deciding what
// analyses to materialize and which invalidation rules apply.
type CapabilityFlags uint32

const (
	// RequiresStructure means the pass needs the CFG's region
	// decomposition (natural loops, acyclic regions) built before running.
	RequiresStructure CapabilityFlags = 1 << iota

	// RequiresUseDefsLocal means the pass needs use-def info covering at
	// least the local (single extended-block) flavor.
	RequiresUseDefsLocal

	// RequiresUseDefsGlobal means the pass needs use-def info covering
	// defs that reach across extended-block boundaries.
	RequiresUseDefsGlobal

	// RequiresValueNumberingLocal means the pass needs local value
	// numbers.
	RequiresValueNumberingLocal

	// RequiresValueNumberingGlobal means the pass needs global value
	// numbers.
	RequiresValueNumberingGlobal

	// MaintainsUseDefs means the pass keeps use-def info valid itself, so
	// node-count growth during the pass does not force a rebuild.
	MaintainsUseDefs

	// DoesNotRequireAliasSets means the orchestrator should skip alias-set
	// materialization before this pass.
	DoesNotRequireAliasSets

	// DoesNotRequireTrees means the pass can run without walking the tree
	// representation at all (structure/analysis-only passes).
	DoesNotRequireTrees

	// PrefersGlobalUseDefs means that if only local use-defs are cached,
	// they are rebuilt with global coverage before this pass runs.
	PrefersGlobalUseDefs

	// PrefersGlobalValueNumbering is the value-numbering analogue of
	// PrefersGlobalUseDefs.
	PrefersGlobalValueNumbering

	// LoadsAsDefsInUseDefs means indirect loads should be modeled as defs
	// when use-def info is built for this pass.
	LoadsAsDefsInUseDefs

	// CannotOmitTrivialDefs disables the trivial-def elision optimization
	// when building use-def info for this pass.
	CannotOmitTrivialDefs

	// SupportsIlGenLevel marks a pass eligible for the fixed IL-generation
	// strategy used when an optimizer is created with isIlGen=true.
	SupportsIlGenLevel

	// DoNotSetFrequencies suppresses automatic frequency computation
	// before this pass runs.
	DoNotSetFrequencies

	// CanAddSymRef flags that the pass may allocate new symbol references,
	// a hint consumed by instrumentation rather than by invalidation logic
	// (invalidation always checks the actual symref count delta).
	CanAddSymRef

	// AccurateNodeCountRequired flags that the orchestrator must recompute
	// an exact node count before and after this pass rather than trusting
	// an incrementally maintained estimate.
	AccurateNodeCountRequired
)

// Has reports whether f includes flag.
func (f CapabilityFlags) Has(flag CapabilityFlags) bool { return f&flag != 0 }

// Pass is the contract an individual optimization implements. Passes are
// opaque transforms from the orchestrator's point of view: it never
// inspects what a pass does, only what it declares (Definition.Capabilities)
// and what it returns.
type Pass interface {
	// ShouldPerform is consulted after the guard passes; returning false
	// aborts this invocation with no further dispatch.
	ShouldPerform(comp ir.Compilation, method ir.MethodSymbol) bool

	// PrePerform/Perform/PostPerform are the whole-method dispatch mode.
	PrePerform(comp ir.Compilation, method ir.MethodSymbol) error
	Perform(comp ir.Compilation, method ir.MethodSymbol) error
	PostPerform(comp ir.Compilation, method ir.MethodSymbol) error

	// PrePerformOnBlocks/PerformOnBlock/PostPerformOnBlocks are the
	// per-block dispatch mode, used when the pass has specific blocks
	// requested rather than the whole method.
	PrePerformOnBlocks(comp ir.Compilation, method ir.MethodSymbol) error
	PerformOnBlock(comp ir.Compilation, method ir.MethodSymbol, block ir.Block) error
	PostPerformOnBlocks(comp ir.Compilation, method ir.MethodSymbol) error
}

// Factory produces a fresh Pass instance for one dispatch of performOptimization.
type Factory func(o *Orchestrator) Pass

// OptID is a dense integer identifying either a primitive optimization
// (id < Registry.NumOpts()) or a group (id >= Registry.NumOpts()).
type OptID int

// EndOpts is the sentinel that terminates a strategy when decoding a
// custom strategy array (spec's "endOpts"); see DecodeStrategy.
const EndOpts OptID = -1

// Definition is the static, shared description of one addressable
// optimization: identity, capabilities, and how to instantiate it.
type Definition struct {
	ID           OptID
	Name         string
	Capabilities CapabilityFlags
	Create       Factory
}

// State is an optimization's per-compilation mutable state: whether it has
// been requested, whether its last-run flag has been set, which specific
// blocks are individually requested, and whether it should trace.
type State struct {
	Requested      bool
	LastRun        bool
	Trace          bool
	BlockRequested map[int]bool
}

func newState() *State {
	return &State{BlockRequested: make(map[int]bool)}
}

// RequestBlock marks blockNum as individually requested for this
// optimization, switching its next dispatch into per-block mode.
func (s *State) RequestBlock(blockNum int) {
	s.BlockRequested[blockNum] = true
}

// ClearBlock un-marks blockNum, typically once the pass has run on it.
func (s *State) ClearBlock(blockNum int) {
	delete(s.BlockRequested, blockNum)
}

// HasPendingBlocks reports whether any block is still individually
// requested.
func (s *State) HasPendingBlocks() bool {
	return len(s.BlockRequested) > 0
}
