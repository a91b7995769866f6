package optimizer

import (
	"github.com/marmos91/jitcore/internal/ir"
	"github.com/marmos91/jitcore/internal/metrics"
)

// loopCountWarningMargin is how close the loop count may get to the
// complexity threshold before NearLoopThreshold starts reporting true
// (spec.md §4.1: "if loop count is within 25 of the threshold, set a flag
// that disables loop-creating passes").
const loopCountWarningMargin = 25

// AnalysisCache is the orchestrator-owned, per-compilation record of which
// analyses are currently valid (spec.md §3 "AnalysisCache"). It never
// shares state across compilations or goroutines; the orchestrator is
// single-threaded per compilation (spec.md §5).
type AnalysisCache struct {
	aliasSetsValid bool

	useDefs        ir.UseDefInfo
	useDefsValid   bool

	valueNumbers      ir.ValueNumberInfo
	valueNumbersValid bool

	symRefSnapshot []int
	symRefValid    bool

	structure      ir.Structure
	structureBuilt bool
	loopCount      int
	blockCount     int
	nearLoopLimit  bool

	metrics *metrics.OptimizerMetrics
}

// NewAnalysisCache returns an empty cache with everything invalid.
func NewAnalysisCache(m *metrics.OptimizerMetrics) *AnalysisCache {
	return &AnalysisCache{metrics: m}
}

// InvalidateAliasSets marks alias sets for a rebuild on next use.
func (c *AnalysisCache) InvalidateAliasSets() {
	c.aliasSetsValid = false
}

// InvalidateUseDefs marks use-def info for a rebuild on next use.
func (c *AnalysisCache) InvalidateUseDefs() {
	c.useDefsValid = false
}

// InvalidateValueNumbers marks value-number info for a rebuild on next use.
func (c *AnalysisCache) InvalidateValueNumbers() {
	c.valueNumbersValid = false
}

// InvalidateSymRefTable marks the symref snapshot for a rebuild.
func (c *AnalysisCache) InvalidateSymRefTable() {
	c.symRefValid = false
}

// InvalidateStructure drops the cached region decomposition, forcing the
// next consumer to rebuild it (and recompute loop/block counts).
func (c *AnalysisCache) InvalidateStructure() {
	c.structureBuilt = false
	c.structure = nil
}

// AliasSetsValid reports whether alias sets are currently valid.
func (c *AnalysisCache) AliasSetsValid() bool { return c.aliasSetsValid }

// EnsureAliasSets rebuilds alias sets via table's builder if they are
// currently invalid (I-O4's companion: materialization on demand).
func (c *AnalysisCache) EnsureAliasSets(table ir.SymRefTable) error {
	if c.aliasSetsValid {
		return nil
	}
	if err := table.AliasBuilder().CreateAliasInfo(); err != nil {
		return err
	}
	c.aliasSetsValid = true
	c.symRefSnapshot = identitySnapshot(table.Count())
	c.symRefValid = true
	if c.metrics != nil {
		c.metrics.RecordAnalysisRebuild("alias_sets")
	}
	return nil
}

func identitySnapshot(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

// EnsureSymRefTable rebuilds the identity snapshot if the symref count has
// drifted from the last recorded snapshot length.
func (c *AnalysisCache) EnsureSymRefTable(table ir.SymRefTable) {
	if c.symRefValid && len(c.symRefSnapshot) == table.Count() {
		return
	}
	c.symRefSnapshot = identitySnapshot(table.Count())
	c.symRefValid = true
	if c.metrics != nil {
		c.metrics.RecordAnalysisRebuild("symref_table")
	}
}

// EnsureStructure rebuilds the region decomposition if absent, caching
// loop/block counts on first build only (spec.md §4.1 "Structure").
func (c *AnalysisCache) EnsureStructure(cfg ir.CFG, loopThreshold int) (ir.Structure, error) {
	if c.structureBuilt {
		return c.structure, nil
	}
	structure, err := cfg.StructureBuilder().BuildStructure()
	if err != nil {
		return nil, err
	}
	c.structure = structure
	c.structureBuilt = true
	cfg.SetStructure(structure)
	c.loopCount = structure.LoopCount()
	c.blockCount = structure.BlockCount()
	c.nearLoopLimit = loopThreshold > 0 && (loopThreshold-c.loopCount) <= loopCountWarningMargin
	if c.metrics != nil {
		c.metrics.RecordAnalysisRebuild("structure")
	}
	return structure, nil
}

// LoopCount returns the loop count cached on the last structure build, or
// 0 if structure has never been built.
func (c *AnalysisCache) LoopCount() int { return c.loopCount }

// BlockCount returns the block count cached on the last structure build.
func (c *AnalysisCache) BlockCount() int { return c.blockCount }

// NearLoopThreshold reports whether the last structure build found the
// loop count within loopCountWarningMargin of the configured threshold.
// Loop-creating passes are expected to consult this before running, though
// enforcement is pass-specific and out of this package's scope (passes are
// opaque collaborators).
func (c *AnalysisCache) NearLoopThreshold() bool { return c.nearLoopLimit }

// EnsureUseDefs rebuilds use-def info if invalid, or if a global-requiring
// pass only has local coverage cached, or if the loads-as-defs setting
// doesn't match what this pass needs (spec.md §4.1 "Use-defs").
func (c *AnalysisCache) EnsureUseDefs(cfg ir.CFG, requiresGlobal, prefersGlobal, loadsAsDefs, cannotOmitTrivialDefs bool) (ir.UseDefInfo, error) {
	needsRebuild := !c.useDefsValid
	if c.useDefsValid && requiresGlobal && !c.useDefs.HasGlobalDefs() {
		needsRebuild = true
	}
	if c.useDefsValid && prefersGlobal && !c.useDefs.HasGlobalDefs() {
		// "strongly prefers globals but cache has only locals": invalidate
		// to force a rebuild, per spec.md §4.1.
		needsRebuild = true
	}
	if c.useDefsValid && c.useDefs.HasLoadsAsDefs() != loadsAsDefs {
		needsRebuild = true
	}
	if !needsRebuild {
		return c.useDefs, nil
	}
	info, err := cfg.UseDefBuilder().BuildUseDefs(requiresGlobal, prefersGlobal, loadsAsDefs, cannotOmitTrivialDefs)
	if err != nil {
		return nil, err
	}
	c.useDefs = info
	c.useDefsValid = true
	if c.metrics != nil {
		c.metrics.RecordAnalysisRebuild("use_defs")
	}
	return info, nil
}

// EnsureValueNumbers rebuilds value-number info if invalid, or if a
// global-requiring/preferring pass only has local coverage cached.
func (c *AnalysisCache) EnsureValueNumbers(cfg ir.CFG, requiresGlobal, prefersGlobal bool) (ir.ValueNumberInfo, error) {
	needsRebuild := !c.valueNumbersValid
	if c.valueNumbersValid && (requiresGlobal || prefersGlobal) && !c.valueNumbers.HasGlobals() {
		needsRebuild = true
	}
	if !needsRebuild {
		return c.valueNumbers, nil
	}
	info, err := cfg.ValueNumberBuilder().BuildValueNumbers(requiresGlobal, prefersGlobal)
	if err != nil {
		return nil, err
	}
	c.valueNumbers = info
	c.valueNumbersValid = true
	if c.metrics != nil {
		c.metrics.RecordAnalysisRebuild("value_numbers")
	}
	return info, nil
}

// ReconcileAfterPass applies performOptimization step 12's invalidation
// rules given the observed node/symref count deltas (I-O3, I-O4).
//
// I-O3 is phrased in terms of node-count growth, but a pass that folds
// trees away (e.g. constant folding collapsing add(const,const) into a
// single const) shrinks the node count while still invalidating any
// value numbering keyed to the nodes it removed. This cache treats any
// nonzero delta, not just growth, as dirtying value-number and use-def
// info, matching the worked folding example.
func (c *AnalysisCache) ReconcileAfterPass(def *Definition, deltaNodes, deltaSymRefs int) {
	if deltaNodes != 0 {
		c.InvalidateValueNumbers()
		if !def.Capabilities.Has(MaintainsUseDefs) {
			c.InvalidateUseDefs()
		}
	}
	if deltaSymRefs != 0 {
		c.InvalidateSymRefTable()
		c.InvalidateAliasSets()
	}
}
