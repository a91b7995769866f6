package ir

// This file is a small in-memory reference implementation of the ir
// interfaces, used by internal/optimizer's tests to exercise
// AnalysisCache invalidation and pass dispatch without depending on a
// real compiler's node/block/CFG types.

// RefNode is a reference Node.
type RefNode struct {
	Op string
}

func (n *RefNode) OpCode() string { return n.Op }

// RefBlock is a reference Block.
type RefBlock struct {
	Num      int
	Header   bool
	NodeList []Node
}

func (b *RefBlock) Number() int                { return b.Num }
func (b *RefBlock) IsExtendedBlockHeader() bool { return b.Header }
func (b *RefBlock) Trees() []Node              { return b.NodeList }

// RefStructure is a reference Structure.
type RefStructure struct {
	Loops  int
	Blocks int
}

func (s *RefStructure) LoopCount() int  { return s.Loops }
func (s *RefStructure) BlockCount() int { return s.Blocks }

// RefCFG is a reference CFG backed by a plain slice of blocks.
type RefCFG struct {
	Blocks            []*RefBlock
	HasLoops          bool
	UnreachableBlocks []int
	Freqs             bool
	Struct            Structure
	VisitCounter      int
	nodeCount         int
	symRefCount       int
	loopHint          int
	useDefBuilder     *RefUseDefBuilder
	valueNumberBuilder *RefValueNumberBuilder
}

// SetLoopHint sets the loop count the CFG's StructureBuilder will report,
// simulating what a real region-discovery pass would have found.
func (c *RefCFG) SetLoopHint(n int) { c.loopHint = n }

// NewRefCFG builds a RefCFG from a set of blocks, computing the initial
// node count from their trees.
func NewRefCFG(blocks []*RefBlock, symRefCount int) *RefCFG {
	cfg := &RefCFG{Blocks: blocks, symRefCount: symRefCount}
	for _, b := range blocks {
		cfg.nodeCount += len(b.NodeList)
	}
	return cfg
}

func (c *RefCFG) FirstBlock() Block {
	if len(c.Blocks) == 0 {
		return nil
	}
	return c.Blocks[0]
}

func (c *RefCFG) NextBlock(b Block) Block {
	for i, blk := range c.Blocks {
		if blk == b && i+1 < len(c.Blocks) {
			return c.Blocks[i+1]
		}
	}
	return nil
}

func (c *RefCFG) MayHaveLoops() bool { return c.HasLoops }

func (c *RefCFG) MightHaveUnreachableBlocks() bool { return len(c.UnreachableBlocks) > 0 }

func (c *RefCFG) RemoveUnreachableBlocks() int {
	removed := len(c.UnreachableBlocks)
	if removed == 0 {
		return 0
	}
	unreachable := make(map[int]bool, removed)
	for _, n := range c.UnreachableBlocks {
		unreachable[n] = true
	}
	kept := c.Blocks[:0]
	for _, b := range c.Blocks {
		if !unreachable[b.Num] {
			kept = append(kept, b)
		}
	}
	c.Blocks = kept
	c.UnreachableBlocks = nil
	return removed
}

func (c *RefCFG) HasFrequencies() bool { return c.Freqs }
func (c *RefCFG) SetFrequencies()      { c.Freqs = true }

func (c *RefCFG) Structure() Structure     { return c.Struct }
func (c *RefCFG) SetStructure(s Structure) { c.Struct = s }

func (c *RefCFG) NodeCount() int   { return c.nodeCount }
func (c *RefCFG) SymRefCount() int { return c.symRefCount }
func (c *RefCFG) VisitCount() int  { return c.VisitCounter }
func (c *RefCFG) ResetVisitCount() { c.VisitCounter = 0 }

// GrowNodes simulates a pass adding nodes, the way a real transform would
// mutate the tree in place.
func (c *RefCFG) GrowNodes(n int) { c.nodeCount += n }

// GrowSymRefs simulates a pass allocating new symbol references.
func (c *RefCFG) GrowSymRefs(n int) { c.symRefCount += n }

// RefAliasBuilder is a reference AliasBuilder that just counts rebuilds.
type RefAliasBuilder struct {
	Rebuilds int
}

func (a *RefAliasBuilder) CreateAliasInfo() error {
	a.Rebuilds++
	return nil
}

// RefSymRefTable is a reference SymRefTable backed by a RefCFG's counter.
type RefSymRefTable struct {
	CFG     *RefCFG
	Builder *RefAliasBuilder
}

func NewRefSymRefTable(cfg *RefCFG) *RefSymRefTable {
	return &RefSymRefTable{CFG: cfg, Builder: &RefAliasBuilder{}}
}

func (t *RefSymRefTable) Count() int                 { return t.CFG.SymRefCount() }
func (t *RefSymRefTable) AliasBuilder() AliasBuilder { return t.Builder }

// RefMethodSymbol is a reference MethodSymbol.
type RefMethodSymbol struct {
	Tree              Node
	CFG               *RefCFG
	EscapeOpportunity bool
	MethodHandles     bool
	VectorAPI         bool
	Monitors          bool
	News              bool
}

func (m *RefMethodSymbol) FirstTreeTop() Node                   { return m.Tree }
func (m *RefMethodSymbol) FlowGraph() CFG                       { return m.CFG }
func (m *RefMethodSymbol) HasEscapeAnalysisOpportunities() bool { return m.EscapeOpportunity }
func (m *RefMethodSymbol) HasMethodHandleInvokes() bool         { return m.MethodHandles }
func (m *RefMethodSymbol) HasVectorAPI() bool                   { return m.VectorAPI }
func (m *RefMethodSymbol) MayContainMonitors() bool             { return m.Monitors }
func (m *RefMethodSymbol) HasNews() bool                        { return m.News }

// RefCompilation is a reference Compilation.
type RefCompilation struct {
	Outermost   bool
	Options     map[string]bool
	Profiling   bool
	OptServer   bool
	Hotness     MethodHotness
	Interrupted func() bool
	Phases      []string
}

func NewRefCompilation() *RefCompilation {
	return &RefCompilation{Options: make(map[string]bool)}
}

func (c *RefCompilation) IsOutermostMethod() bool  { return c.Outermost }
func (c *RefCompilation) GetOption(name string) bool {
	return c.Options[name]
}
func (c *RefCompilation) IsProfilingCompilation() bool { return c.Profiling }
func (c *RefCompilation) IsOptServer() bool            { return c.OptServer }
func (c *RefCompilation) MethodHotness() MethodHotness { return c.Hotness }

func (c *RefCompilation) ReportAnalysisPhase(name string) {
	c.Phases = append(c.Phases, "analysis:"+name)
}

func (c *RefCompilation) ReportOptimizationPhase(name string) {
	c.Phases = append(c.Phases, "opt:"+name)
}

func (c *RefCompilation) ShouldBeInterrupted() bool {
	if c.Interrupted == nil {
		return false
	}
	return c.Interrupted()
}

func (c *RefCompilation) FailCompilation(err error) {
	panic(&CompilationFailure{Err: err})
}

// RefStructureBuilder is a reference StructureBuilder that returns a fixed
// Structure, as if region discovery had already run.
type RefStructureBuilder struct {
	Result *RefStructure
}

func (b *RefStructureBuilder) BuildStructure() (Structure, error) {
	if b.Result == nil {
		return &RefStructure{}, nil
	}
	return b.Result, nil
}

func (c *RefCFG) StructureBuilder() StructureBuilder {
	return &RefStructureBuilder{Result: &RefStructure{Loops: c.loopHint, Blocks: len(c.Blocks)}}
}

// RefUseDefInfo is a reference UseDefInfo.
type RefUseDefInfo struct {
	GlobalDefs  bool
	LoadsAsDefs bool
}

func (u *RefUseDefInfo) HasGlobalDefs() bool  { return u.GlobalDefs }
func (u *RefUseDefInfo) HasLoadsAsDefs() bool { return u.LoadsAsDefs }

// RefUseDefBuilder is a reference UseDefBuilder; it just echoes back the
// parameters it was asked to build with, since the actual def-chain
// algorithm is external to this package.
type RefUseDefBuilder struct {
	Builds int
}

func (b *RefUseDefBuilder) BuildUseDefs(requiresGlobal, prefersGlobal, loadsAsDefs, cannotOmitTrivialDefs bool) (UseDefInfo, error) {
	b.Builds++
	return &RefUseDefInfo{GlobalDefs: requiresGlobal || prefersGlobal, LoadsAsDefs: loadsAsDefs}, nil
}

func (c *RefCFG) UseDefBuilder() UseDefBuilder {
	if c.useDefBuilder == nil {
		c.useDefBuilder = &RefUseDefBuilder{}
	}
	return c.useDefBuilder
}

// RefValueNumberInfo is a reference ValueNumberInfo.
type RefValueNumberInfo struct {
	Globals bool
}

func (v *RefValueNumberInfo) HasGlobals() bool { return v.Globals }

// RefValueNumberBuilder is a reference ValueNumberBuilder.
type RefValueNumberBuilder struct {
	Builds int
}

func (b *RefValueNumberBuilder) BuildValueNumbers(requiresGlobal, prefersGlobal bool) (ValueNumberInfo, error) {
	b.Builds++
	return &RefValueNumberInfo{Globals: requiresGlobal || prefersGlobal}, nil
}

func (c *RefCFG) ValueNumberBuilder() ValueNumberBuilder {
	if c.valueNumberBuilder == nil {
		c.valueNumberBuilder = &RefValueNumberBuilder{}
	}
	return c.valueNumberBuilder
}
