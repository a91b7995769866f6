package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeBlockCFG() *RefCFG {
	b0 := &RefBlock{Num: 0, Header: true, NodeList: []Node{&RefNode{Op: "bbstart"}}}
	b1 := &RefBlock{Num: 1, Header: true, NodeList: []Node{&RefNode{Op: "iadd"}, &RefNode{Op: "istore"}}}
	b2 := &RefBlock{Num: 2, Header: true, NodeList: []Node{&RefNode{Op: "bbend"}}}
	return NewRefCFG([]*RefBlock{b0, b1, b2}, 2)
}

func TestRefCFG_Traversal(t *testing.T) {
	cfg := threeBlockCFG()

	first := cfg.FirstBlock()
	require.NotNil(t, first)
	assert.Equal(t, 0, first.Number())

	second := cfg.NextBlock(first)
	require.NotNil(t, second)
	assert.Equal(t, 1, second.Number())

	third := cfg.NextBlock(second)
	require.NotNil(t, third)
	assert.Equal(t, 2, third.Number())

	assert.Nil(t, cfg.NextBlock(third))
}

func TestRefCFG_EmptyHasNoFirstBlock(t *testing.T) {
	cfg := NewRefCFG(nil, 0)
	assert.Nil(t, cfg.FirstBlock())
}

func TestRefCFG_NodeAndSymRefCounts(t *testing.T) {
	cfg := threeBlockCFG()

	assert.Equal(t, 4, cfg.NodeCount())
	assert.Equal(t, 2, cfg.SymRefCount())

	cfg.GrowNodes(3)
	cfg.GrowSymRefs(1)

	assert.Equal(t, 7, cfg.NodeCount())
	assert.Equal(t, 3, cfg.SymRefCount())
}

func TestRefCFG_RemoveUnreachableBlocks(t *testing.T) {
	cfg := threeBlockCFG()
	cfg.UnreachableBlocks = []int{1}

	assert.True(t, cfg.MightHaveUnreachableBlocks())

	removed := cfg.RemoveUnreachableBlocks()
	assert.Equal(t, 1, removed)
	assert.False(t, cfg.MightHaveUnreachableBlocks())
	assert.Len(t, cfg.Blocks, 2)

	assert.Equal(t, 0, cfg.RemoveUnreachableBlocks())
}

func TestRefCFG_StructureCaching(t *testing.T) {
	cfg := threeBlockCFG()
	assert.Nil(t, cfg.Structure())

	cfg.SetStructure(&RefStructure{Loops: 2, Blocks: 3})
	require.NotNil(t, cfg.Structure())
	assert.Equal(t, 2, cfg.Structure().LoopCount())
	assert.Equal(t, 3, cfg.Structure().BlockCount())
}

func TestRefCFG_VisitCountResets(t *testing.T) {
	cfg := threeBlockCFG()
	cfg.VisitCounter = 500
	assert.Equal(t, 500, cfg.VisitCount())

	cfg.ResetVisitCount()
	assert.Equal(t, 0, cfg.VisitCount())
}

func TestRefCFG_Frequencies(t *testing.T) {
	cfg := threeBlockCFG()
	assert.False(t, cfg.HasFrequencies())

	cfg.SetFrequencies()
	assert.True(t, cfg.HasFrequencies())
}

func TestRefSymRefTable_TracksCFGCount(t *testing.T) {
	cfg := threeBlockCFG()
	table := NewRefSymRefTable(cfg)

	assert.Equal(t, 2, table.Count())

	cfg.GrowSymRefs(5)
	assert.Equal(t, 7, table.Count())
}

func TestRefAliasBuilder_CreateAliasInfo(t *testing.T) {
	cfg := threeBlockCFG()
	table := NewRefSymRefTable(cfg)

	builder := table.AliasBuilder()
	require.NotNil(t, builder)

	assert.NoError(t, builder.CreateAliasInfo())
	assert.NoError(t, builder.CreateAliasInfo())
	assert.Equal(t, 2, table.Builder.Rebuilds)
}

func TestRefMethodSymbol_Flags(t *testing.T) {
	cfg := threeBlockCFG()
	method := &RefMethodSymbol{
		Tree:              &RefNode{Op: "bbstart"},
		CFG:               cfg,
		EscapeOpportunity: true,
		News:              false,
	}

	assert.Equal(t, "bbstart", method.FirstTreeTop().OpCode())
	assert.Same(t, CFG(cfg), method.FlowGraph())
	assert.True(t, method.HasEscapeAnalysisOpportunities())
	assert.False(t, method.HasMethodHandleInvokes())
	assert.False(t, method.HasVectorAPI())
	assert.False(t, method.MayContainMonitors())
}

func TestRefCompilation_OptionsAndPhases(t *testing.T) {
	comp := NewRefCompilation()
	comp.Options["traceAll"] = true

	assert.True(t, comp.GetOption("traceAll"))
	assert.False(t, comp.GetOption("unset"))

	comp.ReportAnalysisPhase("use_defs")
	comp.ReportOptimizationPhase("treeSimplification")

	assert.Equal(t, []string{"analysis:use_defs", "opt:treeSimplification"}, comp.Phases)
}

func TestRefCompilation_ShouldBeInterrupted(t *testing.T) {
	comp := NewRefCompilation()
	assert.False(t, comp.ShouldBeInterrupted())

	calls := 0
	comp.Interrupted = func() bool {
		calls++
		return calls > 1
	}

	assert.False(t, comp.ShouldBeInterrupted())
	assert.True(t, comp.ShouldBeInterrupted())
}

func TestRefCFG_StructureBuilder(t *testing.T) {
	cfg := threeBlockCFG()
	cfg.SetLoopHint(2)

	structure, err := cfg.StructureBuilder().BuildStructure()
	require.NoError(t, err)
	assert.Equal(t, 2, structure.LoopCount())
	assert.Equal(t, 3, structure.BlockCount())
}

func TestRefCFG_UseDefBuilder(t *testing.T) {
	cfg := threeBlockCFG()
	builder := cfg.UseDefBuilder()

	info, err := builder.BuildUseDefs(true, false, true, false)
	require.NoError(t, err)
	assert.True(t, info.HasGlobalDefs())
	assert.True(t, info.HasLoadsAsDefs())

	// the builder is cached on the CFG across calls
	assert.Same(t, builder, cfg.UseDefBuilder())
}

func TestRefCFG_ValueNumberBuilder(t *testing.T) {
	cfg := threeBlockCFG()
	builder := cfg.ValueNumberBuilder()

	info, err := builder.BuildValueNumbers(false, true)
	require.NoError(t, err)
	assert.True(t, info.HasGlobals())

	assert.Same(t, builder, cfg.ValueNumberBuilder())
}

func TestRefCompilation_FailCompilationPanics(t *testing.T) {
	comp := NewRefCompilation()
	sentinel := errors.New("excessive complexity")

	defer func() {
		r := recover()
		require.NotNil(t, r)

		failure, ok := r.(*CompilationFailure)
		require.True(t, ok)
		assert.Equal(t, sentinel, errors.Unwrap(failure))
		assert.Equal(t, sentinel.Error(), failure.Error())
	}()

	comp.FailCompilation(sentinel)
	t.Fatal("FailCompilation must not return normally")
}
