package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/jitcore/internal/ir"
)

func guardCFG(hasLoops bool, blockCount int) *ir.RefCFG {
	blocks := make([]*ir.RefBlock, blockCount)
	for i := range blocks {
		blocks[i] = &ir.RefBlock{Num: i, Header: true}
	}
	cfg := ir.NewRefCFG(blocks, 0)
	cfg.HasLoops = hasLoops
	return cfg
}

func TestEvaluateGuard_Always(t *testing.T) {
	gc := guardContext{cfg: guardCFG(false, 1), state: newState()}
	out := evaluateGuard(GuardAlways, gc)
	assert.True(t, out.run)
	assert.False(t, out.markLastRun)
}

func TestEvaluateGuard_IfLoops(t *testing.T) {
	withLoops := guardContext{cfg: guardCFG(true, 1), state: newState()}
	withoutLoops := guardContext{cfg: guardCFG(false, 1), state: newState()}

	assert.True(t, evaluateGuard(GuardIfLoops, withLoops).run)
	assert.False(t, evaluateGuard(GuardIfLoops, withoutLoops).run)
	assert.False(t, evaluateGuard(GuardIfNoLoops, withLoops).run)
	assert.True(t, evaluateGuard(GuardIfNoLoops, withoutLoops).run)
}

func TestEvaluateGuard_IfLoopsMarkLastRun(t *testing.T) {
	gc := guardContext{cfg: guardCFG(true, 1), state: newState()}
	out := evaluateGuard(GuardIfLoopsMarkLastRun, gc)
	assert.True(t, out.run)
	assert.True(t, out.markLastRun)

	gc2 := guardContext{cfg: guardCFG(false, 1), state: newState()}
	out2 := evaluateGuard(GuardIfLoopsMarkLastRun, gc2)
	assert.False(t, out2.run)
	assert.False(t, out2.markLastRun)
}

func TestEvaluateGuard_BlockCount(t *testing.T) {
	one := guardContext{cfg: guardCFG(false, 1), state: newState()}
	many := guardContext{cfg: guardCFG(false, 3), state: newState()}

	assert.True(t, evaluateGuard(GuardIfOneBlock, one).run)
	assert.False(t, evaluateGuard(GuardIfOneBlock, many).run)
	assert.False(t, evaluateGuard(GuardIfMoreThanOneBlock, one).run)
	assert.True(t, evaluateGuard(GuardIfMoreThanOneBlock, many).run)
}

func TestEvaluateGuard_IfEnabled(t *testing.T) {
	state := newState()
	gc := guardContext{cfg: guardCFG(true, 1), state: state}

	assert.False(t, evaluateGuard(GuardIfEnabled, gc).run)
	state.Requested = true
	assert.True(t, evaluateGuard(GuardIfEnabled, gc).run)
	assert.True(t, evaluateGuard(GuardIfEnabledAndLoops, gc).run)
}

func TestEvaluateGuard_CompilationOptions(t *testing.T) {
	comp := ir.NewRefCompilation()
	gc := guardContext{comp: comp, cfg: guardCFG(false, 1), state: newState()}

	assert.False(t, evaluateGuard(GuardIfOSR, gc).run)
	comp.Options[OptionOSR] = true
	assert.True(t, evaluateGuard(GuardIfOSR, gc).run)

	assert.True(t, evaluateGuard(GuardIfNotQuickStart, gc).run)
	comp.Options[OptionQuickStart] = true
	assert.False(t, evaluateGuard(GuardIfNotQuickStart, gc).run)
}

func TestEvaluateGuard_MethodProperties(t *testing.T) {
	method := &ir.RefMethodSymbol{Monitors: true, VectorAPI: true}
	gc := guardContext{method: method, cfg: guardCFG(false, 1), state: newState()}

	assert.True(t, evaluateGuard(GuardIfMonitors, gc).run)
	assert.True(t, evaluateGuard(GuardIfVectorAPI, gc).run)
	assert.False(t, evaluateGuard(GuardIfMethodHandleInvokes, gc).run)
}

func TestEvaluateGuard_IfNoLoopsOrEnabledAndLoops(t *testing.T) {
	state := newState()
	noLoops := guardContext{cfg: guardCFG(false, 1), state: state}
	withLoops := guardContext{cfg: guardCFG(true, 1), state: state}

	assert.True(t, evaluateGuard(GuardIfNoLoopsOrEnabledAndLoops, noLoops).run)
	assert.False(t, evaluateGuard(GuardIfNoLoopsOrEnabledAndLoops, withLoops).run)

	state.Requested = true
	assert.True(t, evaluateGuard(GuardIfNoLoopsOrEnabledAndLoops, withLoops).run)
}

func TestEvaluateGuard_MustBeDoneAlwaysRuns(t *testing.T) {
	gc := guardContext{cfg: guardCFG(false, 1), state: newState()}
	assert.True(t, evaluateGuard(GuardMustBeDone, gc).run)
}

func TestEvaluateGuard_MarkLastRun(t *testing.T) {
	gc := guardContext{cfg: guardCFG(false, 1), state: newState()}
	out := evaluateGuard(GuardMarkLastRun, gc)
	assert.True(t, out.run)
	assert.True(t, out.markLastRun)
}
