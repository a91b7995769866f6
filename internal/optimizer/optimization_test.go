package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/jitcore/internal/ir"
)

func TestCapabilityFlags_Has(t *testing.T) {
	f := RequiresStructure | MaintainsUseDefs

	assert.True(t, f.Has(RequiresStructure))
	assert.True(t, f.Has(MaintainsUseDefs))
	assert.False(t, f.Has(RequiresUseDefsGlobal))
}

func TestCapabilityFlags_Zero(t *testing.T) {
	var f CapabilityFlags
	assert.False(t, f.Has(RequiresStructure))
}

func TestState_BlockTracking(t *testing.T) {
	s := newState()
	assert.False(t, s.HasPendingBlocks())

	s.RequestBlock(3)
	s.RequestBlock(7)
	assert.True(t, s.HasPendingBlocks())
	assert.True(t, s.BlockRequested[3])
	assert.True(t, s.BlockRequested[7])

	s.ClearBlock(3)
	assert.True(t, s.HasPendingBlocks())

	s.ClearBlock(7)
	assert.False(t, s.HasPendingBlocks())
}

// stubPass is a minimal Pass that records how it was invoked.
type stubPass struct {
	shouldPerform bool
	blocksVisited []int
	performed     bool
}

func (p *stubPass) ShouldPerform(ir.Compilation, ir.MethodSymbol) bool { return p.shouldPerform }
func (p *stubPass) PrePerform(ir.Compilation, ir.MethodSymbol) error   { return nil }
func (p *stubPass) Perform(ir.Compilation, ir.MethodSymbol) error {
	p.performed = true
	return nil
}
func (p *stubPass) PostPerform(ir.Compilation, ir.MethodSymbol) error        { return nil }
func (p *stubPass) PrePerformOnBlocks(ir.Compilation, ir.MethodSymbol) error { return nil }
func (p *stubPass) PerformOnBlock(_ ir.Compilation, _ ir.MethodSymbol, b ir.Block) error {
	p.blocksVisited = append(p.blocksVisited, b.Number())
	return nil
}
func (p *stubPass) PostPerformOnBlocks(ir.Compilation, ir.MethodSymbol) error { return nil }

func TestDefinition_CreateReturnsFreshPass(t *testing.T) {
	def := &Definition{
		Name: "stub",
		Create: func(o *Orchestrator) Pass {
			return &stubPass{shouldPerform: true}
		},
	}
	p1 := def.Create(nil)
	p2 := def.Create(nil)
	assert.NotSame(t, p1, p2)
}
