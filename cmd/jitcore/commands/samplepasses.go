package commands

import (
	"github.com/marmos91/jitcore/internal/ir"
	"github.com/marmos91/jitcore/internal/optimizer"
)

// No real front-end ships with this module, so the compile command drives
// the orchestrator against internal/ir's own reference implementation
// (ir.RefCompilation/RefMethodSymbol) and a small built-in registry of
// demonstration passes, rather than against a real compiler's IR. A host
// embedding pkg/jitruntime supplies its own Registry and ir.Compilation
// instead of these.

// constantFoldPass collapses a one-block method's node list down to a
// single const node, the way E1's worked example folds add(const,const).
type constantFoldPass struct{}

func (p *constantFoldPass) ShouldPerform(ir.Compilation, ir.MethodSymbol) bool { return true }
func (p *constantFoldPass) PrePerform(ir.Compilation, ir.MethodSymbol) error   { return nil }

func (p *constantFoldPass) Perform(_ ir.Compilation, method ir.MethodSymbol) error {
	m, ok := method.(*ir.RefMethodSymbol)
	if !ok || len(m.CFG.Blocks) == 0 || len(m.CFG.Blocks[0].NodeList) <= 1 {
		return nil
	}
	before := len(m.CFG.Blocks[0].NodeList)
	m.CFG.Blocks[0].NodeList = []ir.Node{&ir.RefNode{Op: "const_folded"}}
	m.CFG.GrowNodes(1 - before)
	m.Tree = m.CFG.Blocks[0].NodeList[0]
	return nil
}

func (p *constantFoldPass) PostPerform(ir.Compilation, ir.MethodSymbol) error        { return nil }
func (p *constantFoldPass) PrePerformOnBlocks(ir.Compilation, ir.MethodSymbol) error { return nil }
func (p *constantFoldPass) PerformOnBlock(ir.Compilation, ir.MethodSymbol, ir.Block) error {
	return nil
}
func (p *constantFoldPass) PostPerformOnBlocks(ir.Compilation, ir.MethodSymbol) error { return nil }

// localCSEPass is a no-op stand-in for local common-subexpression
// elimination: it declares MaintainsUseDefs so the orchestrator does not
// invalidate use-def info across it, matching a real CSE pass's contract.
type localCSEPass struct{}

func (p *localCSEPass) ShouldPerform(ir.Compilation, ir.MethodSymbol) bool        { return true }
func (p *localCSEPass) PrePerform(ir.Compilation, ir.MethodSymbol) error          { return nil }
func (p *localCSEPass) Perform(ir.Compilation, ir.MethodSymbol) error             { return nil }
func (p *localCSEPass) PostPerform(ir.Compilation, ir.MethodSymbol) error         { return nil }
func (p *localCSEPass) PrePerformOnBlocks(ir.Compilation, ir.MethodSymbol) error  { return nil }
func (p *localCSEPass) PerformOnBlock(ir.Compilation, ir.MethodSymbol, ir.Block) error {
	return nil
}
func (p *localCSEPass) PostPerformOnBlocks(ir.Compilation, ir.MethodSymbol) error { return nil }

// defaultRegistry builds the CLI's built-in two-pass catalog: a constant
// folder (index 0) and a CSE stand-in (index 1, MaintainsUseDefs).
func defaultRegistry() *optimizer.Registry {
	return optimizer.NewRegistry([]*optimizer.Definition{
		{
			Name: "constantFold",
			Create: func(o *optimizer.Orchestrator) optimizer.Pass {
				return &constantFoldPass{}
			},
		},
		{
			Name:         "localCSE",
			Capabilities: optimizer.MaintainsUseDefs,
			Create: func(o *optimizer.Orchestrator) optimizer.Pass {
				return &localCSEPass{}
			},
		},
	})
}

// defaultStrategy runs every registered pass in order, unconditionally.
func defaultStrategy(reg *optimizer.Registry) optimizer.Strategy {
	strat := make(optimizer.Strategy, reg.NumOpts())
	for i := range strat {
		strat[i] = optimizer.Entry{OptID: optimizer.OptID(i), Guard: optimizer.GuardAlways}
	}
	return strat
}

// buildSyntheticMethod constructs a one-block method of n synthetic nodes:
// n-1 "const" nodes followed by an "add" (a single "const" when n <= 1),
// the same shape orchestrator_test.go uses to exercise E1's fold.
func buildSyntheticMethod(n int) *ir.RefMethodSymbol {
	if n < 1 {
		n = 1
	}
	nodes := make([]ir.Node, n)
	for i := 0; i < n; i++ {
		nodes[i] = &ir.RefNode{Op: "const"}
	}
	if n > 1 {
		nodes[n-1] = &ir.RefNode{Op: "add"}
	}
	block := &ir.RefBlock{Num: 0, Header: true, NodeList: nodes}
	cfg := ir.NewRefCFG([]*ir.RefBlock{block}, 0)
	return &ir.RefMethodSymbol{CFG: cfg, Tree: nodes[len(nodes)-1]}
}
