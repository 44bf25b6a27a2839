package transform

import (
	"github.com/midenc-go/midenc/internal/hir/analysis"
	"github.com/midenc-go/midenc/internal/hir/dialect"
	"github.com/midenc-go/midenc/internal/hir/ir"
)

// InlineStraightLineBlocks folds every block b into its sole predecessor p
// when that edge is p's only successor and b's only predecessor: the pair
// is merged by rewriting b's block-argument uses to the forwarded branch
// values, appending b's non-terminator operations onto p, and replacing
// p's terminator with b's. Runs to a fixpoint since folding one pair can
// make the next pair eligible. Returns the number of blocks removed.
func InlineStraightLineBlocks(c *ir.Context, region ir.Handle[ir.Region]) int {
	total := 0
	for {
		g := analysis.BuildCFG(region)
		folded := false
		for _, p := range g.ReversePostOrder {
			succs := g.Successors(p)
			if len(succs) != 1 {
				continue
			}
			b := succs[0]
			if b.Equal(g.Entry) {
				continue // never fold the entry block away
			}
			if len(g.Predecessors(b)) != 1 {
				continue
			}
			if !dialect.IsUnconditionalBranch(mustTerm(p)) {
				continue
			}
			foldInto(c, region, p, b)
			folded = true
			total++
			break // CFG is stale, restart the scan
		}
		if !folded {
			return total
		}
	}
}

func mustTerm(b ir.Handle[ir.Block]) ir.Handle[ir.Operation] {
	t, _ := b.Terminator()
	return t
}

// foldInto merges b into p: b's params are rewired to p's branch
// arguments, b's body is appended to p in order, and p's old terminator
// (the branch into b) is dropped in favor of b's own terminator.
func foldInto(c *ir.Context, region ir.Handle[ir.Region], p, b ir.Handle[ir.Block]) {
	br, _ := p.Terminator()
	args := br.OperandGroup(br.Successor(0).ArgGroup)
	for i, arg := range args {
		param := b.Param(i)
		rewireUses(param, arg)
	}

	p.RemoveOp(br)
	var ops []ir.Handle[ir.Operation]
	b.ForEachOp(func(op ir.Handle[ir.Operation]) { ops = append(ops, op) })
	for _, op := range ops {
		b.RemoveOp(op)
		p.AppendOp(op)
	}
	c.RemoveBlock(region, b)
}

// rewireUses redirects every current use of `from` to `to`, leaving
// `from` itself with no uses afterward.
func rewireUses(from, to ir.Value) {
	var uses []ir.OpOperand
	from.Uses(func(o ir.OpOperand) { uses = append(uses, o) })
	for _, o := range uses {
		ir.SetOperand(o, to)
	}
}
