// Package transform implements region-rewriting passes that run after HIR
// construction and before codegen: critical-edge splitting, loop-body
// treeification, and straight-line block inlining.
package transform

import (
	"github.com/midenc-go/midenc/internal/hir/analysis"
	"github.com/midenc-go/midenc/internal/hir/dialect"
	"github.com/midenc-go/midenc/internal/hir/ir"
)

// SplitCriticalEdges rewrites every critical edge of region (an edge from
// a block with more than one successor to a block with more than one
// predecessor) by inserting a new, single-purpose block along it. This
// gives later passes (stackify's operand-placement solver in particular)
// a place to materialize per-edge stack-shuffling code without disturbing
// any other edge out of the same source block. Runs to a fixpoint because
// inserting one landing pad can, transitively, change another edge's
// criticality count as the CFG is rebuilt between rounds.
func SplitCriticalEdges(c *ir.Context, region ir.Handle[ir.Region]) int {
	total := 0
	for {
		g := analysis.BuildCFG(region)
		split := false
		for _, blk := range g.ReversePostOrder {
			succs := g.Successors(blk)
			if len(succs) < 2 {
				continue
			}
			term, ok := blk.Terminator()
			if !ok {
				continue
			}
			for i := 0; i < term.NumSuccessors(); i++ {
				succ := term.SuccessorBlock(i)
				if g.Reachable(succ) && len(g.Predecessors(succ)) > 1 {
					splitEdge(c, region, term, i, succ)
					split = true
					total++
				}
			}
			if split {
				break // CFG is stale after a rewrite, restart the scan
			}
		}
		if !split {
			return total
		}
	}
}

// splitEdge inserts a fresh block between term's i-th successor edge and
// its destination, forwarding the edge's argument values unchanged. The
// original edge is retargeted at the new block; its argument group and
// every other successor of term are left untouched.
func splitEdge(c *ir.Context, region ir.Handle[ir.Region], term ir.Handle[ir.Operation], i int, dest ir.Handle[ir.Block]) {
	succ := term.Successor(i)
	args := term.OperandGroup(succ.ArgGroup)

	landingPad := c.CreateBlock()
	c.AppendBlock(region, landingPad)
	landingPad.AppendOp(dialect.Br(c, dest, args, ir.SourceSpan{}))

	c.RetargetSuccessor(term, i, landingPad)
}
