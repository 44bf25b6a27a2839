package transform

import (
	"github.com/midenc-go/midenc/internal/hir/analysis"
	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/hir/types"
)

// Treeify duplicates merge blocks that lie inside a loop body so that the
// loop's control flow becomes tree-shaped: the Miden stack machine has no
// general unstructured jump, so a block reached by more than one
// predecessor edge inside a loop must be cloned once per incoming edge
// rather than shared, turning a reducible CFG's internal diamonds into a
// tree the stackifier can walk with a single simulated operand stack.
// A block counts as inside a loop when some loop header dominates it,
// which includes blocks reached after leaving that loop. Blocks no loop
// header dominates, and loop headers themselves (reached by the natural
// loop-continue edge), are left alone. Returns the number of block copies
// created.
func Treeify(c *ir.Context, region ir.Handle[ir.Region]) int {
	total := 0
	for {
		g := analysis.BuildCFG(region)
		dom := analysis.BuildDominance(g)
		loops := analysis.FindLoops(g, dom)

		duplicated := false
		for _, blk := range g.ReversePostOrder {
			if loops.IsLoopHeader(blk) {
				continue // headers are allowed exactly one shared merge point
			}
			preds := g.Predecessors(blk)
			if len(preds) < 2 {
				continue
			}
			if !inAnyLoop(g, loops, dom, blk) {
				continue
			}
			// Clone blk for every predecessor edge but the first; the
			// first predecessor keeps the original block.
			for _, pred := range preds[1:] {
				clone := cloneBlock(c, region, blk)
				retargetEdgeTo(c, pred, blk, clone)
			}
			duplicated = true
			total += len(preds) - 1
			break // CFG is stale after cloning, restart the scan
		}
		if !duplicated {
			return total
		}
	}
}

// inAnyLoop reports whether blk is dominated by some loop header. This
// holds for blocks in that loop's body and for blocks after its exit.
func inAnyLoop(g *analysis.CFG, loops *analysis.LoopInfo, dom *analysis.Dominance, blk ir.Handle[ir.Block]) bool {
	for _, candidate := range g.ReversePostOrder {
		if !loops.IsLoopHeader(candidate) {
			continue
		}
		if dom.Dominates(candidate, blk) {
			return true
		}
	}
	return false
}

// cloneBlock allocates a structural copy of src: same parameter types,
// same operations in order rebuilt as new op instances so the clone gets
// its own result values. Operand values defined outside src are shared
// with the clone; values defined inside src (its params and op results)
// are remapped to the clone's own values as each is built.
func cloneBlock(c *ir.Context, region ir.Handle[ir.Region], src ir.Handle[ir.Block]) ir.Handle[ir.Block] {
	n := src.NumParams()
	paramTypes := make([]*types.Type, n)
	for i := range paramTypes {
		paramTypes[i] = src.Param(i).Type()
	}
	clone := c.CreateBlockWithParams(paramTypes)
	c.AppendBlock(region, clone)

	remap := make(map[ir.EntityID]ir.Value, n)
	for i := 0; i < n; i++ {
		remap[src.Param(i).ID()] = clone.Param(i)
	}
	remapFn := func(v ir.Value) ir.Value {
		if nv, ok := remap[v.ID()]; ok {
			return nv
		}
		return v
	}

	src.ForEachOp(func(op ir.Handle[ir.Operation]) {
		newOp := c.CloneOperation(op, remapFn)
		clone.AppendOp(newOp)
		for i := 0; i < op.NumResults(); i++ {
			remap[op.Result(i).ID()] = newOp.Result(i)
		}
	})
	return clone
}

// retargetEdgeTo repoints the edge from pred into oldDest at newDest,
// preserving whatever argument values that edge already carries.
func retargetEdgeTo(c *ir.Context, pred, oldDest, newDest ir.Handle[ir.Block]) {
	term, ok := pred.Terminator()
	if !ok {
		return
	}
	for i := 0; i < term.NumSuccessors(); i++ {
		if term.SuccessorBlock(i).Equal(oldDest) {
			c.RetargetSuccessor(term, i, newDest)
			return
		}
	}
}
