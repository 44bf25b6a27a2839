package analysis

import "github.com/midenc-go/midenc/internal/hir/ir"

// Dominance is the dominator tree of a CFG, computed with the iterative
// Cooper-Harvey-Kennedy "simple, fast dominance" algorithm: repeated
// reverse-postorder passes intersecting each block's already-resolved
// predecessor dominators until the assignment reaches a fixpoint.
type Dominance struct {
	cfg  *CFG
	idom map[ir.EntityID]ir.Handle[ir.Block]
}

// BuildDominance computes the dominator tree of g.
func BuildDominance(g *CFG) *Dominance {
	d := &Dominance{cfg: g, idom: make(map[ir.EntityID]ir.Handle[ir.Block])}
	if len(g.ReversePostOrder) == 0 {
		return d
	}
	entry := g.ReversePostOrder[0]
	d.idom[entry.ID()] = entry

	changed := true
	for changed {
		changed = false
		for _, blk := range g.ReversePostOrder[1:] {
			var u ir.Handle[ir.Block]
			for _, pred := range g.Predecessors(blk) {
				if _, ok := d.idom[pred.ID()]; !ok {
					continue // not yet reached by a dominator, skip (handles loops)
				}
				if !u.Valid() {
					u = pred
					continue
				}
				u = d.intersect(u, pred)
			}
			if cur, ok := d.idom[blk.ID()]; !ok || !cur.Equal(u) {
				d.idom[blk.ID()] = u
				changed = true
			}
		}
	}
	return d
}

func (d *Dominance) intersect(a, b ir.Handle[ir.Block]) ir.Handle[ir.Block] {
	f1, f2 := a, b
	for !f1.Equal(f2) {
		i1, _ := d.cfg.RPOIndex(f1)
		i2, _ := d.cfg.RPOIndex(f2)
		for i1 > i2 {
			f1 = d.idom[f1.ID()]
			i1, _ = d.cfg.RPOIndex(f1)
		}
		for i2 > i1 {
			f2 = d.idom[f2.ID()]
			i2, _ = d.cfg.RPOIndex(f2)
		}
	}
	return f1
}

// ImmediateDominator returns blk's immediate dominator, which is blk
// itself for the entry block.
func (d *Dominance) ImmediateDominator(blk ir.Handle[ir.Block]) (ir.Handle[ir.Block], bool) {
	idom, ok := d.idom[blk.ID()]
	return idom, ok
}

// Dominates reports whether a dominates b: every path from entry to b
// passes through a. Every block dominates itself.
func (d *Dominance) Dominates(a, b ir.Handle[ir.Block]) bool {
	if !d.cfg.Reachable(b) {
		return false
	}
	cur := b
	for {
		if cur.Equal(a) {
			return true
		}
		idom, ok := d.idom[cur.ID()]
		if !ok || idom.Equal(cur) {
			return cur.Equal(a)
		}
		cur = idom
	}
}

// DominatesUse checks that the definition of `v` dominates the block
// containing its use. Block arguments are defined "at the top" of their
// owning block,
// so they dominate every position in that block including earlier
// operations; op results are defined at their op's position, so they
// dominate only later positions within the same block (handled by the
// caller tracking position order) or any position in a strictly dominated
// block.
func (d *Dominance) DominatesUse(def ir.Value, useBlock ir.Handle[ir.Block]) bool {
	if blk, ok := def.DefiningBlock(); ok {
		return d.Dominates(blk, useBlock)
	}
	op, ok := def.DefiningOp()
	if !ok {
		return false
	}
	defBlock, attached := op.ParentBlock()
	if !attached {
		return false
	}
	if defBlock.Equal(useBlock) {
		return true // same-block ordering is checked separately by the caller
	}
	return d.Dominates(defBlock, useBlock)
}
