package analysis

import "github.com/midenc-go/midenc/internal/hir/ir"

// Liveness holds the per-block live-in and live-out value sets computed by
// a standard backward dataflow pass over a CFG: live-out of a block is the
// union of live-in of its successors (joined across the block-argument
// values each successor edge supplies), and live-in is the block's uses
// not preceded by a def in that block, unioned with live-out minus the
// block's own defs.
type Liveness struct {
	liveIn  map[ir.EntityID]map[ir.EntityID]bool
	liveOut map[ir.EntityID]map[ir.EntityID]bool
}

// blockFacts is the per-block use/def summary used by the fixpoint loop.
type blockFacts struct {
	uses map[ir.EntityID]bool // used before any def in this block
	defs map[ir.EntityID]bool // block arguments plus op results defined here
}

// ComputeLiveness runs the backward live-variable dataflow pass over every
// block in g until no live-in set changes.
func ComputeLiveness(g *CFG) *Liveness {
	facts := make(map[ir.EntityID]*blockFacts, len(g.ReversePostOrder))
	for _, blk := range g.ReversePostOrder {
		facts[blk.ID()] = collectBlockFacts(blk)
	}

	lv := &Liveness{
		liveIn:  make(map[ir.EntityID]map[ir.EntityID]bool, len(g.ReversePostOrder)),
		liveOut: make(map[ir.EntityID]map[ir.EntityID]bool, len(g.ReversePostOrder)),
	}
	for _, blk := range g.ReversePostOrder {
		lv.liveIn[blk.ID()] = map[ir.EntityID]bool{}
		lv.liveOut[blk.ID()] = map[ir.EntityID]bool{}
	}

	changed := true
	for changed {
		changed = false
		// Process in postorder (reverse of g.ReversePostOrder) so that a
		// block's successors are usually settled before it is.
		for i := len(g.ReversePostOrder) - 1; i >= 0; i-- {
			blk := g.ReversePostOrder[i]
			out := map[ir.EntityID]bool{}
			for _, succ := range g.Successors(blk) {
				for id := range lv.liveIn[succ.ID()] {
					out[id] = true
				}
			}
			f := facts[blk.ID()]
			in := map[ir.EntityID]bool{}
			for id := range f.uses {
				in[id] = true
			}
			for id := range out {
				if !f.defs[id] {
					in[id] = true
				}
			}
			if !setEqual(in, lv.liveIn[blk.ID()]) || !setEqual(out, lv.liveOut[blk.ID()]) {
				lv.liveIn[blk.ID()] = in
				lv.liveOut[blk.ID()] = out
				changed = true
			}
		}
	}
	return lv
}

func setEqual(a, b map[ir.EntityID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}

func collectBlockFacts(blk ir.Handle[ir.Block]) *blockFacts {
	f := &blockFacts{uses: map[ir.EntityID]bool{}, defs: map[ir.EntityID]bool{}}
	n := blk.NumParams()
	for i := 0; i < n; i++ {
		f.defs[blk.Param(i).ID()] = true
	}
	blk.ForEachOp(func(op ir.Handle[ir.Operation]) {
		for i := 0; i < op.NumOperands(); i++ {
			v := op.Operand(i)
			if !f.defs[v.ID()] {
				f.uses[v.ID()] = true
			}
		}
		for i := 0; i < op.NumSuccessors(); i++ {
			for _, v := range op.OperandGroup(op.Successor(i).ArgGroup) {
				if !f.defs[v.ID()] {
					f.uses[v.ID()] = true
				}
			}
		}
		for i := 0; i < op.NumResults(); i++ {
			f.defs[op.Result(i).ID()] = true
		}
	})
	return f
}

// LiveIn returns the set of value ids live at the top of blk.
func (lv *Liveness) LiveIn(blk ir.Handle[ir.Block]) map[ir.EntityID]bool {
	return lv.liveIn[blk.ID()]
}

// LiveOut returns the set of value ids live at the bottom of blk.
func (lv *Liveness) LiveOut(blk ir.Handle[ir.Block]) map[ir.EntityID]bool {
	return lv.liveOut[blk.ID()]
}

// IsLiveOut reports whether v is live out of blk.
func (lv *Liveness) IsLiveOut(blk ir.Handle[ir.Block], v ir.Value) bool {
	return lv.liveOut[blk.ID()][v.ID()]
}
