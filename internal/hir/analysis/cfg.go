// Package analysis implements the HIR analyses: dominator trees, loop
// detection, liveness, and global-variable layout.
package analysis

import "github.com/midenc-go/midenc/internal/hir/ir"

// CFG is the control-flow graph extracted from a region's terminator
// successors, restricted to attached, reachable blocks.
type CFG struct {
	Entry ir.Handle[ir.Block]
	// ReversePostOrder lists every reachable block in reverse postorder,
	// entry first.
	ReversePostOrder []ir.Handle[ir.Block]
	rpoIndex         map[ir.EntityID]int
	succs            map[ir.EntityID][]ir.Handle[ir.Block]
	preds            map[ir.EntityID][]ir.Handle[ir.Block]
}

// BuildCFG walks `region` from its entry block, following terminator
// successors, and returns the CFG of reachable blocks. Blocks unreachable
// from entry are omitted.
func BuildCFG(region ir.Handle[ir.Region]) *CFG {
	entry, ok := region.EntryBlock()
	if !ok {
		return &CFG{rpoIndex: map[ir.EntityID]int{}, succs: map[ir.EntityID][]ir.Handle[ir.Block]{}, preds: map[ir.EntityID][]ir.Handle[ir.Block]{}}
	}

	succs := make(map[ir.EntityID][]ir.Handle[ir.Block])
	preds := make(map[ir.EntityID][]ir.Handle[ir.Block])

	const (
		unseen = 0
		seen   = 1
		done   = 2
	)
	state := make(map[ir.EntityID]int)
	var postorder []ir.Handle[ir.Block]

	stack := []ir.Handle[ir.Block]{entry}
	state[entry.ID()] = seen
	for len(stack) > 0 {
		blk := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch state[blk.ID()] {
		case seen:
			stack = append(stack, blk)
			blockSuccessors(blk, func(s ir.Handle[ir.Block]) {
				succs[blk.ID()] = append(succs[blk.ID()], s)
				preds[s.ID()] = append(preds[s.ID()], blk)
				if state[s.ID()] == unseen {
					state[s.ID()] = seen
					stack = append(stack, s)
				}
			})
			state[blk.ID()] = done
		case done:
			postorder = append(postorder, blk)
		}
	}

	rpo := make([]ir.Handle[ir.Block], len(postorder))
	for i, b := range postorder {
		rpo[len(postorder)-1-i] = b
	}
	idx := make(map[ir.EntityID]int, len(rpo))
	for i, b := range rpo {
		idx[b.ID()] = i
	}

	return &CFG{Entry: entry, ReversePostOrder: rpo, rpoIndex: idx, succs: succs, preds: preds}
}

// blockSuccessors invokes fn once per successor edge of blk's terminator,
// in successor order; a block targeted twice is visited twice.
func blockSuccessors(blk ir.Handle[ir.Block], fn func(ir.Handle[ir.Block])) {
	term, ok := blk.Terminator()
	if !ok {
		return
	}
	n := term.NumSuccessors()
	for i := 0; i < n; i++ {
		fn(term.SuccessorBlock(i))
	}
}

// Successors returns the successor blocks of blk within the CFG, one entry
// per edge.
func (g *CFG) Successors(blk ir.Handle[ir.Block]) []ir.Handle[ir.Block] {
	return g.succs[blk.ID()]
}

// Predecessors returns the reachable predecessor blocks of blk, one entry
// per edge.
func (g *CFG) Predecessors(blk ir.Handle[ir.Block]) []ir.Handle[ir.Block] {
	return g.preds[blk.ID()]
}

// RPOIndex returns blk's position in reverse postorder. Used by the
// dominator intersection algorithm.
func (g *CFG) RPOIndex(blk ir.Handle[ir.Block]) (int, bool) {
	i, ok := g.rpoIndex[blk.ID()]
	return i, ok
}

// Reachable reports whether blk was reached from entry.
func (g *CFG) Reachable(blk ir.Handle[ir.Block]) bool {
	_, ok := g.rpoIndex[blk.ID()]
	return ok
}
