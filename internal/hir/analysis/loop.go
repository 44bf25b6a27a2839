package analysis

import "github.com/midenc-go/midenc/internal/hir/ir"

// LoopInfo records which blocks of a CFG are loop headers: a block reached
// by a back edge, i.e. an edge whose source is dominated by its
// destination.
type LoopInfo struct {
	headers map[ir.EntityID]bool
	// backEdges maps a loop header's id to the set of blocks with an edge
	// into it that it dominates.
	backEdges map[ir.EntityID][]ir.Handle[ir.Block]
}

// FindLoops walks every edge of g and classifies the back edges: an edge
// pred -> succ is a back edge when succ dominates pred, making succ a loop
// header. This is the standard reducible-CFG back-edge test (every natural
// loop has exactly one header, reached by one or more back edges).
func FindLoops(g *CFG, dom *Dominance) *LoopInfo {
	li := &LoopInfo{headers: map[ir.EntityID]bool{}, backEdges: map[ir.EntityID][]ir.Handle[ir.Block]{}}
	for _, blk := range g.ReversePostOrder {
		for _, succ := range g.Successors(blk) {
			if dom.Dominates(succ, blk) {
				li.headers[succ.ID()] = true
				li.backEdges[succ.ID()] = append(li.backEdges[succ.ID()], blk)
			}
		}
	}
	return li
}

// IsLoopHeader reports whether blk is the target of at least one back edge.
func (li *LoopInfo) IsLoopHeader(blk ir.Handle[ir.Block]) bool {
	return li.headers[blk.ID()]
}

// BackEdgeSources returns the blocks with a back edge into header.
func (li *LoopInfo) BackEdgeSources(header ir.Handle[ir.Block]) []ir.Handle[ir.Block] {
	return li.backEdges[header.ID()]
}
