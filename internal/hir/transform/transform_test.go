package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/midenc-go/midenc/internal/hir/analysis"
	"github.com/midenc-go/midenc/internal/hir/dialect"
	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/hir/types"
)

func buildDiamond(c *ir.Context) (region ir.Handle[ir.Region], entry, then, els, merge ir.Handle[ir.Block]) {
	region = c.AddRegion(c.CreateOperation(ir.NewOpDef("func", 0, 0), nil, nil, ir.SourceSpan{}))
	entry = c.CreateBlock()
	then = c.CreateBlock()
	els = c.CreateBlock()
	merge = c.CreateBlockWithParams([]*types.Type{types.I32()})
	c.AppendBlock(region, entry)
	c.AppendBlock(region, then)
	c.AppendBlock(region, els)
	c.AppendBlock(region, merge)

	cond := dialect.ConstI64(c, types.I1(), 1, ir.SourceSpan{})
	entry.AppendOp(cond)
	entry.AppendOp(dialect.CondBr(c, cond.Result(0), then, nil, els, nil, ir.SourceSpan{}))

	v1 := dialect.ConstI64(c, types.I32(), 1, ir.SourceSpan{})
	then.AppendOp(v1)
	then.AppendOp(dialect.Br(c, merge, []ir.Value{v1.Result(0)}, ir.SourceSpan{}))

	v2 := dialect.ConstI64(c, types.I32(), 2, ir.SourceSpan{})
	els.AppendOp(v2)
	els.AppendOp(dialect.Br(c, merge, []ir.Value{v2.Result(0)}, ir.SourceSpan{}))

	merge.AppendOp(dialect.Return(c, []ir.Value{merge.Param(0)}, ir.SourceSpan{}))
	return
}

func TestSplitCriticalEdges(t *testing.T) {
	c := ir.NewContext()
	region, entry, then, els, merge := buildDiamond(c)

	// No edge of the diamond is critical: each arm has one predecessor
	// and one successor.
	n := SplitCriticalEdges(c, region)
	require.Equal(t, 0, n)

	g := analysis.BuildCFG(region)
	require.Len(t, g.Predecessors(merge), 2)
	for _, pad := range g.Predecessors(merge) {
		require.Len(t, g.Predecessors(pad), 1)
	}
	require.Len(t, g.Successors(entry), 2)
	require.True(t, g.Successors(entry)[0].Equal(then))
	require.True(t, g.Successors(entry)[1].Equal(els))
}

func TestInlineStraightLineBlocks(t *testing.T) {
	c := ir.NewContext()
	region := c.AddRegion(c.CreateOperation(ir.NewOpDef("func", 0, 0), nil, nil, ir.SourceSpan{}))
	entry := c.CreateBlock()
	next := c.CreateBlock()
	c.AppendBlock(region, entry)
	c.AppendBlock(region, next)

	entry.AppendOp(dialect.Br(c, next, nil, ir.SourceSpan{}))
	v := dialect.ConstI64(c, types.I32(), 7, ir.SourceSpan{})
	next.AppendOp(v)
	next.AppendOp(dialect.Return(c, []ir.Value{v.Result(0)}, ir.SourceSpan{}))

	n := InlineStraightLineBlocks(c, region)
	require.Equal(t, 1, n)
	require.Equal(t, 2, entry.NumOps()) // const + return, folded in place
	require.Equal(t, 1, region.NumBlocks())
}

func TestTreeifyDuplicatesMergeInsideLoop(t *testing.T) {
	c := ir.NewContext()
	region := c.AddRegion(c.CreateOperation(ir.NewOpDef("func", 0, 0), nil, nil, ir.SourceSpan{}))
	entry := c.CreateBlock()
	header := c.CreateBlock()
	left := c.CreateBlock()
	right := c.CreateBlock()
	join := c.CreateBlock()
	exit := c.CreateBlock()
	for _, b := range []ir.Handle[ir.Block]{entry, header, left, right, join, exit} {
		c.AppendBlock(region, b)
	}

	entry.AppendOp(dialect.Br(c, header, nil, ir.SourceSpan{}))
	cond := dialect.ConstI64(c, types.I1(), 1, ir.SourceSpan{})
	header.AppendOp(cond)
	header.AppendOp(dialect.CondBr(c, cond.Result(0), left, nil, right, nil, ir.SourceSpan{}))
	left.AppendOp(dialect.Br(c, join, nil, ir.SourceSpan{}))
	right.AppendOp(dialect.Br(c, join, nil, ir.SourceSpan{}))
	cond2 := dialect.ConstI64(c, types.I1(), 0, ir.SourceSpan{})
	join.AppendOp(cond2)
	join.AppendOp(dialect.CondBr(c, cond2.Result(0), header, nil, exit, nil, ir.SourceSpan{})) // back edge
	exit.AppendOp(dialect.Return(c, nil, ir.SourceSpan{}))

	before := region.NumBlocks()
	// join is cloned for its second predecessor, which gives exit (also
	// dominated by header) two predecessors, so exit is cloned too.
	n := Treeify(c, region)
	require.Equal(t, 2, n)
	require.Equal(t, before+2, region.NumBlocks())

	g := analysis.BuildCFG(region)
	for _, blk := range g.ReversePostOrder {
		if blk.Equal(header) {
			continue
		}
		require.LessOrEqualf(t, len(g.Predecessors(blk)), 1, "block %d still has multiple predecessors after treeify", blk.ID())
	}
}
