package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/midenc-go/midenc/internal/hir/dialect"
	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/hir/types"
)

// buildDiamond constructs entry -> {then, els} -> merge, a standard
// if/else diamond, and returns the blocks in that order.
func buildDiamond(c *ir.Context) (region ir.Handle[ir.Region], entry, then, els, merge ir.Handle[ir.Block]) {
	region = c.AddRegion(c.CreateOperation(ir.NewOpDef("func", 0, 0), nil, nil, ir.SourceSpan{}))
	entry = c.CreateBlock()
	then = c.CreateBlock()
	els = c.CreateBlock()
	merge = c.CreateBlock()
	c.AppendBlock(region, entry)
	c.AppendBlock(region, then)
	c.AppendBlock(region, els)
	c.AppendBlock(region, merge)

	cond := dialect.ConstI64(c, types.I1(), 1, ir.SourceSpan{})
	entry.AppendOp(cond)
	br := dialect.CondBr(c, cond.Result(0), then, nil, els, nil, ir.SourceSpan{})
	entry.AppendOp(br)

	then.AppendOp(dialect.Br(c, merge, nil, ir.SourceSpan{}))
	els.AppendOp(dialect.Br(c, merge, nil, ir.SourceSpan{}))
	merge.AppendOp(dialect.Return(c, nil, ir.SourceSpan{}))
	return
}

func TestBuildCFGDiamond(t *testing.T) {
	c := ir.NewContext()
	_, entry, then, els, merge := buildDiamond(c)

	g := BuildCFG(mustRegion(c, entry))
	require.Len(t, g.ReversePostOrder, 4)
	require.True(t, g.Reachable(entry))
	require.True(t, g.Reachable(merge))

	succs := g.Successors(entry)
	require.Len(t, succs, 2)
	require.True(t, succs[0].Equal(then))
	require.True(t, succs[1].Equal(els))

	preds := g.Predecessors(merge)
	require.Len(t, preds, 2)
}

func TestDominanceDiamond(t *testing.T) {
	c := ir.NewContext()
	_, entry, then, els, merge := buildDiamond(c)

	g := BuildCFG(mustRegion(c, entry))
	dom := BuildDominance(g)

	require.True(t, dom.Dominates(entry, then))
	require.True(t, dom.Dominates(entry, els))
	require.True(t, dom.Dominates(entry, merge))
	require.False(t, dom.Dominates(then, merge)) // merge reachable via els too
	require.False(t, dom.Dominates(els, merge))
	require.True(t, dom.Dominates(merge, merge))
}

func TestFindLoopsBackEdge(t *testing.T) {
	c := ir.NewContext()
	region := c.AddRegion(c.CreateOperation(ir.NewOpDef("func", 0, 0), nil, nil, ir.SourceSpan{}))
	entry := c.CreateBlock()
	header := c.CreateBlock()
	body := c.CreateBlock()
	exit := c.CreateBlock()
	c.AppendBlock(region, entry)
	c.AppendBlock(region, header)
	c.AppendBlock(region, body)
	c.AppendBlock(region, exit)

	entry.AppendOp(dialect.Br(c, header, nil, ir.SourceSpan{}))
	cond := dialect.ConstI64(c, types.I1(), 1, ir.SourceSpan{})
	header.AppendOp(cond)
	header.AppendOp(dialect.CondBr(c, cond.Result(0), body, nil, exit, nil, ir.SourceSpan{}))
	body.AppendOp(dialect.Br(c, header, nil, ir.SourceSpan{})) // back edge
	exit.AppendOp(dialect.Return(c, nil, ir.SourceSpan{}))

	g := BuildCFG(region)
	dom := BuildDominance(g)
	loops := FindLoops(g, dom)

	require.True(t, loops.IsLoopHeader(header))
	require.False(t, loops.IsLoopHeader(entry))
	sources := loops.BackEdgeSources(header)
	require.Len(t, sources, 1)
	require.True(t, sources[0].Equal(body))
}

func TestComputeLayoutOrdersSegmentsBeforeGlobals(t *testing.T) {
	segs := []DataSegment{{Name: "rodata", Data: make([]byte, 10)}}
	globals := []GlobalVar{{Name: "counter", SizeBytes: 4, AlignBits: 32}}

	layout, err := ComputeLayout(segs, globals)
	require.NoError(t, err)
	require.Equal(t, uint32(0), layout.Offsets["rodata"])
	require.Greater(t, layout.Offsets["counter"], uint32(0))
	require.True(t, layout.TotalSize >= layout.Offsets["counter"]+4)
}

func TestComputeLayoutAlignedGlobalsDoNotOverlap(t *testing.T) {
	globals := []GlobalVar{
		{Name: "a", SizeBytes: 4, AlignBits: 32},
		{Name: "b", SizeBytes: 4, AlignBits: 32},
	}
	_, err := ComputeLayout(nil, globals)
	require.NoError(t, err) // aligned allocator never overlaps by construction
}

func mustRegion(c *ir.Context, entry ir.Handle[ir.Block]) ir.Handle[ir.Region] {
	region, _ := entry.ParentRegion()
	return region
}
