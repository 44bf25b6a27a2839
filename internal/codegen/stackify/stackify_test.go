package stackify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/midenc-go/midenc/internal/hir/dialect"
	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/hir/types"
	"github.com/midenc-go/midenc/internal/masm"
	"github.com/midenc-go/midenc/internal/session"
)

func newEmitter(t *testing.T) *Emitter {
	t.Helper()
	sess, err := session.New(session.NewOptions())
	require.NoError(t, err)
	return New(sess, "test")
}

// buildAddFunc constructs a single-block function computing a+b, the
// straight-line case: two i32 parameters into one "add", returned directly.
func buildAddFunc(c *ir.Context) (region ir.Handle[ir.Region], entry ir.Handle[ir.Block]) {
	entry = c.CreateBlockWithParams([]*types.Type{types.I32(), types.I32()})
	region = c.AddRegion(c.CreateOperation(ir.NewOpDef("func", 0, 0), nil, nil, ir.SourceSpan{}))
	c.AppendBlock(region, entry)

	a, b := entry.Param(0), entry.Param(1)
	sum := dialect.Binary(c, dialect.OpAdd, a, b, types.I32(), ir.SourceSpan{})
	entry.AppendOp(sum)
	entry.AppendOp(dialect.Return(c, []ir.Value{sum.Result(0)}, ir.SourceSpan{}))
	return
}

func TestFunctionStraightLineAdd(t *testing.T) {
	c := ir.NewContext()
	region, _ := buildAddFunc(c)

	e := newEmitter(t)
	fn, err := e.Function(region, masm.Signature{Params: []*types.Type{types.I32(), types.I32()}, Results: []*types.Type{types.I32()}}, "add", true)
	require.NoError(t, err)
	require.True(t, fn.IsExport)

	foundAdd := false
	for _, op := range fn.Body.Body.Ops {
		if _, ok := op.(masm.U32Add); ok {
			foundAdd = true
		}
	}
	require.True(t, foundAdd, "expected a u32add among %#v", fn.Body.Body.Ops)
}

// buildSelectFunc builds entry -> {then, els} -> (both end in return), an
// if/else diamond picking one of two i32 parameters based on an i1 cond
// parameter, exercising lowerCondBr's plain (non-loop) path.
func buildSelectFunc(c *ir.Context) (region ir.Handle[ir.Region], entry ir.Handle[ir.Block]) {
	entry = c.CreateBlockWithParams([]*types.Type{types.I1(), types.I32(), types.I32()})
	then := c.CreateBlockWithParams([]*types.Type{types.I32()})
	els := c.CreateBlockWithParams([]*types.Type{types.I32()})
	region = c.AddRegion(c.CreateOperation(ir.NewOpDef("func", 0, 0), nil, nil, ir.SourceSpan{}))
	c.AppendBlock(region, entry)
	c.AppendBlock(region, then)
	c.AppendBlock(region, els)

	cond, a, b := entry.Param(0), entry.Param(1), entry.Param(2)
	entry.AppendOp(dialect.CondBr(c, cond, then, []ir.Value{a}, els, []ir.Value{b}, ir.SourceSpan{}))

	then.AppendOp(dialect.Return(c, []ir.Value{then.Param(0)}, ir.SourceSpan{}))
	els.AppendOp(dialect.Return(c, []ir.Value{els.Param(0)}, ir.SourceSpan{}))
	return
}

func TestFunctionIfElseSelectsOperand(t *testing.T) {
	c := ir.NewContext()
	region, _ := buildSelectFunc(c)

	e := newEmitter(t)
	fn, err := e.Function(region, masm.Signature{Params: []*types.Type{types.I1(), types.I32(), types.I32()}, Results: []*types.Type{types.I32()}}, "select", true)
	require.NoError(t, err)

	foundIf := false
	for _, op := range fn.Body.Body.Ops {
		if _, ok := op.(masm.If); ok {
			foundIf = true
		}
	}
	require.True(t, foundIf, "expected a structured if among %#v", fn.Body.Body.Ops)
}

// buildLoopFunc builds entry -> header -> {body -> header (back edge), exit},
// a simple counted-down loop, exercising the While-wrapping back-edge path.
func buildLoopFunc(c *ir.Context) (region ir.Handle[ir.Region], entry ir.Handle[ir.Block]) {
	entry = c.CreateBlockWithParams([]*types.Type{types.I32()})
	header := c.CreateBlockWithParams([]*types.Type{types.I32()})
	body := c.CreateBlock()
	exit := c.CreateBlock()
	region = c.AddRegion(c.CreateOperation(ir.NewOpDef("func", 0, 0), nil, nil, ir.SourceSpan{}))
	c.AppendBlock(region, entry)
	c.AppendBlock(region, header)
	c.AppendBlock(region, body)
	c.AppendBlock(region, exit)

	entry.AppendOp(dialect.Br(c, header, []ir.Value{entry.Param(0)}, ir.SourceSpan{}))

	n := header.Param(0)
	zero := dialect.ConstI64(c, types.I32(), 0, ir.SourceSpan{})
	header.AppendOp(zero)
	cmp := dialect.ICmp(c, dialect.ICmpNe, n, zero.Result(0), ir.SourceSpan{})
	header.AppendOp(cmp)
	header.AppendOp(dialect.CondBr(c, cmp.Result(0), body, nil, exit, nil, ir.SourceSpan{}))

	one := dialect.ConstI64(c, types.I32(), 1, ir.SourceSpan{})
	body.AppendOp(one)
	dec := dialect.Binary(c, dialect.OpSub, n, one.Result(0), types.I32(), ir.SourceSpan{})
	body.AppendOp(dec)
	body.AppendOp(dialect.Br(c, header, []ir.Value{dec.Result(0)}, ir.SourceSpan{}))

	exit.AppendOp(dialect.Return(c, nil, ir.SourceSpan{}))
	return
}

func TestFunctionLoopWrapsWhile(t *testing.T) {
	c := ir.NewContext()
	region, _ := buildLoopFunc(c)

	e := newEmitter(t)
	fn, err := e.Function(region, masm.Signature{Params: []*types.Type{types.I32()}}, "countdown", false)
	require.NoError(t, err)
	require.False(t, fn.IsExport)

	foundWhile := false
	for _, op := range fn.Body.Body.Ops {
		if _, ok := op.(masm.While); ok {
			foundWhile = true
		}
	}
	require.True(t, foundWhile, "expected a while loop among %#v", fn.Body.Body.Ops)
}

func TestFunctionRejectsDynamicStoreAddress(t *testing.T) {
	c := ir.NewContext()
	entry := c.CreateBlockWithParams([]*types.Type{types.Ptr(types.I32(), 0), types.I32()})
	region := c.AddRegion(c.CreateOperation(ir.NewOpDef("func", 0, 0), nil, nil, ir.SourceSpan{}))
	c.AppendBlock(region, entry)

	ptr, v := entry.Param(0), entry.Param(1)
	entry.AppendOp(dialect.Store(c, ptr, v, ir.SourceSpan{}))
	entry.AppendOp(dialect.Return(c, nil, ir.SourceSpan{}))

	e := newEmitter(t)
	_, err := e.Function(region, masm.Signature{Params: []*types.Type{types.Ptr(types.I32(), 0), types.I32()}}, "store_dyn", false)
	require.Error(t, err)
	require.True(t, e.sess.Failed())
}

func TestSextWithinLimbNoOpWhenNotWidening(t *testing.T) {
	require.Nil(t, sextWithinLimb(16, 16))
}

func TestSextWithinLimbPropagatesSignBit(t *testing.T) {
	ops := sextWithinLimb(8, 16)
	ifOp, ok := ops[len(ops)-1].(masm.If)
	require.True(t, ok)
	require.Len(t, ifOp.Then.Ops, 2)
	require.Empty(t, ifOp.Else.Ops)
}
