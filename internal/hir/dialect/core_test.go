package dialect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/hir/types"
)

// TestI32AddConstantOperands builds the HIR that i32.const 3, i32.const 1,
// i32.add lowers to (`v2 = add v0, v1`) and checks its operands and type.
func TestI32AddConstantOperands(t *testing.T) {
	c := ir.NewContext()
	entry := c.CreateBlock()

	v0 := ConstI64(c, types.I32(), 3, ir.SourceSpan{})
	entry.AppendOp(v0)
	v1 := ConstI64(c, types.I32(), 1, ir.SourceSpan{})
	entry.AppendOp(v1)
	v2 := Binary(c, OpAdd, v0.Result(0), v1.Result(0), types.I32(), ir.SourceSpan{})
	entry.AppendOp(v2)

	require.Equal(t, 2, v2.NumOperands())
	require.True(t, v2.Operand(0).Equal(v0.Result(0)))
	require.True(t, v2.Operand(1).Equal(v1.Result(0)))
	require.True(t, types.I32().Equal(v2.Result(0).Type()))
}

// TestStoreNarrowingToI16 builds the trunc + inttoptr + store HIR that
// i32.const 1024, i32.const 1, i32.store16 lowers to and checks it.
func TestStoreNarrowingToI16(t *testing.T) {
	c := ir.NewContext()
	entry := c.CreateBlock()

	v0 := ConstI64(c, types.I32(), 1024, ir.SourceSpan{})
	entry.AppendOp(v0)
	v1 := ConstI64(c, types.I32(), 1, ir.SourceSpan{})
	entry.AppendOp(v1)
	v2 := Trunc(c, v1.Result(0), types.I16(), ir.SourceSpan{})
	entry.AppendOp(v2)
	v3 := IntToPtr(c, v0.Result(0), types.I16(), 0, ir.SourceSpan{})
	entry.AppendOp(v3)
	st := Store(c, v3.Result(0), v2.Result(0), ir.SourceSpan{})
	entry.AppendOp(st)

	require.True(t, types.I16().Equal(v2.Result(0).Type()))
	require.Equal(t, types.KindPtr, v3.Result(0).Type().Kind())
	require.True(t, st.Operand(0).Equal(v3.Result(0)))
	require.True(t, st.Operand(1).Equal(v2.Result(0)))
}

func TestCondBrSuccessors(t *testing.T) {
	c := ir.NewContext()
	region := c.AddRegion(c.CreateOperation(ir.NewOpDef("func", 0, 0), nil, nil, ir.SourceSpan{}))
	entry := c.CreateBlock()
	then := c.CreateBlockWithParams([]*types.Type{types.I32()})
	els := c.CreateBlockWithParams([]*types.Type{types.I32()})
	c.AppendBlock(region, entry)
	c.AppendBlock(region, then)
	c.AppendBlock(region, els)

	cond := ConstI64(c, types.I1(), 1, ir.SourceSpan{})
	entry.AppendOp(cond)
	v := ConstI64(c, types.I32(), 42, ir.SourceSpan{})
	entry.AppendOp(v)
	br := CondBr(c, cond.Result(0), then, []ir.Value{v.Result(0)}, els, []ir.Value{v.Result(0)}, ir.SourceSpan{})
	entry.AppendOp(br)

	require.NoError(t, ir.Verify(br))
	require.Equal(t, 2, br.NumSuccessors())
	require.True(t, br.SuccessorBlock(0).Equal(then))
	require.True(t, br.SuccessorBlock(1).Equal(els))
}
