package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/midenc-go/midenc/internal/hir/types"
)

func addDef() *OpDef {
	return NewOpDef("add", 2, 1)
}

func brDef() *OpDef {
	def := NewOpDef("br", 0, 0, TraitTerminator)
	def.HasSuccessors = true
	return def
}

func TestBlockParamsAndOperandLinkage(t *testing.T) {
	c := NewContext()
	entry := c.CreateBlockWithParams([]*types.Type{types.I32(), types.I32()})
	require.Equal(t, 2, entry.NumParams())

	a := entry.Param(0)
	b := entry.Param(1)
	require.Equal(t, 0, a.NumUses())

	add := c.CreateOperation(addDef(), []Value{a, b}, []*types.Type{types.I32()}, SourceSpan{})
	entry.AppendOp(add)

	require.Equal(t, 1, a.NumUses())
	require.Equal(t, 1, b.NumUses())
	require.Equal(t, 1, add.NumResults())
	require.True(t, types.I32().Equal(add.Result(0).Type()))
}

func TestSetOperandRelinksUseList(t *testing.T) {
	c := NewContext()
	entry := c.CreateBlockWithParams([]*types.Type{types.I32(), types.I32(), types.I32()})
	a, b, d := entry.Param(0), entry.Param(1), entry.Param(2)

	add := c.CreateOperation(addDef(), []Value{a, b}, []*types.Type{types.I32()}, SourceSpan{})
	entry.AppendOp(add)
	require.Equal(t, 1, b.NumUses())

	orec, release := add.Borrow()
	operand := orec.operandGroups[0][1]
	release()

	SetOperand(operand, d)
	require.Equal(t, 0, b.NumUses())
	require.Equal(t, 1, d.NumUses())
	require.True(t, add.Operand(1).Equal(d))
}

func TestBlockMustEndInTerminator(t *testing.T) {
	c := NewContext()
	fn := NewDialect("hir")
	region := c.AddRegion(c.CreateOperation(fn.Define(NewOpDef("func", 0, 0, TraitIsolatedFromAbove)), nil, nil, SourceSpan{}))
	entry := c.CreateBlock()
	c.AppendBlock(region, entry)

	require.Error(t, VerifyBlock(entry))

	br := c.CreateOperation(brDef(), nil, nil, SourceSpan{})
	entry.AppendOp(br)
	require.NoError(t, VerifyBlock(entry))
}

func TestSuccessorsAndPredecessors(t *testing.T) {
	c := NewContext()
	fnDef := NewOpDef("func", 0, 0, TraitIsolatedFromAbove)
	region := c.AddRegion(c.CreateOperation(fnDef, nil, nil, SourceSpan{}))

	entry := c.CreateBlockWithParams(nil)
	target := c.CreateBlockWithParams([]*types.Type{types.I32()})
	c.AppendBlock(region, entry)
	c.AppendBlock(region, target)

	arg := c.AddParam(entry, types.I32())
	_ = arg
	const0 := c.CreateOperation(NewOpDef("const.i32", 0, 1), nil, []*types.Type{types.I32()}, SourceSpan{})
	entry.AppendOp(const0)

	br := c.CreateOperation(brDef(), nil, nil, SourceSpan{})
	c.AddSuccessor(br, target, []Value{const0.Result(0)})
	entry.AppendOp(br)

	require.Equal(t, 1, target.NumPreds())
	require.Equal(t, 1, br.NumSuccessors())
	require.True(t, br.SuccessorBlock(0).Equal(target))
	require.True(t, br.OperandGroup(br.Successor(0).ArgGroup)[0].Equal(const0.Result(0)))
}

func TestDuplicateSuccessorsRejectedByVerify(t *testing.T) {
	def := NewOpDef("condbr", 0, 0, TraitTerminator)
	def.HasSuccessors = true
	c := NewContext()
	region := c.AddRegion(c.CreateOperation(NewOpDef("func", 0, 0), nil, nil, SourceSpan{}))
	entry := c.CreateBlock()
	dup := c.CreateBlock()
	c.AppendBlock(region, entry)
	c.AppendBlock(region, dup)

	op := c.CreateOperation(def, nil, nil, SourceSpan{})
	c.AddSuccessor(op, dup, nil)
	c.AddSuccessor(op, dup, nil)
	require.Error(t, Verify(op))
}

func TestBorrowDisciplinePanicsOnDoubleExclusive(t *testing.T) {
	c := NewContext()
	b := c.CreateBlock()
	_, release := b.BorrowMut()
	defer release()
	require.Panics(t, func() {
		_, r2 := b.BorrowMut()
		r2()
	})
}
