// Package dialect defines the "hir" core dialect: arithmetic, memory,
// control-flow, call, inline-asm and global-value operations. Each op is
// registered as an ir.OpDef with the traits it
// needs, and exposed through a small typed constructor so frontend and
// transform code never has to thread raw OperationName strings around.
package dialect

import (
	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/hir/types"
)

// Core is the "hir" dialect shared by every HIR-producing component.
var Core = ir.NewDialect("hir")

// ICmpPredicate enumerates integer comparison kinds for the icmp op.
type ICmpPredicate uint8

const (
	ICmpEq ICmpPredicate = iota
	ICmpNe
	ICmpSlt
	ICmpSle
	ICmpSgt
	ICmpSge
	ICmpUlt
	ICmpUle
	ICmpUgt
	ICmpUge
)

var (
	OpAdd    = Core.Define(ir.NewOpDef("add", 2, 1))
	OpSub    = Core.Define(ir.NewOpDef("sub", 2, 1))
	OpMul    = Core.Define(ir.NewOpDef("mul", 2, 1))
	OpDiv    = Core.Define(ir.NewOpDef("div", 2, 1))
	OpRem    = Core.Define(ir.NewOpDef("rem", 2, 1))
	OpAnd    = Core.Define(ir.NewOpDef("and", 2, 1))
	OpOr     = Core.Define(ir.NewOpDef("or", 2, 1))
	OpXor    = Core.Define(ir.NewOpDef("xor", 2, 1))
	OpShl    = Core.Define(ir.NewOpDef("shl", 2, 1))
	OpShr    = Core.Define(ir.NewOpDef("shr", 2, 1))
	OpICmp   = Core.Define(ir.NewOpDef("icmp", 2, 1))
	OpConst  = Core.Define(ir.NewOpDef("const", 0, 1))

	OpLoad     = Core.Define(ir.NewOpDef("load", 1, 1))
	OpStore    = Core.Define(ir.NewOpDef("store", 2, 0))
	OpIntToPtr = Core.Define(ir.NewOpDef("inttoptr", 1, 1))
	OpPtrToInt = Core.Define(ir.NewOpDef("ptrtoint", 1, 1))
	OpAlloca   = Core.Define(ir.NewOpDef("alloca", 0, 1))
	OpMemCopy  = Core.Define(ir.NewOpDef("memcpy", 3, 0))

	OpZExt    = Core.Define(ir.NewOpDef("zext", 1, 1))
	OpSExt    = Core.Define(ir.NewOpDef("sext", 1, 1))
	OpTrunc   = Core.Define(ir.NewOpDef("trunc", 1, 1))
	OpBitcast = Core.Define(ir.NewOpDef("bitcast", 1, 1))

	OpGlobalRef = Core.Define(ir.NewOpDef("globalref", 0, 1))
	OpFuncRef   = Core.Define(ir.NewOpDef("funcref", 0, 1))

	OpInlineAsm = Core.Define(ir.NewOpDef("inlineasm", -1, -1))

	OpReturn = Core.Define(ir.NewOpDef("return", -1, 0, ir.TraitTerminator, ir.TraitReturnLike))
	opBr     = Core.Define(withSuccessors(ir.NewOpDef("br", 0, 0, ir.TraitTerminator)))
	opCondBr = Core.Define(withSuccessors(ir.NewOpDef("condbr", 1, 0, ir.TraitTerminator)))
	opSwitch = Core.Define(withSuccessors(ir.NewOpDef("switch", 1, 0, ir.TraitTerminator)))

	OpCall         = Core.Define(ir.NewOpDef("call", -1, -1, ir.TraitCallLike))
	OpCallIndirect = Core.Define(ir.NewOpDef("call_indirect", -1, -1, ir.TraitCallLike))
)

// IsUnconditionalBranch reports whether op is an unconditional "br",
// i.e. its only control-flow decision is which single successor to take.
func IsUnconditionalBranch(op ir.Handle[ir.Operation]) bool {
	if !op.Valid() {
		return false
	}
	return op.NumSuccessors() == 1 && op.NumOperands() == 0
}

func withSuccessors(def *ir.OpDef) *ir.OpDef {
	def.HasSuccessors = true
	return def
}

// Br builds an unconditional branch from the current insertion point to
// target, passing args as target's block-argument values.
func Br(c *ir.Context, target ir.Handle[ir.Block], args []ir.Value, span ir.SourceSpan) ir.Handle[ir.Operation] {
	op := c.CreateOperation(opBr, nil, nil, span)
	c.AddSuccessor(op, target, args)
	return op
}

// CondBr builds a two-way conditional branch: to `then` if cond is
// non-zero, else to `els`.
func CondBr(c *ir.Context, cond ir.Value, then ir.Handle[ir.Block], thenArgs []ir.Value, els ir.Handle[ir.Block], elsArgs []ir.Value, span ir.SourceSpan) ir.Handle[ir.Operation] {
	op := c.CreateOperation(opCondBr, []ir.Value{cond}, nil, span)
	c.AddSuccessor(op, then, thenArgs)
	c.AddSuccessor(op, els, elsArgs)
	return op
}

// Switch builds a multi-way branch over the integer value `index`, with one
// successor per case plus a default.
func Switch(c *ir.Context, index ir.Value, cases []ir.Handle[ir.Block], caseArgs [][]ir.Value, def ir.Handle[ir.Block], defArgs []ir.Value, span ir.SourceSpan) ir.Handle[ir.Operation] {
	op := c.CreateOperation(opSwitch, []ir.Value{index}, nil, span)
	for i, blk := range cases {
		c.AddSuccessor(op, blk, caseArgs[i])
	}
	c.AddSuccessor(op, def, defArgs)
	return op
}

// Binary builds a two-operand, single-result arithmetic or bitwise op of
// the given kind.
func Binary(c *ir.Context, def *ir.OpDef, lhs, rhs ir.Value, resultTy *types.Type, span ir.SourceSpan) ir.Handle[ir.Operation] {
	return c.CreateOperation(def, []ir.Value{lhs, rhs}, []*types.Type{resultTy}, span)
}

// ConstI64 builds an integer constant of the given type, carrying its value
// in the "value" attribute.
func ConstI64(c *ir.Context, ty *types.Type, value int64, span ir.SourceSpan) ir.Handle[ir.Operation] {
	op := c.CreateOperation(OpConst, nil, []*types.Type{ty}, span)
	op.SetAttr("value", ir.IntAttr{Value: value})
	return op
}

// Load builds a typed memory load through a pointer value.
func Load(c *ir.Context, ptr ir.Value, resultTy *types.Type, span ir.SourceSpan) ir.Handle[ir.Operation] {
	return c.CreateOperation(OpLoad, []ir.Value{ptr}, []*types.Type{resultTy}, span)
}

// Store builds a memory store of value through a pointer.
func Store(c *ir.Context, ptr, value ir.Value, span ir.SourceSpan) ir.Handle[ir.Operation] {
	return c.CreateOperation(OpStore, []ir.Value{ptr, value}, nil, span)
}

// IntToPtr builds a pointer-cast from an integer value.
func IntToPtr(c *ir.Context, v ir.Value, pointee *types.Type, space uint32, span ir.SourceSpan) ir.Handle[ir.Operation] {
	return c.CreateOperation(OpIntToPtr, []ir.Value{v}, []*types.Type{types.Ptr(pointee, space)}, span)
}

// ZExt, SExt and Trunc build integer width-conversion ops.
func ZExt(c *ir.Context, v ir.Value, to *types.Type, span ir.SourceSpan) ir.Handle[ir.Operation] {
	return c.CreateOperation(OpZExt, []ir.Value{v}, []*types.Type{to}, span)
}

func SExt(c *ir.Context, v ir.Value, to *types.Type, span ir.SourceSpan) ir.Handle[ir.Operation] {
	return c.CreateOperation(OpSExt, []ir.Value{v}, []*types.Type{to}, span)
}

func Trunc(c *ir.Context, v ir.Value, to *types.Type, span ir.SourceSpan) ir.Handle[ir.Operation] {
	return c.CreateOperation(OpTrunc, []ir.Value{v}, []*types.Type{to}, span)
}

// Return builds a function-return terminator.
func Return(c *ir.Context, results []ir.Value, span ir.SourceSpan) ir.Handle[ir.Operation] {
	return c.CreateOperation(OpReturn, results, nil, span)
}

// Call builds a direct call to a function symbol, recorded in the "callee"
// attribute, with the given argument values and result types.
func Call(c *ir.Context, callee string, args []ir.Value, resultTypes []*types.Type, span ir.SourceSpan) ir.Handle[ir.Operation] {
	op := c.CreateOperation(OpCall, args, resultTypes, span)
	op.SetAttr("callee", ir.SymbolAttr{Value: callee})
	return op
}

// ICmp builds an integer comparison producing an i1 result.
func ICmp(c *ir.Context, pred ICmpPredicate, lhs, rhs ir.Value, span ir.SourceSpan) ir.Handle[ir.Operation] {
	op := c.CreateOperation(OpICmp, []ir.Value{lhs, rhs}, []*types.Type{types.I1()}, span)
	op.SetAttr("predicate", ir.UintAttr{Value: uint64(pred)})
	return op
}
