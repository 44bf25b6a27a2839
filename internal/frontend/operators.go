package frontend

import (
	"fmt"

	"github.com/midenc-go/midenc/internal/hir/dialect"
	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/hir/types"
	"github.com/midenc-go/midenc/internal/session"
)

// translateBody walks fn.Body's operator stream starting at *cur (the
// entry block), appending HIR operations as it goes and threading *cur
// forward across block/loop/if boundaries. codeOffset is the code-section
// offset of the first byte of r's underlying buffer, used to resolve
// per-operator source spans.
func (ft *FuncTranslator) translateBody(cur *ir.Handle[ir.Block], r *reader, codeOffset uint64) error {
	for r.pos < len(r.data) {
		opOffset := codeOffset + uint64(r.pos)
		op, err := r.u8()
		if err != nil {
			return err
		}
		if err := ft.translateOp(cur, r, op, opOffset); err != nil {
			return err
		}
	}
	return nil
}

func (ft *FuncTranslator) fail(err error) error {
	ft.sess.Emit(session.Diagnostic{Severity: session.SeverityError, Message: err.Error()})
	return err
}

func (ft *FuncTranslator) appendTerm(blk ir.Handle[ir.Block], op ir.Handle[ir.Operation]) {
	blk.AppendOp(op)
}

func (ft *FuncTranslator) top() *ctrlFrame { return &ft.state.ctrl[len(ft.state.ctrl)-1] }

func (ft *FuncTranslator) frameAt(depth uint32) *ctrlFrame {
	return &ft.state.ctrl[len(ft.state.ctrl)-1-int(depth)]
}

// translateOp handles one decoded opcode, mutating the operand-value
// stack and appending ops to *cur.
func (ft *FuncTranslator) translateOp(cur *ir.Handle[ir.Block], r *reader, op byte, offset uint64) error {
	span := ft.span(offset)
	s := &ft.state

	if !s.reachable && op != opElse && op != opEnd && !isBlockOpener(op) {
		return ft.skipUnreachableOperand(r, op)
	}

	switch op {
	case opUnreachable:
		ft.appendTerm(*cur, dialect.Return(ft.c, nil, span))
		s.reachable = false

	case opNop:
		// no-op

	case opBlock, opLoop, opIf:
		return ft.translateBlockOpener(cur, r, op, span)

	case opElse:
		return ft.translateElse(cur, span)

	case opEnd:
		return ft.translateEnd(cur, span)

	case opBr:
		depth, err := r.u32()
		if err != nil {
			return err
		}
		ft.translateBr(*cur, depth, span)
		s.reachable = false

	case opBrIf:
		depth, err := r.u32()
		if err != nil {
			return err
		}
		cond := s.pop()
		ft.translateBrIf(cur, depth, cond, span)

	case opBrTable:
		return ft.translateBrTable(cur, r, span)

	case opReturn:
		ft.translateReturn(*cur, span)
		s.reachable = false

	case opCall:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		return ft.translateCall(cur, idx, span)

	case opDrop:
		s.pop()

	case opSelect:
		cond := s.pop()
		b := s.pop()
		a := s.pop()
		s.push(ft.emitSelect(cur, cond, a, b, span))

	case opLocalGet:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		s.push(ft.useVar(*cur, variable(idx)))

	case opLocalSet, opLocalTee:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		var v ir.Value
		if op == opLocalTee {
			v = s.peek()
		} else {
			v = s.pop()
		}
		ft.defineVar(*cur, variable(idx), v)
		if op == opLocalTee {
			// value remains on the stack
		}

	case opGlobalGet:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		v, err := ft.emitGlobalGet(*cur, idx, span)
		if err != nil {
			return err
		}
		s.push(v)

	case opGlobalSet:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		if err := ft.emitGlobalSet(*cur, idx, s.pop(), span); err != nil {
			return err
		}

	case opI32Const:
		v, err := r.sleb()
		if err != nil {
			return err
		}
		c := dialect.ConstI64(ft.c, types.I32(), v, span)
		(*cur).AppendOp(c)
		s.push(c.Result(0))

	case opI64Const:
		v, err := r.sleb()
		if err != nil {
			return err
		}
		c := dialect.ConstI64(ft.c, types.I64(), v, span)
		(*cur).AppendOp(c)
		s.push(c.Result(0))

	case opF32Const:
		if _, err := r.bytes(4); err != nil {
			return err
		}
		return fmt.Errorf("frontend: f32 is not representable in this backend's type system")

	case opF64Const:
		if _, err := r.bytes(8); err != nil {
			return err
		}
		return fmt.Errorf("frontend: f64 constants are not yet translated by this frontend")

	case opI32Load, opI64Load, opI32Load8S, opI32Load8U, opI32Load16S, opI32Load16U,
		opI64Load8S, opI64Load8U, opI64Load16S, opI64Load16U, opI64Load32S, opI64Load32U:
		return ft.translateLoad(cur, r, op, span)

	case opI32Store, opI64Store, opI32Store8, opI32Store16, opI64Store8, opI64Store16, opI64Store32:
		return ft.translateStore(cur, r, op, span)

	case opMemorySize, opMemoryGrow:
		if _, err := r.u8(); err != nil { // memory index, reserved byte
			return err
		}
		return fmt.Errorf("frontend: memory.size/memory.grow are not supported by this backend")

	case opI32Eqz, opI64Eqz:
		v := s.pop()
		ty := v.Type()
		zero := dialect.ConstI64(ft.c, ty, 0, span)
		(*cur).AppendOp(zero)
		cmp := dialect.ICmp(ft.c, dialect.ICmpEq, v, zero.Result(0), span)
		(*cur).AppendOp(cmp)
		s.push(cmp.Result(0))

	case opI32Eq, opI32Ne, opI32LtS, opI32LtU, opI32GtS, opI32GtU, opI32LeS, opI32LeU, opI32GeS, opI32GeU,
		opI64Eq, opI64Ne, opI64LtS, opI64LtU, opI64GtS, opI64GtU, opI64LeS, opI64LeU, opI64GeS, opI64GeU:
		rhs := s.pop()
		lhs := s.pop()
		cmp := dialect.ICmp(ft.c, icmpPredicateFor(op), lhs, rhs, span)
		(*cur).AppendOp(cmp)
		s.push(cmp.Result(0))

	case opI32Add, opI32Sub, opI32Mul, opI32DivS, opI32DivU, opI32RemS, opI32RemU,
		opI32And, opI32Or, opI32Xor, opI32Shl, opI32ShrS, opI32ShrU,
		opI64Add, opI64Sub, opI64Mul, opI64DivS, opI64DivU, opI64RemS, opI64RemU,
		opI64And, opI64Or, opI64Xor, opI64Shl, opI64ShrS, opI64ShrU:
		rhs := s.pop()
		lhs := s.pop()
		def := binaryOpDefFor(op)
		b := dialect.Binary(ft.c, def, lhs, rhs, lhs.Type(), span)
		(*cur).AppendOp(b)
		s.push(b.Result(0))

	case opI32WrapI64:
		v := s.pop()
		t := dialect.Trunc(ft.c, v, types.I32(), span)
		(*cur).AppendOp(t)
		s.push(t.Result(0))

	case opI64ExtendI32S:
		v := s.pop()
		e := dialect.SExt(ft.c, v, types.I64(), span)
		(*cur).AppendOp(e)
		s.push(e.Result(0))

	case opI64ExtendI32U:
		v := s.pop()
		e := dialect.ZExt(ft.c, v, types.I64(), span)
		(*cur).AppendOp(e)
		s.push(e.Result(0))

	default:
		return fmt.Errorf("frontend: unsupported opcode 0x%02x", op)
	}
	return nil
}

func isBlockOpener(op byte) bool {
	return op == opBlock || op == opLoop || op == opIf
}

// skipUnreachableOperand still needs to consume op's immediates so the
// byte cursor stays aligned, even though no HIR is emitted for it (per
// Wasm's validation rules, unreachable code must still decode cleanly).
func (ft *FuncTranslator) skipUnreachableOperand(r *reader, op byte) error {
	switch op {
	case opBr, opLocalGet, opLocalSet, opLocalTee, opGlobalGet, opGlobalSet, opCall:
		_, err := r.u32()
		return err
	case opBrIf:
		_, err := r.u32()
		return err
	case opI32Const, opI64Const:
		_, err := r.sleb()
		return err
	case opF32Const:
		_, err := r.bytes(4)
		return err
	case opF64Const:
		_, err := r.bytes(8)
		return err
	case opI32Load, opI64Load, opI32Load8S, opI32Load8U, opI32Load16S, opI32Load16U,
		opI64Load8S, opI64Load8U, opI64Load16S, opI64Load16U, opI64Load32S, opI64Load32U,
		opI32Store, opI64Store, opI32Store8, opI32Store16, opI64Store8, opI64Store16, opI64Store32:
		if _, err := r.uleb(); err != nil {
			return err
		}
		_, err := r.uleb()
		return err
	case opBrTable:
		n, err := r.uleb()
		if err != nil {
			return err
		}
		for i := uint64(0); i <= n; i++ {
			if _, err := r.u32(); err != nil {
				return err
			}
		}
		return nil
	case opMemorySize, opMemoryGrow:
		_, err := r.u8()
		return err
	default:
		return nil
	}
}

func icmpPredicateFor(op byte) dialect.ICmpPredicate {
	switch op {
	case opI32Eq, opI64Eq:
		return dialect.ICmpEq
	case opI32Ne, opI64Ne:
		return dialect.ICmpNe
	case opI32LtS, opI64LtS:
		return dialect.ICmpSlt
	case opI32LtU, opI64LtU:
		return dialect.ICmpUlt
	case opI32GtS, opI64GtS:
		return dialect.ICmpSgt
	case opI32GtU, opI64GtU:
		return dialect.ICmpUgt
	case opI32LeS, opI64LeS:
		return dialect.ICmpSle
	case opI32LeU, opI64LeU:
		return dialect.ICmpUle
	case opI32GeS, opI64GeS:
		return dialect.ICmpSge
	default:
		return dialect.ICmpUge
	}
}

func binaryOpDefFor(op byte) *ir.OpDef {
	switch op {
	case opI32Add, opI64Add:
		return dialect.OpAdd
	case opI32Sub, opI64Sub:
		return dialect.OpSub
	case opI32Mul, opI64Mul:
		return dialect.OpMul
	case opI32DivS, opI32DivU, opI64DivS, opI64DivU:
		return dialect.OpDiv
	case opI32RemS, opI32RemU, opI64RemS, opI64RemU:
		return dialect.OpRem
	case opI32And, opI64And:
		return dialect.OpAnd
	case opI32Or, opI64Or:
		return dialect.OpOr
	case opI32Xor, opI64Xor:
		return dialect.OpXor
	case opI32Shl, opI64Shl:
		return dialect.OpShl
	default:
		return dialect.OpShr
	}
}
