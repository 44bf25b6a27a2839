package frontend

import (
	"fmt"

	"github.com/midenc-go/midenc/internal/hir/dialect"
	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/hir/types"
)

// decodeMemArg reads a load/store instruction's memarg immediate
// (alignment hint, then byte offset).
func decodeMemArg(r *reader) (align, offset uint64, err error) {
	if align, err = r.uleb(); err != nil {
		return
	}
	offset, err = r.uleb()
	return
}

type loadShape struct {
	memTy    *types.Type
	resultTy *types.Type
	signed   bool
}

func loadShapeFor(op byte) (loadShape, error) {
	switch op {
	case opI32Load:
		return loadShape{types.I32(), types.I32(), false}, nil
	case opI64Load:
		return loadShape{types.I64(), types.I64(), false}, nil
	case opI32Load8S:
		return loadShape{types.I8(), types.I32(), true}, nil
	case opI32Load8U:
		return loadShape{types.U8(), types.I32(), false}, nil
	case opI32Load16S:
		return loadShape{types.I16(), types.I32(), true}, nil
	case opI32Load16U:
		return loadShape{types.U16(), types.I32(), false}, nil
	case opI64Load8S:
		return loadShape{types.I8(), types.I64(), true}, nil
	case opI64Load8U:
		return loadShape{types.U8(), types.I64(), false}, nil
	case opI64Load16S:
		return loadShape{types.I16(), types.I64(), true}, nil
	case opI64Load16U:
		return loadShape{types.U16(), types.I64(), false}, nil
	case opI64Load32S:
		return loadShape{types.I32(), types.I64(), true}, nil
	case opI64Load32U:
		return loadShape{types.U32(), types.I64(), false}, nil
	default:
		return loadShape{}, fmt.Errorf("frontend: unrecognized load opcode 0x%02x", op)
	}
}

func storeMemType(op byte) (*types.Type, error) {
	switch op {
	case opI32Store:
		return types.I32(), nil
	case opI64Store:
		return types.I64(), nil
	case opI32Store8, opI64Store8:
		return types.I8(), nil
	case opI32Store16, opI64Store16:
		return types.I16(), nil
	case opI64Store32:
		return types.I32(), nil
	default:
		return nil, fmt.Errorf("frontend: unrecognized store opcode 0x%02x", op)
	}
}

// effectiveAddress folds a load/store's constant byte offset into the
// dynamic base address popped off the operand stack; when offset is zero
// (the common case) the base value is reused verbatim with no extra op.
func (ft *FuncTranslator) effectiveAddress(cur *ir.Handle[ir.Block], base ir.Value, offset uint64, span ir.SourceSpan) ir.Value {
	if offset == 0 {
		return base
	}
	c := dialect.ConstI64(ft.c, types.I32(), int64(offset), span)
	(*cur).AppendOp(c)
	add := dialect.Binary(ft.c, dialect.OpAdd, base, c.Result(0), types.I32(), span)
	(*cur).AppendOp(add)
	return add.Result(0)
}

// translateLoad lowers a Wasm load instruction to `inttoptr` over the
// effective address, a `load` of the (possibly narrower) memory type, and
// a zext/sext up to the Wasm result width when they differ.
func (ft *FuncTranslator) translateLoad(cur *ir.Handle[ir.Block], r *reader, op byte, span ir.SourceSpan) error {
	_, offset, err := decodeMemArg(r)
	if err != nil {
		return err
	}
	shape, err := loadShapeFor(op)
	if err != nil {
		return err
	}
	base := ft.state.pop()
	addr := ft.effectiveAddress(cur, base, offset, span)

	ptr := dialect.IntToPtr(ft.c, addr, shape.memTy, 0, span)
	(*cur).AppendOp(ptr)
	load := dialect.Load(ft.c, ptr.Result(0), shape.memTy, span)
	(*cur).AppendOp(load)

	result := load.Result(0)
	if !shape.memTy.Equal(shape.resultTy) {
		var ext ir.Handle[ir.Operation]
		if shape.signed {
			ext = dialect.SExt(ft.c, result, shape.resultTy, span)
		} else {
			ext = dialect.ZExt(ft.c, result, shape.resultTy, span)
		}
		(*cur).AppendOp(ext)
		result = ext.Result(0)
	}
	ft.state.push(result)
	return nil
}

// translateStore lowers a Wasm store instruction: truncate the value to
// the memory type first (a no-op splice when they already match), then
// `inttoptr` the effective address and `store`.
func (ft *FuncTranslator) translateStore(cur *ir.Handle[ir.Block], r *reader, op byte, span ir.SourceSpan) error {
	_, offset, err := decodeMemArg(r)
	if err != nil {
		return err
	}
	memTy, err := storeMemType(op)
	if err != nil {
		return err
	}
	value := ft.state.pop()
	base := ft.state.pop()
	addr := ft.effectiveAddress(cur, base, offset, span)

	stored := value
	if !memTy.Equal(value.Type()) {
		trunc := dialect.Trunc(ft.c, value, memTy, span)
		(*cur).AppendOp(trunc)
		stored = trunc.Result(0)
	}

	ptr := dialect.IntToPtr(ft.c, addr, memTy, 0, span)
	(*cur).AppendOp(ptr)
	(*cur).AppendOp(dialect.Store(ft.c, ptr.Result(0), stored, span))
	return nil
}
