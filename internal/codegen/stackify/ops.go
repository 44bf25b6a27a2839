package stackify

import (
	"fmt"

	"github.com/midenc-go/midenc/internal/codegen/intexpand"
	"github.com/midenc-go/midenc/internal/codegen/solver"
	"github.com/midenc-go/midenc/internal/hir/dialect"
	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/hir/types"
	"github.com/midenc-go/midenc/internal/masm"
)

// limbCount returns the number of felt limbs a value of type t occupies on
// the simulated stack. Integers defer to types.Type.LimbCount; pointers
// and felts, neither of which satisfies IsInteger, always occupy exactly
// one limb in this backend's address-width and native-felt representation.
func limbCount(t *types.Type) (int, error) {
	switch t.Kind() {
	case types.KindPtr, types.KindFelt, types.KindI1:
		return 1, nil
	default:
		if t.IsInteger() {
			return t.LimbCount(), nil
		}
		return 0, fmt.Errorf("stackify: type %s has no stack representation in this backend", t)
	}
}

// maxDirectIndex is the highest stack position Miden's dup/swap/movup/movdn
// instructions can address directly (the VM only indexes 16 positions from
// the top). A solved placement that needs to reach deeper than this would
// require spilling the intervening values to local memory first, a
// mechanism this backend does not implement, so it is reported as a
// translation failure instead of emitting an out-of-range instruction.
const maxDirectIndex = 15

// actionOps converts a solved placement's recorded actions into the
// equivalent masm stack-manipulation instructions, one-for-one.
func actionOps(actions []solver.Action) ([]masm.Op, error) {
	ops := make([]masm.Op, 0, len(actions))
	for _, a := range actions {
		if a.Index > maxDirectIndex {
			return nil, fmt.Errorf("stackify: operand placement needs to reach stack position %d, beyond this backend's direct-addressing limit of %d", a.Index, maxDirectIndex)
		}
		switch a.Kind {
		case solver.ActionDup:
			ops = append(ops, masm.Dup{Index: uint8(a.Index)})
		case solver.ActionSwap:
			ops = append(ops, masm.Swap{Index: uint8(a.Index)})
		case solver.ActionMovup:
			ops = append(ops, masm.Movup{Index: uint8(a.Index)})
		case solver.ActionMovdn:
			ops = append(ops, masm.Movdn{Index: uint8(a.Index)})
		case solver.ActionDrop:
			ops = append(ops, masm.Drop{})
		}
	}
	return ops, nil
}

// isCopy reports whether v must be preserved rather than consumed at this
// use: either it escapes the block entirely (live-out, per the liveness
// analysis), or it has another use later in the same block's program
// order. This is deliberately conservative: a value with no further use
// is always safe to consume, but nothing forces a tactic to consume it, so
// over-marking a dead value as a copy only costs an extra dup, never
// correctness.
func (fs *funcState) isCopy(blk ir.Handle[ir.Block], afterOp ir.Handle[ir.Operation], v ir.Value) bool {
	if fs.liveness.IsLiveOut(blk, v) {
		return true
	}
	found := false
	passedTarget := false
	blk.ForEachOp(func(op ir.Handle[ir.Operation]) {
		if found {
			return
		}
		if op.Equal(afterOp) {
			passedTarget = true
			return
		}
		if !passedTarget {
			return
		}
		for i := 0; i < op.NumOperands(); i++ {
			if op.Operand(i).Equal(v) {
				found = true
			}
		}
		for i := 0; i < op.NumSuccessors(); i++ {
			for _, a := range op.OperandGroup(op.Successor(i).ArgGroup) {
				if a.Equal(v) {
					found = true
				}
			}
		}
	})
	return found
}

// emitOp lowers a single non-terminator HIR operation, returning the masm
// ops it expands to and the simulated stack after it has run.
func (fs *funcState) emitOp(blk ir.Handle[ir.Block], op ir.Handle[ir.Operation], simStack *solver.Stack) ([]masm.Op, *solver.Stack, error) {
	name := op.OpName().Mnemonic

	// Passthrough casts: same bits, different type, no stack effect at all.
	if name == "inttoptr" || name == "ptrtoint" || name == "bitcast" {
		fs.alias[op.Result(0).ID()] = fs.canonical(op.Operand(0))
		return nil, simStack, nil
	}

	if name == "const" {
		return fs.emitConst(op, simStack)
	}

	operands := op.Operands()
	for i, v := range operands {
		operands[i] = fs.canonical(v)
	}

	switch name {
	case "add", "sub", "mul", "div", "rem", "and", "or", "xor", "shl", "shr":
		return fs.emitBinary(blk, op, name, operands, simStack)
	case "icmp":
		return fs.emitICmp(blk, op, operands, simStack)
	case "load":
		return fs.emitLoad(op, operands, simStack)
	case "store":
		return fs.emitStore(blk, op, operands, simStack)
	case "zext", "sext", "trunc":
		return fs.emitConvert(blk, op, name, operands, simStack)
	case "call":
		return fs.emitCall(blk, op, operands, simStack)
	default:
		return nil, nil, fmt.Errorf("stackify: %q is not supported by this backend", name)
	}
}

// canonical follows the passthrough-cast alias chain to the underlying
// value that actually occupies a stack slot.
func (fs *funcState) canonical(v ir.Value) ir.Value {
	for {
		alias, ok := fs.alias[v.ID()]
		if !ok {
			return v
		}
		v = alias
	}
}

func (fs *funcState) emitConst(op ir.Handle[ir.Operation], simStack *solver.Stack) ([]masm.Op, *solver.Stack, error) {
	result := op.Result(0)
	n, err := limbCount(result.Type())
	if err != nil {
		return nil, nil, err
	}
	attr, ok := op.Attr("value")
	if !ok {
		return nil, nil, fmt.Errorf("stackify: const op missing \"value\" attribute")
	}
	ia, ok := attr.(ir.IntAttr)
	if !ok {
		return nil, nil, fmt.Errorf("stackify: const op's \"value\" attribute is not an integer")
	}
	uv := uint64(ia.Value)

	var ops []masm.Op
	next := simStack.Clone()
	for i := n - 1; i >= 0; i-- {
		limb := masm.Felt(uint32(uv >> (32 * uint(i))))
		ops = append(ops, masm.Push{Value: limb})
		next.Push(limbValue(result, i))
	}
	return ops, next, nil
}

// emitBinary arranges a binary op's two operands and expands it to the
// matching masm primitive (or, for sub-32-bit add, to a checked-addition
// sequence guarding against silent overflow into the wider u32 instruction).
func (fs *funcState) emitBinary(blk ir.Handle[ir.Block], op ir.Handle[ir.Operation], name string, operands []ir.Value, simStack *solver.Stack) ([]masm.Op, *solver.Stack, error) {
	resultTy := op.Result(0).Type()
	n, err := limbCount(operands[0].Type())
	if err != nil {
		return nil, nil, err
	}

	rearrangeOps, next, err := fs.placeOperands(blk, op, operands, simStack)
	if err != nil {
		return nil, nil, err
	}

	var semantic []masm.Op
	bits := int(resultTy.SizeInBits())
	switch n {
	case 1:
		semantic, err = binaryOpsU32(name, bits)
	case 2:
		semantic, err = binaryOpsU64(name)
	default:
		err = fmt.Errorf("stackify: %q on %d-limb operands is not supported by this backend", name, n)
	}
	if err != nil {
		return nil, nil, err
	}

	for i := 0; i < 2*n; i++ {
		next.Drop()
	}
	result := op.Result(0)
	for i := limbsNeeded(resultTy) - 1; i >= 0; i-- {
		next.Push(limbValue(result, i))
	}
	return append(rearrangeOps, semantic...), next, nil
}

func limbsNeeded(t *types.Type) int {
	n, err := limbCount(t)
	if err != nil {
		return 1
	}
	return n
}

func binaryOpsU32(name string, bits int) ([]masm.Op, error) {
	var base masm.Op
	checkedAdd := false
	switch name {
	case "add":
		if bits < 32 {
			checkedAdd = true
		} else {
			base = masm.U32Add{}
		}
	case "sub":
		base = masm.U32Sub{}
	case "mul":
		base = masm.U32Mul{}
	case "div":
		base = masm.U32Div{}
	case "rem":
		base = masm.U32Mod{}
	case "and":
		base = masm.U32And{}
	case "or":
		base = masm.U32Or{}
	case "xor":
		base = masm.U32Xor{}
	case "shl":
		base = masm.U32Shl{}
	case "shr":
		base = masm.U32Shr{}
	default:
		return nil, fmt.Errorf("stackify: unknown binary op %q", name)
	}
	if checkedAdd {
		return intexpand.CheckedAddSmallInt(bits), nil
	}
	ops := []masm.Op{base}
	if bits < 32 && name != "and" && name != "or" && name != "xor" {
		mask := uint32(1)<<uint(bits) - 1
		ops = append(ops, masm.Push{Value: masm.Felt(mask)}, masm.U32And{})
	}
	return ops, nil
}

func binaryOpsU64(name string) ([]masm.Op, error) {
	switch name {
	case "add":
		return []masm.Op{masm.U64Add{}}, nil
	case "sub":
		return []masm.Op{masm.U64Sub{}}, nil
	case "mul":
		return []masm.Op{masm.U64Mul{}}, nil
	default:
		return nil, fmt.Errorf("stackify: 64-bit %q is not supported by this backend", name)
	}
}

func (fs *funcState) emitICmp(blk ir.Handle[ir.Block], op ir.Handle[ir.Operation], operands []ir.Value, simStack *solver.Stack) ([]masm.Op, *solver.Stack, error) {
	attr, ok := op.Attr("predicate")
	if !ok {
		return nil, nil, fmt.Errorf("stackify: icmp op missing \"predicate\" attribute")
	}
	ua, ok := attr.(ir.UintAttr)
	if !ok {
		return nil, nil, fmt.Errorf("stackify: icmp op's \"predicate\" attribute is not an integer")
	}
	pred := dialect.ICmpPredicate(ua.Value)

	n, err := limbCount(operands[0].Type())
	if err != nil {
		return nil, nil, err
	}

	rearrangeOps, next, err := fs.placeOperands(blk, op, operands, simStack)
	if err != nil {
		return nil, nil, err
	}

	semantic, err := cmpSequence(pred, n)
	if err != nil {
		return nil, nil, err
	}

	for i := 0; i < 2*n; i++ {
		next.Drop()
	}
	result := op.Result(0)
	next.Push(limbValue(result, 0))
	return append(rearrangeOps, semantic...), next, nil
}

func cmpSequence(pred dialect.ICmpPredicate, limbs int) ([]masm.Op, error) {
	negate := pred == dialect.ICmpNe
	base := pred
	if negate {
		base = dialect.ICmpEq
	}

	if base == dialect.ICmpEq {
		var ops []masm.Op
		switch limbs {
		case 1:
			ops = []masm.Op{masm.Eq{}}
		case 2:
			ops = intexpand.EqI64()
		case 4:
			ops = intexpand.EqI128()
		default:
			return nil, fmt.Errorf("stackify: equality on %d-limb operands is not supported by this backend", limbs)
		}
		if negate {
			ops = append(ops, masm.Push{Value: 1}, masm.U32Xor{})
		}
		return ops, nil
	}

	if limbs != 1 {
		return nil, fmt.Errorf("stackify: ordered comparison on %d-limb operands is not supported by this backend", limbs)
	}
	switch base {
	case dialect.ICmpUlt, dialect.ICmpSlt:
		return []masm.Op{masm.U32Lt{}}, nil
	case dialect.ICmpUle, dialect.ICmpSle:
		return []masm.Op{masm.U32Lte{}}, nil
	case dialect.ICmpUgt, dialect.ICmpSgt:
		return []masm.Op{masm.U32Gt{}}, nil
	case dialect.ICmpUge, dialect.ICmpSge:
		return []masm.Op{masm.U32Gte{}}, nil
	default:
		return nil, fmt.Errorf("stackify: unsupported icmp predicate")
	}
}

// staticAddress resolves a pointer value to a compile-time-known memory
// address by walking back through an inttoptr(const) chain. Dynamic
// addresses computed at runtime are not supported by this backend's memory
// model, which only emits masm's immediate-address mem_load/mem_store.
func staticAddress(ptr ir.Value) (uint32, bool) {
	op, ok := ptr.DefiningOp()
	if !ok || op.OpName().Mnemonic != "inttoptr" {
		return 0, false
	}
	inner := op.Operand(0)
	iop, ok := inner.DefiningOp()
	if !ok || iop.OpName().Mnemonic != "const" {
		return 0, false
	}
	attr, ok := iop.Attr("value")
	if !ok {
		return 0, false
	}
	ia, ok := attr.(ir.IntAttr)
	if !ok {
		return 0, false
	}
	return uint32(ia.Value), true
}

func (fs *funcState) emitLoad(op ir.Handle[ir.Operation], operands []ir.Value, simStack *solver.Stack) ([]masm.Op, *solver.Stack, error) {
	addr, ok := staticAddress(operands[0])
	if !ok {
		return nil, nil, fmt.Errorf("stackify: load from a dynamically-computed address is not supported by this backend")
	}
	result := op.Result(0)
	n, err := limbCount(result.Type())
	if err != nil {
		return nil, nil, err
	}
	if n != 1 {
		return nil, nil, fmt.Errorf("stackify: load of a %d-limb value is not supported by this backend", n)
	}
	next := simStack.Clone()
	next.Push(limbValue(result, 0))
	return []masm.Op{masm.MemLoad{Addr: addr}}, next, nil
}

func (fs *funcState) emitStore(blk ir.Handle[ir.Block], op ir.Handle[ir.Operation], operands []ir.Value, simStack *solver.Stack) ([]masm.Op, *solver.Stack, error) {
	addr, ok := staticAddress(operands[0])
	if !ok {
		return nil, nil, fmt.Errorf("stackify: store to a dynamically-computed address is not supported by this backend")
	}
	value := operands[1]
	n, err := limbCount(value.Type())
	if err != nil {
		return nil, nil, err
	}
	if n != 1 {
		return nil, nil, fmt.Errorf("stackify: store of a %d-limb value is not supported by this backend", n)
	}

	expected := []solver.StackValue{limbValue(value, 0)}
	copies := map[solver.StackValue]bool{limbValue(value, 0): fs.isCopy(blk, op, value)}
	res, err := solver.Solve(solver.Input{Stack: simStack, Expected: expected, Copies: copies}, fs.e.portfolio)
	if err != nil {
		return nil, nil, fmt.Errorf("stackify: arranging operand for store: %w", err)
	}
	ops, err := actionOps(res.Actions)
	if err != nil {
		return nil, nil, err
	}
	next := res.FinalStack
	next.Drop()
	return append(ops, masm.MemStore{Addr: addr}), next, nil
}

// sextWithinLimb sign-extends a value from fromBits to toBits when both
// widths share the same felt (toBits <= 32): if the sign bit at fromBits-1
// is set, it ORs in the mask of bits [fromBits, toBits).
func sextWithinLimb(fromBits, toBits int) []masm.Op {
	if toBits <= fromBits {
		return nil
	}
	signBit := uint32(1) << uint(fromBits-1)
	highMask := (uint32(1)<<uint(toBits) - 1) &^ (uint32(1)<<uint(fromBits) - 1)
	return []masm.Op{
		masm.Dup{Index: 0},
		masm.Push{Value: masm.Felt(signBit)},
		masm.U32And{},
		masm.Push{Value: 0},
		masm.U32Gt{},
		masm.If{
			Then: blockOf([]masm.Op{masm.Push{Value: masm.Felt(highMask)}, masm.U32Or{}}),
			Else: blockOf(nil),
		},
	}
}

func (fs *funcState) emitConvert(blk ir.Handle[ir.Block], op ir.Handle[ir.Operation], name string, operands []ir.Value, simStack *solver.Stack) ([]masm.Op, *solver.Stack, error) {
	operand := operands[0]
	result := op.Result(0)
	fromN, err := limbCount(operand.Type())
	if err != nil {
		return nil, nil, err
	}
	toN, err := limbCount(result.Type())
	if err != nil {
		return nil, nil, err
	}

	expected := limbsOf(operand, fromN)
	copies := map[solver.StackValue]bool{}
	isCopy := fs.isCopy(blk, op, operand)
	for _, v := range expected {
		copies[v] = isCopy
	}
	res, err := solver.Solve(solver.Input{Stack: simStack, Expected: expected, Copies: copies}, fs.e.portfolio)
	if err != nil {
		return nil, nil, fmt.Errorf("stackify: arranging operand for %s: %w", name, err)
	}
	ops, err := actionOps(res.Actions)
	if err != nil {
		return nil, nil, err
	}
	next := res.FinalStack

	fromBits := int(operand.Type().SizeInBits())
	toBits := int(result.Type().SizeInBits())

	var semantic []masm.Op
	switch {
	case name == "trunc" || toN < fromN:
		semantic = intexpand.Narrow(fromN, toN)
		if toN == fromN && toBits < 32 {
			mask := uint32(1)<<uint(toBits) - 1
			semantic = append(semantic, masm.Push{Value: masm.Felt(mask)}, masm.U32And{})
		}
	case name == "sext" && toN == fromN:
		// Widening within a single felt (e.g. i8 -> i16): no new limb is
		// added, but the bits between fromBits and toBits must still be
		// sign-propagated, unlike the cross-limb case intexpand.Sext
		// handles by pushing whole extra limbs.
		semantic = sextWithinLimb(fromBits, toBits)
	case name == "sext":
		semantic = intexpand.Sext(fromBits, toBits)
	case name == "zext":
		semantic = intexpand.Zext(fromBits, toBits)
	}

	for i := 0; i < fromN; i++ {
		next.Drop()
	}
	for i := toN - 1; i >= 0; i-- {
		next.Push(limbValue(result, i))
	}
	return append(ops, semantic...), next, nil
}

func (fs *funcState) emitCall(blk ir.Handle[ir.Block], op ir.Handle[ir.Operation], operands []ir.Value, simStack *solver.Stack) ([]masm.Op, *solver.Stack, error) {
	attr, ok := op.Attr("callee")
	if !ok {
		return nil, nil, fmt.Errorf("stackify: call op missing \"callee\" attribute")
	}
	sym, ok := attr.(ir.SymbolAttr)
	if !ok {
		return nil, nil, fmt.Errorf("stackify: call op's \"callee\" attribute is not a symbol")
	}

	ops, next, err := fs.placeOperands(blk, op, operands, simStack)
	if err != nil {
		return nil, nil, err
	}
	totalOperandLimbs := 0
	for _, v := range operands {
		n, err := limbCount(v.Type())
		if err != nil {
			return nil, nil, err
		}
		totalOperandLimbs += n
	}
	for i := 0; i < totalOperandLimbs; i++ {
		next.Drop()
	}

	ops = append(ops, masm.Call{Target: masm.FunctionIdent{Module: fs.e.moduleName, Name: sym.Value}})

	for i := op.NumResults() - 1; i >= 0; i-- {
		result := op.Result(i)
		n, err := limbCount(result.Type())
		if err != nil {
			return nil, nil, err
		}
		for j := n - 1; j >= 0; j-- {
			next.Push(limbValue(result, j))
		}
	}
	return ops, next, nil
}

// placeOperands arranges operands on top of simStack in push-window order
// (last operand ends up topmost), returning the rearrangement ops and the
// resulting stack with that window still present on top.
func (fs *funcState) placeOperands(blk ir.Handle[ir.Block], op ir.Handle[ir.Operation], operands []ir.Value, simStack *solver.Stack) ([]masm.Op, *solver.Stack, error) {
	limbCounts := make([]int, len(operands))
	for i, v := range operands {
		n, err := limbCount(v.Type())
		if err != nil {
			return nil, nil, err
		}
		limbCounts[i] = n
	}
	expected := pushWindow(operands, limbCounts)
	copies := map[solver.StackValue]bool{}
	for i, v := range operands {
		c := fs.isCopy(blk, op, v)
		for _, lv := range limbsOf(v, limbCounts[i]) {
			copies[lv] = c
		}
	}
	res, err := solver.Solve(solver.Input{Stack: simStack, Expected: expected, Copies: copies}, fs.e.portfolio)
	if err != nil {
		return nil, nil, fmt.Errorf("stackify: arranging operands: %w", err)
	}
	ops, err := actionOps(res.Actions)
	if err != nil {
		return nil, nil, err
	}
	return ops, res.FinalStack, nil
}
