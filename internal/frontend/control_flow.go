package frontend

import (
	"fmt"

	"github.com/midenc-go/midenc/internal/hir/dialect"
	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/hir/types"
)

func blockResultHIR(bt blockType) []*types.Type {
	if !bt.HasRes {
		return nil
	}
	ty, err := bt.Result.ToHIR()
	if err != nil {
		return nil
	}
	return []*types.Type{ty}
}

// translateBlockOpener handles `block`, `loop`, and `if`, each of which
// pushes a new ctrlFrame and either continues in *cur (block), redirects
// *cur to a fresh unsealed header (loop, sealed once its matching `end`
// is reached and every back-edge is known), or redirects *cur to a fresh
// "then" block guarded by a CondBr (if).
func (ft *FuncTranslator) translateBlockOpener(cur *ir.Handle[ir.Block], r *reader, op byte, span ir.SourceSpan) error {
	bt, err := r.blockType()
	if err != nil {
		return err
	}
	resultTys := blockResultHIR(bt)

	switch op {
	case opBlock:
		exit := ft.c.CreateBlockWithParams(resultTys)
		ft.c.AppendBlock(ft.region, exit)
		ft.state.ctrl = append(ft.state.ctrl, ctrlFrame{
			kind: ctrlBlock, bt: bt, branchTarget: exit, exitBlock: exit,
			stackHeight: len(ft.state.stack),
		})

	case opLoop:
		header := ft.c.CreateBlock()
		ft.c.AppendBlock(ft.region, header)
		(*cur).AppendOp(dialect.Br(ft.c, header, nil, span))
		exit := ft.c.CreateBlockWithParams(resultTys)
		ft.c.AppendBlock(ft.region, exit)
		ft.state.ctrl = append(ft.state.ctrl, ctrlFrame{
			kind: ctrlLoop, bt: bt, branchTarget: header, exitBlock: exit,
			stackHeight: len(ft.state.stack),
		})
		*cur = header

	case opIf:
		cond := ft.state.pop()
		thenBlk := ft.c.CreateBlock()
		elseBlk := ft.c.CreateBlock()
		ft.c.AppendBlock(ft.region, thenBlk)
		ft.c.AppendBlock(ft.region, elseBlk)
		(*cur).AppendOp(dialect.CondBr(ft.c, cond, thenBlk, nil, elseBlk, nil, span))
		ft.seal(thenBlk)
		ft.seal(elseBlk)
		exit := ft.c.CreateBlockWithParams(resultTys)
		ft.c.AppendBlock(ft.region, exit)
		ft.state.ctrl = append(ft.state.ctrl, ctrlFrame{
			kind: ctrlIf, bt: bt, branchTarget: exit, exitBlock: exit, elseBlock: elseBlk,
			stackHeight: len(ft.state.stack),
		})
		*cur = thenBlk
	}
	return nil
}

func (ft *FuncTranslator) translateElse(cur *ir.Handle[ir.Block], span ir.SourceSpan) error {
	frame := ft.top()
	if frame.kind != ctrlIf {
		return fmt.Errorf("frontend: else with no matching if")
	}
	if ft.state.reachable {
		args := ft.popArgsFor(frame)
		(*cur).AppendOp(dialect.Br(ft.c, frame.exitBlock, args, span))
	}
	frame.sawElse = true
	*cur = frame.elseBlock
	ft.state.stack = ft.state.stack[:frame.stackHeight]
	ft.state.reachable = true
	return nil
}

func (ft *FuncTranslator) translateEnd(cur *ir.Handle[ir.Block], span ir.SourceSpan) error {
	if len(ft.state.ctrl) == 1 {
		frame := ft.top()
		if ft.state.reachable {
			args := ft.popArgsFor(frame)
			(*cur).AppendOp(dialect.Br(ft.c, frame.exitBlock, args, span))
		}
		ft.seal(frame.exitBlock)
		*cur = frame.exitBlock
		(*cur).AppendOp(dialect.Return(ft.c, (*cur).Params(), span))
		ft.state.ctrl = ft.state.ctrl[:0]
		return nil
	}

	frame := ft.top()
	switch frame.kind {
	case ctrlIf:
		if !frame.sawElse {
			frame.elseBlock.AppendOp(dialect.Br(ft.c, frame.exitBlock, nil, span))
		}
		if ft.state.reachable {
			args := ft.popArgsFor(frame)
			(*cur).AppendOp(dialect.Br(ft.c, frame.exitBlock, args, span))
		}
		ft.seal(frame.exitBlock)
	case ctrlLoop:
		if ft.state.reachable {
			args := ft.popArgsFor(frame)
			(*cur).AppendOp(dialect.Br(ft.c, frame.exitBlock, args, span))
		}
		ft.seal(frame.branchTarget)
		ft.seal(frame.exitBlock)
	default: // ctrlBlock
		if ft.state.reachable {
			args := ft.popArgsFor(frame)
			(*cur).AppendOp(dialect.Br(ft.c, frame.exitBlock, args, span))
		}
		ft.seal(frame.exitBlock)
	}

	ft.state.ctrl = ft.state.ctrl[:len(ft.state.ctrl)-1]
	*cur = frame.exitBlock
	ft.state.stack = ft.state.stack[:frame.stackHeight]
	for _, p := range frame.exitBlock.Params() {
		ft.state.push(p)
	}
	ft.state.reachable = true
	return nil
}

// popArgsFor returns (without popping) the top len(frame.results()) value-
// stack entries, the values a fallthrough exit from frame carries forward.
func (ft *FuncTranslator) popArgsFor(frame *ctrlFrame) []ir.Value {
	n := len(frame.results())
	if n == 0 {
		return nil
	}
	start := len(ft.state.stack) - n
	return append([]ir.Value(nil), ft.state.stack[start:]...)
}

// branchArgs returns the values an explicit br/br_if/br_table targeting
// frame carries. A loop's branch target is its header, whose re-entry
// arity (absent multi-value support) is always zero, unlike the arity of
// falling off the loop's own `end`.
func (ft *FuncTranslator) branchArgs(frame *ctrlFrame) []ir.Value {
	if frame.kind == ctrlLoop {
		return nil
	}
	return ft.popArgsFor(frame)
}

func (ft *FuncTranslator) translateBr(cur ir.Handle[ir.Block], depth uint32, span ir.SourceSpan) {
	frame := ft.frameAt(depth)
	args := ft.branchArgs(frame)
	cur.AppendOp(dialect.Br(ft.c, frame.branchTarget, args, span))
}

func (ft *FuncTranslator) translateBrIf(cur *ir.Handle[ir.Block], depth uint32, cond ir.Value, span ir.SourceSpan) {
	frame := ft.frameAt(depth)
	args := ft.branchArgs(frame)
	elseBlk := ft.c.CreateBlock()
	ft.c.AppendBlock(ft.region, elseBlk)
	(*cur).AppendOp(dialect.CondBr(ft.c, cond, frame.branchTarget, args, elseBlk, nil, span))
	ft.seal(elseBlk)
	*cur = elseBlk
}

func (ft *FuncTranslator) translateBrTable(cur *ir.Handle[ir.Block], r *reader, span ir.SourceSpan) error {
	n, err := r.uleb()
	if err != nil {
		return err
	}
	targets := make([]uint32, n)
	for i := range targets {
		if targets[i], err = r.u32(); err != nil {
			return err
		}
	}
	defaultDepth, err := r.u32()
	if err != nil {
		return err
	}
	index := ft.state.pop()

	cases := make([]ir.Handle[ir.Block], n)
	caseArgs := make([][]ir.Value, n)
	for i, d := range targets {
		frame := ft.frameAt(d)
		cases[i] = frame.branchTarget
		caseArgs[i] = ft.branchArgs(frame)
	}
	defFrame := ft.frameAt(defaultDepth)
	(*cur).AppendOp(dialect.Switch(ft.c, index, cases, caseArgs, defFrame.branchTarget, ft.branchArgs(defFrame), span))
	ft.state.reachable = false
	return nil
}

func (ft *FuncTranslator) translateReturn(cur ir.Handle[ir.Block], span ir.SourceSpan) {
	ft.translateBr(cur, uint32(len(ft.state.ctrl)-1), span)
}

// emitSelect lowers Wasm's value-polymorphic `select` as a structured
// if/else over its condition, since the core dialect has no ternary
// value op; the stackifier lowers the resulting condbr to a masm If like
// any other (it does not use intexpand's cdrop-based select idioms).
func (ft *FuncTranslator) emitSelect(cur *ir.Handle[ir.Block], cond, a, b ir.Value, span ir.SourceSpan) ir.Value {
	thenBlk := ft.c.CreateBlock()
	elseBlk := ft.c.CreateBlock()
	merge := ft.c.CreateBlockWithParams([]*types.Type{a.Type()})
	ft.c.AppendBlock(ft.region, thenBlk)
	ft.c.AppendBlock(ft.region, elseBlk)
	ft.c.AppendBlock(ft.region, merge)

	(*cur).AppendOp(dialect.CondBr(ft.c, cond, thenBlk, nil, elseBlk, nil, span))
	ft.seal(thenBlk)
	ft.seal(elseBlk)
	thenBlk.AppendOp(dialect.Br(ft.c, merge, []ir.Value{a}, span))
	elseBlk.AppendOp(dialect.Br(ft.c, merge, []ir.Value{b}, span))
	ft.seal(merge)

	*cur = merge
	return merge.Param(0)
}

// globalRef builds a pointer-typed reference to the idx-th global's
// storage location; C5's layout analysis assigns the actual address
// later, so this op only carries the global's index, resolved at layout
// time.
func (ft *FuncTranslator) globalRef(idx uint32, span ir.SourceSpan) (ir.Handle[ir.Operation], error) {
	if int(idx) >= len(ft.module.Globals) {
		return ir.Handle[ir.Operation]{}, fmt.Errorf("frontend: global index %d out of range", idx)
	}
	ty, err := ft.module.Globals[idx].Type.ToHIR()
	if err != nil {
		return ir.Handle[ir.Operation]{}, err
	}
	op := ft.c.CreateOperation(dialect.OpGlobalRef, nil, []*types.Type{types.Ptr(ty, 0)}, span)
	op.SetAttr("global_index", ir.UintAttr{Value: uint64(idx)})
	return op, nil
}

func (ft *FuncTranslator) emitGlobalGet(cur ir.Handle[ir.Block], idx uint32, span ir.SourceSpan) (ir.Value, error) {
	ref, err := ft.globalRef(idx, span)
	if err != nil {
		return ir.Value{}, ft.fail(err)
	}
	cur.AppendOp(ref)
	ty, _ := ft.module.Globals[idx].Type.ToHIR()
	load := dialect.Load(ft.c, ref.Result(0), ty, span)
	cur.AppendOp(load)
	return load.Result(0), nil
}

func (ft *FuncTranslator) emitGlobalSet(cur ir.Handle[ir.Block], idx uint32, v ir.Value, span ir.SourceSpan) error {
	ref, err := ft.globalRef(idx, span)
	if err != nil {
		return ft.fail(err)
	}
	cur.AppendOp(ref)
	cur.AppendOp(dialect.Store(ft.c, ref.Result(0), v, span))
	return nil
}

func (ft *FuncTranslator) translateCall(cur *ir.Handle[ir.Block], idx uint32, span ir.SourceSpan) error {
	sig, err := ft.module.TypeOf(idx)
	if err != nil {
		return ft.fail(err)
	}
	n := len(sig.Params)
	args := make([]ir.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = ft.state.pop()
	}
	resultTys, err := ft.hirResultTypes(sig.Results)
	if err != nil {
		return ft.fail(err)
	}
	callOp := dialect.Call(ft.c, ft.calleeName(idx), args, resultTys, span)
	(*cur).AppendOp(callOp)
	for i := range sig.Results {
		ft.state.push(callOp.Result(i))
	}
	return nil
}

// calleeName renders funcIdx into the symbol a call op's "callee"
// attribute carries: the dotted module.field form for an imported
// function, or a positional local name otherwise (names-section-derived
// names, when present, are attached separately as debug info, not used
// for call-site symbol resolution).
func (ft *FuncTranslator) calleeName(funcIdx uint32) string {
	if ft.module.IsImported(funcIdx) {
		imp := ft.module.Imports[funcIdx]
		return imp.Module + "." + imp.Field
	}
	return fmt.Sprintf("func%d", funcIdx)
}
