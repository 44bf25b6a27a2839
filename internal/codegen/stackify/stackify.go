// Package stackify implements the stackifier: the codegen pass that lowers
// a region of HIR (internal/hir/ir), already scheduled into basic blocks,
// into a masm.Function body. It owns the simulated operand stack, drives
// internal/codegen/solver to place each operation's operands, and expands
// wide-integer and polymorphic-width operations via internal/codegen/
// intexpand where masm has no single matching primitive.
//
// Block arguments carry values between blocks the way Wasm's (and this
// compiler's HIR's) block-parameter model requires, but Miden Assembly has
// no such notion, only a flat operand stack threaded through nested
// structured control flow. The stackifier bridges the two by giving every
// value a canonical stack position (see value.go) and re-establishing that
// position, via the solver, at every block transition.
package stackify

import (
	"fmt"

	"github.com/midenc-go/midenc/internal/codegen/solver"
	"github.com/midenc-go/midenc/internal/codegen/solver/tactics"
	"github.com/midenc-go/midenc/internal/hir/analysis"
	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/masm"
	"github.com/midenc-go/midenc/internal/session"
)

// defaultPortfolio is the fixed, cost-ranked set of tactics tried for every
// operand placement, from cheapest-common-case to most general.
var defaultPortfolio = []solver.Tactic{
	tactics.SwapAndMoveUp,
	tactics.MoveUpAndSwap,
	tactics.MoveDownAndSwap,
	tactics.Linear,
	tactics.CopyAll,
}

// Emitter drives the stackification of one or more functions sharing a
// module namespace and a diagnostics sink.
type Emitter struct {
	sess       *session.Session
	moduleName string
	portfolio  []solver.Tactic
}

// New creates an Emitter reporting translation failures to sess and
// qualifying emitted calls under moduleName.
func New(sess *session.Session, moduleName string) *Emitter {
	return &Emitter{sess: sess, moduleName: moduleName, portfolio: defaultPortfolio}
}

// funcState carries the per-function analyses and bookkeeping lowerChain
// and the ops.go helpers thread through one Function call.
type funcState struct {
	e        *Emitter
	cfg      *analysis.CFG
	dom      *analysis.Dominance
	loops    *analysis.LoopInfo
	liveness *analysis.Liveness

	// alias maps a passthrough-cast (inttoptr/ptrtoint/bitcast) result id to
	// the underlying value that actually occupies its stack slot.
	alias map[ir.EntityID]ir.Value
}

// Function lowers region into a masm.Function named name with signature
// sig, whose entry block's parameters are the function's own parameters.
func (e *Emitter) Function(region ir.Handle[ir.Region], sig masm.Signature, name string, isExport bool) (*masm.Function, error) {
	cfg := analysis.BuildCFG(region)
	if !cfg.Entry.Valid() {
		return nil, fmt.Errorf("stackify: function %q has no entry block", name)
	}
	dom := analysis.BuildDominance(cfg)
	loops := analysis.FindLoops(cfg, dom)
	liveness := analysis.ComputeLiveness(cfg)

	fs := &funcState{e: e, cfg: cfg, dom: dom, loops: loops, liveness: liveness, alias: map[ir.EntityID]ir.Value{}}

	fn := masm.NewFunction(name, sig)
	fn.IsExport = isExport

	params := cfg.Entry.Params()
	limbCounts := make([]int, len(params))
	for i, p := range params {
		n, err := limbCount(p.Type())
		if err != nil {
			return nil, e.fail(err)
		}
		limbCounts[i] = n
	}
	initial := solver.NewStack(pushWindow(params, limbCounts))

	ops, err := fs.lowerChain(cfg.Entry, 0, initial)
	if err != nil {
		return nil, e.fail(err)
	}
	fn.Body.Body.Ops = ops
	return fn, nil
}

// fail records err as a session Diagnostic and returns it unchanged, so
// Function's caller sees both the Go error and a recorded user-facing
// message.
func (e *Emitter) fail(err error) error {
	e.sess.Emit(session.Diagnostic{Severity: session.SeverityError, Message: err.Error()})
	return err
}

// blockOf wraps a flat op sequence in a fresh masm.Block, the shape If/
// While/Repeat bodies need.
func blockOf(ops []masm.Op) *masm.Block {
	b := &masm.Block{}
	b.Ops = append(b.Ops, ops...)
	return b
}

// relabel returns a clone of stack with its top len(newTop) slots renamed
// to newTop's identities; used at every block transition to rebind a
// caller's argument values onto the callee block's own parameter
// identities, a pure compile-time bookkeeping step with no stack-machine
// cost.
func relabel(stack *solver.Stack, newTop []solver.StackValue) *solver.Stack {
	slots := stack.Slots()
	copy(slots[:len(newTop)], newTop)
	return solver.NewStack(slots)
}

// arrangeAndRelabel solves for args to occupy the top of stack, in
// push-window order, then relabels that window to target's own parameter
// identities so target's body can refer to target.Param(i) directly.
// protect additionally marks values (typically an HIR terminator's other
// successor's arguments) that must survive this placement even if they
// would otherwise look dead after it.
func (fs *funcState) arrangeAndRelabel(blk ir.Handle[ir.Block], afterOp ir.Handle[ir.Operation], simStack *solver.Stack, args []ir.Value, target ir.Handle[ir.Block], protect []ir.Value) ([]masm.Op, *solver.Stack, error) {
	limbCounts := make([]int, len(args))
	for i, v := range args {
		n, err := limbCount(v.Type())
		if err != nil {
			return nil, nil, err
		}
		limbCounts[i] = n
	}
	expected := pushWindow(args, limbCounts)

	protected := map[ir.EntityID]bool{}
	for _, v := range protect {
		protected[v.ID()] = true
	}

	copies := map[solver.StackValue]bool{}
	for i, v := range args {
		c := fs.isCopy(blk, afterOp, v) || protected[v.ID()]
		for _, lv := range limbsOf(v, limbCounts[i]) {
			copies[lv] = c
		}
	}

	res, err := solver.Solve(solver.Input{Stack: simStack, Expected: expected, Copies: copies}, fs.e.portfolio)
	if err != nil {
		return nil, nil, fmt.Errorf("stackify: arranging branch arguments: %w", err)
	}
	ops, err := actionOps(res.Actions)
	if err != nil {
		return nil, nil, err
	}

	paramCounts := make([]int, target.NumParams())
	for i := 0; i < target.NumParams(); i++ {
		n, err := limbCount(target.Param(i).Type())
		if err != nil {
			return nil, nil, err
		}
		paramCounts[i] = n
	}
	newTop := pushWindow(target.Params(), paramCounts)
	return ops, relabel(res.FinalStack, newTop), nil
}

// lowerChain lowers blk and every block it falls through to, stopping
// (without wrapping) when it reaches stopAt: the enclosing loop header's
// own id when lowering a loop body, or the zero EntityID when lowering a
// whole function (no block has id 0, since ids are assigned starting at
// 1 by every Context in this codebase's arena allocator).
func (fs *funcState) lowerChain(blk ir.Handle[ir.Block], stopAt ir.EntityID, simStack *solver.Stack) ([]masm.Op, error) {
	var ops []masm.Op
	cur := simStack
	var lastOp ir.Handle[ir.Operation]
	n := blk.NumOps()
	i := 0
	var termErr error
	blk.ForEachOp(func(op ir.Handle[ir.Operation]) {
		if termErr != nil {
			return
		}
		i++
		lastOp = op
		if i == n {
			return // terminator, handled below
		}
		opOps, next, err := fs.emitOp(blk, op, cur)
		if err != nil {
			termErr = err
			return
		}
		ops = append(ops, opOps...)
		cur = next
	})
	if termErr != nil {
		return nil, termErr
	}

	term := lastOp
	switch term.OpName().Mnemonic {
	case "return":
		vals := term.Operands()
		retOps, _, err := fs.placeOperands(blk, term, vals, cur)
		if err != nil {
			return nil, err
		}
		return append(ops, retOps...), nil

	case "br":
		target := term.SuccessorBlock(0)
		args := term.OperandGroup(term.Successor(0).ArgGroup)
		archOps, next, err := fs.arrangeAndRelabel(blk, term, cur, args, target, nil)
		if err != nil {
			return nil, err
		}
		ops = append(ops, archOps...)
		if target.ID() == stopAt {
			return ops, nil
		}
		if fs.loops.IsLoopHeader(target) {
			body, err := fs.lowerChain(target, target.ID(), next)
			if err != nil {
				return nil, err
			}
			ops = append(ops, masm.While{Body: blockOf(body)})
			return ops, nil
		}
		cont, err := fs.lowerChain(target, stopAt, next)
		if err != nil {
			return nil, err
		}
		return append(ops, cont...), nil

	case "condbr":
		return fs.lowerCondBr(blk, term, ops, cur, stopAt)

	case "switch":
		return fs.lowerSwitch(blk, term, ops, cur, stopAt)

	default:
		return nil, fmt.Errorf("stackify: block does not end in a supported terminator (found %q)", term.OpName().Mnemonic)
	}
}

func (fs *funcState) lowerCondBr(blk ir.Handle[ir.Block], term ir.Handle[ir.Operation], ops []masm.Op, simStack *solver.Stack, stopAt ir.EntityID) ([]masm.Op, error) {
	cond := term.Operand(0)
	condOps, next, err := fs.placeOperands(blk, term, []ir.Value{cond}, simStack)
	if err != nil {
		return nil, err
	}
	ops = append(ops, condOps...)
	next = next.Clone()
	next.Drop() // the If below consumes the condition itself

	thenTarget := term.SuccessorBlock(0)
	thenArgs := term.OperandGroup(term.Successor(0).ArgGroup)
	elseTarget := term.SuccessorBlock(1)
	elseArgs := term.OperandGroup(term.Successor(1).ArgGroup)

	thenBack := thenTarget.ID() == stopAt
	elseBack := elseTarget.ID() == stopAt

	if thenBack || elseBack {
		var backArgs, exitArgs []ir.Value
		var backTarget, exitTarget ir.Handle[ir.Block]
		var backIsThen bool
		if thenBack {
			backArgs, backTarget, exitTarget, exitArgs, backIsThen = thenArgs, thenTarget, elseTarget, elseArgs, true
		} else {
			backArgs, backTarget, exitTarget, exitArgs, backIsThen = elseArgs, elseTarget, thenTarget, thenArgs, false
		}
		backOps, _, err := fs.arrangeAndRelabel(blk, term, next.Clone(), backArgs, backTarget, exitArgs)
		if err != nil {
			return nil, err
		}
		exitArrangeOps, exitStack, err := fs.arrangeAndRelabel(blk, term, next.Clone(), exitArgs, exitTarget, backArgs)
		if err != nil {
			return nil, err
		}
		exitCont, err := fs.lowerChain(exitTarget, stopAt, exitStack)
		if err != nil {
			return nil, err
		}
		exitOps := append(exitArrangeOps, exitCont...)

		var thenBlk, elseBlk *masm.Block
		if backIsThen {
			thenBlk, elseBlk = blockOf(backOps), blockOf(exitOps)
		} else {
			thenBlk, elseBlk = blockOf(exitOps), blockOf(backOps)
		}
		ops = append(ops, masm.If{Then: thenBlk, Else: elseBlk})
		return ops, nil
	}

	thenArrangeOps, thenStack, err := fs.arrangeAndRelabel(blk, term, next.Clone(), thenArgs, thenTarget, elseArgs)
	if err != nil {
		return nil, err
	}
	thenCont, err := fs.lowerChain(thenTarget, stopAt, thenStack)
	if err != nil {
		return nil, err
	}
	elseArrangeOps, elseStack, err := fs.arrangeAndRelabel(blk, term, next.Clone(), elseArgs, elseTarget, thenArgs)
	if err != nil {
		return nil, err
	}
	elseCont, err := fs.lowerChain(elseTarget, stopAt, elseStack)
	if err != nil {
		return nil, err
	}
	ops = append(ops, masm.If{
		Then: blockOf(append(thenArrangeOps, thenCont...)),
		Else: blockOf(append(elseArrangeOps, elseCont...)),
	})
	return ops, nil
}

// lowerSwitch lowers an N-way switch as a chain of nested equality tests
// against the index, most specific case first, falling through to the
// default. Miden Assembly has no native multi-way branch, so this is the
// standard structured-VM encoding of a jump table.
func (fs *funcState) lowerSwitch(blk ir.Handle[ir.Block], term ir.Handle[ir.Operation], ops []masm.Op, simStack *solver.Stack, stopAt ir.EntityID) ([]masm.Op, error) {
	index := term.Operand(0)
	n, err := limbCount(index.Type())
	if err != nil {
		return nil, err
	}
	if n != 1 {
		return nil, fmt.Errorf("stackify: switch over a %d-limb index is not supported by this backend", n)
	}
	indexOps, next, err := fs.placeOperands(blk, term, []ir.Value{index}, simStack)
	if err != nil {
		return nil, err
	}
	ops = append(ops, indexOps...)

	numCases := term.NumSuccessors() - 1 // last successor is the default
	chain, err := fs.lowerSwitchCase(blk, term, next, 0, numCases, stopAt)
	if err != nil {
		return nil, err
	}
	return append(ops, chain...), nil
}

// lowerSwitchCase expects simStack to have the switch index on top (still
// needed by a later comparison) and, for the terminal default arm, also
// on top (about to be discarded). Every arm that commits to a target first
// physically drops the index, before computing that arm's own argument
// placement, so the placement's stack positions are relative to the
// post-drop stack it will actually run against.
func (fs *funcState) lowerSwitchCase(blk ir.Handle[ir.Block], term ir.Handle[ir.Operation], simStack *solver.Stack, caseIdx, numCases int, stopAt ir.EntityID) ([]masm.Op, error) {
	if caseIdx == numCases {
		target := term.SuccessorBlock(numCases)
		args := term.OperandGroup(term.Successor(numCases).ArgGroup)
		dropped := simStack.Clone()
		dropped.Drop()
		archOps, next, err := fs.arrangeAndRelabel(blk, term, dropped, args, target, nil)
		if err != nil {
			return nil, err
		}
		cont, err := fs.lowerChain(target, stopAt, next)
		if err != nil {
			return nil, err
		}
		return append([]masm.Op{masm.Drop{}}, append(archOps, cont...)...), nil
	}

	cmpOps := []masm.Op{masm.Dup{Index: 0}, masm.Push{Value: masm.Felt(caseIdx)}, masm.Eq{}}
	// Eq and the If consume the duplicated index, so the original is still
	// on top: the stack each arm starts from is simStack unchanged.
	caseStack := simStack.Clone()

	target := term.SuccessorBlock(caseIdx)
	args := term.OperandGroup(term.Successor(caseIdx).ArgGroup)
	thenDropped := caseStack.Clone()
	thenDropped.Drop()
	archOps, next, err := fs.arrangeAndRelabel(blk, term, thenDropped, args, target, nil)
	if err != nil {
		return nil, err
	}
	thenCont, err := fs.lowerChain(target, stopAt, next)
	if err != nil {
		return nil, err
	}
	thenOps := append([]masm.Op{masm.Drop{}}, append(archOps, thenCont...)...)

	elseOps, err := fs.lowerSwitchCase(blk, term, caseStack, caseIdx+1, numCases, stopAt)
	if err != nil {
		return nil, err
	}

	return append(cmpOps, masm.If{Then: blockOf(thenOps), Else: blockOf(elseOps)}), nil
}
