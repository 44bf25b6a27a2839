package frontend

import (
	"fmt"

	"github.com/midenc-go/midenc/internal/hir/dialect"
	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/hir/transform"
	"github.com/midenc-go/midenc/internal/hir/types"
	"github.com/midenc-go/midenc/internal/session"
)

// SpanResolver maps a Wasm code-section byte offset to a source span,
// implemented by DWARF-backed lookups (see dwarf.go). A nil SpanResolver
// means every emitted instruction simply carries an empty span.
type SpanResolver interface {
	SpanForOffset(offset uint64) ir.SourceSpan
}

// variable is an SSA-tracked Wasm local index.
type variable uint32

// FuncTranslationState is the per-function mutable state a FuncTranslator
// threads through the operator walk: the Wasm operand-value stack and the
// control-flow stack (one frame per enclosing block/loop/if), together
// with the reachability flag the Wasm validation algorithm uses to skip
// translating dead code after an unconditional branch.
type FuncTranslationState struct {
	stack      []ir.Value
	ctrl       []ctrlFrame
	reachable  bool
}

func (s *FuncTranslationState) push(v ir.Value)     { s.stack = append(s.stack, v) }
func (s *FuncTranslationState) pop() ir.Value {
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v
}
func (s *FuncTranslationState) peek() ir.Value { return s.stack[len(s.stack)-1] }

type ctrlKind uint8

const (
	ctrlBlock ctrlKind = iota
	ctrlLoop
	ctrlIf
)

// ctrlFrame is one entry of the control stack, one per enclosing Wasm
// block/loop/if construct currently open.
type ctrlFrame struct {
	kind ctrlKind
	bt   blockType

	// branchTarget is the block a `br`/`br_if` of this depth jumps to: the
	// loop header itself for a loop, the post-construct continuation block
	// for a block or if.
	branchTarget ir.Handle[ir.Block]

	// exitBlock is the block translation resumes in once this construct's
	// matching `end` is reached (== branchTarget, except for loop, where
	// the exit is a distinct block created alongside the header).
	exitBlock ir.Handle[ir.Block]

	// elseBlock is valid only for an untaken `if` still looking for its
	// `else`; it is where the else-arm's ops are appended once found.
	elseBlock ir.Handle[ir.Block]
	sawElse   bool

	// stackHeight is the operand-stack depth at frame entry, used to
	// restore the value stack when a branch or `end` makes code
	// unreachable.
	stackHeight int

	unreachable bool
}

func (f *ctrlFrame) results() []ValType {
	if f.bt.Empty {
		return nil
	}
	if f.bt.HasRes {
		return []ValType{f.bt.Result}
	}
	return nil
}

// FuncTranslator builds one function's HIR region from its Wasm operator
// stream, constructing SSA incrementally via block-sealing (Braun et al.):
// a block not yet known to have all its predecessors buffers parameter
// requests as ordinary block parameters and resolves their incoming
// argument values once Seal is called on it.
type FuncTranslator struct {
	c       *ir.Context
	sess    *session.Session
	module  *ModuleInfo
	spans   SpanResolver

	funcIdx   uint32
	region    ir.Handle[ir.Region]
	localTys  []*types.Type

	defs       map[ir.Handle[ir.Block]]map[variable]ir.Value
	sealed     map[ir.Handle[ir.Block]]bool
	incomplete map[ir.Handle[ir.Block]]map[variable]ir.Value

	state FuncTranslationState
}

// NewFuncTranslator creates a translator for one function of m, sharing c
// as the arena every produced Value/Block/Operation is allocated from.
// spans may be nil.
func NewFuncTranslator(c *ir.Context, sess *session.Session, m *ModuleInfo, spans SpanResolver) *FuncTranslator {
	return &FuncTranslator{
		c:      c,
		sess:   sess,
		module: m,
		spans:  spans,
	}
}

func (ft *FuncTranslator) span(offset uint64) ir.SourceSpan {
	if ft.spans == nil {
		return ir.SourceSpan{}
	}
	return ft.spans.SpanForOffset(offset)
}

// Translate builds the HIR region for the funcIdx-th function (in the
// combined import+local function index space) of the module, returning
// its region (a single-operation wrapper, following this compiler's
// convention of nesting a function body in a detached "func" operation's
// region) and declared signature in Wasm order.
func (ft *FuncTranslator) Translate(funcIdx uint32) (ir.Handle[ir.Region], FunctionType, error) {
	if ft.module.IsImported(funcIdx) {
		return ir.Handle[ir.Region]{}, FunctionType{}, fmt.Errorf("frontend: function %d is imported, nothing to translate", funcIdx)
	}
	localIdx := int(funcIdx) - len(ft.module.Imports)
	fn := ft.module.Functions[localIdx]
	sig, err := ft.module.TypeOf(funcIdx)
	if err != nil {
		return ir.Handle[ir.Region]{}, FunctionType{}, err
	}
	ft.funcIdx = funcIdx

	r := &reader{data: fn.Body}
	locals, err := decodeLocalDecls(r, sig.Params)
	if err != nil {
		return ir.Handle[ir.Region]{}, FunctionType{}, fmt.Errorf("frontend: function %d: %w", funcIdx, err)
	}
	ft.localTys = locals

	paramTys := make([]*types.Type, len(sig.Params))
	for i, vt := range sig.Params {
		ty, err := vt.ToHIR()
		if err != nil {
			return ir.Handle[ir.Region]{}, FunctionType{}, err
		}
		paramTys[i] = ty
	}

	entry := ft.c.CreateBlockWithParams(paramTys)
	owner := ft.c.CreateOperation(ir.NewOpDef("func", 0, 0), nil, nil, ir.SourceSpan{})
	ft.region = ft.c.AddRegion(owner)
	ft.c.AppendBlock(ft.region, entry)

	ft.defs = map[ir.Handle[ir.Block]]map[variable]ir.Value{}
	ft.sealed = map[ir.Handle[ir.Block]]bool{}
	ft.incomplete = map[ir.Handle[ir.Block]]map[variable]ir.Value{}

	for i := range sig.Params {
		ft.defineVar(entry, variable(i), entry.Param(i))
	}
	for i, ty := range locals[len(sig.Params):] {
		zero := dialect.ConstI64(ft.c, ty, 0, ir.SourceSpan{})
		entry.AppendOp(zero)
		ft.defineVar(entry, variable(len(sig.Params)+i), zero.Result(0))
	}
	ft.seal(entry)

	ft.state = FuncTranslationState{reachable: true}
	resultTys, err := ft.hirResultTypes(sig.Results)
	if err != nil {
		return ir.Handle[ir.Region]{}, FunctionType{}, err
	}
	exit := ft.c.CreateBlockWithParams(resultTys)
	ft.c.AppendBlock(ft.region, exit)
	ft.state.ctrl = []ctrlFrame{{kind: ctrlBlock, bt: blockType{HasRes: len(sig.Results) > 0, Result: singleResult(sig.Results)}, branchTarget: exit, exitBlock: exit}}

	cur := entry
	if err := ft.translateBody(&cur, r, fn.CodeOffset); err != nil {
		return ir.Handle[ir.Region]{}, FunctionType{}, fmt.Errorf("frontend: function %d: %w", funcIdx, err)
	}

	transform.SplitCriticalEdges(ft.c, ft.region)
	transform.Treeify(ft.c, ft.region)
	transform.InlineStraightLineBlocks(ft.c, ft.region)

	return ft.region, sig, nil
}

func singleResult(results []ValType) ValType {
	if len(results) == 0 {
		return 0
	}
	return results[0]
}

func (ft *FuncTranslator) hirResultTypes(results []ValType) ([]*types.Type, error) {
	out := make([]*types.Type, len(results))
	for i, vt := range results {
		ty, err := vt.ToHIR()
		if err != nil {
			return nil, err
		}
		out[i] = ty
	}
	return out, nil
}

// decodeLocalDecls reads the function body's run-length-encoded local
// declarations, returning the full local list (parameters first, in the
// order Wasm's local.get/local.set index them).
func decodeLocalDecls(r *reader, params []ValType) ([]*types.Type, error) {
	out := make([]*types.Type, 0, len(params))
	for _, vt := range params {
		ty, err := vt.ToHIR()
		if err != nil {
			return nil, err
		}
		out = append(out, ty)
	}
	n, err := r.uleb()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < n; i++ {
		count, err := r.uleb()
		if err != nil {
			return nil, err
		}
		vt, err := r.valType()
		if err != nil {
			return nil, err
		}
		ty, err := vt.ToHIR()
		if err != nil {
			return nil, err
		}
		for j := uint64(0); j < count; j++ {
			out = append(out, ty)
		}
	}
	return out, nil
}

// --- block-sealing SSA construction -----------------------------------

func (ft *FuncTranslator) defineVar(blk ir.Handle[ir.Block], v variable, val ir.Value) {
	m, ok := ft.defs[blk]
	if !ok {
		m = map[variable]ir.Value{}
		ft.defs[blk] = m
	}
	m[v] = val
}

func (ft *FuncTranslator) lookupLocal(blk ir.Handle[ir.Block], v variable) (ir.Value, bool) {
	m, ok := ft.defs[blk]
	if !ok {
		return ir.Value{}, false
	}
	val, ok := m[v]
	return val, ok
}

// useVar resolves the current value of Wasm local v as seen from blk,
// per Braun et al.'s sealed/unsealed construction: a block already known
// to have all its predecessors (sealed) resolves through them immediately
// (or, with a single predecessor, simply forwards its value with no new
// block parameter); an unsealed block defers resolution by allocating a
// block parameter now and recording it as pending until Seal backfills
// every predecessor's branch argument.
func (ft *FuncTranslator) useVar(blk ir.Handle[ir.Block], v variable) ir.Value {
	if val, ok := ft.lookupLocal(blk, v); ok {
		return val
	}
	ty := ft.localTys[v]
	if !ft.sealed[blk] {
		val := ft.c.AddParam(blk, ty)
		ft.defineVar(blk, v, val)
		m, ok := ft.incomplete[blk]
		if !ok {
			m = map[variable]ir.Value{}
			ft.incomplete[blk] = m
		}
		m[v] = val
		return val
	}
	if pred, ok := ft.singlePred(blk); ok {
		val := ft.useVar(pred, v)
		ft.defineVar(blk, v, val)
		return val
	}
	val := ft.c.AddParam(blk, ty)
	ft.defineVar(blk, v, val)
	ft.backfillPred(blk, v, val)
	return val
}

// singlePred returns blk's sole predecessor block, if it has exactly one.
func (ft *FuncTranslator) singlePred(blk ir.Handle[ir.Block]) (ir.Handle[ir.Block], bool) {
	if blk.NumPreds() != 1 {
		return ir.Handle[ir.Block]{}, false
	}
	var pred ir.Handle[ir.Block]
	blk.ForEachPred(func(bo ir.BlockOperand) {
		owner := bo.Owner()
		pb, _ := owner.ParentBlock()
		pred = pb
	})
	return pred, true
}

// backfillPred appends val's per-predecessor value (resolved recursively
// from each predecessor block) as the branch argument for variable v on
// every incoming edge of blk.
func (ft *FuncTranslator) backfillPred(blk ir.Handle[ir.Block], v variable, val ir.Value) {
	var edges []ir.BlockOperand
	blk.ForEachPred(func(bo ir.BlockOperand) { edges = append(edges, bo) })
	for _, bo := range edges {
		owner := bo.Owner()
		predBlock, _ := owner.ParentBlock()
		predVal := ft.useVar(predBlock, v)
		group := argGroupOf(owner, bo)
		appendArg(ft.c, owner, group, predVal)
	}
}

// seal marks blk as having all its predecessors known, backfilling every
// parameter request buffered while it was unsealed.
func (ft *FuncTranslator) seal(blk ir.Handle[ir.Block]) {
	if ft.sealed[blk] {
		return
	}
	ft.sealed[blk] = true
	pending := ft.incomplete[blk]
	delete(ft.incomplete, blk)
	for v, val := range pending {
		ft.backfillPred(blk, v, val)
	}
}

// argGroupOf finds the operand-group index of owner's successor edge bo,
// i.e. the index SetOperandGroups must target to add an argument to that
// particular branch target.
func argGroupOf(owner ir.Handle[ir.Operation], bo ir.BlockOperand) int {
	for i := 0; i < owner.NumSuccessors(); i++ {
		s := owner.Successor(i)
		if s.Dest.Equal(bo) {
			return s.ArgGroup
		}
	}
	panic("frontend: block operand not found among its owner's successors")
}

// appendArg appends v to owner's operand group `group` (a successor's
// branch-argument list), leaving every other group untouched.
func appendArg(c *ir.Context, owner ir.Handle[ir.Operation], group int, v ir.Value) {
	numGroups := 1 + owner.NumSuccessors()
	groups := make([][]ir.Value, numGroups)
	groups[0] = owner.Operands()
	for k := 1; k < numGroups; k++ {
		groups[k] = owner.OperandGroup(k)
	}
	groups[group] = append(groups[group], v)
	c.SetOperandGroups(owner, groups)
}

// Loop headers remain unsealed from creation until their matching `end`,
// since back-edges (br targeting the loop) are only discovered while
// translating the loop body. Every other construct's continuation block
// has all forward edges into it known by the time its `end` is reached
// (Wasm's structured nesting guarantees a branch can only target an
// already-open enclosing label), so it is sealed at that `end`; the arm
// blocks of an `if` have their one predecessor at creation and are
// sealed immediately.
