package ir

import (
	"fmt"

	"github.com/midenc-go/midenc/internal/hir/types"
)

// Successor describes one outgoing control-flow edge from a terminator: a
// use of a target Block, paired with the index of the operand group that
// supplies the block-argument values carried across that edge.
type Successor struct {
	Dest     BlockOperand
	ArgGroup int
}

// Operation is a single instance of some OpDef: operands, results, nested
// regions, successors, and an attribute dictionary.
type Operation struct {
	Name OperationName
	Def  *OpDef
	Span SourceSpan
	Attrs *AttrDict

	// operandGroups[k] is operand group k. Non-branching ops have exactly
	// one group; branching terminators have one group per successor.
	operandGroups [][]OpOperand

	results []Handle[valueRec]
	regions []Handle[Region]
	successors []Successor

	parentBlock Handle[Block]
	link        listLink[Operation]
}

// CreateOperation allocates a detached Operation of the given definition,
// with operands as its operand group 0 and one typed result per entry of
// resultTypes. Regions and successors, if the op needs them, are added
// afterward via AddRegion / AddSuccessor.
func (c *Context) CreateOperation(def *OpDef, operands []Value, resultTypes []*types.Type, span SourceSpan) Handle[Operation] {
	h := alloc(c, "Operation", Operation{Name: def.Name, Def: def, Span: span, Attrs: NewAttrDict()})

	group := make([]OpOperand, len(operands))
	for i, v := range operands {
		group[i] = c.makeOperand(v, h, uint8(i))
	}

	rec, release := h.BorrowMut()
	rec.operandGroups = [][]OpOperand{group}
	for i, ty := range resultTypes {
		res := alloc(c, "OpResult", valueRec{kind: ValueOpResult, ty: ty, owningOp: h, resultIndex: uint8(i)})
		rec.results = append(rec.results, res)
	}
	release()

	if err := Verify(h); err != nil {
		panic(fmt.Sprintf("CreateOperation: %s: %v", def.Name, err))
	}
	return h
}

// NumOperands returns the operand count of group 0 (the op's own operands;
// successor arguments live in the other groups).
func (op Handle[Operation]) NumOperands() int {
	rec, release := op.Borrow()
	defer release()
	return len(rec.operandGroups[0])
}

// Operand returns the i-th operand of group 0 (the common case for
// non-branching ops).
func (op Handle[Operation]) Operand(i int) Value {
	rec, release := op.Borrow()
	defer release()
	return rec.operandGroups[0][i].Value()
}

// Operands returns the Values of group 0, in order.
func (op Handle[Operation]) Operands() []Value {
	rec, release := op.Borrow()
	defer release()
	g := rec.operandGroups[0]
	out := make([]Value, len(g))
	for i, o := range g {
		out[i] = o.Value()
	}
	return out
}

// OperandGroup returns the Values of operand group k (k corresponds to
// Successor.ArgGroup for branching terminators).
func (op Handle[Operation]) OperandGroup(k int) []Value {
	rec, release := op.Borrow()
	defer release()
	g := rec.operandGroups[k]
	out := make([]Value, len(g))
	for i, o := range g {
		out[i] = o.Value()
	}
	return out
}

// SetOperandGroups replaces the full operand-group layout of op. This is
// used by terminator-rewriting transforms (critical-edge splitting,
// treeification) that must change which values are passed to which
// successor.
func (c *Context) SetOperandGroups(op Handle[Operation], groups [][]Value) {
	rec, release := op.BorrowMut()
	// Detach old operand uses.
	for _, g := range rec.operandGroups {
		for _, o := range g {
			orec, rel := o.Borrow()
			v := orec.value
			rel()
			vrec, vrel := v.BorrowMut()
			unlink(&vrec.useHead, &vrec.useTail, o, func(h OpOperand) *listLink[opOperandRec] {
				r, rr := h.Borrow()
				defer rr()
				return &r.link
			})
			vrec.useCount--
			vrel()
		}
	}
	newGroups := make([][]OpOperand, len(groups))
	release()
	idx := uint8(0)
	for gi, g := range groups {
		ng := make([]OpOperand, len(g))
		for i, v := range g {
			ng[i] = c.makeOperand(v, op, idx)
			idx++
		}
		newGroups[gi] = ng
	}
	rec2, release2 := op.BorrowMut()
	rec2.operandGroups = newGroups
	release2()
}

// NumResults returns the number of results op produces.
func (op Handle[Operation]) NumResults() int {
	rec, release := op.Borrow()
	defer release()
	return len(rec.results)
}

// Result returns the i-th result value of op.
func (op Handle[Operation]) Result(i int) Value {
	rec, release := op.Borrow()
	defer release()
	return rec.results[i]
}

// Results returns all result values of op.
func (op Handle[Operation]) Results() []Value {
	rec, release := op.Borrow()
	defer release()
	out := make([]Value, len(rec.results))
	copy(out, rec.results)
	return out
}

// AddRegion allocates and attaches a new, empty Region to op, returning it.
func (c *Context) AddRegion(op Handle[Operation]) Handle[Region] {
	r := alloc(c, "Region", Region{owner: op})
	rec, release := op.BorrowMut()
	rec.regions = append(rec.regions, r)
	release()
	return r
}

// NumRegions returns the number of regions attached to op.
func (op Handle[Operation]) NumRegions() int {
	rec, release := op.Borrow()
	defer release()
	return len(rec.regions)
}

// Region returns the i-th region attached to op.
func (op Handle[Operation]) Region(i int) Handle[Region] {
	rec, release := op.Borrow()
	defer release()
	return rec.regions[i]
}

// AddSuccessor appends a new successor edge to `target`, carrying the
// values in `args` as that edge's block-argument group. Only valid for ops
// whose OpDef declares HasSuccessors.
func (c *Context) AddSuccessor(op Handle[Operation], target Handle[Block], args []Value) {
	rec, release := op.Borrow()
	def := rec.Def
	release()
	if !def.HasSuccessors {
		panic(fmt.Sprintf("AddSuccessor: %s does not declare successors", def.Name))
	}

	group := make([]OpOperand, len(args))
	for i, v := range args {
		group[i] = c.makeOperand(v, op, uint8(i))
	}

	rec2, release2 := op.BorrowMut()
	groupIdx := len(rec2.operandGroups)
	rec2.operandGroups = append(rec2.operandGroups, group)
	release2()

	bo := c.addPred(target, op, uint8(groupIdx))

	rec3, release3 := op.BorrowMut()
	rec3.successors = append(rec3.successors, Successor{Dest: bo, ArgGroup: groupIdx})
	release3()
}

// NumSuccessors returns the number of successor edges op declares.
func (op Handle[Operation]) NumSuccessors() int {
	rec, release := op.Borrow()
	defer release()
	return len(rec.successors)
}

// Successor returns the i-th successor edge of op.
func (op Handle[Operation]) Successor(i int) Successor {
	rec, release := op.Borrow()
	defer release()
	return rec.successors[i]
}

// SuccessorBlock returns the target block of the i-th successor edge.
func (op Handle[Operation]) SuccessorBlock(i int) Handle[Block] {
	return op.Successor(i).Dest.Block()
}

// RetargetSuccessor repoints op's i-th successor edge at newTarget,
// leaving its argument group untouched. Used by edge-rewriting transforms
// (critical-edge splitting) that only need to change the destination
// block of one edge, not the values carried across it.
func (c *Context) RetargetSuccessor(op Handle[Operation], i int, newTarget Handle[Block]) {
	rec, release := op.Borrow()
	old := rec.successors[i]
	release()

	c.removePred(old.Dest.Block(), old.Dest)
	bo := c.addPred(newTarget, op, uint8(old.ArgGroup))

	rec2, release2 := op.BorrowMut()
	rec2.successors[i] = Successor{Dest: bo, ArgGroup: old.ArgGroup}
	release2()
}

// ParentBlock returns the block that owns op, if attached.
func (op Handle[Operation]) ParentBlock() (Handle[Block], bool) {
	rec, release := op.Borrow()
	defer release()
	if !rec.link.linked {
		return Handle[Block]{}, false
	}
	return rec.parentBlock, true
}

// OpName returns op's dialect-qualified operation name, the standard way
// downstream passes (verifiers, the stackifier) dispatch on op kind without
// needing the defining dialect's *OpDef pointer in hand.
func (op Handle[Operation]) OpName() OperationName {
	rec, release := op.Borrow()
	defer release()
	return rec.Name
}

// IsTerminator reports whether op's definition declares the Terminator
// trait.
func (op Handle[Operation]) IsTerminator() bool {
	rec, release := op.Borrow()
	defer release()
	return rec.Def.HasTrait(TraitTerminator)
}

// SetAttr inserts or overwrites one entry of op's attribute dictionary.
func (op Handle[Operation]) SetAttr(key string, attr Attribute) {
	rec, release := op.BorrowMut()
	rec.Attrs.Set(key, attr)
	release()
}

// Attr retrieves one entry of op's attribute dictionary.
func (op Handle[Operation]) Attr(key string) (Attribute, bool) {
	rec, release := op.Borrow()
	defer release()
	return rec.Attrs.Get(key)
}

// AttrKeys returns op's attribute dictionary keys in insertion order.
func (op Handle[Operation]) AttrKeys() []string {
	rec, release := op.Borrow()
	defer release()
	return append([]string(nil), rec.Attrs.Keys()...)
}
