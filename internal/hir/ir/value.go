package ir

import "github.com/midenc-go/midenc/internal/hir/types"

// ValueKind distinguishes the two ways a Value can be defined.
type ValueKind uint8

const (
	ValueBlockArgument ValueKind = iota
	ValueOpResult
)

// valueRec is the common arena record for both BlockArgument and OpResult
// values. Every Value has an immutable type, a stable id, and an intrusive
// use-list of OpOperands referencing it.
type valueRec struct {
	kind ValueKind
	ty   *types.Type

	// BlockArgument fields.
	owningBlock Handle[Block]
	argIndex    uint8

	// OpResult fields.
	owningOp     Handle[Operation]
	resultIndex  uint8

	// Use-list, shared by both kinds: the doubly-linked list of OpOperands
	// that currently use this value.
	useHead, useTail Handle[opOperandRec]
	useCount         int
}

// Value is a handle to an SSA value: either a BlockArgument or an OpResult.
type Value = Handle[valueRec]

// Type returns the immutable type of the value.
func (v Value) Type() *types.Type {
	rec, release := v.Borrow()
	defer release()
	return rec.ty
}

// Kind reports whether v is a block argument or an op result.
func (v Value) Kind() ValueKind {
	rec, release := v.Borrow()
	defer release()
	return rec.kind
}

// DefiningBlock returns the block that defines v, if v is a BlockArgument.
func (v Value) DefiningBlock() (Handle[Block], bool) {
	rec, release := v.Borrow()
	defer release()
	if rec.kind != ValueBlockArgument {
		return Handle[Block]{}, false
	}
	return rec.owningBlock, true
}

// DefiningOp returns the operation that defines v, if v is an OpResult.
func (v Value) DefiningOp() (Handle[Operation], bool) {
	rec, release := v.Borrow()
	defer release()
	if rec.kind != ValueOpResult {
		return Handle[Operation]{}, false
	}
	return rec.owningOp, true
}

// NumUses returns the number of OpOperands currently using v.
func (v Value) NumUses() int {
	rec, release := v.Borrow()
	defer release()
	return rec.useCount
}

// IsUnused reports whether v has no uses.
func (v Value) IsUnused() bool { return v.NumUses() == 0 }

// Uses invokes fn for every OpOperand currently using v, in list order.
func (v Value) Uses(fn func(OpOperand)) {
	rec, release := v.Borrow()
	cur := rec.useHead
	release()
	for cur.Valid() {
		fn(cur)
		nrec, release := cur.Borrow()
		next := nrec.link.next
		release()
		cur = next
	}
}

// opOperandRec is the arena record for a single use of a Value: it links
// the Value's use-list to a specific operand position of a specific
// owning Operation.
type opOperandRec struct {
	link  listLink[opOperandRec]
	value Value
	owner Handle[Operation]
	index uint8
}

// OpOperand is a single data-flow edge: a use of some Value at a specific
// operand position of a specific Operation.
type OpOperand = Handle[opOperandRec]

// Value returns the Value currently referenced by this operand.
func (o OpOperand) Value() Value {
	rec, release := o.Borrow()
	defer release()
	return rec.value
}

// Owner returns the Operation that owns this operand.
func (o OpOperand) Owner() Handle[Operation] {
	rec, release := o.Borrow()
	defer release()
	return rec.owner
}

// Index returns the operand position within its owner.
func (o OpOperand) Index() uint8 {
	rec, release := o.Borrow()
	defer release()
	return rec.index
}

// makeOperand allocates a new OpOperand use-edge pointing at value, owned
// by owner at the given index, and links it into value's use-list. It does
// NOT insert the operand into owner's operand storage; callers build that
// separately.
func (c *Context) makeOperand(value Value, owner Handle[Operation], index uint8) OpOperand {
	h := c.allocUse(opOperandRec{value: value, owner: owner, index: index})
	vrec, release := value.BorrowMut()
	linkAppend(&vrec.useHead, &vrec.useTail, h, func(h OpOperand) *listLink[opOperandRec] {
		orec, rel := h.Borrow()
		defer rel()
		return &orec.link
	})
	vrec.useCount++
	release()
	return h
}

// SetOperand atomically unlinks `operand` from its old value's use-list and
// links it into `newValue`'s use-list: an operand must never appear on two
// use-lists, nor vanish from both, even transiently.
func SetOperand(operand OpOperand, newValue Value) {
	orec, release := operand.BorrowMut()
	oldValue := orec.value
	release()

	if oldValue.Valid() {
		oldRec, rel := oldValue.BorrowMut()
		unlink(&oldRec.useHead, &oldRec.useTail, operand, func(h OpOperand) *listLink[opOperandRec] {
			r, rr := h.Borrow()
			defer rr()
			return &r.link
		})
		oldRec.useCount--
		rel()
	}

	newRec, rel := newValue.BorrowMut()
	linkAppend(&newRec.useHead, &newRec.useTail, operand, func(h OpOperand) *listLink[opOperandRec] {
		r, rr := h.Borrow()
		defer rr()
		return &r.link
	})
	newRec.useCount++
	rel()

	orec2, release2 := operand.BorrowMut()
	orec2.value = newValue
	release2()
}
