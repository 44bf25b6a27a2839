package ir

import "github.com/midenc-go/midenc/internal/hir/types"

// blockOperandRec is the arena record for one successor edge: a use of a
// Block as a branch target from a specific terminator operation. It
// mirrors opOperandRec, but the thing being used is a Block rather than a
// Value.
type blockOperandRec struct {
	link  listLink[blockOperandRec]
	block Handle[Block]
	owner Handle[Operation]
	index uint8
}

// BlockOperand is a single control-flow edge: one terminator's reference to
// one of its successor blocks.
type BlockOperand = Handle[blockOperandRec]

func (b BlockOperand) Block() Handle[Block] {
	rec, release := b.Borrow()
	defer release()
	return rec.block
}

func (b BlockOperand) Owner() Handle[Operation] {
	rec, release := b.Borrow()
	defer release()
	return rec.owner
}

// Block is an ordered sequence of Operations ending in a Terminator,
// together with a typed parameter list and the use-list of incoming
// BlockOperand edges.
type Block struct {
	parentRegion Handle[Region]
	link         listLink[Block] // position within parentRegion's block list

	params []Handle[valueRec]

	opsHead, opsTail Handle[Operation]
	numOps           int

	predHead, predTail Handle[blockOperandRec]
	numPreds           int
}

// CreateBlock allocates a new, detached, parameterless Block.
func (c *Context) CreateBlock() Handle[Block] {
	return alloc(c, "Block", Block{})
}

// CreateBlockWithParams allocates a new, detached Block with one typed
// parameter per entry of tys.
func (c *Context) CreateBlockWithParams(tys []*types.Type) Handle[Block] {
	h := c.CreateBlock()
	rec, release := h.BorrowMut()
	for _, ty := range tys {
		idx := uint8(len(rec.params))
		arg := alloc(c, "BlockArgument", valueRec{kind: ValueBlockArgument, ty: ty, owningBlock: h, argIndex: idx})
		rec.params = append(rec.params, arg)
	}
	release()
	return h
}

// AddParam appends a new typed parameter to b and returns its Value.
func (c *Context) AddParam(b Handle[Block], ty *types.Type) Value {
	rec, release := b.BorrowMut()
	idx := uint8(len(rec.params))
	arg := alloc(c, "BlockArgument", valueRec{kind: ValueBlockArgument, ty: ty, owningBlock: b, argIndex: idx})
	rec.params = append(rec.params, arg)
	release()
	return arg
}

// NumParams returns the number of parameters b declares.
func (b Handle[Block]) NumParams() int {
	rec, release := b.Borrow()
	defer release()
	return len(rec.params)
}

// Param returns the Value corresponding to the i-th parameter of b.
func (b Handle[Block]) Param(i int) Value {
	rec, release := b.Borrow()
	defer release()
	return rec.params[i]
}

// Params returns all parameter Values of b, in declaration order.
func (b Handle[Block]) Params() []Value {
	rec, release := b.Borrow()
	defer release()
	out := make([]Value, len(rec.params))
	copy(out, rec.params)
	return out
}

// NumOps returns the number of operations currently in b.
func (b Handle[Block]) NumOps() int {
	rec, release := b.Borrow()
	defer release()
	return rec.numOps
}

// ForEachOp invokes fn for every operation in b, in program order.
func (b Handle[Block]) ForEachOp(fn func(Handle[Operation])) {
	rec, release := b.Borrow()
	cur := rec.opsHead
	release()
	for cur.Valid() {
		fn(cur)
		orec, rel := cur.Borrow()
		next := orec.link.next
		rel()
		cur = next
	}
}

// Terminator returns the last operation in b, which must always be a
// Terminator for an attached, well-formed block.
func (b Handle[Block]) Terminator() (Handle[Operation], bool) {
	rec, release := b.Borrow()
	defer release()
	if !rec.opsTail.Valid() {
		return Handle[Operation]{}, false
	}
	return rec.opsTail, true
}

// AppendOp appends op to the end of b's operation list.
func (b Handle[Block]) AppendOp(op Handle[Operation]) {
	rec, release := b.BorrowMut()
	linkAppend(&rec.opsHead, &rec.opsTail, op, func(h Handle[Operation]) *listLink[Operation] {
		r, rel := h.Borrow()
		defer rel()
		return &r.link
	})
	rec.numOps++
	release()

	orec2, orelease2 := op.BorrowMut()
	orec2.parentBlock = b
	orelease2()
}

// RemoveOp detaches op from b's operation list. The op's result values are
// not reclaimed and their uses are left intact.
func (b Handle[Block]) RemoveOp(op Handle[Operation]) {
	rec, release := b.BorrowMut()
	unlink(&rec.opsHead, &rec.opsTail, op, func(h Handle[Operation]) *listLink[Operation] {
		r, rel := h.Borrow()
		defer rel()
		return &r.link
	})
	rec.numOps--
	release()
}

// Detached reports whether b is not currently attached to any Region.
func (b Handle[Block]) Detached() bool {
	rec, release := b.Borrow()
	defer release()
	return !rec.link.linked
}

// ParentRegion returns the Region that owns b, if attached.
func (b Handle[Block]) ParentRegion() (Handle[Region], bool) {
	rec, release := b.Borrow()
	defer release()
	if !rec.link.linked {
		return Handle[Region]{}, false
	}
	return rec.parentRegion, true
}

// NumPreds returns the number of distinct incoming control-flow edges to b.
func (b Handle[Block]) NumPreds() int {
	rec, release := b.Borrow()
	defer release()
	return rec.numPreds
}

// ForEachPred invokes fn for every incoming BlockOperand edge to b.
func (b Handle[Block]) ForEachPred(fn func(BlockOperand)) {
	rec, release := b.Borrow()
	cur := rec.predHead
	release()
	for cur.Valid() {
		fn(cur)
		brec, rel := cur.Borrow()
		next := brec.link.next
		rel()
		cur = next
	}
}

func (c *Context) addPred(target Handle[Block], owner Handle[Operation], index uint8) BlockOperand {
	h := alloc(c, "BlockOperand", blockOperandRec{block: target, owner: owner, index: index})
	rec, release := target.BorrowMut()
	linkAppend(&rec.predHead, &rec.predTail, h, func(h BlockOperand) *listLink[blockOperandRec] {
		r, rel := h.Borrow()
		defer rel()
		return &r.link
	})
	rec.numPreds++
	release()
	return h
}

func (c *Context) removePred(target Handle[Block], bo BlockOperand) {
	rec, release := target.BorrowMut()
	unlink(&rec.predHead, &rec.predTail, bo, func(h BlockOperand) *listLink[blockOperandRec] {
		r, rel := h.Borrow()
		defer rel()
		return &r.link
	})
	rec.numPreds--
	release()
}
