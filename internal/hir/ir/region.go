package ir

// Region is an ordered list of Blocks, forming the body of an Operation
// that contains nested code. The first block is the entry block, and its
// parameters are considered the region's own parameters.
type Region struct {
	owner  Handle[Operation]
	blocks []Handle[Block]
}

// Owner returns the Operation that this region is nested inside.
func (r Handle[Region]) Owner() Handle[Operation] {
	rec, release := r.Borrow()
	defer release()
	return rec.owner
}

// NumBlocks returns the number of blocks currently in r.
func (r Handle[Region]) NumBlocks() int {
	rec, release := r.Borrow()
	defer release()
	return len(rec.blocks)
}

// EntryBlock returns the first block of r, which by convention carries the
// region's own parameters.
func (r Handle[Region]) EntryBlock() (Handle[Block], bool) {
	rec, release := r.Borrow()
	defer release()
	if len(rec.blocks) == 0 {
		return Handle[Block]{}, false
	}
	return rec.blocks[0], true
}

// Blocks returns the blocks of r, in order.
func (r Handle[Region]) Blocks() []Handle[Block] {
	rec, release := r.Borrow()
	defer release()
	out := make([]Handle[Block], len(rec.blocks))
	copy(out, rec.blocks)
	return out
}

// AppendBlock attaches a previously-detached block to the end of r.
func (c *Context) AppendBlock(r Handle[Region], b Handle[Block]) {
	brec, release := b.BorrowMut()
	if brec.link.linked {
		release()
		panic("AppendBlock: block is already attached to a region")
	}
	brec.link.linked = true
	brec.parentRegion = r
	release()

	rrec, rrelease := r.BorrowMut()
	rrec.blocks = append(rrec.blocks, b)
	rrelease()
}

// InsertBlockAfter attaches a previously-detached block immediately after
// `after` in r's block list.
func (c *Context) InsertBlockAfter(r Handle[Region], after, b Handle[Block]) {
	brec, release := b.BorrowMut()
	if brec.link.linked {
		release()
		panic("InsertBlockAfter: block is already attached to a region")
	}
	brec.link.linked = true
	brec.parentRegion = r
	release()

	rrec, rrelease := r.BorrowMut()
	idx := -1
	for i, blk := range rrec.blocks {
		if blk.Equal(after) {
			idx = i
			break
		}
	}
	if idx < 0 {
		rrelease()
		panic("InsertBlockAfter: `after` is not a block of this region")
	}
	rrec.blocks = append(rrec.blocks, Handle[Block]{})
	copy(rrec.blocks[idx+2:], rrec.blocks[idx+1:])
	rrec.blocks[idx+1] = b
	rrelease()
}

// RemoveBlock detaches b from r's block list. Detaching does not reclaim
// contained ops/values.
func (c *Context) RemoveBlock(r Handle[Region], b Handle[Block]) {
	rrec, rrelease := r.BorrowMut()
	idx := -1
	for i, blk := range rrec.blocks {
		if blk.Equal(b) {
			idx = i
			break
		}
	}
	if idx < 0 {
		rrelease()
		panic("RemoveBlock: block is not a member of this region")
	}
	rrec.blocks = append(rrec.blocks[:idx], rrec.blocks[idx+1:]...)
	rrelease()

	brec, brelease := b.BorrowMut()
	brec.link.linked = false
	brec.parentRegion = Handle[Region]{}
	brelease()
}
