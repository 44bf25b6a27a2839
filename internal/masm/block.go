package masm

// BlockID identifies a Block within the Region that owns it.
type BlockID uint32

// Block is an ordered list of Ops. Unlike internal/hir/ir.Block it carries
// no parameters: MASM has no block-argument notion, since values live on
// the simulated stack rather than in named SSA slots.
type Block struct {
	ID  BlockID
	Ops []Op
}

// Append adds op to the end of b.
func (b *Block) Append(op Op) { b.Ops = append(b.Ops, op) }

// Region is a tree of Blocks rooted at a single designated Body block; the
// nested If/While/Repeat ops hold their own child Blocks directly, so a
// Region never needs a separate block list beyond its body.
type Region struct {
	Body *Block

	nextID BlockID
}

// NewRegion allocates an empty Region with a fresh, empty body block.
func NewRegion() *Region {
	r := &Region{}
	r.Body = r.NewBlock()
	return r
}

// NewBlock allocates a new, unattached Block with the next sequential ID
// scoped to this region.
func (r *Region) NewBlock() *Block {
	b := &Block{ID: r.nextID}
	r.nextID++
	return b
}
