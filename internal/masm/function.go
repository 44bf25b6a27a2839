package masm

import "github.com/midenc-go/midenc/internal/hir/types"

// LocalsTable assigns word-granularity storage slots to a function's
// locals. Indices are never reused once assigned, even across a local
// that later becomes dead, because the stackifier may have already
// emitted loc_load/loc_store references keyed by index, and a free-list
// would require a second renumbering pass to stay sound.
type LocalsTable struct {
	names     []string
	sizes     []uint32
	nextIndex uint32
}

// NewLocalsTable returns an empty locals table.
func NewLocalsTable() *LocalsTable { return &LocalsTable{} }

// Allocate reserves sizeWords contiguous word slots for a local named
// name (name may be empty for compiler-synthesized temporaries) and
// returns the index of its first word.
func (t *LocalsTable) Allocate(name string, sizeWords uint32) uint32 {
	if sizeWords == 0 {
		sizeWords = 1
	}
	idx := t.nextIndex
	t.names = append(t.names, name)
	t.sizes = append(t.sizes, sizeWords)
	t.nextIndex += sizeWords
	return idx
}

// NumWords returns the total number of word slots allocated so far.
func (t *LocalsTable) NumWords() uint32 { return t.nextIndex }

// Signature is a function's parameter and result type list.
type Signature struct {
	Params  []*types.Type
	Results []*types.Type
}

// Function is a single MASM procedure: a name, signature, local-variable
// table, and body region. IsExport marks procedures re-exported from their
// owning Module (as opposed to private helpers only reachable via exec).
type Function struct {
	Name     string
	Sig      Signature
	Locals   *LocalsTable
	Body     *Region
	IsExport bool
}

// NewFunction allocates a Function with an empty locals table and a body
// region containing one empty block.
func NewFunction(name string, sig Signature) *Function {
	return &Function{Name: name, Sig: sig, Locals: NewLocalsTable(), Body: NewRegion()}
}

// Ident returns the FunctionIdent moduleName identifies f by within that
// module.
func (f *Function) Ident(moduleName string) FunctionIdent {
	return FunctionIdent{Module: moduleName, Name: f.Name}
}
