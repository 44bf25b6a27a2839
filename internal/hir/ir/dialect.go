package ir

// Dialect is a named collection of op definitions sharing a namespace.
// Dialects are the extensibility boundary that lets user-defined operations
// plug into the same Operation/Region/Block model used by the core
// dialects.
type Dialect struct {
	Namespace string
	ops       map[string]*OpDef
}

// NewDialect creates an empty Dialect for the given namespace.
func NewDialect(namespace string) *Dialect {
	return &Dialect{Namespace: namespace, ops: make(map[string]*OpDef)}
}

// Define registers an op definition in this dialect and returns it.
func (d *Dialect) Define(def *OpDef) *OpDef {
	def.Name.Dialect = d.Namespace
	d.ops[def.Name.Mnemonic] = def
	return def
}

// Lookup returns the op definition registered under mnemonic, if any.
func (d *Dialect) Lookup(mnemonic string) (*OpDef, bool) {
	def, ok := d.ops[mnemonic]
	return def, ok
}

// TraitID identifies an op-trait for the purposes of a fixed-time
// "does op X implement trait T?" dispatch table. Go's interfaces already
// provide a constant-time dynamic dispatch
// mechanism (an interface value's itab), but we still maintain an explicit
// per-OpDef trait set so that queries can be answered without constructing
// or holding a live Operation, e.g. by a verifier inspecting only the
// OpDef before any instance exists.
type TraitID uint32

const (
	TraitTerminator TraitID = iota
	TraitReturnLike
	TraitCallLike
	TraitSingleBlock
	TraitSingleRegion
	TraitNoRegionArguments
	TraitIsolatedFromAbove
	TraitSymbolTable
	TraitSymbol
	TraitCallable
)

// OpDef specifies the storage layout, declared arity, and trait set of one
// operation kind.
type OpDef struct {
	Name OperationName

	NumOperandGroups int
	NumRegions       int
	HasSuccessors    bool

	OperandArity int // fixed operand count, or -1 if variadic
	ResultArity  int

	traits map[TraitID]struct{}

	// Verify is invoked automatically when a builder commits an operation
	// of this kind. It should check anything beyond the generic
	// arity/terminator rules already enforced by Verify (verify.go).
	Verify func(Handle[Operation]) error
}

// NewOpDef constructs an op definition for mnemonic, with the given trait
// set.
func NewOpDef(mnemonic string, operandArity, resultArity int, traits ...TraitID) *OpDef {
	def := &OpDef{
		Name:         OperationName{Mnemonic: mnemonic},
		OperandArity: operandArity,
		ResultArity:  resultArity,
		traits:       make(map[TraitID]struct{}, len(traits)),
	}
	for _, t := range traits {
		def.traits[t] = struct{}{}
	}
	return def
}

// HasTrait reports whether this op definition declares trait t: a
// constant-time map lookup.
func (d *OpDef) HasTrait(t TraitID) bool {
	_, ok := d.traits[t]
	return ok
}

// OperationName is a dialect-qualified operation identifier, used for
// dynamic dispatch and pretty-printing (e.g. "hir.add", "masm.push").
type OperationName struct {
	Dialect  string
	Mnemonic string
}

func (n OperationName) String() string {
	if n.Dialect == "" {
		return n.Mnemonic
	}
	return n.Dialect + "." + n.Mnemonic
}
