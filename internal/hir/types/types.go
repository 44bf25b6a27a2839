// Package types implements the HIR type system: primitives, integer widths,
// pointers, arrays, structs and function types, along with the size and
// alignment queries the code generator depends on.
package types

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// alignUp rounds v up to the next multiple of align (align must be > 0),
// shared by every size/alignment query below that needs word- or
// field-granularity rounding over the various unsigned integer widths
// those queries return.
func alignUp[T constraints.Unsigned](v, align T) T {
	if rem := v % align; rem != 0 {
		return v + (align - rem)
	}
	return v
}

// maxOf returns the larger of a and b, used by struct alignment to find
// the widest member's alignment requirement.
func maxOf[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// minOf returns the smaller of a and b, used to cap a primitive scalar's
// natural alignment at one word.
func minOf[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Kind identifies the shape of a Type without needing a type switch at every
// call site.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindNever
	KindI1
	KindI8
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindI64
	KindU64
	KindI128
	KindU128
	KindFelt
	KindF64
	KindPtr
	KindArray
	KindStruct
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindNever:
		return "never"
	case KindI1:
		return "i1"
	case KindI8:
		return "i8"
	case KindU8:
		return "u8"
	case KindI16:
		return "i16"
	case KindU16:
		return "u16"
	case KindI32:
		return "i32"
	case KindU32:
		return "u32"
	case KindI64:
		return "i64"
	case KindU64:
		return "u64"
	case KindI128:
		return "i128"
	case KindU128:
		return "u128"
	case KindFelt:
		return "felt"
	case KindF64:
		return "f64"
	case KindPtr:
		return "ptr"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindFunction:
		return "function"
	default:
		return "invalid"
	}
}

// FeltBits is the width, in bits, of the Wasm-to-MASM felt-limb mapping: one
// felt carries 32 bits, never the VM's full ~64-bit modulus.
const FeltBits = 32

// WordFelts is the number of felts in one Miden word.
const WordFelts = 4

// Type is an immutable HIR type. Types are not interned: each constructor
// call returns a fresh value, so compare types with Equal, not by pointer.
// This file describes shape and size/alignment queries.
type Type struct {
	kind Kind

	// Ptr
	pointee     *Type
	addrSpace   uint32
	// Array
	elem   *Type
	length uint64
	// Struct
	fields []*Type
	packed bool
	// Function
	params  []*Type
	results []*Type
}

func Unit() *Type    { return &Type{kind: KindUnit} }
func Never() *Type   { return &Type{kind: KindNever} }
func I1() *Type      { return &Type{kind: KindI1} }
func I8() *Type      { return &Type{kind: KindI8} }
func U8() *Type      { return &Type{kind: KindU8} }
func I16() *Type     { return &Type{kind: KindI16} }
func U16() *Type     { return &Type{kind: KindU16} }
func I32() *Type     { return &Type{kind: KindI32} }
func U32() *Type     { return &Type{kind: KindU32} }
func I64() *Type     { return &Type{kind: KindI64} }
func U64() *Type     { return &Type{kind: KindU64} }
func I128() *Type    { return &Type{kind: KindI128} }
func U128() *Type    { return &Type{kind: KindU128} }
func Felt() *Type    { return &Type{kind: KindFelt} }
func F64() *Type     { return &Type{kind: KindF64} }

// Ptr constructs a pointer type to `pointee` in address space `space`.
func Ptr(pointee *Type, space uint32) *Type {
	return &Type{kind: KindPtr, pointee: pointee, addrSpace: space}
}

// Array constructs a fixed-length array type of `n` elements of type `elem`.
func Array(elem *Type, n uint64) *Type {
	return &Type{kind: KindArray, elem: elem, length: n}
}

// Struct constructs a struct type from an ordered field list. `packed`
// disables natural alignment padding between fields.
func Struct(fields []*Type, packed bool) *Type {
	return &Type{kind: KindStruct, fields: fields, packed: packed}
}

// Function constructs a function type.
func Function(params, results []*Type) *Type {
	return &Type{kind: KindFunction, params: params, results: results}
}

func (t *Type) Kind() Kind    { return t.kind }
func (t *Type) Pointee() *Type { return t.pointee }
func (t *Type) AddrSpace() uint32 { return t.addrSpace }
func (t *Type) Elem() *Type   { return t.elem }
func (t *Type) Len() uint64   { return t.length }
func (t *Type) Fields() []*Type { return t.fields }
func (t *Type) Params() []*Type  { return t.params }
func (t *Type) Results() []*Type { return t.results }

// IsInteger reports whether t is one of the fixed-width integer kinds.
func (t *Type) IsInteger() bool {
	switch t.kind {
	case KindI1, KindI8, KindU8, KindI16, KindU16, KindI32, KindU32, KindI64, KindU64, KindI128, KindU128:
		return true
	default:
		return false
	}
}

// IsSigned reports whether t is a signed integer kind. i1 is considered
// unsigned (it is a boolean).
func (t *Type) IsSigned() bool {
	switch t.kind {
	case KindI8, KindI16, KindI32, KindI64, KindI128:
		return true
	default:
		return false
	}
}

// SizeInBits returns the bit width of t.
func (t *Type) SizeInBits() uint64 {
	switch t.kind {
	case KindUnit, KindNever:
		return 0
	case KindI1:
		return 1
	case KindI8, KindU8:
		return 8
	case KindI16, KindU16:
		return 16
	case KindI32, KindU32:
		return 32
	case KindFelt:
		return 32 // one felt limb in the Wasm-to-MASM mapping
	case KindI64, KindU64:
		return 64
	case KindF64:
		return 64
	case KindI128, KindU128:
		return 128
	case KindPtr:
		return 32
	case KindArray:
		return t.elem.SizeInBits() * t.length
	case KindStruct:
		return structSizeInBits(t)
	case KindFunction:
		return 0
	default:
		panic(fmt.Sprintf("SizeInBits: invalid type %v", t.kind))
	}
}

func structSizeInBits(t *Type) uint64 {
	var total uint64
	for _, f := range t.fields {
		if !t.packed {
			total = alignUp(total, f.AlignInBits())
		}
		total += f.SizeInBits()
	}
	if !t.packed {
		if align := t.AlignInBits(); align > 0 {
			total = alignUp(total, align)
		}
	}
	return total
}

// SizeInBytes rounds SizeInBits up to a whole byte.
func (t *Type) SizeInBytes() uint64 {
	return alignUp(t.SizeInBits(), 8) / 8
}

// SizeInFelts rounds SizeInBits up to a whole 32-bit felt limb.
func (t *Type) SizeInFelts() uint64 {
	return alignUp(t.SizeInBits(), FeltBits) / FeltBits
}

// SizeInWords rounds SizeInFelts up to a whole 4-felt word.
func (t *Type) SizeInWords() uint64 {
	return alignUp(t.SizeInFelts(), WordFelts) / WordFelts
}

// AlignInBits returns the natural alignment of t, in bits.
func (t *Type) AlignInBits() uint64 {
	switch t.kind {
	case KindUnit, KindNever:
		return 8
	case KindStruct:
		align := uint64(8)
		for _, f := range t.fields {
			align = maxOf(align, f.AlignInBits())
		}
		return align
	case KindArray:
		return t.elem.AlignInBits()
	default:
		// Primitive scalars align to their own size, capped at one word.
		bits := t.SizeInBits()
		if bits == 0 {
			return 8
		}
		return minOf(bits, WordFelts*FeltBits)
	}
}

// LimbCount returns the number of 32-bit felt limbs used to represent an
// integer type on the operand stack. Non-integer types panic.
func (t *Type) LimbCount() int {
	if !t.IsInteger() {
		panic(fmt.Sprintf("LimbCount: %v is not an integer type", t.kind))
	}
	switch t.kind {
	case KindI64, KindU64:
		return 2
	case KindI128, KindU128:
		return 4
	default:
		return 1
	}
}

func (t *Type) String() string {
	switch t.kind {
	case KindPtr:
		return fmt.Sprintf("ptr<%d>(%s)", t.addrSpace, t.pointee)
	case KindArray:
		return fmt.Sprintf("[%s; %d]", t.elem, t.length)
	case KindStruct:
		return "struct{...}"
	case KindFunction:
		return "fn(...)"
	default:
		return t.kind.String()
	}
}

// Equal reports structural equality. Types are not interned, so two
// separately constructed equal types are distinct pointers.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.kind != o.kind {
		return false
	}
	switch t.kind {
	case KindPtr:
		return t.addrSpace == o.addrSpace && t.pointee.Equal(o.pointee)
	case KindArray:
		return t.length == o.length && t.elem.Equal(o.elem)
	case KindStruct:
		if t.packed != o.packed || len(t.fields) != len(o.fields) {
			return false
		}
		for i := range t.fields {
			if !t.fields[i].Equal(o.fields[i]) {
				return false
			}
		}
		return true
	case KindFunction:
		if len(t.params) != len(o.params) || len(t.results) != len(o.results) {
			return false
		}
		for i := range t.params {
			if !t.params[i].Equal(o.params[i]) {
				return false
			}
		}
		for i := range t.results {
			if !t.results[i].Equal(o.results[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
