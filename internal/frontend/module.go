// Package frontend translates WebAssembly modules and components into HIR
// (internal/hir/ir), guided by the core dialect (internal/hir/dialect). It
// mirrors wazero's frontend/ssa split: a small binary reader produces a
// ModuleInfo describing the module's static shape, and FuncTranslator walks
// each function body's operators to build its HIR region incrementally,
// using the same block-sealing SSA construction wazero's ssa.Builder
// implements (Braun et al., "Simple and Efficient Construction of Static
// Single Assignment Form").
package frontend

import (
	"encoding/binary"
	"fmt"

	"github.com/midenc-go/midenc/internal/hir/types"
)

// ValType is a WebAssembly value type, distinct from this compiler's own
// internal/hir/types.Type so the binary reader has no dependency on how the
// HIR chooses to represent Wasm types.
type ValType byte

const (
	ValI32 ValType = 0x7F
	ValI64 ValType = 0x7E
	ValF32 ValType = 0x7D
	ValF64 ValType = 0x7C
)

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	default:
		return fmt.Sprintf("valtype(0x%02x)", byte(v))
	}
}

// ToHIR maps a Wasm value type to its HIR representation.
func (v ValType) ToHIR() (*types.Type, error) {
	switch v {
	case ValI32:
		return types.I32(), nil
	case ValI64:
		return types.I64(), nil
	case ValF64:
		return types.F64(), nil
	default:
		return nil, fmt.Errorf("frontend: value type %s has no HIR representation in this backend", v)
	}
}

// FunctionType is one entry of the module's type section.
type FunctionType struct {
	Params  []ValType
	Results []ValType
}

// ImportedFunction records an imported function's origin and type.
type ImportedFunction struct {
	Module, Field string
	TypeIndex     uint32
}

// Function is a module-defined (non-imported) function: its type and the
// raw bytes of its code-section entry (locals declarations then operator
// stream), left undecoded until FuncTranslator walks it.
type Function struct {
	TypeIndex uint32
	Body      []byte
	// CodeOffset is the byte offset of Body within the original module's
	// code section, used to resolve DWARF source locations by operator
	// offset.
	CodeOffset uint64
}

// MemoryInfo describes one linear memory's page limits.
type MemoryInfo struct {
	MinPages uint32
	MaxPages uint32
	HasMax   bool
}

// GlobalInfo describes one global variable: its type, mutability, and
// constant initializer expression (already reduced to a value, since this
// compiler only supports the i32.const and i64.const initializer forms;
// a global.get initializer is rejected by the decoder).
type GlobalInfo struct {
	Type    ValType
	Mutable bool
	Init    int64
}

// DataSegment is an active data-section entry: bytes to be placed at a
// constant memory offset at instantiation time.
type DataSegment struct {
	Offset uint32
	Data   []byte
}

// Export names a function, memory, or global made visible outside the
// module.
type Export struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

type ExportKind byte

const (
	ExportFunction ExportKind = iota
	ExportMemory
	ExportGlobal
)

// ModuleInfo is the static shape of a parsed Wasm module: everything the
// function translator and the rest of the compiler need to know about a
// module without re-reading its bytes.
type ModuleInfo struct {
	Types     []FunctionType
	Imports   []ImportedFunction
	Functions []Function
	Memories  []MemoryInfo
	Globals   []GlobalInfo
	DataSegs  []DataSegment
	Exports   []Export
	// StartFunc is the module's start function index, if any.
	StartFunc    uint32
	HasStartFunc bool
	// FuncTypeIndex[i] is m.Types index of the i-th function in the
	// module's combined (imported-then-local) function space.
	FuncTypeIndex []uint32
	// CodeSectionOffset is the file offset of the code section's body.
	// DWARF offsets are relative to that start; adding this value maps
	// them back to positions in the original file.
	CodeSectionOffset uint64
	// CustomSections holds every custom section's raw payload keyed by
	// name, including the ".debug_*" sections a DWARF-emitting toolchain
	// (e.g. a Rust or TinyGo frontend targeting this Wasm module) embeds.
	CustomSections map[string][]byte
}

// TypeOf resolves the FunctionType of the funcIdx-th function in the
// combined (imports-then-locals) function index space.
func (m *ModuleInfo) TypeOf(funcIdx uint32) (FunctionType, error) {
	if int(funcIdx) >= len(m.FuncTypeIndex) {
		return FunctionType{}, fmt.Errorf("frontend: function index %d out of range", funcIdx)
	}
	ti := m.FuncTypeIndex[funcIdx]
	if int(ti) >= len(m.Types) {
		return FunctionType{}, fmt.Errorf("frontend: type index %d out of range", ti)
	}
	return m.Types[ti], nil
}

// IsImported reports whether funcIdx names an imported function rather
// than a locally defined one.
func (m *ModuleInfo) IsImported(funcIdx uint32) bool {
	return int(funcIdx) < len(m.Imports)
}

// wasm module/section layout, mirroring wazero's internal/wasm/binary
// constants but limited to the sections this compiler actually consumes.
const (
	wasmMagic   = 0x6D736100 // "\0asm"
	wasmVersion = 0x00000001

	secCustom   = 0
	secType     = 1
	secImport   = 2
	secFunction = 3
	secTable    = 4
	secMemory   = 5
	secGlobal   = 6
	secExport   = 7
	secStart    = 8
	secElement  = 9
	secCode     = 10
	secData     = 11
)

const (
	externFunc byte = iota
	externTable
	externMemory
	externGlobal
)

// reader is a small cursor over module bytes with the LEB128 and
// fixed-width decoders a Wasm binary section needs. Grounded on the shape
// of wazero's internal/leb128 helpers (ReadUint32/ReadVarint64 returning a
// decoded value, a byte count, and an error), adapted to a stateful cursor
// instead of free functions operating on an io.Reader.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) u8() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("frontend: unexpected end of input at offset %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("frontend: unexpected end of input at offset %d", r.pos)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// uleb reads an unsigned LEB128-encoded integer.
func (r *reader) uleb() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.u8()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, fmt.Errorf("frontend: LEB128 integer too large at offset %d", r.pos)
		}
	}
}

// sleb reads a signed LEB128-encoded integer of up to 64 significant bits.
func (r *reader) sleb() (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.u8()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

func (r *reader) u32() (uint32, error) {
	v, err := r.uleb()
	return uint32(v), err
}

func (r *reader) name() (string, error) {
	n, err := r.uleb()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) valType() (ValType, error) {
	b, err := r.u8()
	return ValType(b), err
}

// DecodeModule parses a core Wasm module's bytes into a ModuleInfo. It
// implements the subset of the binary format this compiler's frontend
// needs (type/import/function/memory/global/export/start/code/data
// sections). Custom sections are kept, uninterpreted, in CustomSections
// keyed by name; other sections (table, element) are skipped by length.
func DecodeModule(data []byte) (*ModuleInfo, error) {
	r := &reader{data: data}
	magic, err := r.bytes(4)
	if err != nil {
		return nil, fmt.Errorf("frontend: reading module header: %w", err)
	}
	if binary.LittleEndian.Uint32(magic) != wasmMagic {
		return nil, fmt.Errorf("frontend: not a Wasm module (bad magic)")
	}
	ver, err := r.bytes(4)
	if err != nil {
		return nil, fmt.Errorf("frontend: reading module version: %w", err)
	}
	if binary.LittleEndian.Uint32(ver) != wasmVersion {
		return nil, fmt.Errorf("frontend: unsupported Wasm version %#x", binary.LittleEndian.Uint32(ver))
	}

	m := &ModuleInfo{}
	for r.pos < len(r.data) {
		id, err := r.u8()
		if err != nil {
			return nil, err
		}
		size, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("frontend: reading section %d size: %w", id, err)
		}
		body, err := r.bytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("frontend: reading section %d body: %w", id, err)
		}
		sr := &reader{data: body}
		switch id {
		case secType:
			if err := decodeTypeSection(sr, m); err != nil {
				return nil, err
			}
		case secImport:
			if err := decodeImportSection(sr, m); err != nil {
				return nil, err
			}
		case secFunction:
			if err := decodeFunctionSection(sr, m); err != nil {
				return nil, err
			}
		case secMemory:
			if err := decodeMemorySection(sr, m); err != nil {
				return nil, err
			}
		case secGlobal:
			if err := decodeGlobalSection(sr, m); err != nil {
				return nil, err
			}
		case secExport:
			if err := decodeExportSection(sr, m); err != nil {
				return nil, err
			}
		case secStart:
			idx, err := sr.u32()
			if err != nil {
				return nil, err
			}
			m.StartFunc, m.HasStartFunc = idx, true
		case secCode:
			m.CodeSectionOffset = uint64(r.pos - int(size))
			if err := decodeCodeSection(sr, m, m.CodeSectionOffset); err != nil {
				return nil, err
			}
		case secData:
			if err := decodeDataSection(sr, m); err != nil {
				return nil, err
			}
		case secCustom:
			name, err := sr.name()
			if err != nil {
				return nil, fmt.Errorf("frontend: reading custom section name: %w", err)
			}
			if m.CustomSections == nil {
				m.CustomSections = map[string][]byte{}
			}
			m.CustomSections[name] = append([]byte(nil), body[sr.pos:]...)
		case secTable, secElement:
			// Not consumed by this backend; tables/elements are only
			// relevant to call_indirect, which is outside the opcode
			// subset this frontend translates.
		default:
			return nil, fmt.Errorf("frontend: unknown section id %d", id)
		}
	}
	return m, nil
}

func decodeTypeSection(r *reader, m *ModuleInfo) error {
	n, err := r.uleb()
	if err != nil {
		return err
	}
	m.Types = make([]FunctionType, n)
	for i := range m.Types {
		form, err := r.u8()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return fmt.Errorf("frontend: unsupported type-section form 0x%02x", form)
		}
		np, err := r.uleb()
		if err != nil {
			return err
		}
		params := make([]ValType, np)
		for j := range params {
			if params[j], err = r.valType(); err != nil {
				return err
			}
		}
		nr, err := r.uleb()
		if err != nil {
			return err
		}
		results := make([]ValType, nr)
		for j := range results {
			if results[j], err = r.valType(); err != nil {
				return err
			}
		}
		m.Types[i] = FunctionType{Params: params, Results: results}
	}
	return nil
}

func decodeImportSection(r *reader, m *ModuleInfo) error {
	n, err := r.uleb()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		mod, err := r.name()
		if err != nil {
			return err
		}
		field, err := r.name()
		if err != nil {
			return err
		}
		kind, err := r.u8()
		if err != nil {
			return err
		}
		switch kind {
		case externFunc:
			ti, err := r.u32()
			if err != nil {
				return err
			}
			m.Imports = append(m.Imports, ImportedFunction{Module: mod, Field: field, TypeIndex: ti})
			m.FuncTypeIndex = append(m.FuncTypeIndex, ti)
		case externMemory:
			minP, maxP, has, err := readLimits(r)
			if err != nil {
				return err
			}
			m.Memories = append(m.Memories, MemoryInfo{MinPages: minP, MaxPages: maxP, HasMax: has})
		case externGlobal:
			if _, err := r.valType(); err != nil {
				return err
			}
			if _, err := r.u8(); err != nil { // mutability
				return err
			}
		case externTable:
			if _, err := r.u8(); err != nil { // elem type
				return err
			}
			if _, _, _, err := readLimits(r); err != nil {
				return err
			}
		default:
			return fmt.Errorf("frontend: unknown import kind %d", kind)
		}
	}
	return nil
}

func readLimits(r *reader) (min, max uint32, hasMax bool, err error) {
	flags, err := r.u8()
	if err != nil {
		return 0, 0, false, err
	}
	min, err = r.u32()
	if err != nil {
		return 0, 0, false, err
	}
	if flags&0x1 != 0 {
		max, err = r.u32()
		if err != nil {
			return 0, 0, false, err
		}
		hasMax = true
	}
	return min, max, hasMax, nil
}

func decodeFunctionSection(r *reader, m *ModuleInfo) error {
	n, err := r.uleb()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		ti, err := r.u32()
		if err != nil {
			return err
		}
		m.FuncTypeIndex = append(m.FuncTypeIndex, ti)
		m.Functions = append(m.Functions, Function{TypeIndex: ti})
	}
	return nil
}

func decodeMemorySection(r *reader, m *ModuleInfo) error {
	n, err := r.uleb()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		minP, maxP, has, err := readLimits(r)
		if err != nil {
			return err
		}
		m.Memories = append(m.Memories, MemoryInfo{MinPages: minP, MaxPages: maxP, HasMax: has})
	}
	return nil
}

func decodeGlobalSection(r *reader, m *ModuleInfo) error {
	n, err := r.uleb()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		vt, err := r.valType()
		if err != nil {
			return err
		}
		mutByte, err := r.u8()
		if err != nil {
			return err
		}
		init, err := readConstExpr(r)
		if err != nil {
			return err
		}
		m.Globals = append(m.Globals, GlobalInfo{Type: vt, Mutable: mutByte != 0, Init: init})
	}
	return nil
}

// readConstExpr reads a constant initializer expression, supporting only
// the i32.const/i64.const/end forms this compiler's global and data
// segment initializers use.
func readConstExpr(r *reader) (int64, error) {
	op, err := r.u8()
	if err != nil {
		return 0, err
	}
	var v int64
	switch op {
	case opI32Const, opI64Const:
		v, err = r.sleb()
		if err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("frontend: unsupported constant-expression opcode 0x%02x", op)
	}
	end, err := r.u8()
	if err != nil {
		return 0, err
	}
	if end != opEnd {
		return 0, fmt.Errorf("frontend: constant expression missing end opcode")
	}
	return v, nil
}

func decodeExportSection(r *reader, m *ModuleInfo) error {
	n, err := r.uleb()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		name, err := r.name()
		if err != nil {
			return err
		}
		kind, err := r.u8()
		if err != nil {
			return err
		}
		idx, err := r.u32()
		if err != nil {
			return err
		}
		var ek ExportKind
		switch kind {
		case externFunc:
			ek = ExportFunction
		case externMemory:
			ek = ExportMemory
		case externGlobal:
			ek = ExportGlobal
		default:
			continue // tables aren't exported by anything this backend emits
		}
		m.Exports = append(m.Exports, Export{Name: name, Kind: ek, Index: idx})
	}
	return nil
}

func decodeCodeSection(r *reader, m *ModuleInfo, sectionOffset uint64) error {
	n, err := r.uleb()
	if err != nil {
		return err
	}
	if int(n) != len(m.Functions) {
		return fmt.Errorf("frontend: code section has %d entries, function section declared %d", n, len(m.Functions))
	}
	for i := uint64(0); i < n; i++ {
		size, err := r.u32()
		if err != nil {
			return err
		}
		offset := uint64(r.pos) // relative to the code section's body
		body, err := r.bytes(int(size))
		if err != nil {
			return err
		}
		m.Functions[i].Body = body
		m.Functions[i].CodeOffset = offset
	}
	return nil
}

func decodeDataSection(r *reader, m *ModuleInfo) error {
	n, err := r.uleb()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		memIdx, err := r.u32()
		if err != nil {
			return err
		}
		if memIdx != 0 {
			return fmt.Errorf("frontend: multi-memory data segments are not supported by this backend")
		}
		offset, err := readConstExpr(r)
		if err != nil {
			return err
		}
		sz, err := r.uleb()
		if err != nil {
			return err
		}
		data, err := r.bytes(int(sz))
		if err != nil {
			return err
		}
		m.DataSegs = append(m.DataSegs, DataSegment{Offset: uint32(offset), Data: append([]byte(nil), data...)})
	}
	return nil
}
