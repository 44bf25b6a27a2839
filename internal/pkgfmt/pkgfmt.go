// Package pkgfmt implements the MASP binary envelope: the on-disk package
// format a compiled Program is serialized to and later reloaded from.
//
// The envelope itself (magic, version, name, digest, MAST artifact, rodata
// segments, manifest) is this compiler's own output contract, so it is
// implemented as a real (de)serializer here. MAST byte-level encoding is
// delegated elsewhere: this port has no Miden VM assembler anywhere in its
// dependency surface, so the bytes standing in for "the MAST artifact" are
// the textual MASM rendering internal/masm.Print already produces. That is
// a scope decision, recorded in DESIGN.md, not a silent shortcut.
package pkgfmt

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"fmt"

	"github.com/midenc-go/midenc/internal/hir/types"
	"github.com/midenc-go/midenc/internal/masm"
)

// magic and version are the envelope's fixed 9-byte header, matching the
// "MASP\0" + "1.0\0" layout of the format this package's doc comment
// describes.
var (
	magic   = [5]byte{'M', 'A', 'S', 'P', 0}
	version = [4]byte{'1', '.', '0', 0}
)

// TypeDescriptor is a gob-serializable stand-in for *types.Type. types.Type
// carries only unexported fields, so it cannot be gob-encoded directly:
// a gob Encoder silently drops unexported fields, which would turn every
// signature in a package's manifest into an empty shell. TypeDescriptor
// mirrors types.Type's shape field-for-field through its exported accessor
// methods instead.
type TypeDescriptor struct {
	Kind      types.Kind
	Pointee   *TypeDescriptor
	AddrSpace uint32
	Elem      *TypeDescriptor
	Length    uint64
	Fields    []TypeDescriptor
	Packed    bool
	Params    []TypeDescriptor
	Results   []TypeDescriptor
}

// DescribeType builds a TypeDescriptor from t. A nil t yields the zero
// TypeDescriptor (KindInvalid).
func DescribeType(t *types.Type) TypeDescriptor {
	if t == nil {
		return TypeDescriptor{}
	}
	d := TypeDescriptor{Kind: t.Kind(), AddrSpace: t.AddrSpace(), Length: t.Len()}
	if p := t.Pointee(); p != nil {
		pd := DescribeType(p)
		d.Pointee = &pd
	}
	if e := t.Elem(); e != nil {
		ed := DescribeType(e)
		d.Elem = &ed
	}
	for _, f := range t.Fields() {
		d.Fields = append(d.Fields, DescribeType(f))
	}
	for _, p := range t.Params() {
		d.Params = append(d.Params, DescribeType(p))
	}
	for _, r := range t.Results() {
		d.Results = append(d.Results, DescribeType(r))
	}
	return d
}

// Reify reconstructs a *types.Type from d. The result is a freshly
// allocated, uninterned Type (see types.Type's doc comment); compare it
// with Equal.
func (d TypeDescriptor) Reify() *types.Type {
	switch d.Kind {
	case types.KindUnit:
		return types.Unit()
	case types.KindNever:
		return types.Never()
	case types.KindI1:
		return types.I1()
	case types.KindI8:
		return types.I8()
	case types.KindU8:
		return types.U8()
	case types.KindI16:
		return types.I16()
	case types.KindU16:
		return types.U16()
	case types.KindI32:
		return types.I32()
	case types.KindU32:
		return types.U32()
	case types.KindI64:
		return types.I64()
	case types.KindU64:
		return types.U64()
	case types.KindI128:
		return types.I128()
	case types.KindU128:
		return types.U128()
	case types.KindFelt:
		return types.Felt()
	case types.KindF64:
		return types.F64()
	case types.KindPtr:
		return types.Ptr(d.Pointee.Reify(), d.AddrSpace)
	case types.KindArray:
		return types.Array(d.Elem.Reify(), d.Length)
	case types.KindStruct:
		fields := make([]*types.Type, len(d.Fields))
		for i, f := range d.Fields {
			fields[i] = f.Reify()
		}
		return types.Struct(fields, d.Packed)
	case types.KindFunction:
		params := make([]*types.Type, len(d.Params))
		for i, p := range d.Params {
			params[i] = p.Reify()
		}
		results := make([]*types.Type, len(d.Results))
		for i, r := range d.Results {
			results[i] = r.Reify()
		}
		return types.Function(params, results)
	default:
		return nil
	}
}

// SignatureDescriptor is the gob-serializable form of masm.Signature.
type SignatureDescriptor struct {
	Params  []TypeDescriptor
	Results []TypeDescriptor
}

// DescribeSignature builds a SignatureDescriptor from sig.
func DescribeSignature(sig masm.Signature) SignatureDescriptor {
	sd := SignatureDescriptor{}
	for _, p := range sig.Params {
		sd.Params = append(sd.Params, DescribeType(p))
	}
	for _, r := range sig.Results {
		sd.Results = append(sd.Results, DescribeType(r))
	}
	return sd
}

// Reify reconstructs a masm.Signature from sd.
func (sd SignatureDescriptor) Reify() masm.Signature {
	sig := masm.Signature{}
	for _, p := range sd.Params {
		sig.Params = append(sig.Params, p.Reify())
	}
	for _, r := range sd.Results {
		sig.Results = append(sig.Results, r.Reify())
	}
	return sig
}

// RodataSegment is one read-only data segment embedded in a package:
// a constant blob with its own digest and the linear-memory address the
// loader installs it at, mirroring original_source's Rodata{digest,
// start, data} record.
type RodataSegment struct {
	Digest [32]byte
	Start  uint32
	Data   []byte
}

// ExportEntry is one exported procedure named in a package's manifest: its
// identifier, the MAST root digest a caller links against, and (optionally)
// its signature, mirroring original_source's PackageExport{id, digest,
// signature}.
type ExportEntry struct {
	Export    masm.FunctionIdent
	Digest    [32]byte
	Signature *SignatureDescriptor
}

// Manifest is a package's public surface: its exports and the other
// packages it declares a link dependency on, mirroring original_source's
// PackageManifest{exports, link_libraries}.
type Manifest struct {
	Exports       []ExportEntry
	LinkLibraries []string
}

// Package is the full in-memory form of a MASP envelope's payload:
// name, content digest, MAST artifact bytes, rodata segments, and manifest,
// mirroring original_source's Package{name, digest, mast, rodata,
// manifest}.
type Package struct {
	Name     string
	Digest   [32]byte
	MAST     []byte
	Rodata   []RodataSegment
	Manifest Manifest
}

// BuildPackage assembles a Package from a compiled prog: MAST is the
// textual MASM rendering of prog (internal/masm.Print; see this package's
// doc comment for why), the digest is a sha256 hash of that rendering (a
// stand-in for Miden's native RPO hash, which has no implementation
// anywhere in this compiler's dependency surface), and the manifest lists
// every IsExport function across prog's own modules (intrinsics modules are
// never exported surface, so they are excluded), each with a digest that is
// the sha256 hash of its qualified name "module::name".
func BuildPackage(name string, prog *masm.Program, rodata []RodataSegment, linkLibraries []string) (*Package, error) {
	var buf bytes.Buffer
	if err := masm.Print(&buf, prog); err != nil {
		return nil, fmt.Errorf("pkgfmt: rendering MAST artifact: %w", err)
	}
	mast := buf.Bytes()
	digest := sha256.Sum256(mast)

	pkg := &Package{
		Name:   name,
		Digest: digest,
		MAST:   mast,
		Rodata: append([]RodataSegment(nil), rodata...),
		Manifest: Manifest{
			LinkLibraries: append([]string(nil), linkLibraries...),
		},
	}

	for _, m := range prog.Modules {
		for _, fn := range m.Functions {
			if !fn.IsExport {
				continue
			}
			sd := DescribeSignature(fn.Sig)
			fnDigest := sha256.Sum256([]byte(m.Name + "::" + fn.Name))
			pkg.Manifest.Exports = append(pkg.Manifest.Exports, ExportEntry{
				Export:    fn.Ident(m.Name),
				Digest:    fnDigest,
				Signature: &sd,
			})
		}
	}
	return pkg, nil
}

// Encode serializes pkg to the MASP binary envelope: the 5-byte magic, the
// 4-byte version, then a gob-encoded payload. gob is the encoding used here
// because no serialization library (protobuf, msgpack, cbor, ...) appears
// anywhere in this compiler's grounding corpus; gob is the standard
// library's own answer to exactly this problem (self-describing Go value
// serialization) and is documented in DESIGN.md as a deliberate choice, not
// a fallback of convenience.
func Encode(pkg *Package) ([]byte, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(pkg); err != nil {
		return nil, fmt.Errorf("pkgfmt: encoding package payload: %w", err)
	}

	out := make([]byte, 0, len(magic)+len(version)+payload.Len())
	out = append(out, magic[:]...)
	out = append(out, version[:]...)
	out = append(out, payload.Bytes()...)
	return out, nil
}

// Decode parses a MASP binary envelope produced by Encode, validating the
// magic and version header before decoding the payload.
func Decode(data []byte) (*Package, error) {
	if len(data) < len(magic)+len(version) {
		return nil, fmt.Errorf("pkgfmt: envelope too short (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, fmt.Errorf("pkgfmt: bad magic %q, expected %q", data[:len(magic)], magic[:])
	}
	verOff := len(magic)
	if !bytes.Equal(data[verOff:verOff+len(version)], version[:]) {
		return nil, fmt.Errorf("pkgfmt: unsupported package version %q", data[verOff:verOff+len(version)])
	}

	payload := data[verOff+len(version):]
	var pkg Package
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&pkg); err != nil {
		return nil, fmt.Errorf("pkgfmt: decoding package payload: %w", err)
	}
	return &pkg, nil
}
