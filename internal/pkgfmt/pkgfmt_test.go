package pkgfmt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/midenc-go/midenc/internal/hir/types"
	"github.com/midenc-go/midenc/internal/masm"
)

func buildTestProgram() *masm.Program {
	m := masm.NewModule("inc")
	fn := masm.NewFunction("inc", masm.Signature{
		Params:  []*types.Type{types.U32()},
		Results: []*types.Type{types.U32()},
	})
	fn.IsExport = true
	fn.Body.Body.Append(masm.Push{Value: 1})
	fn.Body.Body.Append(masm.U32Add{})
	m.AddFunction(fn)

	helper := masm.NewFunction("helper", masm.Signature{})
	m.AddFunction(helper)

	p := masm.NewProgram()
	p.AddModule(m)
	p.Entrypoint = fn.Ident("inc")
	return p
}

// TestBuildAndRoundTripPackage checks that decoding an encoded package
// reproduces every field of the original package.
func TestBuildAndRoundTripPackage(t *testing.T) {
	prog := buildTestProgram()
	rodata := []RodataSegment{{Digest: [32]byte{1, 2, 3}, Start: 1024, Data: []byte("hello")}}

	pkg, err := BuildPackage("inc-pkg", prog, rodata, []string{"miden:add/add@1.0.0"})
	require.NoError(t, err)
	require.NotEmpty(t, pkg.MAST)
	require.Len(t, pkg.Manifest.Exports, 1)
	require.Equal(t, masm.FunctionIdent{Module: "inc", Name: "inc"}, pkg.Manifest.Exports[0].Export)
	require.Equal(t, []string{"miden:add/add@1.0.0"}, pkg.Manifest.LinkLibraries)

	data, err := Encode(pkg)
	require.NoError(t, err)
	require.Equal(t, []byte("MASP\x00"), data[:5])
	require.Equal(t, []byte("1.0\x00"), data[5:9])

	got, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, pkg.Name, got.Name)
	require.Equal(t, pkg.Digest, got.Digest)
	require.Equal(t, pkg.MAST, got.MAST)
	require.Equal(t, pkg.Rodata, got.Rodata)
	require.Equal(t, pkg.Manifest.LinkLibraries, got.Manifest.LinkLibraries)
	require.Len(t, got.Manifest.Exports, 1)
	require.Equal(t, pkg.Manifest.Exports[0].Export, got.Manifest.Exports[0].Export)
	require.Equal(t, pkg.Manifest.Exports[0].Digest, got.Manifest.Exports[0].Digest)

	wantSig := pkg.Manifest.Exports[0].Signature
	gotSig := got.Manifest.Exports[0].Signature
	require.NotNil(t, gotSig)
	require.Equal(t, wantSig.Reify().Params[0].Kind(), gotSig.Reify().Params[0].Kind())
	require.Equal(t, wantSig.Reify().Results[0].Kind(), gotSig.Reify().Results[0].Kind())
}

func TestBuildPackageSkipsNonExportedFunctions(t *testing.T) {
	prog := buildTestProgram()
	pkg, err := BuildPackage("inc-pkg", prog, nil, nil)
	require.NoError(t, err)
	for _, e := range pkg.Manifest.Exports {
		require.NotEqual(t, "helper", e.Export.Name)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte("NOTMASP\x001.0\x00"))
	require.Error(t, err)
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	data := append([]byte("MASP\x00"), []byte("9.9\x00")...)
	_, err := Decode(data)
	require.Error(t, err)
}

// TestTypeDescriptorRoundTrip exercises nested type shapes (pointer, array,
// struct, function) through Describe/Reify, independent of the envelope.
func TestTypeDescriptorRoundTrip(t *testing.T) {
	cases := []*types.Type{
		types.I32(),
		types.Ptr(types.U8(), 0),
		types.Array(types.I64(), 4),
		types.Struct([]*types.Type{types.I32(), types.U64()}, false),
		types.Function([]*types.Type{types.I32(), types.I32()}, []*types.Type{types.I32()}),
	}
	for _, orig := range cases {
		desc := DescribeType(orig)
		got := desc.Reify()
		require.True(t, orig.Equal(got), "round trip mismatch for %s", orig)
	}
}
