package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrimitiveSizes(t *testing.T) {
	cases := []struct {
		typ     *Type
		bits    uint64
		felts   uint64
		words   uint64
	}{
		{I1(), 1, 1, 1},
		{I32(), 32, 1, 1},
		{Felt(), 32, 1, 1},
		{I64(), 64, 2, 1},
		{I128(), 128, 4, 1},
	}
	for _, c := range cases {
		require.Equal(t, c.bits, c.typ.SizeInBits(), c.typ.String())
		require.Equal(t, c.felts, c.typ.SizeInFelts(), c.typ.String())
		require.Equal(t, c.words, c.typ.SizeInWords(), c.typ.String())
	}
}

func TestLimbCount(t *testing.T) {
	require.Equal(t, 1, I32().LimbCount())
	require.Equal(t, 2, I64().LimbCount())
	require.Equal(t, 4, I128().LimbCount())
	require.Equal(t, 1, U8().LimbCount())
}

func TestPtrEquality(t *testing.T) {
	a := Ptr(I32(), 0)
	b := Ptr(I32(), 0)
	c := Ptr(I32(), 1)
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestStructLayout(t *testing.T) {
	// struct { i8, i32 } should pad the i8 field up to 4-byte alignment
	// before the i32 field, and pad the overall size to the max alignment.
	st := Struct([]*Type{I8(), I32()}, false)
	require.Equal(t, uint64(64), st.SizeInBits())
	require.Equal(t, uint64(32), st.AlignInBits())

	packed := Struct([]*Type{I8(), I32()}, true)
	require.Equal(t, uint64(40), packed.SizeInBits())
}

func TestArrayLayout(t *testing.T) {
	arr := Array(I32(), 4)
	require.Equal(t, uint64(128), arr.SizeInBits())
	require.Equal(t, uint64(4), arr.SizeInFelts())
	require.Equal(t, uint64(1), arr.SizeInWords())
}

func TestFunctionEquality(t *testing.T) {
	f1 := Function([]*Type{I32(), I32()}, []*Type{I32()})
	f2 := Function([]*Type{I32(), I32()}, []*Type{I32()})
	f3 := Function([]*Type{I32()}, []*Type{I32()})
	require.True(t, f1.Equal(f2))
	require.False(t, f1.Equal(f3))
}
