package nativetype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTable32PointerWidth(t *testing.T) {
	tbl := NewTable32()
	require.Equal(t, 4, tbl.PointerWidth)
	p, ok := tbl.Lookup("pointer")
	require.True(t, ok)
	require.Equal(t, 4, p.Size)
}

func TestTable64WidensLong(t *testing.T) {
	tbl := NewTable64()
	require.Equal(t, 8, tbl.PointerWidth)
	p, ok := tbl.Lookup("long")
	require.True(t, ok)
	require.Equal(t, 8, p.Size)
}

func TestCloneIsIndependent(t *testing.T) {
	base := NewTable64()
	clone := base.Clone()
	clone.Override("pointer", Primitive{Size: 8, Pack: PackU64})

	_, ok := base.Lookup("pointer")
	require.True(t, ok)
	p, _ := base.Lookup("pointer")
	require.Equal(t, PackPointer, p.Pack, "override on clone must not leak back to base")
}

func TestDecodeLittleEndian(t *testing.T) {
	tbl := NewTable64()
	data := []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	v, err := tbl.Decode("pointer", data)
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
}

func TestDecodeShortRead(t *testing.T) {
	tbl := NewTable64()
	_, err := tbl.Decode("pointer", []byte{1, 2, 3})
	require.Error(t, err)
}

func TestDecodeSignedNegative(t *testing.T) {
	tbl := NewTable32()
	data := []byte{0xff, 0xff, 0xff, 0xff}
	v, err := tbl.Decode("long", data)
	require.NoError(t, err)
	require.Equal(t, uint64(0xffffffffffffffff), v)
}

func TestDecodeUnknownPrimitive(t *testing.T) {
	tbl := NewTable32()
	_, err := tbl.Decode("nonexistent", []byte{0, 0, 0, 0})
	require.Error(t, err)
}
