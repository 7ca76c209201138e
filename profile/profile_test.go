package profile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arvidw/physmem/nativetype"
	"github.com/arvidw/physmem/vtype"
)

func windowsMeta() Metadata {
	return Metadata{OS: "windows", MemoryModel: "32bit", VersionMajor: 6, VersionMinor: 1}
}

func TestProfileCompileOffsetAndSizeOf(t *testing.T) {
	b := NewBuilder(windowsMeta(), nativetype.NewTable32())
	b.AddBaseType(vtype.Base{Name: "_EPROCESS", Size: 0x100, Fields: map[string]vtype.Field{
		"UniqueProcessId": {Offset: 0x84, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned long"}},
	}})

	p, err := b.Compile()
	require.NoError(t, err)

	off, ok := p.OffsetOf("_EPROCESS", "UniqueProcessId")
	require.True(t, ok)
	require.Equal(t, 0x84, off)

	size, ok := p.SizeOf("_EPROCESS")
	require.True(t, ok)
	require.Equal(t, 0x100, size)

	_, ok = p.OffsetOf("_EPROCESS", "NoSuchField")
	require.False(t, ok)
}

// Property 5 at the profile level: applying overlays [O1, O2] via a
// modification chain then compiling matches manually merging base+O1+O2.
func TestProperty5ProfileOverlayMergeDeterminism(t *testing.T) {
	base := vtype.Base{Name: "_EPROCESS", Size: 0x20, Fields: map[string]vtype.Field{
		"Pid": {Offset: 0x4, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned long"}},
	}}
	o1 := vtype.Overlay{Name: "_EPROCESS", Fields: map[string]vtype.OverlayField{
		"Pid": {HasOffset: true, Offset: 0x8},
	}}
	o2 := vtype.Overlay{Name: "_EPROCESS", Fields: map[string]vtype.OverlayField{
		"ImageFileName": {HasOffset: true, Offset: 0x10, HasType: true, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned char"}},
	}}

	want, err := vtype.Compile(base, o1, o2)
	require.NoError(t, err)

	b := NewBuilder(windowsMeta(), nativetype.NewTable32())
	b.AddBaseType(base)
	b.AddOverlay("_EPROCESS", o1)
	b.AddModification(Modification{
		Name: "add-image-name",
		Apply: func(b *Builder) error {
			b.AddOverlay("_EPROCESS", o2)
			return nil
		},
	})

	got, err := b.Compile()
	require.NoError(t, err)

	gotType, ok := got.TypeByName("_EPROCESS")
	require.True(t, ok)
	require.Equal(t, want.Size, gotType.Size)
	require.Equal(t, want.Fields, gotType.Fields)
}

func TestSymbolLookupUnambiguous(t *testing.T) {
	b := NewBuilder(windowsMeta(), nativetype.NewTable32())
	b.AddSymbol("kernel", "PsActiveProcessHead", SymbolEntry{Address: 0x82345678})
	p, err := b.Compile()
	require.NoError(t, err)

	addr, err := p.Symbol("PsActiveProcessHead", "", "")
	require.NoError(t, err)
	require.Equal(t, uint64(0x82345678), addr)
}

func TestSymbolLookupAmbiguousRequiresNMType(t *testing.T) {
	b := NewBuilder(windowsMeta(), nativetype.NewTable32())
	b.AddSymbol("kernel", "foo", SymbolEntry{Address: 0x1000, NMType: "T"})
	b.AddSymbol("kernel", "foo", SymbolEntry{Address: 0x2000, NMType: "D"})
	p, err := b.Compile()
	require.NoError(t, err)

	_, err = p.Symbol("foo", "", "")
	require.Error(t, err)

	addr, err := p.Symbol("foo", "", "D")
	require.NoError(t, err)
	require.Equal(t, uint64(0x2000), addr)
}

func TestModificationChainOrdering(t *testing.T) {
	base := vtype.Base{Name: "_T", Size: 8, Fields: map[string]vtype.Field{}}

	var order []string
	b := NewBuilder(windowsMeta(), nativetype.NewTable32())
	b.AddBaseType(base)
	b.AddModification(Modification{
		Name:   "second",
		After:  []string{"first"},
		Apply:  func(b *Builder) error { order = append(order, "second"); return nil },
	})
	b.AddModification(Modification{
		Name:  "first",
		Before: []string{"second"},
		Apply: func(b *Builder) error { order = append(order, "first"); return nil },
	})

	_, err := b.Compile()
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, order)
}

func TestModificationCycleIsFatal(t *testing.T) {
	b := NewBuilder(windowsMeta(), nativetype.NewTable32())
	b.AddModification(Modification{Name: "a", After: []string{"b"}})
	b.AddModification(Modification{Name: "b", After: []string{"a"}})

	_, err := b.Compile()
	require.Error(t, err)
}

func TestModificationMissingPredecessorIsLoggedNotFatal(t *testing.T) {
	b := NewBuilder(windowsMeta(), nativetype.NewTable32())
	b.AddModification(Modification{Name: "solo", After: []string{"ghost"}})

	p, err := b.Compile()
	require.NoError(t, err)
	require.NotEmpty(t, p.Diagnostics())
}

func TestModificationConditionsGateApplication(t *testing.T) {
	b := NewBuilder(windowsMeta(), nativetype.NewTable32())
	applied := false
	b.AddModification(Modification{
		Name:       "linux-only",
		Conditions: func(m Metadata) bool { return m.OS == "linux" },
		Apply:      func(b *Builder) error { applied = true; return nil },
	})

	_, err := b.Compile()
	require.NoError(t, err)
	require.False(t, applied, "a modification whose Conditions fail must not apply")
}
