package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arvidw/physmem/addrspace"
	"github.com/arvidw/physmem/nativetype"
	"github.com/arvidw/physmem/vtype"
)

// fakeResolver is a minimal, in-memory Resolver for exercising the object
// engine without a compiled profile.
type fakeResolver struct {
	types      map[string]*vtype.Type
	behaviors  map[string]BehaviorFactory
	natives    *nativetype.Table
	defaultAS  addrspace.AddressSpace
}

func newFakeResolver(as addrspace.AddressSpace) *fakeResolver {
	return &fakeResolver{
		types:     make(map[string]*vtype.Type),
		behaviors: make(map[string]BehaviorFactory),
		natives:   nativetype.NewTable64(),
		defaultAS: as,
	}
}

func (r *fakeResolver) add(t *vtype.Type)                       { r.types[t.Name] = t }
func (r *fakeResolver) behave(name string, f BehaviorFactory)    { r.behaviors[name] = f }
func (r *fakeResolver) TypeByName(name string) (*vtype.Type, bool) {
	t, ok := r.types[name]
	return t, ok
}
func (r *fakeResolver) NativeDecode(primitive string, data []byte) (uint64, error) {
	return r.natives.Decode(primitive, data)
}
func (r *fakeResolver) NativeSizeOf(primitive string) (int, bool) { return r.natives.SizeOf(primitive) }
func (r *fakeResolver) PointerWidth() int                         { return r.natives.PointerWidth }
func (r *fakeResolver) BehaviorFor(typeName string) (BehaviorFactory, bool) {
	f, ok := r.behaviors[typeName]
	return f, ok
}
func (r *fakeResolver) DefaultAddressSpace() addrspace.AddressSpace { return r.defaultAS }

func buildFlatSpace(t *testing.T, size int) (*addrspace.PhysicalLayer, *addrspace.FileLayer) {
	t.Helper()
	data := make([]byte, size)
	file := addrspace.OpenBytes(data, true)
	return addrspace.NewPhysicalLayer(file), file
}

func putU16(as addrspace.AddressSpace, off uint64, v uint16) {
	as.Write(off, []byte{byte(v), byte(v >> 8)})
}

func putU32(as addrspace.AddressSpace, off uint64, v uint32) {
	b := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	as.Write(off, b)
}

func putU64(as addrspace.AddressSpace, off uint64, v uint64) {
	b := make([]byte, 8)
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
	as.Write(off, b)
}

// --- Property 4: none-object absorption chain -----------------------------

func TestProperty4NoneAbsorptionChain(t *testing.T) {
	phys, _ := buildFlatSpace(t, 0x1000)
	r := newFakeResolver(phys)

	// A struct with no "Ptr" field: Field returns a none-object, and every
	// further hop on it (Field/Index/Deref/Value/Bool) must keep absorbing
	// instead of panicking or erroring.
	r.add(&vtype.Type{Name: "_EMPTY", Size: 8, Fields: map[string]vtype.Field{}})

	obj := Materialize(r, "_EMPTY", 0, phys, nil, true)
	require.False(t, obj.IsNone())

	chain := obj.Field("Ptr").Field("Deep").Index(3).Deref().Field("AnythingElse")
	require.True(t, chain.IsNone())
	require.NotEmpty(t, chain.Reason())
	v, ok := chain.Value()
	require.False(t, ok)
	require.Equal(t, uint64(0), v)
	require.False(t, chain.Bool())
	require.Equal(t, "", chain.String())
	require.Equal(t, "", chain.TypeName())
	require.Equal(t, uint64(0), chain.Address())
	require.Nil(t, chain.AddressSpace())
}

func TestProperty4UnknownTypeIsNone(t *testing.T) {
	phys, _ := buildFlatSpace(t, 0x100)
	r := newFakeResolver(phys)

	obj := Materialize(r, "_MISSING", 0, phys, nil, true)
	require.True(t, obj.IsNone())
	require.Contains(t, obj.Reason(), "_MISSING")
}

func TestProperty4InvalidAddressIsNoneWhenStrict(t *testing.T) {
	phys, _ := buildFlatSpace(t, 0x100)
	r := newFakeResolver(phys)
	r.add(&vtype.Type{Name: "_THING", Size: 4, Fields: map[string]vtype.Field{}})

	obj := Materialize(r, "_THING", 0x10000, phys, nil, true)
	require.True(t, obj.IsNone())
}

// --- pointer + struct field wiring -----------------------------------------

func TestPointerDerefAndPrimitiveField(t *testing.T) {
	phys, _ := buildFlatSpace(t, 0x1000)
	r := newFakeResolver(phys)

	r.add(&vtype.Type{Name: "_LEAF", Size: 4, Fields: map[string]vtype.Field{
		"Value": {Offset: 0, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned long"}},
	}})
	r.add(&vtype.Type{Name: "_ROOT", Size: 8, Fields: map[string]vtype.Field{
		"Next": {Offset: 0, Type: vtype.FieldType{Kind: vtype.KindPointer, Target: "_LEAF"}},
	}})

	putU64(phys, 0, 0x100) // Root.Next -> 0x100
	putU32(phys, 0x100, 0xCAFEBABE)

	root := Materialize(r, "_ROOT", 0, phys, nil, true)
	leaf := root.Field("Next").Deref()
	require.False(t, leaf.IsNone())

	v, ok := leaf.Field("Value").Value()
	require.True(t, ok)
	require.Equal(t, uint64(0xCAFEBABE), v)
}

// --- Property 6: list traversal termination / cycle safety -----------------

func linkType() *vtype.Type {
	return &vtype.Type{Name: "_LIST_ENTRY", Size: 16, Fields: map[string]vtype.Field{
		"Flink": {Offset: 0, Type: vtype.FieldType{Kind: vtype.KindPointer, Target: "_LIST_ENTRY"}},
		"Blink": {Offset: 8, Type: vtype.FieldType{Kind: vtype.KindPointer, Target: "_LIST_ENTRY"}},
	}}
}

func containerType() *vtype.Type {
	return &vtype.Type{Name: "_ITEM", Size: 24, Fields: map[string]vtype.Field{
		"Tag": {Offset: 0, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned long"}},
		"Entry": {Offset: 8, Type: vtype.FieldType{Kind: vtype.KindStruct, Target: "_LIST_ENTRY"}},
	}}
}

func TestProperty6ListTraversalFiniteChain(t *testing.T) {
	phys, _ := buildFlatSpace(t, 0x1000)
	r := newFakeResolver(phys)
	r.add(linkType())
	r.add(containerType())
	r.behave("_LIST_ENTRY", NewListHeadBehaviorFactory("Flink", "Blink"))

	// Three _ITEMs at 0x100, 0x140, 0x180, each with an _LIST_ENTRY at +8,
	// chained head -> item0 -> item1 -> item2 -> head (circular, as real
	// kernel lists always are).
	head := uint64(0x300)
	items := []uint64{0x100, 0x140, 0x180}
	links := func(item uint64) uint64 { return item + 8 }

	putU32(phys, items[0], 1)
	putU32(phys, items[1], 2)
	putU32(phys, items[2], 3)

	chain := append([]uint64{head}, append(append([]uint64{}, links(items[0]), links(items[1]), links(items[2])), head)...)
	for i := 0; i+1 < len(chain); i++ {
		putU64(phys, chain[i], chain[i+1])   // Flink
		putU64(phys, chain[i+1]+8, chain[i]) // Blink of next points back (approx, unused by forward walk)
	}

	headObj := Materialize(r, "_LIST_ENTRY", head, phys, nil, false)
	traversable, ok := headObj.(ListTraversable)
	require.True(t, ok)

	out := traversable.ListOfType("_ITEM", "Entry", true, true)
	require.Len(t, out, 3, "circular list must terminate back at the head sentinel, not loop forever")

	var tags []uint64
	for _, o := range out {
		v, ok := o.Field("Tag").Value()
		require.True(t, ok)
		tags = append(tags, v)
	}
	require.Equal(t, []uint64{1, 2, 3}, tags)
}

func TestProperty6ListTraversalBrokenLinkStopsInsteadOfPanicking(t *testing.T) {
	phys, _ := buildFlatSpace(t, 0x1000)
	r := newFakeResolver(phys)
	r.add(linkType())
	r.add(containerType())
	r.behave("_LIST_ENTRY", NewListHeadBehaviorFactory("Flink", "Blink"))

	head := uint64(0x300)
	// Flink points to 0, a null/no-op terminator.
	putU64(phys, head, 0)

	headObj := Materialize(r, "_LIST_ENTRY", head, phys, nil, false)
	traversable := headObj.(ListTraversable)
	out := traversable.ListOfType("_ITEM", "Entry", true, true)
	require.Empty(t, out)
}

func TestProperty6HlistNodeHasNoBackwardWalk(t *testing.T) {
	phys, _ := buildFlatSpace(t, 0x1000)
	r := newFakeResolver(phys)
	r.add(&vtype.Type{Name: "hlist_node", Size: 8, Fields: map[string]vtype.Field{
		"next": {Offset: 0, Type: vtype.FieldType{Kind: vtype.KindPointer, Target: "hlist_node"}},
	}})
	r.add(containerType())
	r.behave("hlist_node", NewHlistNodeBehaviorFactory("next"))

	head := uint64(0x200)
	putU64(phys, head, 0)

	obj := Materialize(r, "hlist_node", head, phys, nil, false)
	traversable := obj.(ListTraversable)
	require.Nil(t, traversable.ListOfType("_ITEM", "Entry", false, true))
}

// --- S4: Windows object header InfoMask --------------------------------

func TestS4ObjectHeaderOptionalSubHeaders(t *testing.T) {
	phys, _ := buildFlatSpace(t, 0x1000)
	r := newFakeResolver(phys)

	r.add(&vtype.Type{Name: "_OBJECT_HEADER_NAME_INFO", Size: 16, Fields: map[string]vtype.Field{}})
	r.add(&vtype.Type{Name: "_OBJECT_HEADER_QUOTA_INFO", Size: 32, Fields: map[string]vtype.Field{}})
	r.add(&vtype.Type{Name: "_OBJECT_HEADER", Size: 0x38, Fields: map[string]vtype.Field{
		"InfoMask":  {Offset: 0x20, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned char"}},
		"TypeIndex": {Offset: 0x21, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned char"}},
	}})

	entries := []OptionalHeaderEntry{
		{Name: "CreatorInfo", Bit: 0x01, SubType: "_OBJECT_HEADER_CREATOR_INFO_MISSING"},
		{Name: "NameInfo", Bit: 0x02, SubType: "_OBJECT_HEADER_NAME_INFO"},
		{Name: "HandleInfo", Bit: 0x04, SubType: "_OBJECT_HEADER_HANDLE_INFO_MISSING"},
		{Name: "QuotaInfo", Bit: 0x08, SubType: "_OBJECT_HEADER_QUOTA_INFO"},
		{Name: "ProcessInfo", Bit: 0x10, SubType: "_OBJECT_HEADER_PROCESS_INFO_MISSING"},
	}
	r.behave("_OBJECT_HEADER", NewObjectHeaderBehaviorFactory("InfoMask", entries, "TypeIndex", map[uint64]string{2: "Process", 3: "Thread"}))

	headerAddr := uint64(0x400)
	as := phys
	as.Write(headerAddr+0x20, []byte{0x0A, 2}) // InfoMask = NAME_INFO|QUOTA_INFO, TypeIndex=2

	obj := Materialize(r, "_OBJECT_HEADER", headerAddr, phys, nil, true)
	hdr, ok := obj.(ObjectHeader)
	require.True(t, ok)

	require.False(t, hdr.Optional("NameInfo").IsNone())
	require.False(t, hdr.Optional("QuotaInfo").IsNone())
	require.True(t, hdr.Optional("CreatorInfo").IsNone())
	require.True(t, hdr.Optional("HandleInfo").IsNone())
	require.True(t, hdr.Optional("ProcessInfo").IsNone())

	// NameInfo (16 bytes) then QuotaInfo (32 bytes) subtracted cumulatively
	// from the header's own address, per spec §4.D.7's "subtract... offset
	// (cumulatively)".
	require.Equal(t, headerAddr-16, hdr.Optional("NameInfo").Address())
	require.Equal(t, headerAddr-16-32, hdr.Optional("QuotaInfo").Address())

	require.Equal(t, "Process", hdr.TypeIndexName())
}

// --- UNICODE_STRING behavior: UTF-16LE decode ------------------------------

func TestUnicodeStringDecodesUTF16LEBuffer(t *testing.T) {
	phys, _ := buildFlatSpace(t, 0x1000)
	r := newFakeResolver(phys)

	r.add(&vtype.Type{Name: "_UNICODE_STRING", Size: 16, Fields: map[string]vtype.Field{
		"Length":        {Offset: 0, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned short"}},
		"MaximumLength": {Offset: 2, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned short"}},
		"Buffer":        {Offset: 8, Type: vtype.FieldType{Kind: vtype.KindPointer, Target: "unsigned char", TargetIsPrimitive: true}},
	}})
	r.behave("_UNICODE_STRING", NewUnicodeStringBehaviorFactory("Length", "Buffer"))

	// "abc" encoded UTF-16LE, 6 bytes, no trailing NUL — UNICODE_STRING's
	// Length never counts one.
	bufAddr := uint64(0x200)
	phys.Write(bufAddr, []byte{'a', 0, 'b', 0, 'c', 0})

	const strAddr = 0x100
	putU16(phys, strAddr, 6)             // Length
	putU16(phys, strAddr+2, 6)           // MaximumLength
	putU64(phys, strAddr+8, bufAddr)     // Buffer

	obj := Materialize(r, "_UNICODE_STRING", strAddr, phys, nil, true)
	require.False(t, obj.IsNone())
	require.Equal(t, "abc", obj.String())
}

func TestUnicodeStringEmptyBufferIsEmptyString(t *testing.T) {
	phys, _ := buildFlatSpace(t, 0x1000)
	r := newFakeResolver(phys)

	r.add(&vtype.Type{Name: "_UNICODE_STRING", Size: 16, Fields: map[string]vtype.Field{
		"Length":        {Offset: 0, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned short"}},
		"MaximumLength": {Offset: 2, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned short"}},
		"Buffer":        {Offset: 8, Type: vtype.FieldType{Kind: vtype.KindPointer, Target: "unsigned char", TargetIsPrimitive: true}},
	}})
	r.behave("_UNICODE_STRING", NewUnicodeStringBehaviorFactory("Length", "Buffer"))

	const strAddr = 0x300
	// Length left at zero, Buffer left null: both short-circuit to "".
	obj := Materialize(r, "_UNICODE_STRING", strAddr, phys, nil, true)
	require.Equal(t, "", obj.String())
}

// --- S5: TypeIndex map miss ------------------------------------------------

func TestS5TypeIndexUnmappedReportsEmptyName(t *testing.T) {
	phys, _ := buildFlatSpace(t, 0x1000)
	r := newFakeResolver(phys)
	r.add(&vtype.Type{Name: "_OBJECT_HEADER", Size: 0x30, Fields: map[string]vtype.Field{
		"InfoMask":  {Offset: 0x20, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned char"}},
		"TypeIndex": {Offset: 0x21, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned char"}},
	}})
	r.behave("_OBJECT_HEADER", NewObjectHeaderBehaviorFactory("InfoMask", nil, "TypeIndex", map[uint64]string{2: "Process"}))

	headerAddr := uint64(0x500)
	phys.Write(headerAddr+0x20, []byte{0, 99})

	obj := Materialize(r, "_OBJECT_HEADER", headerAddr, phys, nil, true)
	hdr := obj.(ObjectHeader)
	require.Equal(t, "", hdr.TypeIndexName())
}
