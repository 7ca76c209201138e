package object

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arvidw/physmem/addrspace"
	"github.com/arvidw/physmem/vtype"
)

// View is the default materialized-object implementation: a struct-typed
// view at (typeName, addr) in an address space, per spec §4.D.1.
type View struct {
	resolver Resolver
	as       addrspace.AddressSpace
	addr     uint64
	parent   Object
	typeName string
	typ      *vtype.Type
}

// Materialize builds an Object for typeName at addr in as. When the
// profile has a behavior class registered for typeName, the returned
// Object is that behavior's wrapper around the base View instead of the
// View itself (spec §4.D.4). Strict, when true, requires addr to fall
// within a present run of as (construction-time validation, spec §4.D.1);
// pool scanners pass strict=false to probe arbitrary offsets.
func Materialize(resolver Resolver, typeName string, addr uint64, as addrspace.AddressSpace, parent Object, strict bool) Object {
	typ, ok := resolver.TypeByName(typeName)
	if !ok {
		return None(fmt.Sprintf("object: unknown type %q", typeName))
	}
	if strict && !as.IsValid(addr) {
		return None(fmt.Sprintf("object: address 0x%x invalid for type %q", addr, typeName))
	}
	v := &View{resolver: resolver, as: as, addr: addr, parent: parent, typeName: typeName, typ: typ}
	if factory, ok := resolver.BehaviorFor(typeName); ok {
		return factory(v)
	}
	return v
}

func (v *View) TypeName() string                      { return v.typeName }
func (v *View) Address() uint64                        { return v.addr }
func (v *View) AddressSpace() addrspace.AddressSpace   { return v.as }
func (v *View) IsNone() bool                           { return false }
func (v *View) Reason() string                         { return "" }
func (v *View) Bool() bool                              { return true }
func (v *View) Value() (uint64, bool)                  { return 0, false }
func (v *View) String() string                         { return fmt.Sprintf("<%s at 0x%x>", v.typeName, v.addr) }
func (v *View) Index(int) Object                       { return None("object: index on a struct-kind object") }
func (v *View) Deref() Object                          { return None("object: deref on a struct-kind object") }

// Parent returns the object this one was materialized from, or nil for a root.
func (v *View) Parent() Object { return v.parent }

// Type exposes the compiled layout, used by behaviors that need more than
// field access (e.g. list_head's offsetof lookups on the container type).
func (v *View) Type() *vtype.Type { return v.typ }

// Resolver exposes the profile-facing resolver, used by behaviors that
// materialize further objects (e.g. list traversal's container objects).
func (v *View) Resolver() Resolver { return v.resolver }

// Field implements spec §4.D.2.
func (v *View) Field(name string) Object {
	f, ok := v.typ.Fields[name]
	if !ok {
		return None(fmt.Sprintf("object: %s has no field %q", v.typeName, name))
	}
	addr := v.addr + uint64(f.Offset)
	return v.buildField(f.Type, addr, name)
}

func (v *View) buildField(ft vtype.FieldType, addr uint64, fieldName string) Object {
	switch ft.Kind {
	case vtype.KindStruct:
		return Materialize(v.resolver, ft.Target, addr, v.as, v, false)

	case vtype.KindPrimitive:
		return v.readPrimitive(ft.Primitive, addr, fieldName)

	case vtype.KindPointer:
		return &pointerView{base: baseScalar{resolver: v.resolver, as: v.as, addr: addr, parent: v, typeName: "pointer"}, targetType: ft.Target, targetIsPrimitive: ft.TargetIsPrimitive}

	case vtype.KindArray:
		count := ft.Count
		if ft.CountFn != nil {
			count = ft.CountFn(func(name string) (uint64, bool) { return v.Field(name).Value() })
		}
		if count < 0 {
			count = 0
		}
		return &arrayView{resolver: v.resolver, as: v.as, parent: v, elemType: ft, addr: addr, count: count}

	case vtype.KindBitfield:
		raw, ok := v.readPrimitiveRaw(ft.Primitive, addr)
		if !ok {
			return None(fmt.Sprintf("object: short read decoding bitfield %q", fieldName))
		}
		mask := uint64(1)<<uint(ft.BitWidth) - 1
		val := (raw >> uint(ft.BitStart)) & mask
		return &scalarView{base: baseScalar{resolver: v.resolver, as: v.as, addr: addr, parent: v, typeName: "bitfield"}, value: val}

	case vtype.KindEnum:
		raw, ok := v.readPrimitiveRaw(ft.Primitive, addr)
		if !ok {
			return None(fmt.Sprintf("object: short read decoding enum %q", fieldName))
		}
		return &enumView{base: baseScalar{resolver: v.resolver, as: v.as, addr: addr, parent: v, typeName: "enum"}, value: raw, names: ft.EnumNames}

	case vtype.KindFlags:
		raw, ok := v.readPrimitiveRaw(ft.Primitive, addr)
		if !ok {
			return None(fmt.Sprintf("object: short read decoding flags %q", fieldName))
		}
		return &flagsView{base: baseScalar{resolver: v.resolver, as: v.as, addr: addr, parent: v, typeName: "flags"}, value: raw, names: ft.FlagNames}

	default:
		return None(fmt.Sprintf("object: field %q has unknown kind", fieldName))
	}
}

func (v *View) readPrimitiveRaw(primitive string, addr uint64) (uint64, bool) {
	size, ok := v.resolver.NativeSizeOf(primitive)
	if !ok {
		return 0, false
	}
	data, err := v.as.Read(addr, size)
	if err != nil {
		return 0, false
	}
	val, err := v.resolver.NativeDecode(primitive, data)
	if err != nil {
		return 0, false
	}
	return val, true
}

func (v *View) readPrimitive(primitive string, addr uint64, fieldName string) Object {
	val, ok := v.readPrimitiveRaw(primitive, addr)
	if !ok {
		return None(fmt.Sprintf("object: short read decoding field %q", fieldName))
	}
	return &scalarView{base: baseScalar{resolver: v.resolver, as: v.as, addr: addr, parent: v, typeName: primitive}, value: val}
}

// --- scalar kinds ---------------------------------------------------------

type baseScalar struct {
	resolver Resolver
	as       addrspace.AddressSpace
	addr     uint64
	parent   Object
	typeName string
}

func (b baseScalar) Address() uint64                      { return b.addr }
func (b baseScalar) AddressSpace() addrspace.AddressSpace { return b.as }
func (b baseScalar) IsNone() bool                         { return false }
func (b baseScalar) Reason() string                       { return "" }
func (b baseScalar) TypeName() string                     { return b.typeName }
func (b baseScalar) Field(string) Object {
	return None("object: field access on a scalar value")
}
func (b baseScalar) Index(int) Object { return None("object: index on a scalar value") }
func (b baseScalar) Deref() Object    { return None("object: deref on a non-pointer value") }

// scalarView is a decoded primitive or bitfield value.
type scalarView struct {
	base  baseScalar
	value uint64
}

func (s *scalarView) Address() uint64                      { return s.base.Address() }
func (s *scalarView) AddressSpace() addrspace.AddressSpace { return s.base.AddressSpace() }
func (s *scalarView) IsNone() bool                         { return false }
func (s *scalarView) Reason() string                       { return "" }
func (s *scalarView) TypeName() string                     { return s.base.TypeName() }
func (s *scalarView) Field(n string) Object                { return s.base.Field(n) }
func (s *scalarView) Index(i int) Object                    { return s.base.Index(i) }
func (s *scalarView) Deref() Object                         { return s.base.Deref() }
func (s *scalarView) Value() (uint64, bool)                { return s.value, true }
func (s *scalarView) Bool() bool                            { return s.value != 0 }
func (s *scalarView) String() string                       { return fmt.Sprintf("%d", s.value) }

// enumView wraps a backing primitive with a value->name table.
type enumView struct {
	base  baseScalar
	value uint64
	names map[uint64]string
}

func (e *enumView) Address() uint64                      { return e.base.Address() }
func (e *enumView) AddressSpace() addrspace.AddressSpace { return e.base.AddressSpace() }
func (e *enumView) IsNone() bool                         { return false }
func (e *enumView) Reason() string                       { return "" }
func (e *enumView) TypeName() string                     { return e.base.TypeName() }
func (e *enumView) Field(n string) Object                { return e.base.Field(n) }
func (e *enumView) Index(i int) Object                    { return e.base.Index(i) }
func (e *enumView) Deref() Object                         { return e.base.Deref() }
func (e *enumView) Value() (uint64, bool)                 { return e.value, true }
func (e *enumView) Bool() bool                            { return e.value != 0 }
func (e *enumView) String() string {
	if name, ok := e.names[e.value]; ok {
		return name
	}
	return ""
}

// flagsView wraps a backing primitive with independently-checked bit masks.
type flagsView struct {
	base  baseScalar
	value uint64
	names map[uint64]string
}

func (f *flagsView) Address() uint64                      { return f.base.Address() }
func (f *flagsView) AddressSpace() addrspace.AddressSpace { return f.base.AddressSpace() }
func (f *flagsView) IsNone() bool                         { return false }
func (f *flagsView) Reason() string                       { return "" }
func (f *flagsView) TypeName() string                     { return f.base.TypeName() }
func (f *flagsView) Field(n string) Object                { return f.base.Field(n) }
func (f *flagsView) Index(i int) Object                    { return f.base.Index(i) }
func (f *flagsView) Deref() Object                         { return f.base.Deref() }
func (f *flagsView) Value() (uint64, bool)                 { return f.value, true }
func (f *flagsView) Bool() bool                            { return f.value != 0 }

// String renders the space-joined names of every set mask, per spec §4.D.2
// ("flag fields expose both a decoded-names string and per-mask accessors").
func (f *flagsView) String() string {
	masks := make([]uint64, 0, len(f.names))
	for mask := range f.names {
		masks = append(masks, mask)
	}
	sort.Slice(masks, func(i, j int) bool { return masks[i] < masks[j] })

	var names []string
	for _, mask := range masks {
		if mask != 0 && f.value&mask == mask {
			names = append(names, f.names[mask])
		}
	}
	return strings.Join(names, " ")
}

// HasFlag is the "per-mask accessor" spec §4.D.2 calls for.
func (f *flagsView) HasFlag(mask uint64) bool { return f.value&mask == mask }
