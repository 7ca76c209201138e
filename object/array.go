package object

import (
	"fmt"

	"github.com/arvidw/physmem/addrspace"
	"github.com/arvidw/physmem/vtype"
)

// arrayView is an indexable, lazily-materialized array, per spec §4.D.2:
// "arrays produce an indexable view without materializing elements until
// indexed". Its element count may come from a CountFunc closure evaluated
// once at construction against the parent's already-decoded fields (spec
// §9's "callable field lengths").
type arrayView struct {
	resolver Resolver
	as       addrspace.AddressSpace
	parent   Object
	elemType vtype.FieldType
	addr     uint64
	count    int
}

func (a *arrayView) Address() uint64                      { return a.addr }
func (a *arrayView) AddressSpace() addrspace.AddressSpace { return a.as }
func (a *arrayView) IsNone() bool                         { return false }
func (a *arrayView) Reason() string                        { return "" }
func (a *arrayView) TypeName() string                      { return "array of " + a.elemType.Target }
func (a *arrayView) Field(string) Object {
	return None("object: field access on an array — index it first")
}
func (a *arrayView) Deref() Object           { return None("object: deref on an array") }
func (a *arrayView) Value() (uint64, bool)   { return 0, false }
func (a *arrayView) Bool() bool              { return a.count > 0 }
func (a *arrayView) String() string          { return fmt.Sprintf("<array[%d] of %s>", a.count, a.elemType.Target) }

// Len returns the array's element count.
func (a *arrayView) Len() int { return a.count }

// elemSize returns the per-element stride.
func (a *arrayView) elemSize() int {
	if a.elemType.TargetIsPrimitive {
		if size, ok := a.resolver.NativeSizeOf(a.elemType.Target); ok {
			return size
		}
		return 1
	}
	if t, ok := a.resolver.TypeByName(a.elemType.Target); ok {
		return t.Size
	}
	return 1
}

// Index materializes element i, which must be in [0, Len()).
func (a *arrayView) Index(i int) Object {
	if i < 0 || i >= a.count {
		return None(fmt.Sprintf("object: array index %d out of range [0,%d)", i, a.count))
	}
	stride := a.elemSize()
	elemAddr := a.addr + uint64(i*stride)
	if a.elemType.TargetIsPrimitive {
		data, err := a.as.Read(elemAddr, stride)
		if err != nil {
			return None("object: short read on array element")
		}
		val, err := a.resolver.NativeDecode(a.elemType.Target, data)
		if err != nil {
			return None("object: decode error on array element")
		}
		return &scalarView{base: baseScalar{resolver: a.resolver, as: a.as, addr: elemAddr, parent: a, typeName: a.elemType.Target}, value: val}
	}
	return Materialize(a.resolver, a.elemType.Target, elemAddr, a.as, a, false)
}

// Bytes reads the whole array as a raw byte slice, a shortcut used by
// string-typed byte arrays (spec §3: "tagging a raw byte field as a string
// of length N").
func (a *arrayView) Bytes() []byte {
	return a.as.ZRead(a.addr, a.count*a.elemSize())
}
