package object

import (
	"fmt"

	"github.com/arvidw/physmem/addrspace"
)

// pointerView is a pointer-kind field: it carries its own slot address plus
// a (target type, target address space) pair per spec §4.D.3, but defers
// reading the pointer bytes and materializing the target until Deref is
// called.
type pointerView struct {
	base              baseScalar
	targetType        string
	targetIsPrimitive bool
}

func (p *pointerView) Address() uint64                      { return p.base.Address() }
func (p *pointerView) AddressSpace() addrspace.AddressSpace { return p.base.AddressSpace() }
func (p *pointerView) IsNone() bool                         { return false }
func (p *pointerView) Reason() string                       { return "" }
func (p *pointerView) TypeName() string                     { return "pointer to " + p.targetType }
func (p *pointerView) Field(string) Object {
	return None("object: field access on a pointer — call Deref() first")
}
func (p *pointerView) Index(int) Object { return None("object: index on a pointer") }

func (p *pointerView) rawValue() (uint64, bool) {
	width, ok := p.base.resolver.NativeSizeOf("pointer")
	if !ok {
		width = 8
	}
	data, err := p.base.as.Read(p.base.addr, width)
	if err != nil {
		return 0, false
	}
	v, err := p.base.resolver.NativeDecode("pointer", data)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (p *pointerView) Value() (uint64, bool) { return p.rawValue() }
func (p *pointerView) Bool() bool {
	v, ok := p.rawValue()
	return ok && v != 0
}
func (p *pointerView) String() string {
	v, ok := p.rawValue()
	if !ok {
		return ""
	}
	return fmt.Sprintf("0x%x", v)
}

// Deref implements spec §4.D.3: read the pointer's own bytes, then
// materialize an object at the resulting address in the target address
// space (defaulting to the profile's kernel virtual layer).
func (p *pointerView) Deref() Object {
	target, ok := p.rawValue()
	if !ok {
		return None("object: short read dereferencing pointer")
	}
	if target == 0 {
		return None("object: dereferenced a null pointer")
	}
	as := p.base.resolver.DefaultAddressSpace()
	if as == nil {
		as = p.base.as
	}
	if p.targetIsPrimitive {
		size, ok := p.base.resolver.NativeSizeOf(p.targetType)
		if !ok {
			return None(fmt.Sprintf("object: unknown primitive target %q", p.targetType))
		}
		data, err := as.Read(target, size)
		if err != nil {
			return None("object: short read at pointer target")
		}
		val, err := p.base.resolver.NativeDecode(p.targetType, data)
		if err != nil {
			return None("object: decode error at pointer target")
		}
		return &scalarView{base: baseScalar{resolver: p.base.resolver, as: as, addr: target, parent: p, typeName: p.targetType}, value: val}
	}
	return Materialize(p.base.resolver, p.targetType, target, as, p, false)
}
