// Package object is the typed overlay engine (spec §4.D): it materializes
// typed views at an offset in an address space, resolves field access and
// pointer dereferencing, and implements the none-object sentinel that
// absorbs further operations instead of raising so traversal of partially
// torn images stays a total function.
//
// Object never owns bytes — every field access re-reads through the
// Resolver's address space at the moment it's asked for, per spec §3: "it
// does not own bytes; it owns coordinates."
package object

import (
	"github.com/arvidw/physmem/addrspace"
	"github.com/arvidw/physmem/vtype"
)

// Resolver is the subset of a compiled Profile the object engine needs:
// type layouts, native-type decoding, and behavior-class lookup. Package
// profile implements this; object never imports profile (profile imports
// object) to keep the dependency one-directional.
type Resolver interface {
	TypeByName(name string) (*vtype.Type, bool)
	NativeDecode(primitive string, data []byte) (uint64, error)
	NativeSizeOf(primitive string) (int, bool)
	PointerWidth() int
	BehaviorFor(typeName string) (BehaviorFactory, bool)
	DefaultAddressSpace() addrspace.AddressSpace
}

// BehaviorFactory builds a behavior-attached Object wrapping a base *View,
// per spec §4.D.4. Overlays commonly attach these by mapping type names
// like "list_head" or "_OBJECT_HEADER" to a factory.
type BehaviorFactory func(v *View) Object

// Object is the uniform surface every materialized or sentinel value
// exposes. None-objects implement every method by returning another
// none-object (or a zero/false/empty terminal value), per spec §4.D.6.
type Object interface {
	// Field locates name in the object's type layout and materializes a
	// sub-object: primitives decode immediately, pointers defer
	// dereference, arrays defer element materialization, bitfields/enums/
	// flags wrap a backing primitive.
	Field(name string) Object
	// Index returns element i of an array-kind object.
	Index(i int) Object
	// Deref dereferences a pointer-kind object, materializing at the
	// pointed-to address in the pointer's target address space.
	Deref() Object
	// Value returns a primitive/bitfield/enum/flags/pointer's numeric
	// value. ok is false for a none-object or a struct/array object.
	Value() (v uint64, ok bool)
	// Bool is the object's truthiness: false for a none-object, a zero
	// pointer, or a zero integer; true otherwise.
	Bool() bool
	// String renders an enum's decoded name, a flags field's
	// space-joined decoded names, or a primitive's textual value. Structs
	// and arrays return a short descriptive placeholder, not their bytes.
	String() string
	// IsNone reports whether this is a none-object.
	IsNone() bool
	// Reason explains why an object is none; empty for real objects.
	Reason() string
	// TypeName is the object's declared struct type, or "" for a none-object.
	TypeName() string
	// Address is the object's coordinate within its address space.
	Address() uint64
	// AddressSpace is the address space the object's bytes are read from.
	AddressSpace() addrspace.AddressSpace
}
