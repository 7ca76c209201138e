// Package profile compiles a target operating system's structure
// dictionary, native-type table, symbol table, and profile-modification
// chain into an immutable Profile that implements object.Resolver,
// per spec §4.E.
//
// A Profile never mutates after Compile returns: concurrent readers may
// share one freely, per spec §5's "Profile objects are immutable after
// compile and may be shared across threads freely".
package profile

import (
	"fmt"

	"github.com/arvidw/physmem/addrspace"
	"github.com/arvidw/physmem/nativetype"
	"github.com/arvidw/physmem/object"
	"github.com/arvidw/physmem/physmemerr"
	"github.com/arvidw/physmem/vtype"
)

// Metadata is the subset of a profile's identity that a Modification's
// Conditions predicate inspects, and that `metadata.os`/`metadata.memory_model`
// expose per spec §4.E.
type Metadata struct {
	OS             string
	MemoryModel    string // "32bit" or "64bit"
	VersionMajor   int
	VersionMinor   int
}

// SymbolEntry is one definition of a symbol name; a name with more than one
// entry in its module requires an NMType disambiguator to resolve, per
// spec §7's AmbiguousSymbol.
type SymbolEntry struct {
	Address uint64
	NMType  string // System.map type letter, or "" when the source doesn't carry one
}

// Profile is the compiled, immutable result of Builder.Compile.
type Profile struct {
	meta        Metadata
	natives     *nativetype.Table
	types       map[string]*vtype.Type
	symbols     map[string]map[string][]SymbolEntry // module -> name -> entries
	constants   map[string]uint64
	behaviors   map[string]object.BehaviorFactory
	defaultAS   addrspace.AddressSpace
	diagnostics []string
}

// Metadata returns the profile's OS/memory-model/version identity.
func (p *Profile) Metadata() Metadata { return p.meta }

// WithDefaultAddressSpace returns a shallow copy of p bound to a different
// default address space — the one a bare pointer dereference targets
// (spec §4.D.3: "the profile's kernel virtual layer"). Compiling is
// expensive and session-independent; binding an address space is cheap and
// session-specific, so it is kept out of Compile entirely.
func (p *Profile) WithDefaultAddressSpace(as addrspace.AddressSpace) *Profile {
	cp := *p
	cp.defaultAS = as
	return &cp
}

// --- object.Resolver -------------------------------------------------------

func (p *Profile) TypeByName(name string) (*vtype.Type, bool) {
	t, ok := p.types[name]
	return t, ok
}

func (p *Profile) NativeDecode(primitive string, data []byte) (uint64, error) {
	return p.natives.Decode(primitive, data)
}

func (p *Profile) NativeSizeOf(primitive string) (int, bool) {
	return p.natives.SizeOf(primitive)
}

func (p *Profile) PointerWidth() int { return p.natives.PointerWidth }

func (p *Profile) BehaviorFor(typeName string) (object.BehaviorFactory, bool) {
	f, ok := p.behaviors[typeName]
	return f, ok
}

func (p *Profile) DefaultAddressSpace() addrspace.AddressSpace { return p.defaultAS }

// --- spec §4.E surface -----------------------------------------------------

// Object materializes typeName at offset in as, per spec §4.E's
// `object(type, offset, address_space)`. Construction is strict: offset
// must fall within a present run of as.
func (p *Profile) Object(typeName string, offset uint64, as addrspace.AddressSpace) object.Object {
	return object.Materialize(p, typeName, offset, as, nil, true)
}

// Symbol resolves name in module (defaulting to "kernel") to an address,
// per spec §4.E. nmType disambiguates a name with more than one
// definition; passing "" on an ambiguous name returns AmbiguousSymbol.
func (p *Profile) Symbol(name, module, nmType string) (uint64, error) {
	if module == "" {
		module = "kernel"
	}
	entries := p.symbols[module][name]
	switch {
	case len(entries) == 0:
		return 0, physmemerr.New(physmemerr.TypeMissing, fmt.Sprintf("profile: no symbol %q in module %q", name, module))
	case len(entries) == 1:
		return entries[0].Address, nil
	case nmType == "":
		return 0, physmemerr.New(physmemerr.AmbiguousSymbol, fmt.Sprintf("profile: symbol %q in module %q has %d definitions, nm_type required", name, module, len(entries)))
	default:
		for _, e := range entries {
			if e.NMType == nmType {
				return e.Address, nil
			}
		}
		return 0, physmemerr.New(physmemerr.AmbiguousSymbol, fmt.Sprintf("profile: symbol %q in module %q has no definition of nm_type %q", name, module, nmType))
	}
}

// OffsetOf returns typeName.field's byte offset, per spec §4.E.
func (p *Profile) OffsetOf(typeName, field string) (int, bool) {
	t, ok := p.types[typeName]
	if !ok {
		return 0, false
	}
	return t.OffsetOf(field)
}

// SizeOf returns typeName's compiled size, per spec §4.E.
func (p *Profile) SizeOf(typeName string) (int, bool) {
	t, ok := p.types[typeName]
	if !ok {
		return 0, false
	}
	return t.Size, true
}

// Constant returns a named scalar constant, per spec §4.E's `constants[name]`.
func (p *Profile) Constant(name string) (uint64, bool) {
	v, ok := p.constants[name]
	return v, ok
}

// Diagnostics reports non-fatal compile-time warnings accumulated while
// building this profile (modifications referencing a missing predecessor
// or successor, overlays declared for an unknown base type) — an addition
// over spec.md's §4.E, grounded on
// the teacher's diagnostic-collection shape in `pkg/types`.
func (p *Profile) Diagnostics() []string {
	out := make([]string, len(p.diagnostics))
	copy(out, p.diagnostics)
	return out
}
