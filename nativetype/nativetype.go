// Package nativetype holds the fixed-width primitive codecs a profile reads
// through: a mapping from a primitive name ("long", "unsigned long",
// pointer, ...) to its size and pack format. Two canonical tables exist, one
// per memory model; a profile clones and specializes one of them (widening a
// pointer to 8 bytes for a 64-bit target, for instance) rather than building
// its own from scratch.
package nativetype

import (
	"encoding/binary"
	"fmt"

	"github.com/arvidw/physmem/internal/buf"
	"github.com/arvidw/physmem/physmemerr"
)

// Pack names the decode routine a primitive uses. Every routine here
// decodes little-endian bytes; the engine never targets a big-endian guest.
type Pack int

const (
	PackU8 Pack = iota
	PackU16
	PackU32
	PackU64
	PackI8
	PackI16
	PackI32
	PackI64
	PackFloat32
	PackFloat64
	PackPointer // width set by the Primitive's Size (4 or 8 bytes)
)

// Primitive describes one native type's width and decode routine.
type Primitive struct {
	Size int
	Pack Pack
}

// Table maps a primitive name to its Primitive description for one memory
// model. Profiles index it by name when decoding struct fields whose type
// descriptor names a primitive directly (vtype.KindPrimitive).
type Table struct {
	MemoryModel   string // "32bit" or "64bit"
	PointerWidth  int
	byName        map[string]Primitive
}

// NewTable32 returns the canonical 32-bit native type table: 4-byte
// pointers and longs, matching an IA-32 guest's C ABI.
func NewTable32() *Table {
	return &Table{
		MemoryModel:  "32bit",
		PointerWidth: 4,
		byName: map[string]Primitive{
			"char":               {Size: 1, Pack: PackI8},
			"unsigned char":      {Size: 1, Pack: PackU8},
			"byte":               {Size: 1, Pack: PackU8},
			"short":              {Size: 2, Pack: PackI16},
			"unsigned short":     {Size: 2, Pack: PackU16},
			"long":               {Size: 4, Pack: PackI32},
			"unsigned long":      {Size: 4, Pack: PackU32},
			"int":                {Size: 4, Pack: PackI32},
			"unsigned int":       {Size: 4, Pack: PackU32},
			"long long":          {Size: 8, Pack: PackI64},
			"unsigned long long": {Size: 8, Pack: PackU64},
			"float":              {Size: 4, Pack: PackFloat32},
			"double":             {Size: 8, Pack: PackFloat64},
			"pointer":            {Size: 4, Pack: PackPointer},
			"pointer64":          {Size: 8, Pack: PackPointer},
		},
	}
}

// NewTable64 returns the canonical 64-bit native type table: 8-byte
// pointers and longs, matching an x86-64 guest's LP64-ish layout (Windows
// keeps "long" at 4 bytes even on x64; callers needing that distinction
// clone and override).
func NewTable64() *Table {
	t := NewTable32()
	t.MemoryModel = "64bit"
	t.PointerWidth = 8
	t.byName["long"] = Primitive{Size: 8, Pack: PackI64}
	t.byName["unsigned long"] = Primitive{Size: 8, Pack: PackU64}
	t.byName["pointer"] = Primitive{Size: 8, Pack: PackPointer}
	return t
}

// Clone returns an independent copy so a profile can widen or override
// individual primitives without mutating the canonical table.
func (t *Table) Clone() *Table {
	cp := &Table{MemoryModel: t.MemoryModel, PointerWidth: t.PointerWidth, byName: make(map[string]Primitive, len(t.byName))}
	for k, v := range t.byName {
		cp.byName[k] = v
	}
	return cp
}

// Override replaces (or adds) a primitive's description. Profiles use this
// to force, e.g., "pointer" to an 8-byte little-endian pack on x64.
func (t *Table) Override(name string, p Primitive) {
	t.byName[name] = p
}

// Lookup returns the Primitive description for name.
func (t *Table) Lookup(name string) (Primitive, bool) {
	p, ok := t.byName[name]
	return p, ok
}

// Decode reads size(name) bytes from data (which must be at least that
// long) and returns the numeric value as a uint64, sign- or zero-extended
// per the primitive's Pack. Floats are returned as their raw IEEE-754 bit
// pattern (a float's 32 bits zero-extended); this package has no decoder
// that returns a float64.
func (t *Table) Decode(name string, data []byte) (uint64, error) {
	p, ok := t.byName[name]
	if !ok {
		return 0, physmemerr.New(physmemerr.TypeMissing, fmt.Sprintf("nativetype: unknown primitive %q", name))
	}
	if len(data) < p.Size {
		return 0, physmemerr.New(physmemerr.ShortRead, fmt.Sprintf("nativetype: need %d bytes for %q, have %d", p.Size, name, len(data)))
	}
	switch p.Pack {
	case PackU8:
		return uint64(data[0]), nil
	case PackI8:
		return uint64(int64(int8(data[0]))), nil
	case PackU16:
		return uint64(buf.U16LE(data)), nil
	case PackI16:
		return uint64(int64(int16(buf.U16LE(data)))), nil
	case PackU32, PackPointer:
		if p.Size == 8 {
			return buf.U64LE(data), nil
		}
		return uint64(buf.U32LE(data)), nil
	case PackI32:
		return uint64(int64(int32(buf.U32LE(data)))), nil
	case PackU64:
		return buf.U64LE(data), nil
	case PackI64:
		return uint64(int64(buf.U64LE(data))), nil
	case PackFloat32:
		return uint64(binary.LittleEndian.Uint32(data)), nil
	case PackFloat64:
		return binary.LittleEndian.Uint64(data), nil
	default:
		return 0, physmemerr.New(physmemerr.TypeMissing, fmt.Sprintf("nativetype: unhandled pack for %q", name))
	}
}

// SizeOf returns the byte width of a named primitive.
func (t *Table) SizeOf(name string) (int, bool) {
	p, ok := t.byName[name]
	if !ok {
		return 0, false
	}
	return p.Size, true
}
