// Package vtype holds structure descriptions — "vtypes" in Volatility
// parlance, the dictionary entries a profile merges from symbol-derived
// base layouts and hand-written overlays. A Type names its declared size
// and a field-name -> (offset, FieldType) map; an Overlay sparsely patches
// a base Type by field name.
//
// The merge semantics (§4.C) are modeled on the teacher's hive/merge
// package: a deep merge with later-wins leaf precedence, the same shape as
// hive/merge/ops.go's registry-value merge operations, generalized here
// from "merge registry edits into a hive" to "merge overlay field patches
// into a base struct layout".
package vtype

import (
	"fmt"

	"github.com/arvidw/physmem/physmemerr"
)

// FieldKind distinguishes how a field's bytes should be interpreted.
type FieldKind int

const (
	KindPrimitive FieldKind = iota
	KindPointer
	KindArray
	KindBitfield
	KindStruct
	KindEnum
	KindFlags
)

// CountFunc computes an array's element count from the parent object's
// already-decoded sibling fields, implementing spec §3's "count or
// count-callable" and §9's "callable field lengths" design note. It is
// evaluated lazily each time the array field is materialized — never
// precomputed into the static layout, and not memoized.
type CountFunc func(fieldValue func(name string) (uint64, bool)) int

// FieldType is a field-type descriptor: exactly one of a primitive name, a
// pointer target, an array spec, a bitfield spec, a nested struct name, or
// an enum/flags spec with a numeric backing primitive.
type FieldType struct {
	Kind FieldKind

	// KindPrimitive / KindBitfield / KindEnum / KindFlags backing type.
	Primitive string

	// KindPointer / KindStruct / KindArray(element struct) target type name.
	Target string
	// TargetIsPrimitive is set when a pointer or array element names a
	// primitive rather than a struct.
	TargetIsPrimitive bool

	// KindArray.
	Count     int       // used when CountFn is nil
	CountFn   CountFunc // used when non-nil; takes precedence over Count

	// KindBitfield: bit range within the backing primitive, LSB = bit 0.
	BitStart int
	BitWidth int

	// KindEnum: value -> name.
	EnumNames map[uint64]string
	// KindFlags: bit mask -> name, checked independently (not mutually exclusive).
	FlagNames map[uint64]string
}

// Field is one entry in a Type's layout: its byte offset and its decoded
// shape.
type Field struct {
	Offset int
	Type   FieldType
}

// Type is a fully-resolved structure description: the layout a compiled
// profile hands to the object engine. Built by merging a Base with zero or
// more Overlays via Compile.
type Type struct {
	Name   string
	Size   int
	Fields map[string]Field
}

// Base is an unmerged, symbol-derived structure description — the raw
// input a profile loads from a vtype dictionary or from DWARF output,
// before any overlay is applied.
type Base struct {
	Name   string
	Size   int
	Fields map[string]Field
}

// Overlay sparsely patches a Base by field name. SizeOverride, if non-nil,
// replaces the base's declared size. Each entry in Fields may omit Offset
// (keep the base offset) but a field with no base counterpart (an
// overlay-only field) must set HasOffset.
type Overlay struct {
	Name         string
	SizeOverride *int
	Fields       map[string]OverlayField
}

// OverlayField is one overlay patch to a single field: offset and/or type
// may be overridden independently (§4.C: "if the overlay offset is
// present it replaces the base offset... If the overlay type descriptor is
// present, it replaces the base type descriptor").
type OverlayField struct {
	HasOffset bool
	Offset    int
	HasType   bool
	Type      FieldType
}

// Compile merges overlays (in order, later wins at the leaf per spec §4.C)
// onto base and verifies that each primitive, bitfield, enum, flags and
// fixed-count array field fits within the declared size. Pointer fields,
// nested-struct fields and CountFn arrays are not bounds-checked. It
// returns a *physmemerr.Error of kind ProfileCompile on any violation.
func Compile(base Base, overlays ...Overlay) (*Type, error) {
	size := base.Size
	fields := make(map[string]Field, len(base.Fields))
	for name, f := range base.Fields {
		fields[name] = f
	}

	for _, ov := range overlays {
		if ov.SizeOverride != nil {
			size = *ov.SizeOverride
		}
		for name, patch := range ov.Fields {
			existing, had := fields[name]
			if !had && !patch.HasOffset {
				return nil, compileErr(base.Name, fmt.Sprintf("overlay-only field %q has no declared offset", name))
			}
			next := existing
			if patch.HasOffset {
				next.Offset = patch.Offset
			}
			if patch.HasType {
				next.Type = patch.Type
			}
			fields[name] = next
		}
	}

	sizeOf := sizeOfFieldFunc(fields)
	for name, f := range fields {
		fsize := sizeOf(f.Type)
		if fsize >= 0 && f.Offset+fsize > size {
			return nil, compileErr(base.Name, fmt.Sprintf("field %q at offset %d size %d exceeds struct size %d", name, f.Offset, fsize, size))
		}
	}

	return &Type{Name: base.Name, Size: size, Fields: fields}, nil
}

// sizeOfFieldFunc returns a best-effort static size for a field type, used
// only by Compile's bounds check. Fields whose size depends on a sibling
// (CountFn arrays) return -1, meaning "unknown until materialized" — they
// are exempted from the static check per spec §9's closure-descriptor note.
// Pointer and nested-struct fields also return -1 and are not checked.
func sizeOfFieldFunc(_ map[string]Field) func(FieldType) int {
	return func(ft FieldType) int {
		switch ft.Kind {
		case KindArray:
			if ft.CountFn != nil {
				return -1
			}
			return ft.Count * primitiveGuess(ft)
		case KindBitfield, KindEnum, KindFlags:
			return primitiveGuess(ft)
		case KindPointer:
			return -1 // width depends on the native-type table, which Compile does not see
		case KindPrimitive:
			return primitiveGuess(ft)
		default:
			return -1
		}
	}
}

// primitiveGuess returns a conservative guess at a backing primitive's
// size for the static bounds check, without consulting the native-type
// table: names it does not know (e.g. "pointer") count as 1 byte, so the
// check never rejects a field that fits but can miss one that overruns.
func primitiveGuess(ft FieldType) int {
	switch ft.Primitive {
	case "char", "unsigned char", "byte":
		return 1
	case "short", "unsigned short":
		return 2
	case "long", "unsigned long", "int", "unsigned int", "float":
		return 4
	case "long long", "unsigned long long", "double", "pointer64":
		return 8
	default:
		return 1
	}
}

func compileErr(typeName, msg string) error {
	return physmemerr.New(physmemerr.ProfileCompile, fmt.Sprintf("vtype: compiling %q: %s", typeName, msg))
}

// OffsetOf returns a field's byte offset.
func (t *Type) OffsetOf(field string) (int, bool) {
	f, ok := t.Fields[field]
	if !ok {
		return 0, false
	}
	return f.Offset, true
}
