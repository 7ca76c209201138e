package object

import "fmt"

// OptionalHeaderEntry is one row of the Windows 7 _OBJECT_HEADER optional
// -header bit table spec §4.D.7 names: [(CREATOR_INFO, 0x01),
// (NAME_INFO, 0x02), (HANDLE_INFO, 0x04), (QUOTA_INFO, 0x08),
// (PROCESS_INFO, 0x10)]. Kept generic (no hardcoded names) so a profile
// can declare its own table instead of this package assuming Windows 7's
// specific layout.
type OptionalHeaderEntry struct {
	Name    string // e.g. "CreatorInfo"
	Bit     uint64
	SubType string // vtype name, e.g. "_OBJECT_HEADER_CREATOR_INFO"
}

// ObjectHeader is the extra surface the Windows object-header behavior
// exposes beyond the base Object interface: spec §4.D.7.
type ObjectHeader interface {
	Object
	// Optional returns the materialized optional sub-header for name, or a
	// none-object if its InfoMask bit was clear.
	Optional(name string) Object
	// TypeIndexName looks the header's TypeIndex byte up in the profile's
	// index->name map, returning "" when the index is unmapped (S5).
	TypeIndexName() string
}

type objectHeader struct {
	*View
	optional     map[string]Object
	typeIndex    uint64
	typeIndexMap map[uint64]string
}

// NewObjectHeaderBehaviorFactory builds the _OBJECT_HEADER behavior class,
// per spec §4.D.7: at construction, read infoMaskField; for each entry
// whose bit is set in the mask, subtract the sub-header's declared size
// (cumulatively) from the object-header's own offset and materialize it
// there; for a clear bit, attach a none-object under that name instead.
// typeIndexField/typeIndexMap implement the Windows-7 TypeIndex->name
// lookup (S5): an index absent from the map reports an empty name.
func NewObjectHeaderBehaviorFactory(infoMaskField string, entries []OptionalHeaderEntry, typeIndexField string, typeIndexMap map[uint64]string) BehaviorFactory {
	return func(v *View) Object {
		h := &objectHeader{View: v, optional: make(map[string]Object, len(entries)), typeIndexMap: typeIndexMap}

		mask, ok := v.Field(infoMaskField).Value()
		pos := v.Address()
		for _, e := range entries {
			if !ok || mask&e.Bit == 0 {
				h.optional[e.Name] = None(fmt.Sprintf("object: optional header %q not present (InfoMask bit clear)", e.Name))
				continue
			}
			subType, sizeOK := v.Resolver().TypeByName(e.SubType)
			if !sizeOK {
				h.optional[e.Name] = None(fmt.Sprintf("object: optional header type %q unknown", e.SubType))
				continue
			}
			pos -= uint64(subType.Size)
			h.optional[e.Name] = Materialize(v.Resolver(), e.SubType, pos, v.AddressSpace(), v, false)
		}

		if idx, ok := v.Field(typeIndexField).Value(); ok {
			h.typeIndex = idx
		}
		return h
	}
}

func (h *objectHeader) Optional(name string) Object {
	if o, ok := h.optional[name]; ok {
		return o
	}
	return None(fmt.Sprintf("object: no such optional header %q", name))
}

func (h *objectHeader) TypeIndexName() string {
	if name, ok := h.typeIndexMap[h.typeIndex]; ok {
		return name
	}
	return ""
}
