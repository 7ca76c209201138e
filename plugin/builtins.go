package plugin

import (
	"github.com/arvidw/physmem/addrspace"
	"github.com/arvidw/physmem/nativetype"
	"github.com/arvidw/physmem/object"
	"github.com/arvidw/physmem/profile"
	"github.com/arvidw/physmem/scan"
	"github.com/arvidw/physmem/vtype"
)

// ProfileBuilder constructs a compiled Profile on demand — registered as a
// KindProfile Entry's Value rather than a pre-built Profile, since
// Compile can fail and registration must stay a cheap, side-effect-free
// init()-time call.
type ProfileBuilder func() (*profile.Profile, error)

func registerProfile(name string, isActive func(cfg Config) bool, build ProfileBuilder) {
	Register(Entry{Name: name, Kind: KindProfile, IsActive: isActive, Value: build})
}

// listEntryBase is the Windows _LIST_ENTRY vtype shared by every Windows
// profile below: two pointers back to itself, walked via the doubly-
// linked list_head behavior (spec §4.D.5).
func listEntryBase() vtype.Base {
	return vtype.Base{Name: "_LIST_ENTRY", Size: 8, Fields: map[string]vtype.Field{
		"Flink": {Offset: 0, Type: vtype.FieldType{Kind: vtype.KindPointer, Target: "_LIST_ENTRY"}},
		"Blink": {Offset: 4, Type: vtype.FieldType{Kind: vtype.KindPointer, Target: "_LIST_ENTRY"}},
	}}
}

// unicodeStringBase is the Windows UNICODE_STRING vtype shared by every
// Windows profile below: a 16-bit Length (bytes, no NUL), a 16-bit
// MaximumLength, and a Buffer pointer to a UTF-16LE character array,
// decoded by the unicodeString behavior (spec §4.D.2, §4.D.7).
func unicodeStringBase() vtype.Base {
	return vtype.Base{Name: "_UNICODE_STRING", Size: 8, Fields: map[string]vtype.Field{
		"Length":        {Offset: 0, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned short"}},
		"MaximumLength": {Offset: 2, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned short"}},
		"Buffer": {Offset: 4, Type: vtype.FieldType{
			Kind: vtype.KindPointer, Target: "unsigned char", TargetIsPrimitive: true,
		}},
	}}
}

// windowsEprocessBase builds the _EPROCESS vtype for the Windows profiles
// below; the offsets each profile passes to it are deliberately small,
// made-up test fixtures, not a faithful transcription
// of the real Windows 7/Vista symbol dictionaries — spec.md §1's
// Non-goals exclude shipping concrete OS structure dictionaries as a
// product; these exist only so the plugin registry has something real to
// discover and the profile-modification chain has something real to
// compose.
func windowsEprocessBase(size, pidOffset, linksOffset, nameOffset, processNameOffset int) vtype.Base {
	return vtype.Base{Name: "_EPROCESS", Size: size, Fields: map[string]vtype.Field{
		"UniqueProcessId":    {Offset: pidOffset, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "unsigned long"}},
		"ActiveProcessLinks": {Offset: linksOffset, Type: vtype.FieldType{Kind: vtype.KindStruct, Target: "_LIST_ENTRY"}},
		"ImageFileName": {Offset: nameOffset, Type: vtype.FieldType{
			Kind: vtype.KindArray, Target: "unsigned char", TargetIsPrimitive: true, Count: 15,
		}},
		"ProcessName": {Offset: processNameOffset, Type: vtype.FieldType{Kind: vtype.KindStruct, Target: "_UNICODE_STRING"}},
	}}
}

func buildWindows7SP0x86() (*profile.Profile, error) {
	b := profile.NewBuilder(profile.Metadata{OS: "windows", MemoryModel: "32bit", VersionMajor: 6, VersionMinor: 1}, nativetype.NewTable32())
	b.AddBaseType(listEntryBase())
	b.SetBehavior("_LIST_ENTRY", object.NewListHeadBehaviorFactory("Flink", "Blink"))
	b.AddBaseType(unicodeStringBase())
	b.SetBehavior("_UNICODE_STRING", object.NewUnicodeStringBehaviorFactory("Length", "Buffer"))
	b.AddBaseType(windowsEprocessBase(0x2C0, 0x0B4, 0x0B8, 0x16C, 0x180))
	b.AddConstant("PoolAlignment", 8)
	return b.Compile()
}

func buildWindowsVistaSP0x86() (*profile.Profile, error) {
	b := profile.NewBuilder(profile.Metadata{OS: "windows", MemoryModel: "32bit", VersionMajor: 6, VersionMinor: 0}, nativetype.NewTable32())
	b.AddBaseType(listEntryBase())
	b.SetBehavior("_LIST_ENTRY", object.NewListHeadBehaviorFactory("Flink", "Blink"))
	b.AddBaseType(unicodeStringBase())
	b.SetBehavior("_UNICODE_STRING", object.NewUnicodeStringBehaviorFactory("Length", "Buffer"))
	// Vista's _EPROCESS predates Win7's larger job/cgroup-adjacent fields;
	// the fixture uses a smaller struct and earlier offsets to exercise the
	// modification chain composing a *different* profile from the same
	// _LIST_ENTRY base, per spec §9's "deep inheritance... maps to
	// composition by modification chain".
	b.AddBaseType(windowsEprocessBase(0x260, 0x09C, 0x0A0, 0x14C, 0x160))
	b.AddConstant("PoolAlignment", 8)
	return b.Compile()
}

func buildLinuxGeneric() (*profile.Profile, error) {
	b := profile.NewBuilder(profile.Metadata{OS: "linux", MemoryModel: "64bit"}, nativetype.NewTable64())
	b.AddBaseType(vtype.Base{Name: "list_head", Size: 16, Fields: map[string]vtype.Field{
		"next": {Offset: 0, Type: vtype.FieldType{Kind: vtype.KindPointer, Target: "list_head"}},
		"prev": {Offset: 8, Type: vtype.FieldType{Kind: vtype.KindPointer, Target: "list_head"}},
	}})
	b.SetBehavior("list_head", object.NewListHeadBehaviorFactory("next", "prev"))
	b.AddBaseType(vtype.Base{Name: "hlist_node", Size: 16, Fields: map[string]vtype.Field{
		"next": {Offset: 0, Type: vtype.FieldType{Kind: vtype.KindPointer, Target: "hlist_node"}},
		"pprev": {Offset: 8, Type: vtype.FieldType{Kind: vtype.KindPointer, Target: "hlist_node"}},
	}})
	b.SetBehavior("hlist_node", object.NewHlistNodeBehaviorFactory("next"))
	b.AddBaseType(vtype.Base{Name: "task_struct", Size: 0x600, Fields: map[string]vtype.Field{
		"pid":   {Offset: 0x3F8, Type: vtype.FieldType{Kind: vtype.KindPrimitive, Primitive: "int"}},
		"tasks": {Offset: 0x2D0, Type: vtype.FieldType{Kind: vtype.KindStruct, Target: "list_head"}},
		"comm": {Offset: 0x550, Type: vtype.FieldType{
			Kind: vtype.KindArray, Target: "unsigned char", TargetIsPrimitive: true, Count: 16,
		}},
	}})
	return b.Compile()
}

func init() {
	registerProfile("Win7SP0x86", func(cfg Config) bool {
		return cfg.OS == "windows" && cfg.VersionMajor == 6 && cfg.VersionMinor == 1
	}, buildWindows7SP0x86)

	registerProfile("VistaSP0x86", func(cfg Config) bool {
		return cfg.OS == "windows" && cfg.VersionMajor == 6 && cfg.VersionMinor == 0
	}, buildWindowsVistaSP0x86)

	registerProfile("LinuxGeneric", func(cfg Config) bool {
		return cfg.OS == "linux"
	}, buildLinuxGeneric)

	Register(Entry{
		Name: "FileScanCheck",
		Kind: KindScannerCheck,
		Value: func(poolIndex uint8) *scan.Scanner { return scan.NewFileScan(poolIndex) },
	})

	Register(Entry{Name: "PhysicalAddressSpace", Kind: KindAddressSpace, Value: addrspace.PhysicalFactory})
}
