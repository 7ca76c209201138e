package addrspace

// Linux32 and Linux64 are the Linux-side paging walkers named in spec §2 row
// A. The page-table math is identical to the Windows walkers above — a
// modern Linux x86 kernel uses the same PAE three-level format, and x86-64
// Linux uses the same four-level format as Windows x64 — per spec §9's
// design note, the only real difference is DTB discovery (Linux has no
// "well-known kernel-process image name" signature to scan for; its DTB
// normally arrives from a System.map `swapper_pg_dir` symbol resolved
// through the profile rather than by physical scanning) and that pointers
// here are never truncated to 48 bits, unlike the quirk spec §9 flags as
// deliberately not reproduced.
type (
	Linux32 = IA32PAE
	Linux64 = AMD64
)

// NewLinux32 builds a Linux 32-bit (PAE) translator rooted at dtb.
func NewLinux32(base AddrReader, dtb uint64) *Linux32 { return NewIA32PAE(base, dtb) }

// NewLinux64 builds a Linux 64-bit translator rooted at dtb. The walk
// indexes virtual-address bits 12-47, as the four-level format defines;
// pointer values read through it are not masked to 48 bits.
func NewLinux64(base AddrReader, dtb uint64) *Linux64 { return NewAMD64(base, dtb) }

// Linux32Factory and Linux64Factory mirror IA32PAEFactory/AMD64Factory
// under Linux-specific names so a Linux profile's stack-builder call site
// reads naturally; the underlying translators are shared.
var (
	Linux32Factory = Factory{Order: OrderPaged, Role: RoleVirtual, Build: IA32PAEFactory.Build}
	Linux64Factory = Factory{Order: OrderPaged, Role: RoleVirtual, Build: AMD64Factory.Build}
)
