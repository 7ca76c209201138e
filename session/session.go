package session

import (
	"fmt"

	"github.com/arvidw/physmem/addrspace"
	"github.com/arvidw/physmem/object"
	"github.com/arvidw/physmem/plugin"
	"github.com/arvidw/physmem/profile"
)

// Session is the fully-constructed result of Open: a stacked address space
// plus the compiled profile that interprets it. Its Config does not change
// after Open; SetDTB re-roots its virtual layer and rebinds its profile in
// place, so a Session is not immutable. Every
// component downstream (object materialization, scanning, symbol lookup)
// takes a Session, or the layers and profile it exposes, rather than
// reaching for package-level state.
type Session struct {
	cfg      Config
	file     *addrspace.FileLayer
	physical *addrspace.PhysicalLayer
	prof     *profile.Profile
	virtual  addrspace.AddressSpace
	hasDTB   bool
	dtb      uint64
}

// Open builds the address-space stack and compiles the named profile. It
// is the single construction boundary spec §7 means by "construction
// errors... surface to the caller": a missing file, an unknown profile
// name, a profile that fails to compile, or a virtual layer that fails to
// stack over an explicit DTB abort here with a plain error rather than
// degrading to a none-object, per the propagation policy that reserves
// sentinels for per-datum reads. Open neither discovers nor verifies a
// DTB; without cfg.HasDTB it leaves the virtual layer unset.
func Open(cfg Config) (*Session, error) {
	if cfg.Filename == "" {
		return nil, fmt.Errorf("session: FILENAME is required")
	}

	file, err := addrspace.OpenFile(cfg.Filename, cfg.Write)
	if err != nil {
		return nil, fmt.Errorf("session: opening %s: %w", cfg.Filename, err)
	}

	physAny, err := addrspace.Build(file, addrspace.RolePhysical,
		addrspace.Options{Writable: cfg.Write}, []addrspace.Factory{addrspace.PhysicalFactory})
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("session: stacking physical layer: %w", err)
	}
	phys := physAny.(*addrspace.PhysicalLayer)

	entry, ok := plugin.Lookup(cfg.Profile)
	if !ok {
		file.Close()
		return nil, fmt.Errorf("session: no registered profile named %q", cfg.Profile)
	}
	build, ok := entry.Value.(plugin.ProfileBuilder)
	if !ok || entry.Kind != plugin.KindProfile {
		file.Close()
		return nil, fmt.Errorf("session: %q is not a profile plugin", cfg.Profile)
	}
	prof, err := build()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("session: compiling profile %q: %w", cfg.Profile, err)
	}

	s := &Session{cfg: cfg, file: file, physical: phys, prof: prof.WithDefaultAddressSpace(phys)}

	if cfg.HasDTB {
		s.hasDTB = true
		s.dtb = cfg.DTB
		virt, err := buildVirtual(prof.Metadata(), phys, s.dtb)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("session: stacking virtual layer: %w", err)
		}
		s.virtual = virt
		s.prof = prof.WithDefaultAddressSpace(virt)
	}

	return s, nil
}

// Close releases the underlying image file. It does not invalidate any
// object already materialized against the session's address spaces in
// memory, only further reads through the file layer.
func (s *Session) Close() error { return s.file.Close() }

// Config returns the configuration the session was opened with.
func (s *Session) Config() Config { return s.cfg }

// Physical returns the physical address space.
func (s *Session) Physical() *addrspace.PhysicalLayer { return s.physical }

// Virtual returns the kernel virtual address space, or nil if no DTB has
// been established yet (see SetDTB).
func (s *Session) Virtual() addrspace.AddressSpace { return s.virtual }

// Profile returns the compiled profile, bound to the virtual layer once a
// DTB is known and to the physical layer otherwise.
func (s *Session) Profile() *profile.Profile { return s.prof }

// DTB reports the directory-table-base in effect, if any.
func (s *Session) DTB() (uint64, bool) { return s.dtb, s.hasDTB }

// SetDTB stacks a virtual layer rooted at dtb and rebinds the session's
// profile to it. Used after DiscoverDTB finds and verifies a candidate, or
// whenever a caller wants to re-root the kernel address space explicitly.
func (s *Session) SetDTB(dtb uint64) error {
	virt, err := buildVirtual(s.prof.Metadata(), s.physical, dtb)
	if err != nil {
		return fmt.Errorf("session: stacking virtual layer: %w", err)
	}
	s.virtual = virt
	s.dtb = dtb
	s.hasDTB = true
	s.prof = s.prof.WithDefaultAddressSpace(virt)
	return nil
}

// buildVirtual picks the paging translator for the profile's declared
// OS/memory model and stacks it over phys: every 32-bit profile gets the
// PAE walker (spec §4.A.4; the non-PAE walker is never chosen here) and
// every 64-bit profile the AMD64/Linux walker recovered from original_source.
func buildVirtual(meta profile.Metadata, phys *addrspace.PhysicalLayer, dtb uint64) (addrspace.AddressSpace, error) {
	var translator addrspace.Translator
	switch {
	case meta.OS == "linux" && meta.MemoryModel == "32bit":
		translator = addrspace.NewLinux32(phys, dtb)
	case meta.OS == "linux" && meta.MemoryModel == "64bit":
		translator = addrspace.NewLinux64(phys, dtb)
	case meta.MemoryModel == "64bit":
		translator = addrspace.NewAMD64(phys, dtb)
	case meta.MemoryModel == "32bit":
		translator = addrspace.NewIA32PAE(phys, dtb)
	default:
		return nil, fmt.Errorf("no paging translator for OS=%q memory model=%q", meta.OS, meta.MemoryModel)
	}
	return addrspace.NewPagedLayer(fmt.Sprintf("%s/%s", meta.OS, meta.MemoryModel), phys, translator)
}

// DiscoverDTB implements the scanning half of spec §4.A.6's DTB discovery:
// slide imageNameSignature across the physical layer, read a candidate DTB
// at dtbRelOffset from each hit, and hand every candidate to verify until
// one is accepted. It knows nothing about what a given profile's
// kernel-process signature or verification means — that's supplied by the
// caller, normally a profile-specific plugin — so this stays a generic
// primitive rather than hardcoding one OS's layout.
func (s *Session) DiscoverDTB(imageNameSignature []byte, dtbRelOffset int64, dtbSize int, verify func(dtb uint64) bool) (uint64, bool) {
	for _, c := range addrspace.ScanDTBCandidates(s.physical, imageNameSignature, dtbRelOffset, dtbSize) {
		if verify(c.DTB) {
			return c.DTB, true
		}
	}
	return 0, false
}

// VerifyDTBRoundTrip is spec §4.A.6's acceptance test for a DTB candidate:
// re-stack a virtual layer with the candidate (the caller does this via
// SetDTB or a throwaway buildVirtual call before committing), materialize
// the suspect process, walk one list link forward then back through
// forwardField/backwardField on linkField, and require the round trip to
// land back on the original link address.
func VerifyDTBRoundTrip(resolver object.Resolver, as addrspace.AddressSpace, processType, linkField, forwardField, backwardField string, procAddr uint64) bool {
	proc := object.Materialize(resolver, processType, procAddr, as, nil, true)
	if proc.IsNone() {
		return false
	}
	link := proc.Field(linkField)
	if link.IsNone() {
		return false
	}
	linkAddr := link.Address()

	fwdAddr, ok := link.Field(forwardField).Value()
	if !ok || fwdAddr == 0 {
		return false
	}
	nextLink := object.Materialize(resolver, link.TypeName(), fwdAddr, as, nil, true)
	if nextLink.IsNone() {
		return false
	}
	backAddr, ok := nextLink.Field(backwardField).Value()
	return ok && backAddr == linkAddr
}
