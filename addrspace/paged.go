package addrspace

import (
	"fmt"

	"github.com/arvidw/physmem/physmemerr"
)

// Translator is the page-table-walking core a PagedLayer delegates to. Each
// architecture (IA32NonPAE, IA32PAE, AMD64, Linux32/Linux64) implements one
// of these; PagedLayer supplies the common mixin behavior spec §4.A.2
// describes: IsValid via Vtop, segmented Read/ZRead that split on page
// boundaries, and a Runs iterator built from AvailablePages.
type Translator interface {
	// Vtop translates a virtual address to a physical one. ok is false on a
	// translation gap.
	Vtop(vaddr uint64) (phys uint64, ok bool)
	// PageSize returns the size of the page covering vaddr, for read
	// splitting. It must return a value that evenly divides the address
	// space (4 KiB, 2/4 MiB, 1 GiB).
	PageSize(vaddr uint64) uint64
	// AvailablePages yields every (vaddr, size) page run the translator
	// considers present, ascending, used to build the coalesced
	// Runs iterator.
	AvailablePages(yield func(vaddr, size uint64) bool)
}

// PagedLayer is the common mixin for every paging virtual layer: it turns a
// Translator plus a physical base into a full AddressSpace.
type PagedLayer struct {
	base       AddressSpace
	translator Translator
	name       string
}

// NewPagedLayer wraps translator over base. base must have Role() ==
// RolePhysical; a paged layer must never stack above another paged layer
// (spec §4.A.5).
func NewPagedLayer(name string, base AddressSpace, translator Translator) (*PagedLayer, error) {
	if base == nil {
		return nil, Rejected(name + ": no base supplied")
	}
	if base.Role() != RolePhysical {
		return nil, Rejected(name + ": base is not a physical layer")
	}
	return &PagedLayer{base: base, translator: translator, name: name}, nil
}

func (p *PagedLayer) Role() Role         { return RoleVirtual }
func (p *PagedLayer) Base() AddressSpace { return p.base }

func (p *PagedLayer) IsValid(vaddr uint64) bool {
	phys, ok := p.translator.Vtop(vaddr)
	if !ok {
		return false
	}
	return p.base.IsValid(phys)
}

// Vtop exposes the translator's raw virtual-to-physical mapping, used by
// DTB verification and by callers that need the physical address directly.
func (p *PagedLayer) Vtop(vaddr uint64) (uint64, bool) {
	return p.translator.Vtop(vaddr)
}

func (p *PagedLayer) Read(addr uint64, length int) ([]byte, error) {
	if length < 0 {
		return nil, physmemerr.New(physmemerr.InvalidAddress, "addrspace: negative read length")
	}
	out := make([]byte, 0, length)
	remaining := uint64(length)
	cur := addr
	for remaining > 0 {
		pageSize := p.translator.PageSize(cur)
		offsetInPage := cur % pageSize
		chunk := pageSize - offsetInPage
		if chunk > remaining {
			chunk = remaining
		}
		phys, ok := p.translator.Vtop(cur)
		if !ok {
			return nil, physmemerr.New(physmemerr.ShortRead, fmt.Sprintf("%s: translation gap at vaddr 0x%x", p.name, cur))
		}
		chunkData, err := p.base.Read(phys, int(chunk))
		if err != nil {
			return nil, physmemerr.Wrap(physmemerr.ShortRead, fmt.Sprintf("%s: short read at phys 0x%x", p.name, phys), err)
		}
		out = append(out, chunkData...)
		cur += chunk
		remaining -= chunk
	}
	return out, nil
}

func (p *PagedLayer) ZRead(addr uint64, length int) []byte {
	if length <= 0 {
		return []byte{}
	}
	out := make([]byte, 0, length)
	remaining := uint64(length)
	cur := addr
	for remaining > 0 {
		pageSize := p.translator.PageSize(cur)
		offsetInPage := cur % pageSize
		chunk := pageSize - offsetInPage
		if chunk > remaining {
			chunk = remaining
		}
		phys, ok := p.translator.Vtop(cur)
		if !ok {
			out = append(out, make([]byte, chunk)...)
		} else {
			out = append(out, p.base.ZRead(phys, int(chunk))...)
		}
		cur += chunk
		remaining -= chunk
	}
	return out
}

func (p *PagedLayer) Write(addr uint64, data []byte) bool {
	remaining := uint64(len(data))
	cur := addr
	pos := 0
	for remaining > 0 {
		pageSize := p.translator.PageSize(cur)
		offsetInPage := cur % pageSize
		chunk := pageSize - offsetInPage
		if chunk > remaining {
			chunk = remaining
		}
		phys, ok := p.translator.Vtop(cur)
		if !ok {
			return false
		}
		if !p.base.Write(phys, data[pos:pos+int(chunk)]) {
			return false
		}
		cur += chunk
		remaining -= chunk
		pos += int(chunk)
	}
	return true
}

// Runs coalesces adjacent AvailablePages entries into maximal runs, per
// spec §4.A.2's "available-addresses iterator that coalesces adjacent
// available-pages into runs".
func (p *PagedLayer) Runs() func(yield func(Run) bool) {
	return func(yield func(Run) bool) {
		var have bool
		var curStart, curEnd uint64
		flush := func() bool {
			if have {
				if !yield(Run{Start: curStart, Length: curEnd - curStart}) {
					return false
				}
			}
			return true
		}
		p.translator.AvailablePages(func(vaddr, size uint64) bool {
			if have && vaddr == curEnd {
				curEnd = vaddr + size
				return true
			}
			if !flush() {
				return false
			}
			have = true
			curStart, curEnd = vaddr, vaddr+size
			return true
		})
		flush()
	}
}
