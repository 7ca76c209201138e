// Package addrspace implements the composable address-space stack: a chain
// of byte-addressable layers (file, physical, paged virtual) where each
// layer translates an address range and delegates to the layer below.
//
// The stack is built bottom-up (FileLayer, then a PhysicalLayer on top, then
// zero or more paged virtual layers) and each layer only knows how to
// translate its own addressing scheme into the one below it; none of them
// know about structure layouts or types. That's the Profile's job (package
// profile) — this package only ever deals in bytes.
package addrspace

import "fmt"

// Role is the stacking role a layer was built to fill. The stack builder
// (Build) uses this to pick the right layer for each slot in the chain.
type Role int

const (
	RoleFile Role = iota
	RolePhysical
	RoleVirtual
)

// Run describes one contiguous span of present addresses, as yielded by
// AddressSpace.Runs.
type Run struct {
	Start  uint64
	Length uint64
}

// AddressSpace is the uniform read/write surface every layer of the stack
// exposes. See spec §3 for the invariants: Read over a translation gap
// fails; ZRead never fails and always returns exactly Length bytes.
type AddressSpace interface {
	// Read returns exactly length bytes, or a ShortRead error if a gap was
	// hit anywhere in the requested range.
	Read(addr uint64, length int) ([]byte, error)
	// ZRead returns exactly length bytes; any byte that falls in a
	// translation gap reads back as 0x00.
	ZRead(addr uint64, length int) []byte
	// IsValid reports whether a single address translates to a byte.
	IsValid(addr uint64) bool
	// Runs iterates the present (start, length) spans in ascending order.
	Runs() func(yield func(Run) bool)
	// Write attempts to store data at addr; ok is false when the layer (or
	// the whole stack) is not writable, or when any byte in the range
	// cannot be translated.
	Write(addr uint64, data []byte) (ok bool)
	// Base returns the layer this one is stacked on, or nil for the bottom
	// of the stack (a FileLayer).
	Base() AddressSpace
	// Role reports which stacking role this layer fills.
	Role() Role
}

// Order ranks layer constructors for the stack builder: ascending order is
// tried first, mirroring spec §4.A.5 ("the framework tries layers in
// ascending order"). Lower orders are cheaper/more-general layers (the
// plain file and physical layers); higher orders are specific page-table
// walkers that should only be tried once the generic options are exhausted
// — in practice every paging layer here shares one order tier and the
// builder tries them all, taking the first that accepts the base.
type Order int

const (
	OrderFile     Order = 0
	OrderPhysical Order = 10
	OrderPaged    Order = 20
)

// Factory constructs a layer on top of base for the given role. It returns
// a StackRejection error (via Rejected) when this layer type
// does not apply to base — e.g. a paged virtual layer stacking over
// something that is not a physical layer.
type Factory struct {
	Order Order
	Role  Role
	Build func(base AddressSpace, opts Options) (AddressSpace, error)
}

// Options carries the knobs a layer factory may need: an explicit DTB, a
// writable flag for the file layer, etc. Layers ignore fields that don't
// apply to them.
type Options struct {
	DTB      uint64
	HasDTB   bool
	Writable bool
}

// Build tries each factory in ascending Order, returning the first layer
// that accepts base for the declared role. It never dedups in any way
// beyond "first acceptor wins" — callers pass factories in the precedence
// they want.
func Build(base AddressSpace, role Role, opts Options, factories []Factory) (AddressSpace, error) {
	candidates := make([]Factory, 0, len(factories))
	for _, f := range factories {
		if f.Role == role {
			candidates = append(candidates, f)
		}
	}
	// Stable ascending-order pass, skipping rejections.
	for i := 0; i < len(candidates); i++ {
		best := -1
		for j, f := range candidates {
			if f.Order < 0 {
				continue
			}
			if best == -1 || f.Order < candidates[best].Order {
				best = j
			}
		}
		if best == -1 {
			break
		}
		f := candidates[best]
		candidates[best].Order = -1 // mark tried
		layer, err := f.Build(base, opts)
		if err == nil {
			return layer, nil
		}
		if !IsRejection(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("addrspace: no layer for role %d accepted the given base", role)
}
