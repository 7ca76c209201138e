// Package testimage builds synthetic physical-memory images for tests, the
// same setup/cleanup ergonomic internal/testutil/setup.go gives hive tests
// (copy a prepared test hive into a temp file, open it, hand back a
// cleanup), generalized from "copy a real captured hive" to "construct
// bytes directly" — this domain ships no bundled captured memory images to
// copy, so synthetic construction is the only option rather than a choice.
package testimage

import "github.com/arvidw/physmem/addrspace"

// Builder accumulates bytes for a synthetic physical-memory image before
// handing them to a PhysicalLayer.
type Builder struct {
	data []byte
}

// New returns a Builder over a zero-filled buffer of size bytes.
func New(size int) *Builder {
	return &Builder{data: make([]byte, size)}
}

// Len returns the buffer's total size.
func (b *Builder) Len() int { return len(b.data) }

// Bytes returns the accumulated buffer directly, for callers (like
// session.Open) that need a file on disk rather than an in-memory layer.
func (b *Builder) Bytes() []byte { return b.data }

// PutU16 writes a little-endian uint16 at off.
func (b *Builder) PutU16(off uint64, v uint16) *Builder {
	b.data[off] = byte(v)
	b.data[off+1] = byte(v >> 8)
	return b
}

// PutU32 writes a little-endian uint32 at off.
func (b *Builder) PutU32(off uint64, v uint32) *Builder {
	for i := uint64(0); i < 4; i++ {
		b.data[off+i] = byte(v >> (8 * i))
	}
	return b
}

// PutU64 writes a little-endian uint64 at off.
func (b *Builder) PutU64(off uint64, v uint64) *Builder {
	for i := uint64(0); i < 8; i++ {
		b.data[off+i] = byte(v >> (8 * i))
	}
	return b
}

// PutBytes copies data verbatim starting at off.
func (b *Builder) PutBytes(off uint64, data []byte) *Builder {
	copy(b.data[off:], data)
	return b
}

// PlantRing32 writes a doubly-linked ring of 32-bit forward/backward
// pointers across linkAddrs: linkAddrs[i]'s forward pointer (at
// linkAddrs[i]+fwdOff) targets linkAddrs[i+1 mod n], and its backward
// pointer (at linkAddrs[i]+backOff) targets linkAddrs[i-1 mod n] — the
// _LIST_ENTRY/list_head shape object.NewListHeadBehaviorFactory walks.
func (b *Builder) PlantRing32(fwdOff, backOff uint64, linkAddrs []uint64) *Builder {
	n := len(linkAddrs)
	for i, addr := range linkAddrs {
		next := linkAddrs[(i+1)%n]
		prev := linkAddrs[(i-1+n)%n]
		b.PutU32(addr+fwdOff, uint32(next))
		b.PutU32(addr+backOff, uint32(prev))
	}
	return b
}

// Build returns a PhysicalLayer (and the FileLayer underneath it, for
// callers that need direct access to Close or the writable flag) over the
// accumulated bytes.
func (b *Builder) Build(writable bool) (*addrspace.PhysicalLayer, *addrspace.FileLayer) {
	file := addrspace.OpenBytes(b.data, writable)
	return addrspace.NewPhysicalLayer(file), file
}
