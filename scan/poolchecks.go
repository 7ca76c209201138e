package scan

import (
	"github.com/arvidw/physmem/addrspace"
	"github.com/arvidw/physmem/internal/buf"
)

// This package's pool-header field offsets are a simplified, didactic
// layout (tag, then block size, pool type, pool index immediately after)
// rather than the exact production _POOL_HEADER bit-packing, since
// shipping the real Windows-release-specific structure is out of scope
// (spec.md §1 Non-goals: concrete vtype dictionaries for specific OS
// releases). A profile that needs the exact layout defines it as a vtype
// and drives Check closures from object.Resolver instead of these.
const (
	poolBlockSizeOffset = 4 // relative to the tag's own offset
	poolTypeOffset      = 6
	poolIndexOffset     = 7
)

// PoolSizeCheck accepts a hit whose little-endian uint16 BlockSize field
// is at least min — spec §8 S6's "block-size ≥ 0x98".
func PoolSizeCheck(min uint16) Check {
	return func(as addrspace.AddressSpace, absoluteOffset uint64) bool {
		data, err := as.Read(absoluteOffset+poolBlockSizeOffset, 2)
		if err != nil {
			return false
		}
		return buf.U16LE(data) >= min
	}
}

// PoolTypeCheck accepts a hit whose PoolType byte is non-paged (non-zero)
// when nonPaged is true, or paged (zero) when false.
func PoolTypeCheck(nonPaged bool) Check {
	return func(as addrspace.AddressSpace, absoluteOffset uint64) bool {
		data, err := as.Read(absoluteOffset+poolTypeOffset, 1)
		if err != nil {
			return false
		}
		return (data[0] != 0) == nonPaged
	}
}

// PoolIndexCheck accepts a hit whose PoolIndex byte equals index.
func PoolIndexCheck(index uint8) Check {
	return func(as addrspace.AddressSpace, absoluteOffset uint64) bool {
		data, err := as.Read(absoluteOffset+poolIndexOffset, 1)
		if err != nil {
			return false
		}
		return data[0] == index
	}
}
