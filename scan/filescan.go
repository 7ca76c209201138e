package scan

// FileTag is the pool tag Windows stamps on file-object allocations,
// "Fil\xE5", per spec §8 S6.
var FileTag = []byte{'F', 'i', 'l', 0xE5}

// MinFilePoolSize is S6's minimum accepted block size for a file-object
// pool allocation.
const MinFilePoolSize = 0x98

// NewFileScan builds the concrete FileScan check set — spec §8 S6's
// worked example, grounded on original_source's filescan.py: tag check
// plus cascaded pool-size, pool-type (non-paged), and pool-index checks.
// poolIndex selects which allocator index a hit must belong to (0 for a
// single-CPU synthetic image, per S6).
func NewFileScan(poolIndex uint8) *Scanner {
	return &Scanner{
		Tag:           FileTag,
		MaxStructSize: 0x98,
		Checks: []Check{
			PoolSizeCheck(MinFilePoolSize),
			PoolTypeCheck(true),
			PoolIndexCheck(poolIndex),
		},
	}
}
