// Package scan implements the pool-scanner framework, per spec §4.G: a
// primary tag check drives a sliding-window search over an address space,
// and every other configured check must accept a candidate hit before it
// is yielded.
//
// Grounded on internal/reader/scanner.go's iterator shape, generalized
// from subkey/value iteration to pool-tag-hit iteration, and on
// hive/walker's buffered-window traversal for the overlapping scan
// buffer.
package scan

import (
	"bytes"

	"github.com/arvidw/physmem/addrspace"
)

// DefaultBlockSize is the scanner's default buffer size, per spec §4.G.
const DefaultBlockSize = 1 << 20 // 1 MiB

const defaultOverlapRounding = 4096 // 4 KiB

// Check is a secondary pool check: given a candidate absolute offset (the
// tag-match position), it decides whether the surrounding bytes are
// structurally consistent. All configured checks must pass for a hit to
// be yielded, per spec §4.G step 3.
type Check func(as addrspace.AddressSpace, absoluteOffset uint64) bool

// Scanner configures one pool scan: a 4-byte tag (the primary check) plus
// zero or more secondary Checks.
type Scanner struct {
	Tag []byte
	// MaxStructSize is the largest struct any Check reads past the tag
	// offset; it sizes the window overlap so no straddling hit is ever
	// dropped (spec §4.G's invariant, Property 8). Per SPEC_FULL's open-
	// question resolution, the overlap is MaxStructSize rounded up to 4 KiB
	// (defaulting to one page when MaxStructSize is 0 or unset).
	MaxStructSize int
	Checks        []Check
	// BlockSize overrides DefaultBlockSize when non-zero.
	BlockSize int
}

func (s *Scanner) blockSize() int {
	if s.BlockSize > 0 {
		return s.BlockSize
	}
	return DefaultBlockSize
}

func (s *Scanner) overlap() int {
	m := s.MaxStructSize
	if m < len(s.Tag) {
		m = len(s.Tag)
	}
	if m <= 0 {
		m = defaultOverlapRounding
	}
	return ((m + defaultOverlapRounding - 1) / defaultOverlapRounding) * defaultOverlapRounding
}

// Scan iterates [start, end) of as as consecutive, overlapping buffers
// and yields the absolute offset of every tag occurrence whose
// surrounding bytes pass every configured Check, per spec §4.G's
// algorithm. It is a Go 1.23 range-over-func iterator: `for offset :=
// range scanner.Scan(as, start, end)`.
func (s *Scanner) Scan(as addrspace.AddressSpace, start, end uint64) func(yield func(uint64) bool) {
	return func(yield func(uint64) bool) {
		if len(s.Tag) == 0 || start >= end {
			return
		}
		block := s.blockSize()
		overlap := s.overlap()

		pos := start
		for pos < end {
			winLen := block
			if remaining := end - pos; remaining < uint64(winLen) {
				winLen = int(remaining)
			}
			readLen := winLen + overlap
			if remaining := end - pos; remaining < uint64(readLen) {
				readLen = int(remaining)
			}

			buf := as.ZRead(pos, readLen)
			i := 0
			for i < winLen {
				idx := bytes.Index(buf[i:], s.Tag)
				if idx < 0 {
					break // tag check's skip: nothing left in this window, jump to its end
				}
				i += idx
				if i >= winLen {
					break
				}

				abs := pos + uint64(i)
				hit := true
				for _, c := range s.Checks {
					if !c(as, abs) {
						hit = false
						break
					}
				}
				if hit {
					if !yield(abs) {
						return
					}
				}
				i++ // advance by one and retry, per spec §4.G step 3
			}

			pos += uint64(winLen)
		}
	}
}
