package addrspace

import (
	"fmt"

	"github.com/arvidw/physmem/internal/mmap"
	"github.com/arvidw/physmem/physmemerr"
)

// FileLayer wraps a raw image file, memory-mapped via internal/mmap (the
// same GOOS-split mmap-or-fallback-to-ReadFile strategy the teacher's
// internal/mmfile used for hive files, pointed at a physical-memory dump
// instead). It is the bottom of every stack: addr is a plain file offset.
type FileLayer struct {
	data     []byte
	mapping  *mmap.Mapping
	writable bool
}

// OpenFile memory-maps path and returns a FileLayer over it. When writable
// is false, Write always returns false regardless of what the caller passes
// — this is the global writable gate spec §4.A.1 describes.
func OpenFile(path string, writable bool) (*FileLayer, error) {
	data, m, err := mmap.Map(path, writable)
	if err != nil {
		return nil, fmt.Errorf("addrspace: open file layer: %w", err)
	}
	return &FileLayer{data: data, mapping: m, writable: writable}, nil
}

// OpenBytes builds a FileLayer directly over an in-memory buffer, bypassing
// mmap entirely. Used by tests and by callers who already hold the image
// (e.g. a crash-dump translator that produced bytes in memory).
func OpenBytes(data []byte, writable bool) *FileLayer {
	return &FileLayer{data: data, writable: writable}
}

// Close unmaps the underlying file, if one was opened via OpenFile.
func (f *FileLayer) Close() error {
	if f.mapping == nil {
		return nil
	}
	return f.mapping.Close()
}

func (f *FileLayer) Role() Role          { return RoleFile }
func (f *FileLayer) Base() AddressSpace  { return nil }
func (f *FileLayer) IsValid(a uint64) bool {
	return a < uint64(len(f.data))
}

func (f *FileLayer) Read(addr uint64, length int) ([]byte, error) {
	if length < 0 {
		return nil, physmemerr.New(physmemerr.InvalidAddress, "addrspace: negative read length")
	}
	end := addr + uint64(length)
	if addr > uint64(len(f.data)) || end > uint64(len(f.data)) || end < addr {
		return nil, physmemerr.New(physmemerr.ShortRead, fmt.Sprintf("addrspace: file read [%d,%d) exceeds file length %d", addr, end, len(f.data)))
	}
	out := make([]byte, length)
	copy(out, f.data[addr:end])
	return out, nil
}

func (f *FileLayer) ZRead(addr uint64, length int) []byte {
	out := make([]byte, length)
	if length <= 0 || addr >= uint64(len(f.data)) {
		return out
	}
	end := addr + uint64(length)
	if end > uint64(len(f.data)) {
		end = uint64(len(f.data))
	}
	copy(out, f.data[addr:end])
	return out
}

func (f *FileLayer) Write(addr uint64, data []byte) bool {
	if !f.writable {
		return false
	}
	end := addr + uint64(len(data))
	if addr > uint64(len(f.data)) || end > uint64(len(f.data)) || end < addr {
		return false
	}
	copy(f.data[addr:end], data)
	if f.mapping != nil {
		_ = f.mapping.Sync()
	}
	return true
}

func (f *FileLayer) Runs() func(yield func(Run) bool) {
	return func(yield func(Run) bool) {
		if len(f.data) == 0 {
			return
		}
		yield(Run{Start: 0, Length: uint64(len(f.data))})
	}
}

// Len returns the file's size in bytes.
func (f *FileLayer) Len() uint64 { return uint64(len(f.data)) }
