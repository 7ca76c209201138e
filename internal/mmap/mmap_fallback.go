//go:build !unix

// Package mmap memory-maps a raw physical-memory image so the file layer
// (addrspace.FileLayer) can expose it as a plain byte slice without copying
// the whole image into the Go heap.
package mmap

import "os"

// Map reads the entire file into memory when a native mmap is not available.
// Writes through the returned slice are not reflected back to disk on this
// platform; Mapping.Sync is a no-op here.
func Map(path string, _ bool) ([]byte, *Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, &Mapping{}, nil
}

// Mapping owns the lifetime of a memory-mapped (or heap-copied) region.
type Mapping struct{}

// Sync is a no-op on platforms without a native mmap.
func (m *Mapping) Sync() error { return nil }

// Close is a no-op on platforms without a native mmap.
func (m *Mapping) Close() error { return nil }
