//go:build unix

// Package mmap memory-maps a raw physical-memory image so the file layer
// (addrspace.FileLayer) can expose it as a plain byte slice without copying
// the whole image into the Go heap.
package mmap

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Map maps the file at path (read-only, or read-write when writable is
// true, shared with the file) and returns its contents, a Sync/Close
// handle, and an error. The returned slice is backed by the mapping; letting
// it escape past Close's call yields undefined behavior, matching mmap(2).
func Map(path string, writable bool) ([]byte, *Mapping, error) {
	flag := os.O_RDONLY
	prot := unix.PROT_READ
	if writable {
		flag = os.O_RDWR
		prot |= unix.PROT_WRITE
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close() // safe before return; the mapping keeps pages alive

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := info.Size()
	if size == 0 {
		return []byte{}, &Mapping{}, nil
	}
	if size > int64(^uint(0)>>1) {
		return nil, nil, fmt.Errorf("mmap: image too large to map (%d bytes)", size)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, &Mapping{data: data}, nil
}

// Mapping owns the lifetime of a memory-mapped region.
type Mapping struct {
	data []byte
}

// Sync flushes dirty pages back to the backing file. It is a no-op for a
// mapping opened read-only or for a zero-length mapping.
func (m *Mapping) Sync() error {
	if m == nil || len(m.data) == 0 {
		return nil
	}
	return unix.Msync(m.data, unix.MS_SYNC)
}

// Close unmaps the region. Double-close is tolerated.
func (m *Mapping) Close() error {
	if m == nil || m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	if errors.Is(err, unix.EINVAL) {
		return nil // already unmapped
	}
	m.data = nil
	return err
}
