// Package mmapfile owns the lifetime of a single memory-mapped, read-only
// file image: open, map, advise, and unmap. It has no CSV knowledge; the
// record scanner (internal/recordscan) scans the byte slice this package
// hands back.
package mmapfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// File is a memory-mapped read-only view of a file on disk. The zero value
// is not usable; construct with Open.
type File struct {
	f      *os.File
	data   []byte
	closed bool
}

// Open opens path read-only, memory-maps its full contents, and issues a
// FADV_WILLNEED hint so the kernel begins paging the file in before the
// first scan touches it. The returned File must be closed with Close.
//
// A zero-length file maps to an empty, non-nil byte slice rather than
// failing: mmap of a zero-length region is itself an error on Linux, so an
// empty file is special-cased to an empty slice without calling mmap.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapfile: stat %s: %w", path, err)
	}

	size := info.Size()
	if size == 0 {
		return &File{f: f, data: []byte{}}, nil
	}

	if err := unix.Fadvise(int(f.Fd()), 0, size, unix.FADV_WILLNEED); err != nil {
		// Advisory only; a failure here never blocks opening the file.
		_ = err
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapfile: mmap %s: %w", path, err)
	}

	return &File{f: f, data: data}, nil
}

// Bytes returns the mapped image. The returned slice is valid until Close
// is called; it must not be retained past that point.
func (m *File) Bytes() []byte {
	return m.data
}

// Close unmaps the file (if it was mapped) and closes the underlying file
// descriptor. Close is idempotent.
func (m *File) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	var err error
	if len(m.data) > 0 {
		if uerr := unix.Munmap(m.data); uerr != nil {
			err = fmt.Errorf("mmapfile: munmap: %w", uerr)
		}
		m.data = nil
	}
	if cerr := m.f.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("mmapfile: close: %w", cerr)
	}
	return err
}
