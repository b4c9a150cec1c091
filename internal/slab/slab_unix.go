//go:build unix

package slab

import (
	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// Acquire obtains a page-aligned slab of size bytes via an anonymous
// private mapping. If the kernel refuses the mapping for a reason other
// than exhaustion, Acquire falls back to the Go heap. Exhaustion is
// reported as an error so the caller can surface it as a failed
// allocation rather than aborting.
func Acquire(size int) (*Slab, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		if err == unix.ENOMEM {
			return nil, cerrors.Wrapf(err, "anonymous mapping of %d bytes", size)
		}

		return acquireHeap(size), nil
	}

	return &Slab{data: data, mapped: true}, nil
}

func release(s *Slab) error {
	data := s.data
	s.data = nil

	if !s.mapped {
		return nil
	}

	return unix.Munmap(data)
}
