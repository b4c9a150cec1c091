//go:build !unix

package slab

// Acquire obtains a slab of size bytes from the Go heap.
func Acquire(size int) (*Slab, error) {
	return acquireHeap(size), nil
}

func release(s *Slab) error {
	s.data = nil
	return nil
}
