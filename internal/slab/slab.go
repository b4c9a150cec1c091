// Package slab obtains and releases the large contiguous chunks of address
// space that allocators carve suballocations from. On unix-like platforms
// slabs come from anonymous memory mappings and are page-aligned; elsewhere
// they come from the Go heap and carry no alignment guarantee beyond the
// runtime's, so consumers must perform their own alignment arithmetic
// against Base.
package slab

import "unsafe"

// Slab is a single contiguous chunk of address space. The memory it covers
// stays valid until Release is called, at which point it must no longer be
// touched. Heap-backed slabs are kept alive by the reference this struct
// holds, so a Slab must remain reachable for as long as pointers into it
// are live.
type Slab struct {
	data   []byte
	mapped bool
}

// Base returns the address of the first byte of the slab.
func (s *Slab) Base() unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(s.data))
}

// Len returns the slab's length in bytes.
func (s *Slab) Len() int {
	return len(s.data)
}

// Release returns the slab's address space to wherever it came from.
func (s *Slab) Release() error {
	return release(s)
}

func acquireHeap(size int) *Slab {
	return &Slab{data: make([]byte, size)}
}
