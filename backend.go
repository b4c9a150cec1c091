package heapcore

import "unsafe"

// Backend is the contract every allocator strategy satisfies. The
// package-level entry points resolve to exactly one Backend per build,
// and nothing above them may depend on which.
//
// Backends trust their callers completely: sizes are positive, alignments
// are powers of two no larger than the platform's largest page size, and
// the oldSize/align accompanying an operation on an existing allocation
// are consistent with the values used to create it (oldSize may land
// anywhere between the size requested and the usable size granted).
// Backends never verify any of this.
type Backend interface {
	// Allocate returns a fresh region of at least size bytes aligned to
	// align, or nil on exhaustion. It never partially succeeds.
	Allocate(size int, align uint) unsafe.Pointer
	// Reallocate resizes the allocation at ptr to newSize bytes with the
	// same alignment, preserving contents over the overlapping range and
	// possibly moving the allocation. On failure it returns nil and the
	// original allocation remains fully valid and unchanged.
	Reallocate(ptr unsafe.Pointer, oldSize, newSize int, align uint) unsafe.Pointer
	// ReallocateInPlace attempts to resize the allocation at ptr without
	// moving it. It returns the allocation's usable size afterward: a
	// value covering newSize when the resize happened, or the old usable
	// size when it could not. It never fails destructively; a refusal is
	// a normal outcome callers must branch on.
	ReallocateInPlace(ptr unsafe.Pointer, oldSize, newSize int, align uint) int
	// Deallocate releases the allocation at ptr. ptr must not be nil.
	Deallocate(ptr unsafe.Pointer, oldSize int, align uint)
	// UsableSize reports the capacity a request for (size, align) would
	// actually receive. It is a pure query and performs no allocation.
	UsableSize(size int, align uint) int
	// StatsPrint dumps backend-specific statistics to an
	// implementation-defined sink, best-effort. The snapshot may be
	// inconsistent when other goroutines use the backend during the call.
	StatsPrint()
}
