//go:build heapcore_cmalloc && unix

package heapcore

/*
#include <stdlib.h>
#include <string.h>

// Plain wrappers so a NULL from the C allocator reaches Go intact; cgo's
// built-in C.malloc aborts the process on failure instead.
static void *heapcore_malloc(size_t size) {
	return malloc(size);
}

static void *heapcore_memalign(size_t align, size_t size) {
	void *ptr = NULL;
	if (posix_memalign(&ptr, align, size) != 0) {
		return NULL;
	}
	return ptr;
}
*/
import "C"

import (
	"fmt"
	"os"
	"unsafe"
)

// cmallocBackend calls straight through to the platform's C allocator.
// libc guarantees at least MinAlign for every allocation, so naturally
// aligned requests never touch the aligned-allocation primitives.
type cmallocBackend struct{}

func newBackend() Backend {
	return cmallocBackend{}
}

func (cmallocBackend) Allocate(size int, align uint) unsafe.Pointer {
	if !RequiresSlowAlignment(align) {
		return C.heapcore_malloc(C.size_t(size))
	}

	return C.heapcore_memalign(C.size_t(align), C.size_t(size))
}

// Reallocate uses realloc on the fast path. libc has no aligned resize,
// so above MinAlign the resize is emulated by allocating fresh, copying
// the overlapping range and freeing the old region; when the fresh
// allocation fails, nil comes back and the old region is untouched.
func (cmallocBackend) Reallocate(ptr unsafe.Pointer, oldSize, newSize int, align uint) unsafe.Pointer {
	if !RequiresSlowAlignment(align) {
		return C.realloc(ptr, C.size_t(newSize))
	}

	newPtr := C.heapcore_memalign(C.size_t(align), C.size_t(newSize))
	if newPtr == nil {
		return nil
	}

	n := oldSize
	if newSize < n {
		n = newSize
	}
	C.memcpy(newPtr, ptr, C.size_t(n))
	C.free(ptr)

	return newPtr
}

// ReallocateInPlace always declines. libc documents no guarantees about
// resizing without moving, at any alignment, and this backend does not
// assume any.
func (cmallocBackend) ReallocateInPlace(ptr unsafe.Pointer, oldSize, newSize int, align uint) int {
	return oldSize
}

func (cmallocBackend) Deallocate(ptr unsafe.Pointer, oldSize int, align uint) {
	C.free(ptr)
}

// UsableSize reports the requested size verbatim; without extra
// bookkeeping there is no portable way to recover malloc's true capacity.
func (cmallocBackend) UsableSize(size int, align uint) int {
	return size
}

func (cmallocBackend) StatsPrint() {
	fmt.Fprintln(os.Stderr, `{"Allocator":"cmalloc"}`)
}
