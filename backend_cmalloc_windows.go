//go:build heapcore_cmalloc && windows

package heapcore

/*
#include <stdlib.h>
#include <malloc.h>

// Plain wrapper so a NULL from the C allocator reaches Go intact; cgo's
// built-in C.malloc aborts the process on failure instead.
static void *heapcore_malloc(size_t size) {
	return malloc(size);
}
*/
import "C"

import (
	"fmt"
	"os"
	"unsafe"
)

// cmallocBackend calls straight through to the platform's C allocator,
// using the CRT's _aligned_malloc family above MinAlign. Allocations made
// on one path must be resized and freed on the same path, which the
// alignment argument accompanying every operation guarantees.
type cmallocBackend struct{}

func newBackend() Backend {
	return cmallocBackend{}
}

func (cmallocBackend) Allocate(size int, align uint) unsafe.Pointer {
	if !RequiresSlowAlignment(align) {
		return C.heapcore_malloc(C.size_t(size))
	}

	return C._aligned_malloc(C.size_t(size), C.size_t(align))
}

func (cmallocBackend) Reallocate(ptr unsafe.Pointer, oldSize, newSize int, align uint) unsafe.Pointer {
	if !RequiresSlowAlignment(align) {
		return C.realloc(ptr, C.size_t(newSize))
	}

	return C._aligned_realloc(ptr, C.size_t(newSize), C.size_t(align))
}

// ReallocateInPlace always declines; the CRT documents no guarantees
// about resizing without moving and this backend does not assume any.
func (cmallocBackend) ReallocateInPlace(ptr unsafe.Pointer, oldSize, newSize int, align uint) int {
	return oldSize
}

func (cmallocBackend) Deallocate(ptr unsafe.Pointer, oldSize int, align uint) {
	if !RequiresSlowAlignment(align) {
		C.free(ptr)
		return
	}

	C._aligned_free(ptr)
}

// UsableSize reports the requested size verbatim; without extra
// bookkeeping there is no portable way to recover malloc's true capacity.
func (cmallocBackend) UsableSize(size int, align uint) int {
	return size
}

func (cmallocBackend) StatsPrint() {
	fmt.Fprintln(os.Stderr, `{"Allocator":"cmalloc"}`)
}
