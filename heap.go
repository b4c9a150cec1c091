package heapcore

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/voxalloc/heapcore/memutil"
)

var emptyBase byte

// EmptySentinel is the fixed non-nil address representing every zero-size
// allocation. It may numerically overlap real allocations and must never
// be dereferenced; equality comparison is its only legal use.
var EmptySentinel = unsafe.Pointer(&emptyBase)

// active is the one backend compiled into this build. Resolved once here,
// never per-call.
var active Backend = newBackend()

// OutOfMemoryHandler is the escape hatch ExchangeAllocate invokes when
// the backend reports exhaustion. Implementations must not return;
// aborting the process is the expected behavior.
type OutOfMemoryHandler func()

var oomHandler OutOfMemoryHandler = defaultOutOfMemoryHandler

func defaultOutOfMemoryHandler() {
	fmt.Fprintln(os.Stderr, "heapcore: out of memory")
	os.Exit(2)
}

// SetOutOfMemoryHandler injects the handler ExchangeAllocate escalates
// exhaustion to. Passing nil restores the default, which writes a line to
// standard error and exits.
func SetOutOfMemoryHandler(handler OutOfMemoryHandler) {
	if handler == nil {
		handler = defaultOutOfMemoryHandler
	}
	oomHandler = handler
}

// Allocate returns a region of at least size bytes aligned to align, or
// nil on exhaustion. A zero size yields EmptySentinel without involving
// the backend.
func Allocate(size int, align uint) unsafe.Pointer {
	memutil.DebugCheckPow2(align, "align")

	if size == 0 {
		return EmptySentinel
	}

	return active.Allocate(size, align)
}

// Reallocate resizes the allocation at ptr to newSize bytes, preserving
// contents over the overlapping range. On failure it returns nil and the
// original allocation is untouched. oldSize and align must be consistent
// with the allocation's creation; see the package documentation.
func Reallocate(ptr unsafe.Pointer, oldSize, newSize int, align uint) unsafe.Pointer {
	memutil.DebugCheckPow2(align, "align")

	return active.Reallocate(ptr, oldSize, newSize, align)
}

// ReallocateInPlace attempts to resize the allocation at ptr without
// moving it, returning the usable size achieved. A return equal to the
// old usable size means the backend declined; the allocation is never
// invalidated either way.
func ReallocateInPlace(ptr unsafe.Pointer, oldSize, newSize int, align uint) int {
	memutil.DebugCheckPow2(align, "align")

	return active.ReallocateInPlace(ptr, oldSize, newSize, align)
}

// Deallocate releases the allocation at ptr, which must not be nil.
// Deallocating EmptySentinel is a no-op; the sentinel was never really
// allocated.
func Deallocate(ptr unsafe.Pointer, oldSize int, align uint) {
	memutil.DebugCheckPow2(align, "align")

	if ptr == EmptySentinel {
		return
	}

	active.Deallocate(ptr, oldSize, align)
}

// UsableSize reports the capacity a request for (size, align) would
// receive from the active backend, without allocating.
func UsableSize(size int, align uint) int {
	memutil.DebugCheckPow2(align, "align")

	return active.UsableSize(size, align)
}

// StatsPrint dumps backend statistics to the backend's diagnostic sink,
// best-effort. Counters may be torn if other goroutines allocate during
// the call.
func StatsPrint() {
	active.StatsPrint()
}

// ExchangeAllocate is the allocation path for exclusive-ownership types.
// It never returns nil: a zero size yields EmptySentinel and exhaustion
// is escalated to the injected out-of-memory handler instead of being
// reported to the caller.
func ExchangeAllocate(size int, align uint) unsafe.Pointer {
	memutil.DebugCheckPow2(align, "align")

	if size == 0 {
		return EmptySentinel
	}

	ptr := active.Allocate(size, align)
	if ptr == nil {
		oomHandler()
		panic("heapcore: out-of-memory handler returned")
	}

	return ptr
}

// ExchangeDeallocate releases an allocation obtained from
// ExchangeAllocate.
func ExchangeDeallocate(ptr unsafe.Pointer, oldSize int, align uint) {
	Deallocate(ptr, oldSize, align)
}
