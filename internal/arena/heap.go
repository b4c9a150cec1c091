// Package arena is an embedded size-class allocator with a flags-based
// API in the style of jemalloc's *allocx entry points. Allocations at or
// below the largest size class are served from per-class slabs and
// recycled through free lists; larger requests each receive a dedicated
// page-rounded reservation.
//
// Alignment is encoded into the flags argument of every operation: a zero
// flag requests natural alignment, any other value requests an alignment
// of 1<<flags bytes. The same (size, flags) pair used to create an
// allocation must accompany every subsequent operation on it, though the
// size may drift anywhere between the requested size and the usable size
// reported by Nallocx.
package arena

import (
	"sync/atomic"
	"unsafe"

	"github.com/dolthub/swiss"
	"github.com/voxalloc/heapcore/internal/utils"
	"github.com/voxalloc/heapcore/memutil"
	"golang.org/x/exp/slog"
)

const (
	minClassShift = 4
	maxClassShift = 15

	// MinClassSize is the smallest size class and the alignment every
	// allocation receives without asking, which makes it the natural
	// alignment a zero flag resolves to.
	MinClassSize = 1 << minClassShift
	// MaxClassSize is the largest size class. Requests above it, and
	// requests whose alignment exceeds it, take the dedicated-reservation
	// path instead.
	MaxClassSize = 1 << maxClassShift

	numClasses = maxClassShift - minClassShift + 1

	// PageSize is the granularity dedicated reservations are rounded to.
	// It is a constant rather than os.Getpagesize() so Nallocx stays a
	// pure function of its arguments.
	PageSize = 4096

	// slabTarget is the preferred slab size for size-class slabs. Classes
	// near MaxClassSize exceed it so that a slab always holds at least
	// minObjectsPerSlab objects.
	slabTarget        = 256 * 1024
	minObjectsPerSlab = 8
)

// HeapOptions configures a Heap created with NewHeap.
type HeapOptions struct {
	// BudgetBytes caps the total usable bytes of live allocations. When a
	// request would push the heap past the cap, Mallocx and Rallocx return
	// nil instead. Zero means no cap.
	BudgetBytes int
	// Synchronized guards the heap's internal state with mutexes so it can
	// be shared between goroutines. Leave it false for single-goroutine
	// heaps to skip the locking entirely.
	Synchronized bool
	// Logger receives debug events (slab acquisition, budget refusals).
	// Defaults to slog.Default(). The allocation fast path never logs.
	Logger *slog.Logger
}

// Heap is a size-class allocator. The zero value is not usable; create
// heaps with NewHeap.
type Heap struct {
	logger *slog.Logger
	budget int64
	live   atomic.Int64

	classes [numClasses]sizeClassHeap

	largeMu utils.OptionalRWMutex
	large   *swiss.Map[uintptr, *largeAlloc]
}

// NewHeap creates an empty Heap.
func NewHeap(options HeapOptions) *Heap {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	heap := &Heap{
		logger: logger,
		budget: int64(options.BudgetBytes),
		large:  swiss.NewMap[uintptr, *largeAlloc](16),
	}
	heap.largeMu.UseMutex = options.Synchronized

	for i := 0; i < numClasses; i++ {
		heap.classes[i].size = 1 << (minClassShift + i)
		heap.classes[i].mu.UseMutex = options.Synchronized
	}

	return heap
}

// Mallocx returns a fresh allocation of at least size bytes, aligned as
// the flags demand, or nil on exhaustion. size must be positive; this is
// never checked.
func (h *Heap) Mallocx(size int, flags int32) unsafe.Pointer {
	memutil.DebugValidate(h)

	usable := h.Nallocx(size, flags)
	if !h.reserve(usable) {
		h.logger.Debug("arena: budget exhausted",
			slog.Int("requested", size),
			slog.Int64("budget", h.budget))
		return nil
	}

	var ptr unsafe.Pointer
	if isLarge(size, flags) {
		ptr = h.allocLarge(size, flags, usable)
	} else {
		ptr = h.classes[classIndexFor(size, flags)].alloc(h)
		if ptr != nil && memutil.DebugMargin > 0 {
			memutil.WriteMagicValue(ptr, usable)
		}
	}

	if ptr == nil {
		h.live.Add(-int64(usable))
		return nil
	}

	return ptr
}

// Rallocx resizes the allocation at ptr to newSize bytes, moving it if the
// new size lands in a different size class or reservation. On failure it
// returns nil and the original allocation is untouched.
func (h *Heap) Rallocx(ptr unsafe.Pointer, oldSize, newSize int, flags int32) unsafe.Pointer {
	if sameClass(oldSize, newSize, flags) {
		return ptr
	}

	newPtr := h.Mallocx(newSize, flags)
	if newPtr == nil {
		return nil
	}

	n := oldSize
	if newSize < n {
		n = newSize
	}
	copy(unsafe.Slice((*byte)(newPtr), n), unsafe.Slice((*byte)(ptr), n))

	h.Sdallocx(ptr, oldSize, flags)
	return newPtr
}

// Xallocx attempts to resize the allocation at ptr to newSize bytes
// without moving it. It returns the allocation's usable size afterward:
// Nallocx(newSize, flags) when the resize happened, Nallocx(oldSize,
// flags) when it could not. The resize happens exactly when both sizes
// share a size class or page reservation, which keeps the (size, flags)
// pair the caller tracks consistent with where the bytes actually live.
func (h *Heap) Xallocx(ptr unsafe.Pointer, oldSize, newSize int, flags int32) int {
	if sameClass(oldSize, newSize, flags) {
		return h.Nallocx(newSize, flags)
	}

	return h.Nallocx(oldSize, flags)
}

// Sdallocx frees the allocation at ptr. size and flags must be consistent
// with the values used to create it.
func (h *Heap) Sdallocx(ptr unsafe.Pointer, size int, flags int32) {
	memutil.DebugValidate(h)

	if isLarge(size, flags) {
		usable := h.freeLarge(ptr)
		h.live.Add(-int64(usable))
		return
	}

	class := &h.classes[classIndexFor(size, flags)]
	usable := class.size - memutil.DebugMargin
	if memutil.DebugMargin > 0 && !memutil.ValidateMagicValue(ptr, usable) {
		panic("arena: allocation guard bytes overwritten, memory corruption detected")
	}

	class.recycle(ptr)
	h.live.Add(-int64(usable))
}

// Nallocx reports the usable size an allocation of size bytes with the
// provided flags would receive. It is a pure function and performs no
// allocation.
func (h *Heap) Nallocx(size int, flags int32) int {
	if isLarge(size, flags) {
		return memutil.AlignUp(size, PageSize)
	}

	return h.classes[classIndexFor(size, flags)].size - memutil.DebugMargin
}

// LiveBytes returns the total usable bytes of live allocations.
func (h *Heap) LiveBytes() int {
	return int(h.live.Load())
}

// reserve claims usable bytes against the budget, failing when the claim
// would exceed it.
func (h *Heap) reserve(usable int) bool {
	if h.budget <= 0 {
		h.live.Add(int64(usable))
		return true
	}

	for {
		current := h.live.Load()
		next := current + int64(usable)
		if next > h.budget {
			return false
		}
		if h.live.CompareAndSwap(current, next) {
			return true
		}
	}
}

// AlignFromFlags recovers the alignment a flags value encodes. A zero
// flag resolves to MinClassSize, the alignment every allocation receives
// regardless.
func AlignFromFlags(flags int32) uint {
	if flags == 0 {
		return MinClassSize
	}

	return uint(1) << flags
}

func isLarge(size int, flags int32) bool {
	return size+memutil.DebugMargin > MaxClassSize || AlignFromFlags(flags) > MaxClassSize
}

// classIndexFor maps a request to its size class: the smallest
// power-of-two class that covers both the size (plus the debug margin)
// and the requested alignment. Folding the alignment into the class is
// what lets slabs satisfy alignment by construction: every object in a
// class's slab sits on a class-size boundary.
func classIndexFor(size int, flags int32) int {
	effective := size + memutil.DebugMargin

	align := int(AlignFromFlags(flags))
	if align > effective {
		effective = align
	}
	if effective < MinClassSize {
		effective = MinClassSize
	}

	return memutil.Log2(uint(memutil.NextPow2(effective))) - minClassShift
}

// sameClass reports whether two sizes land in the same size class or page
// reservation, which is exactly when an allocation can change size
// without moving.
func sameClass(oldSize, newSize int, flags int32) bool {
	oldLarge := isLarge(oldSize, flags)
	if oldLarge != isLarge(newSize, flags) {
		return false
	}

	if oldLarge {
		return memutil.AlignUp(oldSize, PageSize) == memutil.AlignUp(newSize, PageSize)
	}

	return classIndexFor(oldSize, flags) == classIndexFor(newSize, flags)
}
