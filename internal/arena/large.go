package arena

import (
	"unsafe"

	"github.com/voxalloc/heapcore/internal/slab"
	"golang.org/x/exp/slog"
)

// largeAlloc is a dedicated reservation for a single allocation too big
// (or too strictly aligned) for the size classes. The slab reference
// keeps heap-backed reservations alive and is what gets released on free.
type largeAlloc struct {
	slab   *slab.Slab
	usable int
}

// allocLarge reserves a dedicated slab for the request. The reservation
// over-acquires by the requested alignment so a suitably aligned address
// always exists within it; the registry is keyed by that aligned address,
// which is the only address the caller ever sees.
func (h *Heap) allocLarge(size int, flags int32, usable int) unsafe.Pointer {
	align := AlignFromFlags(flags)

	s, err := slab.Acquire(usable + int(align))
	if err != nil {
		h.logger.Warn("arena: dedicated reservation failed",
			slog.Int("size", size),
			slog.String("error", err.Error()))
		return nil
	}

	base := uintptr(s.Base())
	aligned := (base + uintptr(align) - 1) &^ (uintptr(align) - 1)
	ptr := unsafe.Add(s.Base(), int(aligned-base))

	h.largeMu.Lock()
	h.large.Put(aligned, &largeAlloc{slab: s, usable: usable})
	h.largeMu.Unlock()

	return ptr
}

// freeLarge releases the dedicated reservation behind ptr and returns its
// usable size so the caller can settle the budget.
func (h *Heap) freeLarge(ptr unsafe.Pointer) int {
	key := uintptr(ptr)

	h.largeMu.Lock()
	entry, ok := h.large.Get(key)
	if ok {
		h.large.Delete(key)
	}
	h.largeMu.Unlock()

	if !ok {
		panic("arena: free of an address this heap never returned")
	}

	if err := entry.slab.Release(); err != nil {
		h.logger.Warn("arena: failed to release reservation",
			slog.String("error", err.Error()))
	}

	return entry.usable
}
