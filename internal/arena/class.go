package arena

import (
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/voxalloc/heapcore/internal/slab"
	"github.com/voxalloc/heapcore/internal/utils"
	"github.com/voxalloc/heapcore/memutil"
	"golang.org/x/exp/slog"
)

// sizeClassHeap serves all allocations of a single power-of-two size
// class. Objects are carved from slabs by bumping a cursor; freed objects
// go onto a free list and are handed out again before the cursor moves.
// Slabs are retained for the life of the heap- a freed object only ever
// returns to its class, never to the operating system.
type sizeClassHeap struct {
	mu   utils.OptionalMutex
	size int

	free      []unsafe.Pointer
	slabs     []*slab.Slab
	cursor    unsafe.Pointer
	remaining int

	liveCount  int
	totalSlots int
	slabBytes  int
}

func (c *sizeClassHeap) alloc(h *Heap) unsafe.Pointer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.free); n > 0 {
		ptr := c.free[n-1]
		c.free[n-1] = nil
		c.free = c.free[:n-1]
		c.liveCount++
		return ptr
	}

	if c.remaining == 0 && !c.grow(h) {
		return nil
	}

	ptr := c.cursor
	c.cursor = unsafe.Add(c.cursor, c.size)
	c.remaining--
	c.liveCount++
	return ptr
}

func (c *sizeClassHeap) recycle(ptr unsafe.Pointer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.free = append(c.free, ptr)
	c.liveCount--
}

// grow acquires a fresh slab and points the bump cursor at its first
// class-size boundary. Called with c.mu held.
func (c *sizeClassHeap) grow(h *Heap) bool {
	objects := slabTarget / c.size
	if objects < minObjectsPerSlab {
		objects = minObjectsPerSlab
	}

	// One extra object's worth of slack so the cursor can start on a
	// class-size boundary even when the slab base is not on one.
	s, err := slab.Acquire((objects + 1) * c.size)
	if err != nil {
		h.logger.Warn("arena: slab acquisition failed",
			slog.Int("class", c.size),
			slog.String("error", err.Error()))
		return false
	}

	base := uintptr(s.Base())
	aligned := (base + uintptr(c.size) - 1) &^ (uintptr(c.size) - 1)

	c.cursor = unsafe.Add(s.Base(), int(aligned-base))
	c.remaining = objects
	c.slabs = append(c.slabs, s)
	c.totalSlots += objects
	c.slabBytes += s.Len()

	h.logger.Debug("arena: acquired slab",
		slog.Int("class", c.size),
		slog.Int("bytes", s.Len()),
		slog.Int("objects", objects))
	return true
}

func (c *sizeClassHeap) addDetailedStatistics(stats *memutil.DetailedStatistics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats.SlabCount += len(c.slabs)
	stats.SlabBytes += c.slabBytes

	usable := c.size - memutil.DebugMargin
	if c.liveCount > 0 {
		stats.AllocationCount += c.liveCount
		stats.AllocationBytes += c.liveCount * usable

		if usable < stats.AllocationSizeMin {
			stats.AllocationSizeMin = usable
		}
		if usable > stats.AllocationSizeMax {
			stats.AllocationSizeMax = usable
		}
	}

	freeSlots := len(c.free) + c.remaining
	if freeSlots > 0 {
		stats.FreeRangeCount += freeSlots

		if c.size < stats.FreeRangeSizeMin {
			stats.FreeRangeSizeMin = c.size
		}
		if c.size > stats.FreeRangeSizeMax {
			stats.FreeRangeSizeMax = c.size
		}
	}
}

func (c *sizeClassHeap) validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := memutil.CheckPow2(uint(c.size), "class size"); err != nil {
		return err
	}

	if c.liveCount < 0 {
		return cerrors.Errorf("class %d has a negative live count %d", c.size, c.liveCount)
	}

	if len(c.free)+c.remaining+c.liveCount != c.totalSlots {
		return cerrors.Errorf("class %d slots do not add up: %d free + %d unused + %d live != %d total",
			c.size, len(c.free), c.remaining, c.liveCount, c.totalSlots)
	}

	var slabBytes int
	for _, s := range c.slabs {
		slabBytes += s.Len()
	}
	if slabBytes != c.slabBytes {
		return cerrors.Errorf("class %d tracks %d slab bytes but its slabs hold %d", c.size, c.slabBytes, slabBytes)
	}

	return nil
}
