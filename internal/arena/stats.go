package arena

import (
	"io"

	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/voxalloc/heapcore/memutil"
)

// AddDetailedStatistics sums this heap's footprint into stats. The walk
// takes each class lock in turn rather than stopping the world, so the
// result can be inconsistent when other goroutines allocate concurrently.
func (h *Heap) AddDetailedStatistics(stats *memutil.DetailedStatistics) {
	for i := range h.classes {
		h.classes[i].addDetailedStatistics(stats)
	}

	h.largeMu.RLock()
	h.large.Iter(func(_ uintptr, entry *largeAlloc) bool {
		stats.SlabCount++
		stats.SlabBytes += entry.slab.Len()
		stats.AddAllocation(entry.usable)
		return false
	})
	h.largeMu.RUnlock()
}

// AddStatistics sums this heap's footprint into stats, with the same
// consistency caveat as AddDetailedStatistics.
func (h *Heap) AddStatistics(stats *memutil.Statistics) {
	var detailed memutil.DetailedStatistics
	detailed.Clear()
	h.AddDetailedStatistics(&detailed)
	stats.AddStatistics(&detailed.Statistics)
}

// Validate performs internal consistency checks across every size class
// and dedicated reservation, and reconciles the live-byte counter against
// what those structures account for. It cannot fail when the heap is
// functioning correctly, but it is useful when diagnosing issues with the
// allocator itself.
func (h *Heap) Validate() error {
	accounted := 0
	for i := range h.classes {
		class := &h.classes[i]
		if err := class.validate(); err != nil {
			return err
		}

		class.mu.Lock()
		accounted += class.liveCount * (class.size - memutil.DebugMargin)
		class.mu.Unlock()
	}

	var err error
	h.largeMu.RLock()
	h.large.Iter(func(key uintptr, entry *largeAlloc) bool {
		base := uintptr(entry.slab.Base())
		end := base + uintptr(entry.slab.Len())

		switch {
		case entry.usable <= 0:
			err = cerrors.Errorf("dedicated reservation at %#x has usable size %d", key, entry.usable)
		case key < base || key+uintptr(entry.usable) > end:
			err = cerrors.Errorf("dedicated reservation at %#x escapes its slab [%#x, %#x)", key, base, end)
		}
		if err != nil {
			return true
		}

		accounted += entry.usable
		return false
	})
	h.largeMu.RUnlock()
	if err != nil {
		return err
	}

	// Operations in flight on a synchronized heap reserve bytes before
	// attaching them to a class or reservation, so the counter can only
	// be reconciled exactly when the heap is single-goroutine.
	if !h.largeMu.UseMutex {
		if live := h.LiveBytes(); live != accounted {
			return cerrors.Errorf("live byte counter is %d but allocations account for %d bytes", live, accounted)
		}
	}

	return nil
}

// PrintStats writes a human-readable JSON snapshot of the heap to w. The
// snapshot carries the consistency caveat of AddDetailedStatistics.
func (h *Heap) PrintStats(w io.Writer) error {
	var stats memutil.DetailedStatistics
	stats.Clear()
	h.AddDetailedStatistics(&stats)

	json := jwriter.NewWriter()

	obj := json.Object()
	obj.Name("Allocator").String("arena")
	obj.Name("LiveBytes").Int(h.LiveBytes())

	totals := obj.Name("Total").Object()
	stats.StatsJson(totals)
	totals.End()

	classes := obj.Name("SizeClasses").Array()
	for i := range h.classes {
		class := &h.classes[i]

		class.mu.Lock()
		slabCount := len(class.slabs)
		liveCount := class.liveCount
		freeSlots := len(class.free) + class.remaining
		slabBytes := class.slabBytes
		class.mu.Unlock()

		if slabCount == 0 {
			continue
		}

		classObj := classes.Object()
		classObj.Name("Size").Int(class.size)
		classObj.Name("Slabs").Int(slabCount)
		classObj.Name("SlabBytes").Int(slabBytes)
		classObj.Name("Live").Int(liveCount)
		classObj.Name("FreeSlots").Int(freeSlots)
		classObj.End()
	}
	classes.End()

	obj.End()

	if err := json.Error(); err != nil {
		return err
	}

	_, err := w.Write(append(json.Bytes(), '\n'))
	return err
}
