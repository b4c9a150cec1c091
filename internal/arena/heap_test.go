package arena_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"github.com/voxalloc/heapcore/internal/arena"
	"github.com/voxalloc/heapcore/memutil"
)

func TestNallocxRounding(t *testing.T) {
	heap := arena.NewHeap(arena.HeapOptions{})

	// Guard margins compiled into debug builds occupy the tail of each
	// slot, so classes are chosen for size plus margin and the margin
	// comes back off the usable size.
	margin := memutil.DebugMargin

	require.Equal(t, 16, heap.Nallocx(1, 0))
	require.Equal(t, 16, heap.Nallocx(16, 0))
	require.Equal(t, memutil.NextPow2(17+margin)-margin, heap.Nallocx(17, 0))
	require.Equal(t, memutil.NextPow2(100+margin)-margin, heap.Nallocx(100, 0))
	require.Equal(t, memutil.NextPow2(4000+margin)-margin, heap.Nallocx(4000, 0))
	require.Equal(t, arena.MaxClassSize, heap.Nallocx(arena.MaxClassSize, 0))

	// Above the largest class, usable size becomes page-rounded and
	// margin-free
	require.Equal(t, 36864, heap.Nallocx(arena.MaxClassSize+1, 0))
	require.Equal(t, 40960, heap.Nallocx(40000, 0))

	// Alignment can push a small request into a bigger class
	require.Equal(t, 1024-margin, heap.Nallocx(100, 10))
}

func TestMallocxAlignment(t *testing.T) {
	heap := arena.NewHeap(arena.HeapOptions{})

	cases := []struct {
		size  int
		flags int32
		align uintptr
	}{
		{1, 0, 16},
		{100, 0, 16},
		{4000, 3, 8},
		{4000, 6, 64},
		{100, 12, 4096},
		{50000, 0, 16},
		{5000, 16, 1 << 16},
	}

	for _, c := range cases {
		ptr := heap.Mallocx(c.size, c.flags)
		require.NotNil(t, ptr)
		require.Zero(t, uintptr(ptr)%c.align,
			"allocation of %d bytes with flags %d should be %d-byte aligned", c.size, c.flags, c.align)

		// The whole usable range must be writable
		usable := heap.Nallocx(c.size, c.flags)
		require.GreaterOrEqual(t, usable, c.size)
		region := unsafe.Slice((*byte)(ptr), usable)
		for i := range region {
			region[i] = 0xAB
		}

		heap.Sdallocx(ptr, c.size, c.flags)
	}

	require.Zero(t, heap.LiveBytes())
}

func TestSdallocxRecyclesObjects(t *testing.T) {
	heap := arena.NewHeap(arena.HeapOptions{})

	first := heap.Mallocx(100, 0)
	require.NotNil(t, first)
	heap.Sdallocx(first, 100, 0)

	second := heap.Mallocx(108, 0)
	require.Equal(t, first, second, "a freed object should be reused for the next allocation in its class")

	heap.Sdallocx(second, 108, 0)
}

func TestSdallocxToleratesSizeSlack(t *testing.T) {
	heap := arena.NewHeap(arena.HeapOptions{})

	ptr := heap.Mallocx(4000, 0)
	require.NotNil(t, ptr)

	// Anything between the requested size and Nallocx is a legal oldSize
	heap.Sdallocx(ptr, heap.Nallocx(4000, 0), 0)
	require.Zero(t, heap.LiveBytes())
}

func TestRallocxInPlaceWithinClass(t *testing.T) {
	heap := arena.NewHeap(arena.HeapOptions{})

	ptr := heap.Mallocx(4000, 0)
	require.NotNil(t, ptr)

	moved := heap.Rallocx(ptr, 4000, 4050, 0)
	require.Equal(t, ptr, moved, "a resize within the same size class should not move")

	heap.Sdallocx(moved, 4050, 0)
}

func TestRallocxPreservesContents(t *testing.T) {
	heap := arena.NewHeap(arena.HeapOptions{})

	ptr := heap.Mallocx(1000, 0)
	require.NotNil(t, ptr)

	payload := unsafe.Slice((*byte)(ptr), 1000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	grown := heap.Rallocx(ptr, 1000, 50000, 0)
	require.NotNil(t, grown)
	require.NotEqual(t, ptr, grown)

	copied := unsafe.Slice((*byte)(grown), 1000)
	for i := range copied {
		require.Equal(t, byte(i%251), copied[i], "byte %d changed during reallocation", i)
	}

	heap.Sdallocx(grown, 50000, 0)
}

func TestXallocx(t *testing.T) {
	heap := arena.NewHeap(arena.HeapOptions{})

	ptr := heap.Mallocx(4000, 0)
	require.NotNil(t, ptr)

	// Same class: the resize succeeds and reports the class's usable size
	require.Equal(t, heap.Nallocx(4050, 0), heap.Xallocx(ptr, 4000, 4050, 0))

	// Different class: refused, the old usable size comes back
	require.Equal(t, heap.Nallocx(4000, 0), heap.Xallocx(ptr, 4000, 8192, 0))
	require.Equal(t, heap.Nallocx(4000, 0), heap.Xallocx(ptr, 4000, 10, 0))

	heap.Sdallocx(ptr, 4000, 0)

	// Large reservations resize within their page rounding
	large := heap.Mallocx(40000, 0)
	require.NotNil(t, large)
	require.Equal(t, 40960, heap.Xallocx(large, 40000, 40960, 0))
	require.Equal(t, 40960, heap.Xallocx(large, 40000, 100000, 0))
	heap.Sdallocx(large, 40000, 0)
}

func TestBudget(t *testing.T) {
	// Nallocx is pure, so a budget-free heap can size the budget for the
	// one under test
	sizing := arena.NewHeap(arena.HeapOptions{})
	unit := sizing.Nallocx(4096, 0)
	big := sizing.Nallocx(8192, 0)

	heap := arena.NewHeap(arena.HeapOptions{BudgetBytes: unit + big})

	ptr := heap.Mallocx(4096, 0)
	require.NotNil(t, ptr)

	require.Nil(t, heap.Mallocx(big+1, 0), "the budget should refuse an allocation that exceeds it")

	second := heap.Mallocx(8192, 0)
	require.NotNil(t, second, "a request that exactly fills the budget should succeed")

	heap.Sdallocx(ptr, 4096, 0)
	heap.Sdallocx(second, 8192, 0)

	// With the budget settled the bigger request fits
	third := heap.Mallocx(big, 0)
	require.NotNil(t, third)
	heap.Sdallocx(third, big, 0)

	require.Zero(t, heap.LiveBytes())
}

func TestRallocxFailureLeavesOriginal(t *testing.T) {
	heap := arena.NewHeap(arena.HeapOptions{BudgetBytes: 8192})

	ptr := heap.Mallocx(1000, 0)
	require.NotNil(t, ptr)

	payload := unsafe.Slice((*byte)(ptr), 1000)
	for i := range payload {
		payload[i] = byte(i % 127)
	}

	// Growing needs 1024 (old) + 8192 (new) live at once, which the
	// budget refuses
	require.Nil(t, heap.Rallocx(ptr, 1000, 8000, 0))

	for i := range payload {
		require.Equal(t, byte(i%127), payload[i], "byte %d changed during a failed reallocation", i)
	}
	require.Equal(t, heap.Nallocx(1000, 0), heap.LiveBytes())

	heap.Sdallocx(ptr, 1000, 0)
}

func TestStatistics(t *testing.T) {
	heap := arena.NewHeap(arena.HeapOptions{})

	small := heap.Mallocx(100, 0)
	require.NotNil(t, small)
	large := heap.Mallocx(100000, 0)
	require.NotNil(t, large)

	var stats memutil.DetailedStatistics
	stats.Clear()
	heap.AddDetailedStatistics(&stats)

	require.Equal(t, 2, stats.AllocationCount)
	require.Equal(t, heap.Nallocx(100, 0)+heap.Nallocx(100000, 0), stats.AllocationBytes)
	require.GreaterOrEqual(t, stats.SlabCount, 2)
	require.GreaterOrEqual(t, stats.SlabBytes, stats.AllocationBytes)
	require.Equal(t, heap.Nallocx(100, 0), stats.AllocationSizeMin)
	require.Equal(t, heap.Nallocx(100000, 0), stats.AllocationSizeMax)

	require.NoError(t, heap.Validate())

	heap.Sdallocx(small, 100, 0)
	heap.Sdallocx(large, 100000, 0)
}

func TestValidateAccountsLiveBytes(t *testing.T) {
	heap := arena.NewHeap(arena.HeapOptions{})

	small := heap.Mallocx(200, 0)
	require.NotNil(t, small)
	large := heap.Mallocx(50000, 0)
	require.NotNil(t, large)

	// The walk covers both the size classes and the dedicated
	// reservations, and those together must explain the live counter
	require.NoError(t, heap.Validate())
	require.Equal(t, heap.Nallocx(200, 0)+heap.Nallocx(50000, 0), heap.LiveBytes())

	heap.Sdallocx(small, 200, 0)
	heap.Sdallocx(large, 50000, 0)

	require.NoError(t, heap.Validate())
	require.Zero(t, heap.LiveBytes())
}

func TestPrintStats(t *testing.T) {
	heap := arena.NewHeap(arena.HeapOptions{})

	ptr := heap.Mallocx(500, 0)
	require.NotNil(t, ptr)

	var buf bytes.Buffer
	require.NoError(t, heap.PrintStats(&buf))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "{"))
	require.Contains(t, out, `"Allocator":"arena"`)
	require.Contains(t, out, `"Total":`)
	require.Contains(t, out, `"SizeClasses":`)

	heap.Sdallocx(ptr, 500, 0)
}

func TestConcurrentAllocFree(t *testing.T) {
	heap := arena.NewHeap(arena.HeapOptions{Synchronized: true})

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()

			for i := 0; i < 500; i++ {
				size := 16 + (seed*31+i*17)%5000
				ptr := heap.Mallocx(size, 0)
				if ptr == nil {
					continue
				}

				region := unsafe.Slice((*byte)(ptr), size)
				region[0] = byte(seed)
				region[size-1] = byte(i)

				heap.Sdallocx(ptr, size, 0)
			}
		}(worker)
	}
	wg.Wait()

	require.Zero(t, heap.LiveBytes())
	require.NoError(t, heap.Validate())
}

func BenchmarkMallocxSmall(b *testing.B) {
	heap := arena.NewHeap(arena.HeapOptions{})

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ptr := heap.Mallocx(64, 0)
		heap.Sdallocx(ptr, 64, 0)
	}
}
