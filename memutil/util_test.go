package memutil_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/voxalloc/heapcore/memutil"
)

func TestCheckPow2(t *testing.T) {
	require.NoError(t, memutil.CheckPow2(uint(1), "align"))
	require.NoError(t, memutil.CheckPow2(uint(2), "align"))
	require.NoError(t, memutil.CheckPow2(uint(4096), "align"))

	err := memutil.CheckPow2(uint(0), "align")
	require.ErrorIs(t, err, memutil.PowerOfTwoError)

	err = memutil.CheckPow2(uint(24), "align")
	require.ErrorIs(t, err, memutil.PowerOfTwoError)
	require.ErrorContains(t, err, "align is 24")
}

func TestAlignUp(t *testing.T) {
	require.Equal(t, 0, memutil.AlignUp(0, 16))
	require.Equal(t, 16, memutil.AlignUp(1, 16))
	require.Equal(t, 16, memutil.AlignUp(16, 16))
	require.Equal(t, 32, memutil.AlignUp(17, 16))
	require.Equal(t, 4096, memutil.AlignUp(4000, 4096))
}

func TestAlignDown(t *testing.T) {
	require.Equal(t, 0, memutil.AlignDown(15, 16))
	require.Equal(t, 16, memutil.AlignDown(16, 16))
	require.Equal(t, 16, memutil.AlignDown(31, 16))
	require.Equal(t, 4096, memutil.AlignDown(5000, 4096))
}

func TestNextPow2(t *testing.T) {
	require.Equal(t, 1, memutil.NextPow2(1))
	require.Equal(t, 2, memutil.NextPow2(2))
	require.Equal(t, 4, memutil.NextPow2(3))
	require.Equal(t, 4096, memutil.NextPow2(4095))
	require.Equal(t, 4096, memutil.NextPow2(4096))
	require.Equal(t, 8192, memutil.NextPow2(4097))
}

func TestLog2(t *testing.T) {
	require.Equal(t, 0, memutil.Log2(1))
	require.Equal(t, 3, memutil.Log2(8))
	require.Equal(t, 12, memutil.Log2(4096))
}

func TestDetailedStatistics(t *testing.T) {
	var stats memutil.DetailedStatistics
	stats.Clear()

	stats.AddAllocation(100)
	stats.AddAllocation(50)
	stats.AddFreeRange(900)

	require.Equal(t, 2, stats.AllocationCount)
	require.Equal(t, 150, stats.AllocationBytes)
	require.Equal(t, 50, stats.AllocationSizeMin)
	require.Equal(t, 100, stats.AllocationSizeMax)
	require.Equal(t, 1, stats.FreeRangeCount)
	require.Equal(t, 900, stats.FreeRangeSizeMin)
	require.Equal(t, 900, stats.FreeRangeSizeMax)

	var other memutil.DetailedStatistics
	other.Clear()
	other.AddAllocation(25)
	other.SlabCount = 1
	other.SlabBytes = 1 << 20

	stats.AddDetailedStatistics(&other)
	require.Equal(t, 3, stats.AllocationCount)
	require.Equal(t, 25, stats.AllocationSizeMin)
	require.Equal(t, 1, stats.SlabCount)
	require.Equal(t, 1<<20, stats.SlabBytes)
}
