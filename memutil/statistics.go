package memutil

import (
	"math"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics is a cheap summary of an allocator's current footprint.
// Slabs are the contiguous chunks of address space an allocator has
// acquired from the operating system or the runtime; allocations are the
// live regions handed out to callers from within those slabs.
type Statistics struct {
	SlabCount       int
	AllocationCount int
	SlabBytes       int
	AllocationBytes int
}

func (s *Statistics) Clear() {
	s.SlabCount = 0
	s.AllocationCount = 0
	s.SlabBytes = 0
	s.AllocationBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.SlabCount += other.SlabCount
	s.AllocationCount += other.AllocationCount
	s.SlabBytes += other.SlabBytes
	s.AllocationBytes += other.AllocationBytes
}

// StatsJson populates a json object with this summary.
func (s *Statistics) StatsJson(json jwriter.ObjectState) {
	json.Name("Slabs").Int(s.SlabCount)
	json.Name("Allocations").Int(s.AllocationCount)
	json.Name("SlabBytes").Int(s.SlabBytes)
	json.Name("AllocationBytes").Int(s.AllocationBytes)
}

// DetailedStatistics extends Statistics with free-range accounting and
// allocation size extrema. Building it requires walking allocator
// internals and is considerably more expensive than Statistics.
type DetailedStatistics struct {
	Statistics
	FreeRangeCount    int
	AllocationSizeMin int
	AllocationSizeMax int
	FreeRangeSizeMin  int
	FreeRangeSizeMax  int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.FreeRangeCount = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
	s.FreeRangeSizeMin = math.MaxInt
	s.FreeRangeSizeMax = 0
}

func (s *DetailedStatistics) AddFreeRange(size int) {
	s.FreeRangeCount++

	if size < s.FreeRangeSizeMin {
		s.FreeRangeSizeMin = size
	}

	if size > s.FreeRangeSizeMax {
		s.FreeRangeSizeMax = size
	}
}

func (s *DetailedStatistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationBytes += size

	if size < s.AllocationSizeMin {
		s.AllocationSizeMin = size
	}

	if size > s.AllocationSizeMax {
		s.AllocationSizeMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.FreeRangeCount += other.FreeRangeCount

	if other.FreeRangeSizeMin < s.FreeRangeSizeMin {
		s.FreeRangeSizeMin = other.FreeRangeSizeMin
	}

	if other.FreeRangeSizeMax > s.FreeRangeSizeMax {
		s.FreeRangeSizeMax = other.FreeRangeSizeMax
	}

	if other.AllocationSizeMin < s.AllocationSizeMin {
		s.AllocationSizeMin = other.AllocationSizeMin
	}

	if other.AllocationSizeMax > s.AllocationSizeMax {
		s.AllocationSizeMax = other.AllocationSizeMax
	}
}

// StatsJson populates a json object with the detailed summary. Size
// extrema are omitted when no allocation or free range has been recorded,
// since their cleared values are meaningless.
func (s *DetailedStatistics) StatsJson(json jwriter.ObjectState) {
	s.Statistics.StatsJson(json)
	json.Name("FreeRanges").Int(s.FreeRangeCount)

	if s.AllocationCount > 0 {
		json.Name("AllocationSizeMin").Int(s.AllocationSizeMin)
		json.Name("AllocationSizeMax").Int(s.AllocationSizeMax)
	}

	if s.FreeRangeCount > 0 {
		json.Name("FreeRangeSizeMin").Int(s.FreeRangeSizeMin)
		json.Name("FreeRangeSizeMax").Int(s.FreeRangeSizeMax)
	}
}
