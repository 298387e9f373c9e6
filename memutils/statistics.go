package memutils

import "math"

// Statistics summarizes the state of a heap's block list
type Statistics struct {
	// BlockCount is the number of block headers in the list, free or in use
	BlockCount int
	// AllocationCount is the number of blocks currently in use
	AllocationCount int
	// HeapBytes is the number of bytes obtained from the heap break so far
	HeapBytes int
	// HeaderBytes is the number of bytes taken up by block headers
	HeaderBytes int
	// AllocationBytes is the payload capacity of all blocks currently in use
	AllocationBytes int
}

func (s *Statistics) Clear() {
	s.BlockCount = 0
	s.AllocationCount = 0
	s.HeapBytes = 0
	s.HeaderBytes = 0
	s.AllocationBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.BlockCount += other.BlockCount
	s.AllocationCount += other.AllocationCount
	s.HeapBytes += other.HeapBytes
	s.HeaderBytes += other.HeaderBytes
	s.AllocationBytes += other.AllocationBytes
}

// FreeBytes is the payload capacity of all free blocks
func (s *Statistics) FreeBytes() int {
	return s.HeapBytes - s.HeaderBytes - s.AllocationBytes
}

type DetailedStatistics struct {
	Statistics
	FreeRegionCount   int
	AllocationSizeMin int
	AllocationSizeMax int
	FreeRegionSizeMin int
	FreeRegionSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.FreeRegionCount = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
	s.FreeRegionSizeMin = math.MaxInt
	s.FreeRegionSizeMax = 0
}

func (s *DetailedStatistics) AddFreeRegion(size int) {
	s.FreeRegionCount++

	if size < s.FreeRegionSizeMin {
		s.FreeRegionSizeMin = size
	}

	if size > s.FreeRegionSizeMax {
		s.FreeRegionSizeMax = size
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
	s.FreeRegionCount += other.FreeRegionCount

	if other.FreeRegionSizeMin < s.FreeRegionSizeMin {
		s.FreeRegionSizeMin = other.FreeRegionSizeMin
	}

	if other.FreeRegionSizeMax > s.FreeRegionSizeMax {
		s.FreeRegionSizeMax = other.FreeRegionSizeMax
	}

	if other.AllocationSizeMin < s.AllocationSizeMin {
		s.AllocationSizeMin = other.AllocationSizeMin
	}

	if other.AllocationSizeMax > s.AllocationSizeMax {
		s.AllocationSizeMax = other.AllocationSizeMax
	}
}
