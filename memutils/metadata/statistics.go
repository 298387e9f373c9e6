package metadata

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/brkalloc/memutils"
)

// AddStatistics sums this list's statistics into the statistics currently present in the provided
// memutils.Statistics object
func (l *BlockList) AddStatistics(stats *memutils.Statistics) {
	stats.BlockCount += l.blockCount
	stats.AllocationCount += l.allocCount
	stats.HeapBytes += l.End() - l.start
	stats.HeaderBytes += l.blockCount * HeaderSize
	stats.AllocationBytes += l.allocBytes
}

// AddDetailedStatistics sums this list's statistics into the statistics currently present in the
// provided memutils.DetailedStatistics object. Every header is visited.
func (l *BlockList) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.BlockCount += l.blockCount
	stats.HeapBytes += l.End() - l.start
	stats.HeaderBytes += l.blockCount * HeaderSize

	for block := l.head; block != NoBlock; block = l.Next(block) {
		if l.IsFree(block) {
			stats.AddFreeRegion(l.Size(block))
		} else {
			stats.AddAllocation(l.Size(block))
		}
	}
}

// VisitAllRegions will call the provided callback once for each block in the list, in address
// order. offset is the offset of the block's payload within the heap region. Iteration stops at
// the first error returned by the callback, which is returned.
func (l *BlockList) VisitAllRegions(handleBlock func(handle BlockHandle, offset int, size int, free bool) error) error {
	for block := l.head; block != NoBlock; block = l.Next(block) {
		err := handleBlock(block, l.PayloadOffset(block), l.Size(block), l.IsFree(block))
		if err != nil {
			return err
		}
	}

	return nil
}

// BlockJsonData populates a json object with information about this list
func (l *BlockList) BlockJsonData(json jwriter.ObjectState) {
	var stats memutils.DetailedStatistics
	stats.Clear()
	l.AddDetailedStatistics(&stats)

	json.Name("TotalBytes").Int(stats.HeapBytes)
	json.Name("HeaderBytes").Int(stats.HeaderBytes)
	json.Name("UnusedBytes").Int(stats.FreeBytes())
	json.Name("BlockCount").Int(stats.BlockCount)
	json.Name("AllocationCount").Int(stats.AllocationCount)
	json.Name("UnusedRanges").Int(stats.FreeRegionCount)
	json.Name("Appends").Int(l.counters.Appends)
	json.Name("Splits").Int(l.counters.Splits)
	json.Name("Merges").Int(l.counters.Merges)
}
