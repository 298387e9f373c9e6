package dalloc

import (
	"io"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/brkalloc/memutils"
	"github.com/vkngwrapper/brkalloc/memutils/metadata"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CalculateStatistics retrieves detailed statistics about the allocator's heap. Every block header
// is visited, so this is slow on large heaps; use Statistics for the cheap totals.
func (a *Allocator) CalculateStatistics(stats *memutils.DetailedStatistics) {
	a.logger.Debug("Allocator::CalculateStatistics")

	a.lock()
	defer a.mutex.Unlock()

	stats.Clear()
	a.list.AddDetailedStatistics(stats)
}

// Statistics returns the allocator's running totals without visiting any block headers
func (a *Allocator) Statistics() memutils.Statistics {
	a.logger.Debug("Allocator::Statistics")

	a.lock()
	defer a.mutex.Unlock()

	var stats memutils.Statistics
	a.list.AddStatistics(&stats)
	return stats
}

func printDetailedStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("BlockCount").Int(stats.BlockCount)
	json.Name("AllocationCount").Int(stats.AllocationCount)
	json.Name("UnusedRangeCount").Int(stats.FreeRegionCount)
	json.Name("HeapBytes").Int(stats.HeapBytes)
	json.Name("HeaderBytes").Int(stats.HeaderBytes)
	json.Name("AllocationBytes").Int(stats.AllocationBytes)
	json.Name("UnusedBytes").Int(stats.FreeBytes())

	if stats.AllocationCount > 0 {
		json.Name("AllocationSizeMin").Int(stats.AllocationSizeMin)
		json.Name("AllocationSizeMax").Int(stats.AllocationSizeMax)
	}

	if stats.FreeRegionCount > 0 {
		json.Name("UnusedRangeSizeMin").Int(stats.FreeRegionSizeMin)
		json.Name("UnusedRangeSizeMax").Int(stats.FreeRegionSizeMax)
	}
}

// BuildStatsString returns a JSON document describing the allocator's heap. When detailedMap is
// true, every block in the heap is listed along with its offset, size and state.
func (a *Allocator) BuildStatsString(detailedMap bool) string {
	a.logger.Debug("Allocator::BuildStatsString")

	a.lock()
	defer a.mutex.Unlock()

	var stats memutils.DetailedStatistics
	stats.Clear()
	a.list.AddDetailedStatistics(&stats)

	writer := jwriter.NewWriter()
	rootObj := writer.Object()

	generalObj := rootObj.Name("General").Object()
	generalObj.Name("Flags").String(a.createFlags.String())
	generalObj.Name("Capacity").Int(a.brk.Capacity())
	generalObj.Name("Break").Int(a.brk.Size())
	generalObj.Name("HeaderSize").Int(metadata.HeaderSize)
	generalObj.Name("Alignment").Int(memutils.Alignment)
	generalObj.End()

	totalObj := rootObj.Name("Total").Object()
	printDetailedStatistics(&totalObj, &stats)
	totalObj.End()

	if detailedMap {
		mapObj := rootObj.Name("DetailedMap").Object()
		a.printDetailedMapBlocks(&mapObj)
		a.list.BlockJsonData(mapObj)
		mapObj.End()
	}

	rootObj.End()

	return string(writer.Bytes())
}

func (a *Allocator) printDetailedMapBlocks(json *jwriter.ObjectState) {
	arrayState := json.Name("Blocks").Array()
	defer arrayState.End()

	_ = a.list.VisitAllRegions(func(handle metadata.BlockHandle, offset int, size int, free bool) error {
		obj := arrayState.Object()
		defer obj.End()

		obj.Name("Offset").Int(offset)
		obj.Name("Size").Int(size)
		if free {
			obj.Name("Type").String("FREE")
		} else {
			obj.Name("Type").String("RESERVED")
		}

		return nil
	})
}

// PrintStats writes a human-readable summary of the allocator's heap to w
func (a *Allocator) PrintStats(w io.Writer) error {
	var stats memutils.DetailedStatistics
	a.CalculateStatistics(&stats)

	p := message.NewPrinter(language.English)

	_, err := p.Fprintf(w, "Heap:        %d bytes in %d blocks (capacity %d bytes)\n", stats.HeapBytes, stats.BlockCount, a.brk.Capacity())
	if err != nil {
		return err
	}
	_, err = p.Fprintf(w, "Reserved:    %d bytes in %d blocks\n", stats.AllocationBytes, stats.AllocationCount)
	if err != nil {
		return err
	}
	_, err = p.Fprintf(w, "Free:        %d bytes in %d blocks\n", stats.FreeBytes(), stats.FreeRegionCount)
	if err != nil {
		return err
	}
	_, err = p.Fprintf(w, "Headers:     %d bytes\n", stats.HeaderBytes)
	return err
}
