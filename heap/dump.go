package heap

import (
	"fmt"
	"io"

	"github.com/hoardmem/hoard"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// PrintMemory writes the current memory state to w: a banner per region, one line per
// block in list order.
func (h *Heap) PrintMemory(w io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	fmt.Fprintln(w, "-- Current Memory State --")

	var currentRegion uint64
	for b := h.head; !b.isNil(); b = b.Next() {
		if b.base == h.head.base || b.RegionID() != currentRegion {
			fmt.Fprintf(w, "[REGION %d] %#x\n", b.RegionID(), b.base)
			currentRegion = b.RegionID()
		}

		state := "USED"
		if b.IsFree() {
			state = "FREE"
		}
		fmt.Fprintf(w, "  [BLOCK] %#x-%#x '%s' %d [%s]\n", b.base, b.end(), b.Name(), b.Size(), state)
	}
}

// AddDetailedStatistics sums the heap's current block statistics into stats.
func (h *Heap) AddDetailedStatistics(stats *hoard.DetailedStatistics) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addDetailedStatisticsLocked(stats)
}

func (h *Heap) addDetailedStatisticsLocked(stats *hoard.DetailedStatistics) {
	seenRegion := false
	var currentRegion uint64

	for b := h.head; !b.isNil(); b = b.Next() {
		if !seenRegion || b.RegionID() != currentRegion {
			stats.RegionCount++
			seenRegion = true
			currentRegion = b.RegionID()
		}

		stats.BlockCount++
		stats.RegionBytes += b.Size()

		if b.IsFree() {
			stats.AddFreeRange(b.Size())
		} else {
			stats.AddAllocation(b.Size())
		}
	}
}

// PrintDetailedMap writes a machine-readable description of every region and block to
// the provided JSON writer.
func (h *Heap) PrintDetailedMap(writer *jwriter.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	objState := writer.Object()
	defer objState.End()

	var stats hoard.DetailedStatistics
	stats.Clear()
	h.addDetailedStatisticsLocked(&stats)

	totals := objState.Name("Totals").Object()
	totals.Name("Regions").Int(stats.RegionCount)
	totals.Name("Blocks").Int(stats.BlockCount)
	totals.Name("Allocations").Int(stats.AllocationCount)
	totals.Name("RegionBytes").Int(stats.RegionBytes)
	totals.Name("AllocationBytes").Int(stats.AllocationBytes)
	totals.Name("FreeRanges").Int(stats.FreeRangeCount)
	totals.End()

	blocks := objState.Name("Blocks").Array()
	defer blocks.End()

	for b := h.head; !b.isNil(); b = b.Next() {
		obj := blocks.Object()

		obj.Name("Address").Int(int(b.base))
		obj.Name("Name").String(b.Name())
		obj.Name("Size").Int(b.Size())
		obj.Name("RegionId").Int(int(b.RegionID()))
		obj.Name("Free").Bool(b.IsFree())

		obj.End()
	}
}
