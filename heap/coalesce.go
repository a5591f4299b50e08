package heap

import (
	"fmt"

	"golang.org/x/exp/slog"
)

// split carves a free block into a prefix of exactly size bytes and a free suffix
// holding the remainder. It refuses, returning the null block and leaving the block
// intact, when the block is not free, the prefix would undershoot the minimum block,
// or the suffix would be too small to stand as a block of its own.
//
// The prefix keeps its free flag; the caller decides what to do with it.
func (h *Heap) split(b block, size int) block {
	if size < MinBlockSize {
		return nilBlock
	}
	if !b.IsFree() {
		return nilBlock
	}
	remainder := b.Size() - size
	if remainder < MinBlockSize {
		return nilBlock
	}

	suffix := blockAt(b.base + uintptr(size))
	h.logger.Debug("splitting block", slog.Uint64("Suffix", uint64(suffix.base)), slog.Int("Remainder", remainder))

	if b.base == h.tail.base {
		b.setNext(suffix)
		suffix.setPrev(b)
		suffix.setNext(nilBlock)
		h.tail = suffix
	} else {
		suffix.setNext(b.Next())
		b.Next().setPrev(suffix)
		suffix.setPrev(b)
		b.setNext(suffix)
	}

	suffix.setName(fmt.Sprintf("Split block %d", h.splits))
	h.splits++
	suffix.setSize(remainder)
	suffix.markFree()
	suffix.setRegionID(b.RegionID())
	b.setSize(size)

	return suffix
}

// merge coalesces a just-freed block with its next and previous neighbors when they
// are free and belong to the same region, in that order. If the surviving block then
// covers its entire region, the block is unlinked and the region returned to the OS.
func (h *Heap) merge(b block) {
	next := b.Next()
	if !next.isNil() && next.IsFree() && next.RegionID() == b.RegionID() {
		b.setSize(b.Size() + next.Size())
		if next.base == h.tail.base {
			h.tail = b
			b.setNext(nilBlock)
		} else {
			b.setNext(next.Next())
			b.Next().setPrev(b)
		}
	}

	prev := b.Prev()
	if !prev.isNil() && prev.IsFree() && prev.RegionID() == b.RegionID() {
		prev.setSize(prev.Size() + b.Size())
		if b.base == h.tail.base {
			h.tail = prev
			prev.setNext(nilBlock)
		} else {
			prev.setNext(b.Next())
			prev.Next().setPrev(prev)
		}
		b = prev
	}

	h.releaseIfWholeRegion(b)
}

// releaseIfWholeRegion checks whether the free block is the only one left in its
// region and, if so, unlinks it and unmaps the region's byte range. A failed unmap is
// logged and otherwise ignored; the list is already consistent, the pages are merely
// left mapped.
func (h *Heap) releaseIfWholeRegion(b block) {
	prev := b.Prev()
	next := b.Next()

	sole := false
	switch {
	case prev.isNil() && next.isNil():
		h.head = nilBlock
		h.tail = nilBlock
		sole = true
	case !prev.isNil() && !next.isNil() && prev.RegionID() != b.RegionID() && next.RegionID() != b.RegionID():
		prev.setNext(next)
		next.setPrev(prev)
		sole = true
	case prev.isNil() && !next.isNil() && next.RegionID() != b.RegionID():
		h.head = next
		next.setPrev(nilBlock)
		sole = true
	case next.isNil() && !prev.isNil() && prev.RegionID() != b.RegionID():
		h.tail = prev
		prev.setNext(nilBlock)
		sole = true
	}

	if !sole {
		return
	}

	regionID := b.RegionID()
	size := b.Size()
	h.logger.Debug("releasing region", slog.Uint64("RegionId", regionID), slog.Int("RegionSize", size))

	err := unmapRegion(b.base, size)
	if err != nil {
		h.logger.Error("failed to return region to the OS",
			slog.Uint64("RegionId", regionID), slog.Any("error", err))
	}
}
