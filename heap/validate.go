package heap

import (
	"github.com/pkg/errors"
)

// Validate performs a deep consistency check of the block list and the live
// allocation index. When the allocator is functioning correctly this can never
// return an error, but it is invaluable when diagnosing corruption.
func (h *Heap) Validate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.validateLocked()
}

func (h *Heap) validateLocked() error {
	if h.head.isNil() != h.tail.isNil() {
		return errors.New("the list has a head without a tail or a tail without a head")
	}
	if h.head.isNil() {
		if h.live.Count() != 0 {
			return errors.Errorf("the list is empty but %d allocations are still live", h.live.Count())
		}
		return nil
	}

	if !h.head.Prev().isNil() {
		return errors.New("the head block has a previous block")
	}
	if !h.tail.Next().isNil() {
		return errors.New("the tail block has a next block")
	}

	last := nilBlock
	for b := h.head; !b.isNil(); b = b.Next() {
		if b.Size() < MinBlockSize {
			return errors.Errorf("block %q has size %d, below the %d-byte minimum", b.Name(), b.Size(), MinBlockSize)
		}
		if b.Size()%alignSize != 0 {
			return errors.Errorf("block %q has size %d, which is not a multiple of the %d-byte alignment unit", b.Name(), b.Size(), alignSize)
		}

		next := b.Next()
		if !next.isNil() {
			if next.Prev().base != b.base {
				return errors.Errorf("block %q names a next block whose reverse reference is broken", b.Name())
			}
			if next.RegionID() == b.RegionID() {
				if b.end() != next.base {
					return errors.Errorf("block %q does not end at its same-region successor", b.Name())
				}
				if b.IsFree() && next.IsFree() {
					return errors.Errorf("blocks %q and %q are adjacent in the same region and both free", b.Name(), next.Name())
				}
			}
		}

		last = b
	}

	if last.base != h.tail.base {
		return errors.New("walking the list from the head does not reach the tail")
	}

	var bad error
	h.live.Iter(func(payload uintptr, size uint64) bool {
		b := blockAt(payload - HeaderSize)
		if b.IsFree() {
			bad = errors.Errorf("live allocation at %#x points at a free block", payload)
			return true
		}
		return false
	})

	return bad
}

// lockedValidator adapts a Heap whose mutex is already held so it can be handed to
// hoard.DebugValidate without deadlocking.
type lockedValidator struct {
	h *Heap
}

func (v lockedValidator) Validate() error {
	return v.h.validateLocked()
}
