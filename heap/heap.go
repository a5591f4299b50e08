package heap

import (
	"fmt"
	"io"
	"math"
	"math/bits"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/hoardmem/hoard"
	"golang.org/x/exp/slog"
)

// alignSize is the unit every block size is rounded up to.
const alignSize = 8

// Heap is a general-purpose allocator that carves caller allocations out of anonymous
// OS mappings. Every allocation is preceded by a 100-byte in-band header, and all
// blocks ever carved are threaded onto a single doubly linked list spanning all
// regions.
//
// One Heap serves arbitrary concurrent callers; a single mutex serializes every
// public operation.
type Heap struct {
	mu     sync.Mutex
	logger *slog.Logger

	head block
	tail block

	pageSize int

	allocations uint64
	regions     uint64
	splits      uint64

	// live indexes the payload address of every outstanding allocation to its
	// requested size. Used for leak reporting and statistics only; the allocator
	// itself navigates via the in-band headers.
	live *swiss.Map[uintptr, uint64]
}

// New creates an empty Heap. A nil logger silences diagnostics.
func New(logger *slog.Logger) *Heap {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard))
	}
	hoard.DebugCheckPow2(uint(alignSize), "alignSize")

	return &Heap{
		logger:   logger,
		pageSize: osPageSize(),
		live:     swiss.NewMap[uintptr, uint64](42),
	}
}

// PageSize returns the OS page size the Heap sizes regions with.
func (h *Heap) PageSize() int {
	return h.pageSize
}

// AllocationCount returns the number of outstanding allocations.
func (h *Heap) AllocationCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.live.Count()
}

// IsEmpty returns true when no blocks remain, i.e. every region has been returned to
// the OS.
func (h *Heap) IsEmpty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.head.isNil() && h.tail.isNil()
}

// Allocate returns a pointer to size usable bytes, or nil if the OS refuses to supply
// backing memory. The payload begins 100 bytes past the block header.
func (h *Heap) Allocate(size int) unsafe.Pointer {
	if size < 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	return h.allocateLocked(size, configFromEnv())
}

// AllocateNamed behaves like Allocate but stamps the block's debug label with the
// provided name, truncated to the 31 bytes the header can hold.
func (h *Heap) AllocateNamed(size int, name string) unsafe.Pointer {
	p := h.Allocate(size)
	if p == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	blockForPayload(p).setName(name)
	h.logger.Debug("named allocation", slog.String("Name", name), slog.Int("Size", size))
	return p
}

// AllocateZeroed allocates count*elemSize bytes and zeroes the payload. It returns
// nil when the multiplication overflows.
func (h *Heap) AllocateZeroed(count int, elemSize int) unsafe.Pointer {
	if count < 0 || elemSize < 0 {
		return nil
	}

	hi, lo := bits.Mul64(uint64(count), uint64(elemSize))
	if hi != 0 || lo > math.MaxInt {
		h.logger.Debug("rejecting allocation", slog.Any("error", hoard.SizeOverflowError),
			slog.Int("Count", count), slog.Int("ElemSize", elemSize))
		return nil
	}
	size := int(lo)

	p := h.Allocate(size)
	if p == nil {
		return nil
	}

	payload := unsafe.Slice((*byte)(p), size)
	for i := range payload {
		payload[i] = 0
	}
	return p
}

// Free releases a payload pointer previously returned by one of the allocation
// methods. A nil pointer is a no-op. Passing any other pointer not produced by this
// Heap is undefined behavior.
func (h *Heap) Free(p unsafe.Pointer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p == nil {
		return
	}

	b := blockForPayload(p)
	h.logger.Debug("free request", slog.Uint64("Address", uint64(uintptr(p))), slog.Int("Size", b.Size()))

	h.live.Delete(uintptr(p))
	b.markFree()
	h.merge(b)

	hoard.DebugValidate(lockedValidator{h})
}

// Resize grows or shrinks an allocation. A nil pointer is equivalent to Allocate; a
// zero size frees the pointer and returns nil. Otherwise the contents are copied into
// a fresh allocation, the old one is freed, and the new payload is returned. On
// allocation failure the old payload is left intact and nil is returned.
func (h *Heap) Resize(p unsafe.Pointer, size int) unsafe.Pointer {
	if p == nil {
		return h.Allocate(size)
	}

	if size == 0 {
		h.Free(p)
		return nil
	}

	old := blockForPayload(p)
	oldPayload := old.Size() - HeaderSize

	newP := h.Allocate(size)
	if newP == nil {
		return nil
	}

	n := size
	if oldPayload < n {
		n = oldPayload
	}
	copy(unsafe.Slice((*byte)(newP), n), unsafe.Slice((*byte)(p), n))

	h.Free(p)
	return newP
}

func (h *Heap) allocateLocked(size int, cfg allocConfig) unsafe.Pointer {
	aligned := hoard.AlignUp(size+HeaderSize, alignSize)
	h.logger.Debug("allocation request", slog.Int("Size", size), slog.Int("Aligned", aligned),
		slog.String("Strategy", cfg.strategy.String()))

	reused := h.reuse(cfg.strategy, aligned)
	if !reused.isNil() {
		reused.markTaken()
		h.commitLocked(reused, size, cfg)
		return reused.Payload()
	}

	regionSize := hoard.PagesFor(aligned, h.pageSize) * h.pageSize
	base, err := mapRegion(regionSize)
	if err != nil {
		h.logger.Error("failed to obtain a region from the OS",
			slog.Int("RegionSize", regionSize), slog.Any("error", err))
		return nil
	}
	h.logger.Debug("new region", slog.Uint64("RegionId", h.regions), slog.Int("RegionSize", regionSize))

	b := blockAt(base)
	b.setName(fmt.Sprintf("Allocation %d", h.allocations))
	h.allocations++
	b.setRegionID(h.regions)
	h.regions++

	if h.head.isNil() {
		h.head = b
		h.tail = b
		b.setPrev(nilBlock)
	} else {
		h.tail.setNext(b)
		b.setPrev(h.tail)
		h.tail = b
	}

	b.markFree()
	b.setSize(regionSize)
	b.setNext(nilBlock)
	h.split(b, aligned)
	b.markTaken()

	h.commitLocked(b, size, cfg)
	return b.Payload()
}

// commitLocked performs the bookkeeping shared by the reuse and new-region paths once
// a block has been marked taken.
func (h *Heap) commitLocked(b block, size int, cfg allocConfig) {
	h.live.Put(b.base+HeaderSize, uint64(size))

	if cfg.scribble {
		payload := b.payloadBytes(size)
		for i := range payload {
			payload[i] = ScribbleByte
		}
	}

	hoard.DebugValidate(lockedValidator{h})
}

// reuse tries to satisfy an aligned request from an existing free block using the
// selected strategy. The candidate is split down to size when the remainder is big
// enough to stand as a block of its own; otherwise it is handed out whole.
func (h *Heap) reuse(strategy FitStrategy, size int) block {
	candidate := h.findFreeBlock(strategy, size)
	if candidate.isNil() {
		return nilBlock
	}

	h.split(candidate, size)
	return candidate
}

// Destroy verifies that every allocation has been returned. Outstanding allocations
// are logged the way they were named and an error is returned; the backing regions
// stay mapped since their payloads may still be referenced.
func (h *Heap) Destroy() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.live.Count() == 0 {
		return nil
	}

	h.live.Iter(func(payload uintptr, size uint64) bool {
		b := blockAt(payload - HeaderSize)
		h.logger.Error("[UNRELEASED MEMORY] allocation still live at heap destruction",
			slog.String("Name", b.Name()),
			slog.Uint64("Address", uint64(payload)),
			slog.Uint64("Size", size))
		return false
	})

	return errors.Errorf("%d allocations were not freed before the heap was destroyed", h.live.Count())
}
