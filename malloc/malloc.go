// Package malloc exposes the standard C-style allocation entry points on top of a
// single process-wide heap. The heap is created lazily on first use; the cmd/preload
// wrappers route a host process's allocations here.
package malloc

import (
	"os"
	"sync"
	"unsafe"

	"github.com/hoardmem/hoard/heap"
	"golang.org/x/exp/slog"
)

var (
	initOnce sync.Once
	global   *heap.Heap
)

func globalHeap() *heap.Heap {
	initOnce.Do(func() {
		global = heap.New(slog.Default())
	})
	return global
}

// Malloc allocates size bytes and returns a pointer to them, or nil if the OS cannot
// supply backing memory.
func Malloc(size int) unsafe.Pointer {
	return globalHeap().Allocate(size)
}

// MallocName allocates size bytes under a caller-supplied debug label. The label is
// truncated to the 31 bytes the block header can hold.
func MallocName(size int, name string) unsafe.Pointer {
	return globalHeap().AllocateNamed(size, name)
}

// Calloc allocates count*elemSize bytes of zeroed memory. It returns nil when the
// multiplication overflows.
func Calloc(count int, elemSize int) unsafe.Pointer {
	return globalHeap().AllocateZeroed(count, elemSize)
}

// Realloc resizes an allocation, copying its contents into a fresh block and freeing
// the old one. A nil pointer behaves like Malloc; a zero size frees the pointer and
// returns nil.
func Realloc(p unsafe.Pointer, size int) unsafe.Pointer {
	return globalHeap().Resize(p, size)
}

// Free releases an allocation. Freeing nil does nothing.
func Free(p unsafe.Pointer) {
	globalHeap().Free(p)
}

// PrintMemory writes the current memory state to standard output.
func PrintMemory() {
	globalHeap().PrintMemory(os.Stdout)
}
