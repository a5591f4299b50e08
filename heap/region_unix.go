//go:build !plan9 && !windows && !js

package heap

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// mapRegion obtains an anonymous, private, read-write mapping of size bytes from the
// OS. size must be a multiple of the page size.
func mapRegion(size int) (uintptr, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, errors.Wrap(err, "failed to map an anonymous region")
	}
	return uintptr(unsafe.Pointer(&mem[0])), nil
}

// unmapRegion returns a range previously obtained from mapRegion to the OS. The
// base and size must describe the whole mapping.
func unmapRegion(base uintptr, size int) error {
	err := unix.Munmap(unsafe.Slice((*byte)(unsafe.Pointer(base)), size))
	if err != nil {
		return errors.Wrap(err, "failed to unmap region")
	}
	return nil
}

func osPageSize() int {
	return unix.Getpagesize()
}
