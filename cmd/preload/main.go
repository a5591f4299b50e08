// Command preload builds the allocator as a shared object exporting the standard C
// allocation symbol set, so a dynamic loader can interpose it over a host process's
// allocator:
//
//	go build -buildmode=c-shared -o allocator.so ./cmd/preload
//	LD_PRELOAD=$(pwd)/allocator.so command
package main

/*
#include <stddef.h>
*/
import "C"

import (
	"unsafe"

	api "github.com/hoardmem/hoard/malloc"
)

//export malloc
func malloc(size C.size_t) unsafe.Pointer {
	return api.Malloc(int(size))
}

//export free
func free(ptr unsafe.Pointer) {
	api.Free(ptr)
}

//export calloc
func calloc(nmemb C.size_t, size C.size_t) unsafe.Pointer {
	return api.Calloc(int(nmemb), int(size))
}

//export realloc
func realloc(ptr unsafe.Pointer, size C.size_t) unsafe.Pointer {
	return api.Realloc(ptr, int(size))
}

//export malloc_name
func malloc_name(size C.size_t, name *C.char) unsafe.Pointer {
	return api.MallocName(int(size), C.GoString(name))
}

//export print_memory
func print_memory() {
	api.PrintMemory()
}

func main() {}
