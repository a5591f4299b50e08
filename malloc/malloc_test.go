package malloc_test

import (
	"testing"
	"unsafe"

	"github.com/hoardmem/hoard/malloc"
	"github.com/stretchr/testify/require"
)

func TestMallocFree(t *testing.T) {
	p := malloc.Malloc(64)
	require.NotNil(t, p)

	payload := unsafe.Slice((*byte)(p), 64)
	for i := range payload {
		payload[i] = byte(i)
	}
	for i := range payload {
		require.Equal(t, byte(i), payload[i])
	}

	malloc.Free(p)
}

func TestFreeNil(t *testing.T) {
	malloc.Free(nil)
}

func TestCallocZeroes(t *testing.T) {
	p := malloc.Calloc(32, 4)
	require.NotNil(t, p)

	payload := unsafe.Slice((*byte)(p), 128)
	for i := range payload {
		require.Equal(t, byte(0), payload[i])
	}

	malloc.Free(p)
}

func TestReallocPreservesContents(t *testing.T) {
	p := malloc.Malloc(32)
	require.NotNil(t, p)

	payload := unsafe.Slice((*byte)(p), 32)
	for i := range payload {
		payload[i] = byte(0xC0 + i%16)
	}

	q := malloc.Realloc(p, 512)
	require.NotNil(t, q)

	moved := unsafe.Slice((*byte)(q), 32)
	for i := range moved {
		require.Equal(t, byte(0xC0+i%16), moved[i])
	}

	require.Nil(t, malloc.Realloc(q, 0))
}

func TestMallocNameStampsLabel(t *testing.T) {
	p := malloc.MallocName(16, "parser scratch")
	require.NotNil(t, p)

	// The label is the NUL-terminated name field at the start of the 100-byte
	// header that precedes the payload.
	name := unsafe.Slice((*byte)(unsafe.Add(p, -100)), 15)
	require.Equal(t, "parser scratch\x00", string(name))
	malloc.Free(p)
}
