package heap

import (
	"encoding/binary"
	"unsafe"
)

const (
	// HeaderSize is the exact size in bytes of the metadata header that precedes every
	// payload. External tooling reads headers at payload-100, so this value is part of
	// the binary contract and must not change.
	HeaderSize = 100

	// blockAlign is the smallest usable payload a split suffix may carry.
	blockAlign = 4

	// MinBlockSize is the smallest legal block: a header plus one aligned word of payload.
	MinBlockSize = HeaderSize + blockAlign

	nameSize = 32

	nameOffset   = 0
	sizeOffset   = nameOffset + nameSize
	freeOffset   = sizeOffset + 8
	regionOffset = freeOffset + 1
	nextOffset   = regionOffset + 8
	prevOffset   = nextOffset + 8
)

// block is a view over a raw in-band header. The header layout is packed, so several
// fields sit at misaligned offsets; all access goes through a byte-slice window in
// native byte order rather than a Go struct.
//
// A zero block is the null link.
type block struct {
	base uintptr
}

var nilBlock = block{}

func blockAt(addr uintptr) block {
	return block{base: addr}
}

// blockForPayload recovers the header view for a payload pointer previously handed
// to a caller.
func blockForPayload(p unsafe.Pointer) block {
	return block{base: uintptr(p) - HeaderSize}
}

func (b block) isNil() bool {
	return b.base == 0
}

func (b block) hdr() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(b.base)), HeaderSize)
}

// Payload returns the caller-visible byte range of the block, which starts
// immediately after the header.
func (b block) Payload() unsafe.Pointer {
	return unsafe.Pointer(b.base + HeaderSize)
}

func (b block) payloadBytes(n int) []byte {
	return unsafe.Slice((*byte)(b.Payload()), n)
}

func (b block) Size() int {
	return int(binary.NativeEndian.Uint64(b.hdr()[sizeOffset:]))
}

func (b block) setSize(size int) {
	binary.NativeEndian.PutUint64(b.hdr()[sizeOffset:], uint64(size))
}

func (b block) IsFree() bool {
	return b.hdr()[freeOffset] != 0
}

func (b block) markFree() {
	b.hdr()[freeOffset] = 1
}

func (b block) markTaken() {
	b.hdr()[freeOffset] = 0
}

func (b block) RegionID() uint64 {
	return binary.NativeEndian.Uint64(b.hdr()[regionOffset:])
}

func (b block) setRegionID(id uint64) {
	binary.NativeEndian.PutUint64(b.hdr()[regionOffset:], id)
}

func (b block) Next() block {
	return block{base: uintptr(binary.NativeEndian.Uint64(b.hdr()[nextOffset:]))}
}

func (b block) setNext(next block) {
	binary.NativeEndian.PutUint64(b.hdr()[nextOffset:], uint64(next.base))
}

func (b block) Prev() block {
	return block{base: uintptr(binary.NativeEndian.Uint64(b.hdr()[prevOffset:]))}
}

func (b block) setPrev(prev block) {
	binary.NativeEndian.PutUint64(b.hdr()[prevOffset:], uint64(prev.base))
}

// Name returns the debug label stored in the header.
func (b block) Name() string {
	name := b.hdr()[nameOffset : nameOffset+nameSize]
	for i, c := range name {
		if c == 0 {
			return string(name[:i])
		}
	}
	return string(name[:nameSize-1])
}

// setName stores the debug label, truncating it to fit the 31 usable bytes and
// zero-filling the rest of the field.
func (b block) setName(name string) {
	field := b.hdr()[nameOffset : nameOffset+nameSize]
	n := copy(field[:nameSize-1], name)
	for i := n; i < nameSize; i++ {
		field[i] = 0
	}
}

// end returns the first address past the block.
func (b block) end() uintptr {
	return b.base + uintptr(b.Size())
}
