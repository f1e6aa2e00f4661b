package contract

import "unsafe"

// MemoryProvider abstracts allocation of the packer's output buffers,
// so an embedder can supply a device-aligned or pooled allocator
// instead of plain heap memory (§9 "Raw buffer sharing"; grounded on
// the original's HeapMemoryProvider.h).
type MemoryProvider interface {
	// Alloc returns a zeroed buffer sized elementSize*count bytes,
	// aligned to at least max(elementSize, pointer size).
	Alloc(elementSize, count int) []byte
	// Free releases a buffer previously returned by Alloc. Safe to call
	// with a buffer not obtained from this provider's own Alloc (no-op).
	Free(buf []byte)
}

// HeapMemoryProvider is the default MemoryProvider: plain heap
// allocation. Alignment is achieved by over-allocating and slicing,
// since Go's allocator does not expose an aligned-alloc primitive.
type HeapMemoryProvider struct{}

const pointerSize = 8

func (HeapMemoryProvider) Alloc(elementSize, count int) []byte {
	if elementSize <= 0 || count <= 0 {
		return nil
	}
	align := elementSize
	if pointerSize > align {
		align = pointerSize
	}
	size := elementSize * count
	raw := make([]byte, size+align)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	off := int((-addr) & uintptr(align-1))
	return raw[off : off+size : off+size]
}

func (HeapMemoryProvider) Free([]byte) {
	// Heap-backed buffers are reclaimed by the garbage collector; Free
	// is a no-op kept only to satisfy the MemoryProvider contract for
	// providers that do need an explicit release (e.g. pooled/pinned
	// allocators).
}
