// We enable 64 bit LE platforms:

//go:build (amd64 || arm64 || ppc64le || riscv64) && !nounsafe && !purego && !appengine

package le

import (
	"unsafe"
)

// Load32 will load from b at index i.
// The caller must ensure that b[i:i+4] is within the slice.
func Load32[I Indexer](b []byte, i I) uint32 {
	return *(*uint32)(unsafe.Pointer(uintptr(unsafe.Pointer(&b[0])) + uintptr(i)*unsafe.Sizeof(b[0])))
}

// Load64 will load from b at index i.
// The caller must ensure that b[i:i+8] is within the slice.
func Load64[I Indexer](b []byte, i I) uint64 {
	return *(*uint64)(unsafe.Pointer(uintptr(unsafe.Pointer(&b[0])) + uintptr(i)*unsafe.Sizeof(b[0])))
}

// Store64 will store v at the start of b.
func Store64(b []byte, v uint64) {
	_ = b[7]
	*(*uint64)(unsafe.Pointer(&b[0])) = v
}
