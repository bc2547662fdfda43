// Package le provides little-endian loads and stores, using unaligned
// unsafe loads on platforms where that is safe and fast.
package le

// Indexer is the set of index types accepted by the Load functions.
type Indexer interface {
	int | int8 | int16 | int32 | int64 | uint | uint8 | uint16 | uint32 | uint64
}
