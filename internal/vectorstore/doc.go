// Package vectorstore owns the contiguous scalar arena behind an index.
//
// A Store maps external int64 keys to internal slots. Slots are append-only:
// a dropped slot is tombstoned and never reused until the index is rebuilt,
// which keeps slot ids stable for the graph's adjacency lists. The arena is
// either float32 or int8; i8 stores quantize on write through a single
// per-index scale and score queries in the quantized domain.
package vectorstore
