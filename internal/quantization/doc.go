// Package quantization implements the symmetric 8-bit scalar quantization
// used by i8 vector arenas. A single per-index scale maps float32 elements
// into [-127, 127]; the scale is fitted once from the first vectors written
// and recorded in snapshots so save/load is lossless relative to the
// quantized representation.
package quantization
