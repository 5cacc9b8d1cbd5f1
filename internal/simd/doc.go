// Package simd provides the dispatched vector kernels used for distance
// scoring.
//
// Runtime CPU feature detection (via golang.org/x/sys/cpu) selects between
// the scalar reference loops and the lane-unrolled variants that the
// compiler vectorizes for the detected instruction set. The selected ISA is
// reported through Active and can be forced with the POCKETVEC_SIMD
// environment variable ("serial", "neon", "sve", "avx2").
//
// Kernels exist for float32 arenas (Dot, SquaredL2, BitMismatch, Overlap)
// and for int8 arenas (DotI8, SquaredL2I8, MismatchI8, OverlapI8). The int8
// kernels accumulate in int32 and never overflow for dimensions below 2^15.
package simd
